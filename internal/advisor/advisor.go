// Package advisor derives qualitative recommendations from a business profile
// using CEL-compiled note rules.
package advisor

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

// Note is an advisory rule. Expression is a CEL boolean over the variables
// businessType (string), seatingCapacity (int), floorArea (double) and
// flags (map of capability name to bool, every known flag present).
type Note struct {
	ID         string `json:"id" yaml:"id"`
	Priority   string `json:"priority" yaml:"priority"`
	Expression string `json:"expression" yaml:"expression"`
	Message    string `json:"message" yaml:"message"`
}

type compiledNote struct {
	note    Note
	program cel.Program
}

// Advisor evaluates compiled notes. It is immutable and safe for concurrent use.
type Advisor struct {
	env    *cel.Env
	notes  []compiledNote
	logger *slog.Logger
}

// Option configures an Advisor.
type Option func(*Advisor)

// WithLogger sets the logger used for evaluation failures.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Advisor) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// New compiles notes in order. Any invalid expression fails construction.
func New(notes []Note, opts ...Option) (*Advisor, error) {
	env, err := cel.NewEnv(
		cel.Variable("businessType", cel.StringType),
		cel.Variable("seatingCapacity", cel.IntType),
		cel.Variable("floorArea", cel.DoubleType),
		cel.Variable("flags", cel.MapType(cel.StringType, cel.BoolType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	a := &Advisor{
		env:    env,
		notes:  make([]compiledNote, 0, len(notes)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}

	seen := make(map[string]struct{}, len(notes))
	for _, n := range notes {
		if _, dup := seen[n.ID]; dup {
			return nil, fmt.Errorf("duplicate note %s", n.ID)
		}
		seen[n.ID] = struct{}{}

		compiled, err := a.compile(n)
		if err != nil {
			return nil, err
		}
		a.notes = append(a.notes, *compiled)
	}
	return a, nil
}

// NewDefault returns an advisor over DefaultNotes.
func NewDefault(opts ...Option) (*Advisor, error) {
	return New(DefaultNotes(), opts...)
}

// Recommend returns the notes whose expressions hold for profile, in note
// order. The profile is expected to be valid.
func (a *Advisor) Recommend(profile domain.BusinessProfile) []domain.Recommendation {
	activation := map[string]any{
		"businessType":    string(profile.BusinessType),
		"seatingCapacity": int64(profile.Seats()),
		"floorArea":       profile.Area(),
		"flags":           flagMap(profile),
	}

	out := make([]domain.Recommendation, 0)
	for _, cn := range a.notes {
		val, _, err := cn.program.Eval(activation)
		if err != nil {
			a.logger.Warn("advisory note evaluation failed",
				"note_id", cn.note.ID,
				"error", err,
			)
			continue
		}
		if hit, ok := val.(types.Bool); ok && bool(hit) {
			out = append(out, domain.Recommendation{
				ID:       cn.note.ID,
				Priority: cn.note.Priority,
				Message:  cn.note.Message,
			})
		}
	}
	return out
}

// NotesCount returns the number of compiled notes.
func (a *Advisor) NotesCount() int {
	return len(a.notes)
}

func (a *Advisor) compile(n Note) (*compiledNote, error) {
	if n.ID == "" {
		return nil, fmt.Errorf("note id is required")
	}
	switch n.Priority {
	case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
	default:
		return nil, fmt.Errorf("note %s: unknown priority %q", n.ID, n.Priority)
	}

	ast, issues := a.env.Compile(n.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile note %s: %w", n.ID, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("note %s: expression must return bool, got %s", n.ID, ast.OutputType())
	}

	program, err := a.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for note %s: %w", n.ID, err)
	}
	return &compiledNote{note: n, program: program}, nil
}

func flagMap(profile domain.BusinessProfile) map[string]bool {
	flags := make(map[string]bool, len(domain.KnownFlags()))
	for _, name := range domain.KnownFlags() {
		flags[name] = false
	}
	for name, on := range profile.Capabilities() {
		flags[name] = on
	}
	return flags
}
