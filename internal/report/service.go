package report

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/opensource-regtech/kestrel/internal/domain"
	"github.com/opensource-regtech/kestrel/internal/metrics"
)

const defaultTimeout = 20 * time.Second

var tracer = otel.Tracer("kestrel-report")

// Service builds reports, substituting the deterministic fallback whenever
// the generator is absent, fails or runs out of time.
type Service struct {
	generator Generator
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// ServiceOption is a functional option for Service.
type ServiceOption func(*Service)

// WithGenerator sets the narrative generator.
func WithGenerator(g Generator) ServiceOption {
	return func(s *Service) {
		s.generator = g
	}
}

// WithTimeout bounds a single generator call.
func WithTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a report service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		timeout: defaultTimeout,
		logger:  slog.Default(),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasGenerator reports whether a narrative generator is configured.
func (s *Service) HasGenerator() bool {
	return s.generator != nil
}

// Build returns a report for result. It never fails: generator errors are
// logged and answered with the fallback report.
func (s *Service) Build(ctx context.Context, result *domain.MatchResult) *domain.Report {
	start := time.Now()
	rep := s.generate(ctx, result)

	rep.ID = s.newID()
	rep.GeneratedAt = s.now().UTC()

	metrics.Reports.WithLabelValues(rep.Source).Inc()
	metrics.ReportDuration.WithLabelValues(rep.Source).Observe(time.Since(start).Seconds())
	return rep
}

func (s *Service) generate(ctx context.Context, result *domain.MatchResult) *domain.Report {
	if s.generator == nil {
		return Fallback(result)
	}

	ctx, span := tracer.Start(ctx, "report.generate",
		trace.WithAttributes(
			attribute.String("business.type", string(result.BusinessProfile.BusinessType)),
			attribute.Int("requirements.total", result.Summary.TotalRequirements),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rep, err := s.generator.Generate(ctx, result, result.BusinessProfile)
	if err == nil && rep == nil {
		err = ErrEmptyResponse
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generator failed")
		s.logger.Warn("report generator failed, using fallback",
			"error", err,
			"business_type", result.BusinessProfile.BusinessType,
		)
		return Fallback(result)
	}

	rep.Source = domain.ReportSourceGenerated
	if rep.TotalEstimatedCost == "" {
		rep.TotalEstimatedCost = CostBand(result.Summary.ComplexityLevel)
	}
	if rep.EstimatedTimeframe == "" {
		rep.EstimatedTimeframe = result.Summary.EstimatedProcessingTime
	}
	return rep
}
