package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

var (
	ErrEmptyResponse     = errors.New("empty response from model")
	ErrMalformedResponse = errors.New("malformed report from model")
)

const systemInstruction = "אתה יועץ רישוי עסקים בישראל. כתוב בעברית, בשפה עניינית וברורה, " +
	"והתבסס אך ורק על הדרישות שסופקו. אל תמציא דרישות, עלויות או רשויות."

// completeFunc sends a prompt to a text model and returns the raw reply.
type completeFunc func(ctx context.Context, prompt string) (string, error)

// GeminiGenerator asks a Gemini model for a structured JSON report.
type GeminiGenerator struct {
	client   *genai.Client
	complete completeFunc
}

// NewGeminiClient opens a Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

// NewGeminiGenerator builds a generator over client using the named model.
func NewGeminiGenerator(client *genai.Client, modelName string, temperature float32) *GeminiGenerator {
	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemInstruction)}}

	return &GeminiGenerator{
		client: client,
		complete: func(ctx context.Context, prompt string) (string, error) {
			resp, err := model.GenerateContent(ctx, genai.Text(prompt))
			if err != nil {
				return "", err
			}
			return responseText(resp), nil
		},
	}
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, result *domain.MatchResult, profile domain.BusinessProfile) (*domain.Report, error) {
	raw, err := g.complete(ctx, buildPrompt(result, profile))
	if err != nil {
		return nil, fmt.Errorf("generate report: %w", err)
	}
	return parseReport(raw)
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

func buildPrompt(result *domain.MatchResult, profile domain.BusinessProfile) string {
	var b strings.Builder

	b.WriteString("פרופיל העסק:\n")
	fmt.Fprintf(&b, "- סוג עסק: %s\n", businessTypeName(profile.BusinessType))
	fmt.Fprintf(&b, "- מקומות ישיבה: %d\n", profile.Seats())
	fmt.Fprintf(&b, "- שטח (מ\"ר): %g\n", profile.Area())
	if caps := profile.EnabledCapabilities(); len(caps) > 0 {
		fmt.Fprintf(&b, "- מאפיינים: %s\n", strings.Join(caps, ", "))
	}

	b.WriteString("\nדרישות רישוי שנמצאו:\n")
	for _, c := range domain.Categories() {
		rows := result.Requirements[c]
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", SectionTitle(c))
		for _, row := range rows {
			kind := "רשות"
			if row.Mandatory {
				kind = "חובה"
			}
			fmt.Fprintf(&b, "- [%s] %s (%s, %s): %s\n", row.ID, row.Title, kind, row.Authority, row.Description)
		}
	}

	s := result.Summary
	fmt.Fprintf(&b, "\nסיכום: %d דרישות, %d חובה, מורכבות %s, זמן טיפול משוער %s.\n",
		s.TotalRequirements, s.MandatoryRequirements, s.ComplexityLevel, s.EstimatedProcessingTime)

	b.WriteString(`
החזר אובייקט JSON בלבד במבנה הבא:
{"title": string, "summary": string,
 "sections": [{"title": string, "content": string, "priority": "high"|"medium"|"low"}],
 "recommendations": [string], "totalEstimatedCost": string, "estimatedTimeframe": string}
`)
	return b.String()
}

type generatedReport struct {
	Title              string                 `json:"title"`
	Summary            string                 `json:"summary"`
	Sections           []domain.ReportSection `json:"sections"`
	Recommendations    []string               `json:"recommendations"`
	TotalEstimatedCost string                 `json:"totalEstimatedCost"`
	EstimatedTimeframe string                 `json:"estimatedTimeframe"`
}

func parseReport(raw string) (*domain.Report, error) {
	raw = stripFences(raw)
	if raw == "" {
		return nil, ErrEmptyResponse
	}

	var g generatedReport
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if g.Title == "" || len(g.Sections) == 0 {
		return nil, fmt.Errorf("%w: missing title or sections", ErrMalformedResponse)
	}

	for i := range g.Sections {
		switch g.Sections[i].Priority {
		case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		default:
			g.Sections[i].Priority = domain.PriorityMedium
		}
	}
	if g.Recommendations == nil {
		g.Recommendations = []string{}
	}

	return &domain.Report{
		Title:              g.Title,
		Summary:            g.Summary,
		Sections:           g.Sections,
		Recommendations:    g.Recommendations,
		TotalEstimatedCost: g.TotalEstimatedCost,
		EstimatedTimeframe: g.EstimatedTimeframe,
		Source:             domain.ReportSourceGenerated,
	}, nil
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
