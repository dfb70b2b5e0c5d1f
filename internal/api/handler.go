package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-regtech/kestrel/internal/advisor"
	"github.com/opensource-regtech/kestrel/internal/bus"
	"github.com/opensource-regtech/kestrel/internal/domain"
	"github.com/opensource-regtech/kestrel/internal/metrics"
	"github.com/opensource-regtech/kestrel/internal/report"
	"github.com/opensource-regtech/kestrel/internal/rules"
	"github.com/opensource-regtech/kestrel/internal/worker"
)

// Pinger is anything the health endpoint can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for API handlers.
type Handler struct {
	engine    *rules.Engine
	advisor   *advisor.Advisor
	reports   *report.Service
	publisher *bus.Publisher
	stats     *worker.Worker
	checks    map[string]Pinger
	version   string
}

// NewHandler creates a new API handler. A nil advisor yields no
// recommendations; a nil report service answers with fallback reports.
func NewHandler(deps Dependencies) *Handler {
	reports := deps.Reports
	if reports == nil {
		reports = report.NewService()
	}
	checks := make(map[string]Pinger)
	for name, p := range deps.HealthChecks {
		if p != nil {
			checks[name] = p
		}
	}
	return &Handler{
		engine:    deps.Engine,
		advisor:   deps.Advisor,
		reports:   reports,
		publisher: bus.NewPublisher(deps.Bus, slog.Default()),
		stats:     deps.Stats,
		checks:    checks,
		version:   deps.Version,
	}
}

// MatchResponse is the response for POST /api/v1/requirements/match.
type MatchResponse struct {
	Result          *domain.MatchResult     `json:"result"`
	Recommendations []domain.Recommendation `json:"recommendations"`
}

// RecommendationsResponse is the response for POST /api/v1/recommendations.
type RecommendationsResponse struct {
	Recommendations []domain.Recommendation `json:"recommendations"`
	Count           int                     `json:"count"`
}

// ReportResponse is the response for POST /api/v1/reports.
type ReportResponse struct {
	Report *domain.Report      `json:"report"`
	Result *domain.MatchResult `json:"result"`
}

// RequirementsResponse is the response for GET /api/v1/requirements.
type RequirementsResponse struct {
	Requirements []domain.RequirementRecord `json:"requirements"`
	Count        int                        `json:"count"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// MatchRequirements handles POST /api/v1/requirements/match.
func (h *Handler) MatchRequirements(w http.ResponseWriter, r *http.Request) {
	profile, ok := decodeProfile(w, r)
	if !ok {
		return
	}

	result, ok := h.match(w, r, profile)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, MatchResponse{
		Result:          result,
		Recommendations: h.recommend(profile),
	})
}

// Recommendations handles POST /api/v1/recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	profile, ok := decodeProfile(w, r)
	if !ok {
		return
	}
	if err := profile.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}

	recs := h.recommend(profile)
	writeJSON(w, http.StatusOK, RecommendationsResponse{
		Recommendations: recs,
		Count:           len(recs),
	})
}

// GenerateReport handles POST /api/v1/reports. Generator failures surface
// only as source "fallback".
func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	profile, ok := decodeProfile(w, r)
	if !ok {
		return
	}

	result, ok := h.match(w, r, profile)
	if !ok {
		return
	}

	rep := h.reports.Build(r.Context(), result)
	h.publisher.PublishReport(r.Context(), rep)

	writeJSON(w, http.StatusOK, ReportResponse{Report: rep, Result: result})
}

// ListRequirements handles GET /api/v1/requirements with an optional
// ?category= filter.
func (h *Handler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	all := h.engine.GetAllRequirements()

	if raw := r.URL.Query().Get("category"); raw != "" {
		category := domain.Category(raw)
		if category.Normalize() != category {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "unknown category " + strconv.Quote(raw), Field: "category"})
			return
		}
		filtered := make([]domain.RequirementRecord, 0, len(all))
		for _, rec := range all {
			if rec.Category == category {
				filtered = append(filtered, rec)
			}
		}
		all = filtered
	}

	writeJSON(w, http.StatusOK, RequirementsResponse{Requirements: all, Count: len(all)})
}

// GetRequirement handles GET /api/v1/requirements/{id}.
func (h *Handler) GetRequirement(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.engine.GetRequirementDetails(id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// BusinessTypes handles GET /api/v1/business-types.
func (h *Handler) BusinessTypes(w http.ResponseWriter, r *http.Request) {
	types := domain.BusinessTypes()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"businessTypes": types,
		"count":         len(types),
	})
}

// Stats handles GET /api/v1/stats. It answers 404 when no event worker
// is consuming the bus.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeError(w, http.StatusNotFound, "event statistics are disabled")
		return
	}
	writeJSON(w, http.StatusOK, h.stats.GetStats())
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	components := make(map[string]string, len(h.checks))

	for name, p := range h.checks {
		if err := p.Ping(r.Context()); err != nil {
			slog.Warn("health check failed", "component", name, "error", err)
			components[name] = "unavailable"
			status = "degraded"
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"version":    h.version,
		"components": components,
	})
}

// Ready reports whether a catalog is loaded.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil || h.engine.RequirementsCount() == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"ready": false,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ready":        true,
		"requirements": h.engine.RequirementsCount(),
		"rules":        h.engine.RulesCount(),
	})
}

// match runs the engine and writes the error response itself on failure.
func (h *Handler) match(w http.ResponseWriter, r *http.Request, profile domain.BusinessProfile) (*domain.MatchResult, bool) {
	result, err := h.engine.FindApplicableRequirements(profile)
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}

	metrics.Matches.WithLabelValues(string(profile.BusinessType), result.Summary.ComplexityLevel).Inc()
	metrics.MatchedRequirements.Observe(float64(result.Summary.TotalRequirements))

	slog.Debug("requirements matched",
		"business_type", profile.BusinessType,
		"total", result.Summary.TotalRequirements,
		"complexity", result.Summary.ComplexityLevel,
		"trace_id", GetTraceID(r.Context()),
	)

	h.publisher.PublishMatch(r.Context(), result)
	return result, true
}

func (h *Handler) recommend(profile domain.BusinessProfile) []domain.Recommendation {
	if h.advisor == nil {
		return []domain.Recommendation{}
	}
	recs := h.advisor.Recommend(profile)
	if recs == nil {
		recs = []domain.Recommendation{}
	}
	return recs
}

func decodeProfile(w http.ResponseWriter, r *http.Request) (domain.BusinessProfile, bool) {
	var profile domain.BusinessProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return profile, false
		}
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			writeDomainError(w, domain.NewValidationError(typeErr.Field,
				fmt.Sprintf("cannot use JSON %s as %s", typeErr.Value, typeErr.Type)))
			return profile, false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return profile, false
	}
	return profile, true
}

// writeDomainError maps engine errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		metrics.ValidationFailures.WithLabelValues(verr.Field).Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Field: verr.Field})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
