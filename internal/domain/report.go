package domain

import "time"

// Report sources.
const (
	ReportSourceGenerated = "generated"
	ReportSourceFallback  = "fallback"
)

// Report is the narrative licensing report handed back to callers.
type Report struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Summary            string          `json:"summary"`
	Sections           []ReportSection `json:"sections"`
	Recommendations    []string        `json:"recommendations"`
	TotalEstimatedCost string          `json:"totalEstimatedCost"`
	EstimatedTimeframe string          `json:"estimatedTimeframe"`
	Source             string          `json:"source"`
	GeneratedAt        time.Time       `json:"generatedAt"`
}

// ReportSection is one titled block of a Report.
type ReportSection struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Priority string `json:"priority"`
}
