package rules

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opensource-regtech/kestrel/internal/catalog"
	"github.com/opensource-regtech/kestrel/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, cat *catalog.Catalog) *Engine {
	t.Helper()
	return NewEngine(cat, WithLogger(quietLogger()), WithClock(func() time.Time { return fixedNow }))
}

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	return newTestEngine(t, cat)
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func profileOf(bt domain.BusinessType, seats int, area float64, services ...string) domain.BusinessProfile {
	p := domain.BusinessProfile{
		BusinessType:    bt,
		SeatingCapacity: intPtr(seats),
		FloorArea:       floatPtr(area),
		Services:        map[string]bool{},
	}
	for _, s := range services {
		p.Services[s] = true
	}
	return p
}

func ids(rows []domain.MatchedRequirement) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
