package advisor

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func profile(bt domain.BusinessType, seats int, area float64, flags map[string]bool) domain.BusinessProfile {
	return domain.BusinessProfile{
		BusinessType:    bt,
		SeatingCapacity: &seats,
		FloorArea:       &area,
		Services:        flags,
	}
}

func noteIDs(recs []domain.Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestDefaultNotesCompile(t *testing.T) {
	a, err := NewDefault(quiet())
	require.NoError(t, err)
	assert.Equal(t, len(DefaultNotes()), a.NotesCount())
}

func TestRecommend(t *testing.T) {
	a, err := NewDefault(quiet())
	require.NoError(t, err)

	tests := []struct {
		name    string
		profile domain.BusinessProfile
		want    []string
	}{
		{
			name:    "small cafe",
			profile: profile(domain.BusinessCafe, 12, 40, nil),
			want:    []string{},
		},
		{
			name:    "large by area",
			profile: profile(domain.BusinessCafe, 10, 201, nil),
			want:    []string{"large-venue"},
		},
		{
			name:    "large by seats",
			profile: profile(domain.BusinessCafe, 51, 80, nil),
			want:    []string{"large-venue"},
		},
		{
			name:    "thresholds are exclusive",
			profile: profile(domain.BusinessCafe, 50, 200, map[string]bool{domain.FlagGasUsage: true}),
			want:    []string{"fire-safety"},
		},
		{
			name:    "gas in small kitchen",
			profile: profile(domain.BusinessFastFood, 10, 100, map[string]bool{domain.FlagGasUsage: true}),
			want:    []string{},
		},
		{
			name:    "delivery only type",
			profile: profile(domain.BusinessDeliveryOnly, 0, 30, nil),
			want:    []string{"delivery"},
		},
		{
			name: "full restaurant",
			profile: profile(domain.BusinessRestaurant, 45, 150, map[string]bool{
				domain.FlagAlcoholService:     true,
				domain.FlagGasUsage:           true,
				domain.FlagMeatHandling:       true,
				domain.FlagLateNightOperation: true,
				domain.FlagOutdoorSeating:     true,
			}),
			want: []string{"alcohol-licensing", "fire-safety", "late-night", "meat-handling", "outdoor-seating"},
		},
		{
			name: "round the clock bar",
			profile: profile(domain.BusinessBarPub, 60, 90, map[string]bool{
				domain.FlagTwentyFourSeven: true,
				domain.FlagLiveMusic:       true,
			}),
			want: []string{"large-venue", "late-night", "live-music"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Recommend(tt.profile)
			assert.Equal(t, tt.want, noteIDs(got))
		})
	}
}

func TestRecommendReadsAllNamespaces(t *testing.T) {
	a, err := NewDefault(quiet())
	require.NoError(t, err)

	p := profile(domain.BusinessRestaurant, 20, 120, nil)
	p.KitchenFeatures = map[string]bool{domain.FlagGasUsage: true}
	p.OperationalHours = map[string]bool{domain.FlagLateNightOperation: true}

	got := a.Recommend(p)
	assert.Equal(t, []string{"fire-safety", "late-night"}, noteIDs(got))
	assert.Equal(t, domain.PriorityHigh, got[0].Priority)
	assert.NotEmpty(t, got[0].Message)
}

func TestNewRejectsInvalidNotes(t *testing.T) {
	tests := []struct {
		name string
		note Note
	}{
		{"syntax", Note{ID: "bad", Priority: domain.PriorityLow, Expression: "floorArea >"}},
		{"non bool", Note{ID: "num", Priority: domain.PriorityLow, Expression: "floorArea * 2.0"}},
		{"unknown variable", Note{ID: "var", Priority: domain.PriorityLow, Expression: "revenue > 10"}},
		{"bad priority", Note{ID: "prio", Priority: "urgent", Expression: "true"}},
		{"missing id", Note{Priority: domain.PriorityLow, Expression: "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New([]Note{tt.note}, quiet())
			assert.Error(t, err)
		})
	}

	t.Run("duplicate id", func(t *testing.T) {
		n := Note{ID: "dup", Priority: domain.PriorityLow, Expression: "true"}
		_, err := New([]Note{n, n}, quiet())
		assert.Error(t, err)
	})
}

func TestEvaluationErrorSkipsNote(t *testing.T) {
	a, err := New([]Note{
		{ID: "missing-flag", Priority: domain.PriorityLow, Expression: "flags.helipad"},
		{ID: "always", Priority: domain.PriorityLow, Expression: "true"},
	}, quiet())
	require.NoError(t, err)

	got := a.Recommend(profile(domain.BusinessCafe, 1, 10, nil))
	assert.Equal(t, []string{"always"}, noteIDs(got))
}

func TestUnknownProfileFlagsAreVisible(t *testing.T) {
	a, err := New([]Note{
		{ID: "helipad", Priority: domain.PriorityLow, Expression: `"helipad" in flags && flags.helipad`},
	}, quiet())
	require.NoError(t, err)

	assert.Empty(t, a.Recommend(profile(domain.BusinessCafe, 1, 10, nil)))
	assert.Len(t, a.Recommend(profile(domain.BusinessCafe, 1, 10, map[string]bool{"helipad": true})), 1)
}
