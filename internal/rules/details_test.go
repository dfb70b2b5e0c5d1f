package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-regtech/kestrel/internal/catalog"
	"github.com/opensource-regtech/kestrel/internal/domain"
)

func TestGetRequirementDetails(t *testing.T) {
	engine := defaultEngine(t)

	details, err := engine.GetRequirementDetails("FIR-001")
	require.NoError(t, err)

	assert.Equal(t, "FIR-001", details.ID)
	assert.Equal(t, []string{"FIR-002", "FIR-003", "FIR-004"}, recordIDs(details.RelatedRequirements))
	assert.NotEmpty(t, details.ProcessingTips)
	assert.Equal(t, TipsFor("כבאות והצלה"), details.ProcessingTips)
}

func TestGetRequirementDetailsNotFound(t *testing.T) {
	engine := defaultEngine(t)

	details, err := engine.GetRequirementDetails("ZZZ-999")
	require.Error(t, err)
	assert.Nil(t, details)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Contains(t, err.Error(), "ZZZ-999")
}

func TestGetRequirementDetailsGenericTips(t *testing.T) {
	cat, err := catalog.New([]domain.RequirementRecord{
		{ID: "X-1", Authority: "Port Authority"},
		{ID: "X-2", Authority: "Port Authority"},
		{ID: "X-3", Authority: "Customs"},
	}, nil)
	require.NoError(t, err)
	engine := newTestEngine(t, cat)

	details, err := engine.GetRequirementDetails("X-1")
	require.NoError(t, err)
	assert.Equal(t, genericTips, details.ProcessingTips)
	assert.Equal(t, []string{"X-2"}, recordIDs(details.RelatedRequirements))

	lone, err := engine.GetRequirementDetails("X-3")
	require.NoError(t, err)
	assert.Empty(t, lone.RelatedRequirements)
}

func TestTipsForReturnsCopy(t *testing.T) {
	tips := TipsFor("unknown")
	tips[0] = "changed"
	assert.NotEqual(t, "changed", TipsFor("unknown")[0])
}

func recordIDs(recs []domain.RequirementRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
