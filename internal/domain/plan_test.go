package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestNewPlan_UsesOriginScope(t *testing.T) {
	p := NewPlan(&ScanOrigin{ID: "1a2b3c4d-5e6f-7a8b-9c0d-112233445566", TenantID: "t1"}, testNow)

	assert.Equal(t, PlanNotStarted, p.Status)
	assert.Equal(t, OriginScan, p.OriginKind)
	assert.Equal(t, "SCAN_1A2B3C4D", p.ScopeToken)
	assert.NotEmpty(t, p.ID)
}

func TestBeginGeneration(t *testing.T) {
	recent := testNow.Add(-time.Minute)
	old := testNow.Add(-time.Hour)
	generated := testNow.Add(-24 * time.Hour)

	cases := []struct {
		name       string
		plan       Plan
		regenerate bool
		prior      PlanStatus
		wantErr    bool
	}{
		{"from not started", Plan{Status: PlanNotStarted}, false, PlanNotStarted, false},
		{"draft without regenerate", Plan{Status: PlanDraft}, false, "", true},
		{"draft with regenerate", Plan{Status: PlanDraft}, true, PlanDraft, false},
		{"fresh generating", Plan{Status: PlanGenerating, GenerationStartedAt: &recent}, false, "", true},
		{"stale first generation", Plan{Status: PlanGenerating, GenerationStartedAt: &old}, false, PlanNotStarted, false},
		{"stale regeneration", Plan{Status: PlanGenerating, GenerationStartedAt: &old, GeneratedAt: &generated}, true, PlanDraft, false},
		{"published", Plan{Status: PlanPublished}, true, "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := tc.plan
			prior, err := p.BeginGeneration(testNow, 10*time.Minute, tc.regenerate)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrState))
				assert.Equal(t, tc.plan.Status, p.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.prior, prior)
			assert.Equal(t, PlanGenerating, p.Status)
			require.NotNil(t, p.GenerationStartedAt)
			assert.Equal(t, testNow, *p.GenerationStartedAt)
		})
	}
}

func TestBeginGeneration_TakeoverDisabled(t *testing.T) {
	old := testNow.Add(-72 * time.Hour)
	p := Plan{Status: PlanGenerating, GenerationStartedAt: &old}

	_, err := p.BeginGeneration(testNow, 0, true)
	assert.ErrorIs(t, err, ErrState)
}

func TestGenerationLifecycle(t *testing.T) {
	p := Plan{Status: PlanNotStarted}
	prior, err := p.BeginGeneration(testNow, 0, false)
	require.NoError(t, err)

	require.NoError(t, p.FailGeneration(prior, "scanner payload malformed", testNow))
	assert.Equal(t, PlanNotStarted, p.Status)
	assert.Equal(t, "scanner payload malformed", p.LastError)
	assert.Nil(t, p.GenerationStartedAt)

	_, err = p.BeginGeneration(testNow, 0, false)
	require.NoError(t, err)
	assert.Empty(t, p.LastError)

	require.NoError(t, p.CompleteGeneration(PlanCounts{Total: 3, Critical: 1}, "alice", testNow))
	assert.Equal(t, PlanDraft, p.Status)
	assert.Equal(t, 3, p.Counts.Total)
	assert.Equal(t, "alice", p.GeneratedBy)

	assert.ErrorIs(t, p.CompleteGeneration(PlanCounts{}, "alice", testNow), ErrState)
}

func TestOwnsGeneration(t *testing.T) {
	p := Plan{Status: PlanGenerating}
	started := testNow.Add(-time.Hour)
	p.GenerationStartedAt = &started
	assert.True(t, p.OwnsGeneration(&started))

	_, err := p.BeginGeneration(testNow, time.Minute, false)
	require.NoError(t, err)
	assert.False(t, p.OwnsGeneration(&started))
	assert.True(t, p.OwnsGeneration(p.GenerationStartedAt))
	assert.False(t, p.OwnsGeneration(nil))

	require.NoError(t, p.CompleteGeneration(PlanCounts{}, "alice", testNow))
	assert.False(t, p.OwnsGeneration(&testNow))
}

func TestMarkPublished(t *testing.T) {
	p := Plan{Status: PlanDraft}
	require.NoError(t, p.MarkPublished("bob", testNow))
	assert.Equal(t, PlanPublished, p.Status)
	assert.Equal(t, "bob", p.PublishedBy)
	require.NotNil(t, p.PublishedAt)

	err := p.MarkPublished("bob", testNow)
	var se *StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "PUBLISHED", se.Status)
}

func TestCountItems(t *testing.T) {
	items := []*Item{
		{Severity: SeverityCritical, Status: ItemValidated},
		{Severity: SeverityMajor, Status: ItemExcluded},
		{Severity: SeverityHigh, Status: ItemProposed},
		{Severity: SeverityMinor, Status: ItemPublished},
		{Severity: SeverityInfo, Status: ItemProposed},
		{Severity: SeverityLow, Status: ItemValidated},
	}
	c := CountItems(items)

	assert.Equal(t, PlanCounts{
		Total: 6, Critical: 1, High: 2, Medium: 1, Low: 2,
		Validated: 2, Excluded: 1, Published: 1,
	}, c)
}
