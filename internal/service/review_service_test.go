package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateScanPlan generates a DRAFT scan plan with n HIGH vulnerabilities.
func generateScanPlan(t *testing.T, env *testEnv, tenantID string, n int) *GenerateResult {
	t.Helper()
	vulns := make([]domain.Vulnerability, 0, n)
	for i := 0; i < n; i++ {
		vulns = append(vulns, testutil.NewTestVulnerability("finding", "HIGH", testutil.WithPort(8000+i)))
	}
	origin := testutil.NewTestScan(tenantID, testutil.WithScanCode("SCAN_T"), testutil.WithVulnerabilities(vulns...))
	res, err := env.planSvc.Generate(context.Background(), GenerateRequest{Origin: origin, Actor: "gen"})
	require.NoError(t, err)
	require.Len(t, res.Items, n)
	return res
}

func TestReview_CountersFollowDecisions(t *testing.T) {
	env := newTestEnv(t, testutil.NewTestDB(t), nil)
	ctx := context.Background()
	res := generateScanPlan(t, env, "t1", 3)

	_, err := env.review.Validate(ctx, res.Items[0].ID)
	require.NoError(t, err)
	_, err = env.review.Validate(ctx, res.Items[1].ID)
	require.NoError(t, err)
	excluded, err := env.review.Exclude(ctx, res.Items[2].ID)
	require.NoError(t, err)
	assert.False(t, excluded.Included)

	plan, err := env.planSvc.GetByID(ctx, res.Plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Counts.Total)
	assert.Equal(t, 2, plan.Counts.Validated)
	assert.Equal(t, 1, plan.Counts.Excluded)

	_, err = env.review.Reopen(ctx, res.Items[0].ID)
	require.NoError(t, err)
	plan, err = env.planSvc.GetByID(ctx, res.Plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Counts.Validated)
}

func TestReview_IncludeExcludedItemIsStateError(t *testing.T) {
	env := newTestEnv(t, testutil.NewTestDB(t), nil)
	ctx := context.Background()
	res := generateScanPlan(t, env, "t1", 1)
	id := res.Items[0].ID

	_, err := env.review.Exclude(ctx, id)
	require.NoError(t, err)

	_, err = env.review.SetIncluded(ctx, id, true)
	assert.ErrorIs(t, err, domain.ErrState)

	it, err := env.review.Validate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.ItemValidated, it.Status)
	assert.True(t, it.Included)

	it, err = env.review.SetIncluded(ctx, id, false)
	require.NoError(t, err)
	assert.False(t, it.Eligible())
}

func TestReview_EditIsAtomic(t *testing.T) {
	env := newTestEnv(t, testutil.NewTestDB(t), nil)
	ctx := context.Background()
	res := generateScanPlan(t, env, "t1", 1)
	id := res.Items[0].ID

	title := "Close port"
	_, err := env.review.Edit(ctx, id, domain.ItemEdit{Title: &title, Severity: ptr("major")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored, err := env.review.GetItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "finding", stored.Title)

	_, err = env.review.Edit(ctx, id, domain.ItemEdit{Title: &title, Severity: ptr("critical"), DueDays: ptr(3)})
	require.NoError(t, err)

	stored, err = env.review.GetItem(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, title, stored.Title)
	assert.Equal(t, domain.SeverityCritical, stored.Severity)
	assert.Equal(t, 3, stored.DueDays)

	plan, err := env.planSvc.GetByID(ctx, res.Plan.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, plan.Counts.Critical)
	assert.Equal(t, 0, plan.Counts.High)
}

func TestReview_EmptyEditRejected(t *testing.T) {
	env := newTestEnv(t, testutil.NewTestDB(t), nil)
	res := generateScanPlan(t, env, "t1", 1)
	_, err := env.review.Edit(context.Background(), res.Items[0].ID, domain.ItemEdit{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestReview_AssignManual(t *testing.T) {
	env := newTestEnv(t, testutil.NewTestDB(t), nil)
	res := generateScanPlan(t, env, "t1", 1)

	it, err := env.review.Assign(context.Background(), res.Items[0].ID, domain.Assignee{ID: "u-1", Name: "Kim"})
	require.NoError(t, err)
	assert.Equal(t, domain.AssignManual, it.Method)
	assert.Equal(t, "Kim", it.Assignee.Name)
}

func TestReview_PublishedPlanIsFrozen(t *testing.T) {
	env := newTestEnv(t, testutil.NewTestDB(t), nil)
	ctx := context.Background()
	res := generateScanPlan(t, env, "t1", 2)

	_, err := env.review.Validate(ctx, res.Items[0].ID)
	require.NoError(t, err)
	_, err = env.publisher.Publish(ctx, PublishRequest{PlanID: res.Plan.ID, Actor: "lead"})
	require.NoError(t, err)

	_, err = env.review.Validate(ctx, res.Items[1].ID)
	assert.ErrorIs(t, err, domain.ErrState)
	_, err = env.review.Edit(ctx, res.Items[0].ID, domain.ItemEdit{Title: ptr("changed")})
	assert.ErrorIs(t, err, domain.ErrState)

	actions, err := env.actionSvc.List(ctx, repositoryFilterForPlan(res.Plan.ID))
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Contains(t, actions[0].Title, "finding")
}

func TestReview_UnknownItem(t *testing.T) {
	env := newTestEnv(t, testutil.NewTestDB(t), nil)
	_, err := env.review.Validate(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
