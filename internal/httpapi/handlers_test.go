package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexanderramin/remediate/internal/classify"
	"github.com/alexanderramin/remediate/internal/codes"
	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/normalize"
	"github.com/alexanderramin/remediate/internal/repository"
	"github.com/alexanderramin/remediate/internal/service"
	"github.com/alexanderramin/remediate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	retry := db.RetryPolicy{Attempts: 5, BaseDelay: 5 * time.Millisecond, MaxDelay: 50 * time.Millisecond}
	allocator := codes.NewAllocator(codes.DefaultPrefix, codes.DefaultWidth)
	items := repository.NewSQLiteItemRepo(database)

	svcs := Services{
		Plans: service.NewPlanService(repository.NewSQLitePlanRepo(database), items, uow,
			normalize.New(normalize.DefaultOptions()),
			classify.New(repository.NewSQLiteContactRepo(database)),
			allocator, service.GenerationOptions{StaleAfter: time.Minute, Retry: retry}),
		Review:    service.NewReviewService(items, uow),
		Publisher: service.NewPublishService(uow, retry),
		Actions:   service.NewActionService(repository.NewSQLiteActionRepo(database), uow, allocator, retry),
	}
	return NewServer(svcs, database, nil, "test")
}

func do(t *testing.T, s *Server, method, path, tenant string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tenant != "" {
		req.Header.Set(HeaderTenant, tenant)
	}
	req.Header.Set(HeaderActor, "reviewer-1")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func scanBody(tenant string, n int) *domain.ScanOrigin {
	vulns := make([]domain.Vulnerability, 0, n)
	for i := 0; i < n; i++ {
		vulns = append(vulns, testutil.NewTestVulnerability("finding", "HIGH", testutil.WithPort(9000+i)))
	}
	return testutil.NewTestScan(tenant, testutil.WithScanCode("SCAN_H"), testutil.WithVulnerabilities(vulns...))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[healthResponse](t, rec)
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "test", resp.Version)
}

func TestAPI_RequiresTenantHeader(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/api/plans", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateScan_ReturnsDraftPlanWithItems(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/plans/scan", "t1", scanBody("", 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[planResponse](t, rec)
	assert.Equal(t, domain.PlanDraft, resp.Plan.Status)
	assert.Equal(t, "t1", resp.Plan.TenantID)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "ACT_SCAN_H_001", resp.Items[0].Code)
}

func TestGenerate_RejectsForeignTenantInBody(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/plans/scan", "t1", scanBody("t2", 1))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestGenerate_MalformedJSONIsBadRequest(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/plans/campaign", "t1", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerate_ValidationErrorIs422(t *testing.T) {
	s := newTestServer(t)
	origin := scanBody("t1", 0)
	origin.Vulnerabilities = append(origin.Vulnerabilities, testutil.NewTestVulnerability("odd", "HIGH", testutil.WithScore(11)))
	rec := do(t, s, http.MethodPost, "/api/plans/scan", "t1", origin)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGenerate_SecondCallWithoutRegenerateIsConflict(t *testing.T) {
	s := newTestServer(t)
	origin := scanBody("t1", 1)
	require.Equal(t, http.StatusCreated, do(t, s, http.MethodPost, "/api/plans/scan", "t1", origin).Code)

	rec := do(t, s, http.MethodPost, "/api/plans/scan", "t1", origin)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/plans/scan?regenerate=true", "t1", origin)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestGetPlan_HidesOtherTenants(t *testing.T) {
	s := newTestServer(t)
	created := decode[planResponse](t, do(t, s, http.MethodPost, "/api/plans/scan", "t1", scanBody("t1", 1)))

	rec := do(t, s, http.MethodGet, "/api/plans/"+created.Plan.ID, "t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[planResponse](t, rec).Items, 1)

	rec = do(t, s, http.MethodGet, "/api/plans/"+created.Plan.ID, "t2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListPlans(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/plans/scan", "t1", scanBody("t1", 1))
	do(t, s, http.MethodPost, "/api/plans/scan", "t2", scanBody("t2", 1))

	rec := do(t, s, http.MethodGet, "/api/plans?tenant=t1", "t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Plan](t, rec), 1)

	rec = do(t, s, http.MethodGet, "/api/plans?tenant=t2", "t1", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestReviewAndPublishFlow(t *testing.T) {
	s := newTestServer(t)
	created := decode[planResponse](t, do(t, s, http.MethodPost, "/api/plans/scan", "t1", scanBody("t1", 2)))
	first, second := created.Items[0], created.Items[1]

	rec := do(t, s, http.MethodPatch, "/api/items/"+first.ID, "t1", map[string]any{
		"edit":   map[string]any{"title": "Patch gateway", "due_days": 5},
		"action": "validate",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edited := decode[domain.Item](t, rec)
	assert.Equal(t, "Patch gateway", edited.Title)
	assert.Equal(t, 5, edited.DueDays)
	assert.Equal(t, domain.ItemValidated, edited.Status)

	rec = do(t, s, http.MethodPatch, "/api/items/"+second.ID, "t1", map[string]any{"action": "exclude"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/plans/"+created.Plan.ID+"/publish", "t1", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	published := decode[service.PublishResult](t, rec)
	require.Len(t, published.Actions, 1)
	assert.Equal(t, first.Code, published.Actions[0].Code)
	assert.Equal(t, "reviewer-1", published.Actions[0].CreatedBy)
	assert.Equal(t, domain.PlanPublished, published.Plan.Status)

	rec = do(t, s, http.MethodPost, "/api/plans/"+created.Plan.ID+"/publish", "t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	again := decode[service.PublishResult](t, rec)
	assert.True(t, again.AlreadyPublished)
	assert.Len(t, again.Actions, 1)

	rec = do(t, s, http.MethodGet, "/api/actions?plan_id="+created.Plan.ID, "t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.PublishedAction](t, rec), 1)

	rec = do(t, s, http.MethodPatch, "/api/items/"+first.ID, "t1", map[string]any{"action": "reopen"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPublish_NothingValidatedIsConflict(t *testing.T) {
	s := newTestServer(t)
	created := decode[planResponse](t, do(t, s, http.MethodPost, "/api/plans/scan", "t1", scanBody("t1", 1)))
	rec := do(t, s, http.MethodPost, "/api/plans/"+created.Plan.ID+"/publish", "t1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPatchItem_Rejections(t *testing.T) {
	s := newTestServer(t)
	created := decode[planResponse](t, do(t, s, http.MethodPost, "/api/plans/scan", "t1", scanBody("t1", 1)))
	path := "/api/items/" + created.Items[0].ID

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodPatch, path, "t1", map[string]any{}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, s, http.MethodPatch, path, "t1", map[string]any{"action": "archive"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, s, http.MethodPatch, path, "t1",
		map[string]any{"edit": map[string]any{"severity": "catastrophic"}}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodPatch, path, "t2", map[string]any{"action": "validate"}).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/api/items/missing", "t1", nil).Code)
}

func TestPatchItem_ManualAssignment(t *testing.T) {
	s := newTestServer(t)
	created := decode[planResponse](t, do(t, s, http.MethodPost, "/api/plans/scan", "t1", scanBody("t1", 1)))

	rec := do(t, s, http.MethodPatch, "/api/items/"+created.Items[0].ID, "t1", map[string]any{
		"assignee": map[string]any{"id": "u-7", "name": "Dana"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	item := decode[domain.Item](t, rec)
	require.NotNil(t, item.Assignee)
	assert.Equal(t, "u-7", item.Assignee.ID)
	assert.Equal(t, domain.AssignManual, item.Method)
}

func TestCreateStandaloneAction(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/api/actions", "t1", map[string]any{
		"title":    "Rotate shared credentials",
		"severity": "major",
		"priority": "P2",
		"due_days": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	action := decode[domain.PublishedAction](t, rec)
	assert.Equal(t, "ACT_001", action.Code)
	assert.Equal(t, domain.SourceStandalone, action.SourceType)

	rec = do(t, s, http.MethodPost, "/api/actions", "t1", map[string]any{"severity": "major"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/actions?source_type=standalone", "t1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.PublishedAction](t, rec), 1)

	rec = do(t, s, http.MethodGet, "/api/actions", "t2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.PublishedAction](t, rec))
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NewValidationError("x", "y", "z"), http.StatusUnprocessableEntity},
		{&domain.NotFoundError{Entity: "plan", ID: "p"}, http.StatusNotFound},
		{&domain.StateError{Entity: "plan", Status: "PUBLISHED", Op: "edit"}, http.StatusConflict},
		{&domain.ConflictError{Resource: "code", Key: "k"}, http.StatusConflict},
		{&service.PublishError{PlanID: "p"}, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
