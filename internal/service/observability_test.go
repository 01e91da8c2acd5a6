package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogUseCaseObserver_RecordsGeneration(t *testing.T) {
	var buf bytes.Buffer
	database := testutil.NewTestDB(t)
	env := newTestEnv(t, database, nil)
	env.planSvc.(*planService).observer = NewLogUseCaseObserver(&buf)

	_, err := env.planSvc.Generate(context.Background(), GenerateRequest{Origin: testutil.NewTestScan("t1")})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "service_use_case")
	assert.Contains(t, out, "use_case=generate-plan")
	assert.Contains(t, out, "success=true")
	assert.Contains(t, out, "item_count=0")
}

func TestLogUseCaseObserver_RecordsFailure(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, testutil.NewTestDB(t), nil)
	env.publisher.(*publishService).observer = NewLogUseCaseObserver(&buf)

	_, err := env.publisher.Publish(context.Background(), PublishRequest{PlanID: "missing"})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "outcome=not_found")
	assert.Contains(t, buf.String(), "success=false")
}

func TestLogUseCaseObserver_StoreFailureIsError(t *testing.T) {
	var buf bytes.Buffer
	obs := NewLogUseCaseObserver(&buf)
	err := fmt.Errorf("saving item: %w", errors.New("disk I/O error"))
	func() {
		defer observe(context.Background(), obs, "review-item", map[string]any{"item_id": "i-1", "action": "validate"}, &err)()
	}()

	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "outcome=failed")
	assert.Contains(t, out, `error="saving item: disk I/O error"`)
	assert.Less(t, strings.Index(out, "action=validate"), strings.Index(out, "item_id=i-1"))
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{domain.NewValidationError("vulnerability v1", "severity", "is unknown"), OutcomeValidation},
		{&domain.NotFoundError{Entity: "plan", ID: "p1"}, OutcomeNotFound},
		{&domain.StateError{Entity: "plan", ID: "p1", Status: "PUBLISHED", Op: "edit"}, OutcomeState},
		{fmt.Errorf("publishing: %w", domain.ErrConflict), OutcomeConflict},
		{errors.New("boom"), OutcomeFailed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, outcomeOf(tt.err))
	}
}

func TestUseCaseObserverOrNoop(t *testing.T) {
	assert.IsType(t, NoopUseCaseObserver{}, useCaseObserverOrNoop(nil))
	assert.IsType(t, NoopUseCaseObserver{}, NewLogUseCaseObserver(nil))
	assert.IsType(t, NoopUseCaseObserver{}, NewSlogUseCaseObserver(nil))
}
