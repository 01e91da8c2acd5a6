package service

import (
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/remediate/internal/classify"
	"github.com/alexanderramin/remediate/internal/codes"
	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/normalize"
	"github.com/alexanderramin/remediate/internal/repository"
	"github.com/alexanderramin/remediate/internal/testutil"
)

type testEnv struct {
	db       *sql.DB
	plans    repository.PlanRepo
	items    repository.ItemRepo
	actions  repository.ActionRepo
	contacts repository.ContactRepo

	planSvc    PlanService
	review     ReviewService
	publisher  PublishService
	actionSvc  ActionService
	contactSvc ContactService
}

func testRetryPolicy() db.RetryPolicy {
	return db.RetryPolicy{Attempts: 8, BaseDelay: 5 * time.Millisecond, MaxDelay: 100 * time.Millisecond}
}

// newTestEnv wires every service against database. uow defaults to a
// regular unit of work when nil.
func newTestEnv(t *testing.T, database *sql.DB, uow db.UnitOfWork) *testEnv {
	t.Helper()
	if uow == nil {
		uow = testutil.NewTestUoW(database)
	}
	env := &testEnv{
		db:       database,
		plans:    repository.NewSQLitePlanRepo(database),
		items:    repository.NewSQLiteItemRepo(database),
		actions:  repository.NewSQLiteActionRepo(database),
		contacts: repository.NewSQLiteContactRepo(database),
	}
	allocator := codes.NewAllocator(codes.DefaultPrefix, codes.DefaultWidth)
	opts := GenerationOptions{StaleAfter: 10 * time.Minute, Retry: testRetryPolicy()}

	env.planSvc = NewPlanService(env.plans, env.items, uow,
		normalize.New(normalize.DefaultOptions()), classify.New(env.contacts), allocator, opts)
	env.review = NewReviewService(env.items, uow)
	env.publisher = NewPublishService(uow, testRetryPolicy())
	env.actionSvc = NewActionService(env.actions, uow, allocator, testRetryPolicy())
	env.contactSvc = NewContactService(env.contacts, uow)
	return env
}

func codesOf(items []*domain.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Code)
	}
	return out
}

func itemBySource(items []*domain.Item, sourceKey string) *domain.Item {
	for _, it := range items {
		if it.SourceKey == sourceKey {
			return it
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func repositoryFilterForPlan(planID string) repository.ActionFilter {
	return repository.ActionFilter{PlanID: planID}
}
