package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/repository"
)

type publishService struct {
	uow      db.UnitOfWork
	retry    db.RetryPolicy
	observer UseCaseObserver
}

func NewPublishService(uow db.UnitOfWork, retry db.RetryPolicy, observers ...UseCaseObserver) PublishService {
	return &publishService{uow: uow, retry: retry, observer: useCaseObserverOrNoop(observers)}
}

// Publish turns every validated, included item of a DRAFT plan into a
// published action, in one transaction. Publishing a PUBLISHED plan again
// returns its existing actions.
func (s *publishService) Publish(ctx context.Context, req PublishRequest) (res *PublishResult, err error) {
	fields := map[string]any{"plan_id": req.PlanID}
	defer observe(ctx, s.observer, "publish-plan", fields, &err)()

	if req.PlanID == "" {
		return nil, domain.NewValidationError("publish request", "plan_id", "is required")
	}

	err = db.Retry(ctx, s.retry, retryable, func(ctx context.Context) error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			r, err := s.publish(ctx, tx, req)
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	fields["action_count"] = len(res.Actions)
	fields["already_published"] = res.AlreadyPublished
	return res, nil
}

type pendingPublication struct {
	item   *domain.Item
	action *domain.PublishedAction
	exists bool
}

func (s *publishService) publish(ctx context.Context, tx db.DBTX, req PublishRequest) (*PublishResult, error) {
	txPlans := repository.NewSQLitePlanRepo(tx)
	txItems := repository.NewSQLiteItemRepo(tx)
	txActions := repository.NewSQLiteActionRepo(tx)
	now := time.Now().UTC()

	p, err := txPlans.GetByID(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	if p.Status == domain.PlanPublished {
		actions, err := txActions.List(ctx, repository.ActionFilter{PlanID: p.ID})
		if err != nil {
			return nil, err
		}
		return &PublishResult{Plan: p, Actions: actions, AlreadyPublished: true}, nil
	}
	if err := p.RequireReviewable("publish"); err != nil {
		return nil, err
	}

	items, err := txItems.ListByPlan(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	var (
		pending  []pendingPublication
		failures []ItemFailure
	)
	for _, it := range items {
		if !it.Eligible() {
			continue
		}
		existing, err := txActions.GetBySourceItem(ctx, it.ID)
		switch {
		case err == nil:
			pending = append(pending, pendingPublication{item: it, action: existing, exists: true})
			continue
		case !errors.Is(err, domain.ErrNotFound):
			return nil, err
		}
		a := domain.SnapshotItem(p, it, req.Actor, now)
		if err := a.Validate(); err != nil {
			failures = append(failures, ItemFailure{ItemID: it.ID, Code: it.Code, Err: err})
			continue
		}
		pending = append(pending, pendingPublication{item: it, action: a})
	}
	if len(failures) > 0 {
		return nil, &PublishError{PlanID: p.ID, Failures: failures}
	}
	if len(pending) == 0 {
		return nil, &domain.StateError{Entity: "plan", ID: p.ID, Status: string(p.Status), Op: "publish (no validated items in)"}
	}

	actions := make([]*domain.PublishedAction, 0, len(pending))
	for _, pp := range pending {
		if !pp.exists {
			if err := txActions.Create(ctx, pp.action); err != nil {
				return nil, fmt.Errorf("creating action %s: %w", pp.action.Code, err)
			}
		}
		if err := pp.item.MarkPublished(pp.action.ID, now); err != nil {
			return nil, err
		}
		if err := txItems.Update(ctx, pp.item); err != nil {
			return nil, err
		}
		actions = append(actions, pp.action)
	}

	p.Counts = domain.CountItems(items)
	if err := p.MarkPublished(req.Actor, now); err != nil {
		return nil, err
	}
	if err := txPlans.UpdateIfStatus(ctx, p, domain.PlanDraft); err != nil {
		return nil, err
	}
	return &PublishResult{Plan: p, Actions: actions}, nil
}
