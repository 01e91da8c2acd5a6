package service

import (
	"context"
	"time"

	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/repository"
)

type reviewService struct {
	items    repository.ItemRepo
	uow      db.UnitOfWork
	observer UseCaseObserver
}

func NewReviewService(items repository.ItemRepo, uow db.UnitOfWork, observers ...UseCaseObserver) ReviewService {
	return &reviewService{items: items, uow: uow, observer: useCaseObserverOrNoop(observers)}
}

func (s *reviewService) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.items.GetByID(ctx, itemID)
}

func (s *reviewService) Validate(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.mutate(ctx, "validate-item", "validate items of", itemID, func(it *domain.Item, now time.Time) error {
		return it.Validate(now)
	})
}

func (s *reviewService) Exclude(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.mutate(ctx, "exclude-item", "exclude items of", itemID, func(it *domain.Item, now time.Time) error {
		return it.Exclude(now)
	})
}

func (s *reviewService) SetIncluded(ctx context.Context, itemID string, included bool) (*domain.Item, error) {
	return s.mutate(ctx, "set-item-included", "change inclusion of items of", itemID, func(it *domain.Item, now time.Time) error {
		return it.SetIncluded(included, now)
	})
}

func (s *reviewService) Reopen(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.mutate(ctx, "reopen-item", "reopen items of", itemID, func(it *domain.Item, now time.Time) error {
		return it.Reopen(now)
	})
}

func (s *reviewService) Edit(ctx context.Context, itemID string, edit domain.ItemEdit) (*domain.Item, error) {
	if edit.Empty() {
		return nil, domain.NewValidationError("item "+itemID, "", "edit changes nothing")
	}
	return s.mutate(ctx, "edit-item", "edit items of", itemID, func(it *domain.Item, now time.Time) error {
		return it.ApplyEdit(edit, now)
	})
}

func (s *reviewService) Assign(ctx context.Context, itemID string, assignee domain.Assignee) (*domain.Item, error) {
	return s.mutate(ctx, "assign-item", "assign items of", itemID, func(it *domain.Item, now time.Time) error {
		return it.AssignManual(assignee, now)
	})
}

// mutate loads an item and its plan, applies fn, and writes both back with
// recomputed counters. The plan must be DRAFT.
func (s *reviewService) mutate(ctx context.Context, useCase, op, itemID string, fn func(*domain.Item, time.Time) error) (item *domain.Item, err error) {
	fields := map[string]any{"item_id": itemID}
	defer observe(ctx, s.observer, useCase, fields, &err)()

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txPlans := repository.NewSQLitePlanRepo(tx)
		txItems := repository.NewSQLiteItemRepo(tx)
		now := time.Now().UTC()

		it, err := txItems.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		p, err := txPlans.GetByID(ctx, it.PlanID)
		if err != nil {
			return err
		}
		fields["plan_id"] = p.ID
		if err := p.RequireReviewable(op); err != nil {
			return err
		}
		if err := fn(it, now); err != nil {
			return err
		}
		if err := txItems.Update(ctx, it); err != nil {
			return err
		}

		all, err := txItems.ListByPlan(ctx, p.ID)
		if err != nil {
			return err
		}
		p.Counts = domain.CountItems(all)
		p.UpdatedAt = now
		if err := txPlans.UpdateIfStatus(ctx, p, domain.PlanDraft); err != nil {
			return err
		}
		item = it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}
