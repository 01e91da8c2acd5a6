package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/remediate/internal/classify"
	"github.com/alexanderramin/remediate/internal/codes"
	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/normalize"
	"github.com/alexanderramin/remediate/internal/repository"
)

// GenerationOptions tune plan generation.
type GenerationOptions struct {
	// StaleAfter lets a new request take over a generation that started
	// longer ago. Zero disables takeover.
	StaleAfter time.Duration
	Retry      db.RetryPolicy
}

func DefaultGenerationOptions() GenerationOptions {
	return GenerationOptions{StaleAfter: 10 * time.Minute, Retry: db.DefaultRetryPolicy()}
}

type planService struct {
	plans      repository.PlanRepo
	items      repository.ItemRepo
	uow        db.UnitOfWork
	normalizer *normalize.Normalizer
	classifier *classify.Classifier
	allocator  *codes.Allocator
	opts       GenerationOptions
	observer   UseCaseObserver
}

func NewPlanService(
	plans repository.PlanRepo,
	items repository.ItemRepo,
	uow db.UnitOfWork,
	normalizer *normalize.Normalizer,
	classifier *classify.Classifier,
	allocator *codes.Allocator,
	opts GenerationOptions,
	observers ...UseCaseObserver,
) PlanService {
	return &planService{
		plans:      plans,
		items:      items,
		uow:        uow,
		normalizer: normalizer,
		classifier: classifier,
		allocator:  allocator,
		opts:       opts,
		observer:   useCaseObserverOrNoop(observers),
	}
}

// retryable reports store errors worth another attempt: busy locks, unique
// races and lost status compare-and-swaps.
func retryable(err error) bool {
	return db.IsBusy(err) || db.IsUniqueViolation(err) || errors.Is(err, domain.ErrConflict)
}

type classified struct {
	cand domain.Candidate
	cls  domain.Classification
}

func (s *planService) Generate(ctx context.Context, req GenerateRequest) (res *GenerateResult, err error) {
	fields := map[string]any{"regenerate": req.Regenerate}
	defer observe(ctx, s.observer, "generate-plan", fields, &err)()

	if err = domain.ValidateOrigin(req.Origin); err != nil {
		return nil, err
	}
	fields["origin_kind"] = string(req.Origin.Kind())
	fields["origin_id"] = req.Origin.OriginID()

	var (
		plan  *domain.Plan
		prior domain.PlanStatus
	)
	err = db.Retry(ctx, s.opts.Retry, func(err error) bool {
		return db.IsBusy(err) || db.IsUniqueViolation(err)
	}, func(ctx context.Context) error {
		var beginErr error
		plan, prior, beginErr = s.begin(ctx, req)
		return beginErr
	})
	if err != nil {
		return nil, err
	}
	fields["plan_id"] = plan.ID

	res, err = s.build(ctx, plan, req)
	if err != nil {
		if revertErr := s.revert(context.WithoutCancel(ctx), plan.ID, plan.GenerationStartedAt, prior, err); revertErr != nil {
			err = errors.Join(err, fmt.Errorf("reverting plan %s: %w", plan.ID, revertErr))
		}
		return nil, err
	}
	fields["item_count"] = len(res.Items)
	return res, nil
}

// begin upserts the plan of the origin and moves it into GENERATING.
func (s *planService) begin(ctx context.Context, req GenerateRequest) (*domain.Plan, domain.PlanStatus, error) {
	var (
		plan  *domain.Plan
		prior domain.PlanStatus
	)
	origin := req.Origin
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txPlans := repository.NewSQLitePlanRepo(tx)
		now := time.Now().UTC()

		p, err := txPlans.GetByOrigin(ctx, origin.Kind(), origin.OriginID())
		switch {
		case errors.Is(err, domain.ErrNotFound):
			p = domain.NewPlan(origin, now)
			if err := txPlans.Create(ctx, p); err != nil {
				return fmt.Errorf("creating plan: %w", err)
			}
		case err != nil:
			return err
		}
		if p.TenantID != origin.Tenant() {
			return domain.NewValidationError(string(origin.Kind())+" "+origin.OriginID(), "tenant_id",
				"origin already has a plan under another tenant")
		}

		expected := p.Status
		prior, err = p.BeginGeneration(now, s.opts.StaleAfter, req.Regenerate)
		if err != nil {
			return err
		}
		if err := txPlans.UpdateIfStatus(ctx, p, expected); err != nil {
			return err
		}
		plan = p
		return nil
	})
	return plan, prior, err
}

// build normalizes and classifies outside any transaction, then replaces
// the plan's unpublished items and completes the generation in one.
func (s *planService) build(ctx context.Context, plan *domain.Plan, req GenerateRequest) (*GenerateResult, error) {
	candidates, err := s.normalizer.Normalize(req.Origin)
	if err != nil {
		return nil, err
	}

	manual, err := s.manualAssignees(ctx, plan.ID)
	if err != nil {
		return nil, err
	}

	work := make([]classified, 0, len(candidates))
	for _, c := range candidates {
		if a, ok := manual[c.SourceKey]; ok {
			c.ManualAssignee = &a
		}
		cls, err := s.classifier.Classify(ctx, c)
		if err != nil {
			return nil, err
		}
		work = append(work, classified{cand: c, cls: cls})
	}

	scope := codes.ScopeFor(req.Origin)
	res := &GenerateResult{Items: make([]*domain.Item, 0, len(work))}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txPlans := repository.NewSQLitePlanRepo(tx)
		txItems := repository.NewSQLiteItemRepo(tx)
		now := time.Now().UTC()

		p, err := txPlans.GetByID(ctx, plan.ID)
		if err != nil {
			return err
		}
		// A stale takeover leaves the status alone but restarts the clock.
		if !p.OwnsGeneration(plan.GenerationStartedAt) {
			return &domain.StateError{Entity: "plan", ID: p.ID, Status: string(p.Status), Op: "complete generation of"}
		}

		replaced, err := txItems.DeleteUnpublished(ctx, p.ID)
		if err != nil {
			return err
		}

		for _, w := range work {
			code, err := s.allocator.Allocate(ctx, tx, scope, itemSubject(p.ID, w.cand.SourceKey))
			if err != nil {
				return fmt.Errorf("allocating code for %s: %w", w.cand.SourceKey, err)
			}
			it := domain.NewItem(p.ID, code, w.cand, w.cls, now)
			if err := txItems.Create(ctx, it); err != nil {
				return fmt.Errorf("creating item %s: %w", code, err)
			}
			res.Items = append(res.Items, it)
		}

		all, err := txItems.ListByPlan(ctx, p.ID)
		if err != nil {
			return err
		}
		if err := p.CompleteGeneration(domain.CountItems(all), req.Actor, now); err != nil {
			return err
		}
		if err := txPlans.UpdateIfStatus(ctx, p, domain.PlanGenerating); err != nil {
			return err
		}
		res.Plan = p
		res.Replaced = replaced
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// itemSubject identifies a logical item across regenerations of a plan, so
// it keeps its code.
func itemSubject(planID, sourceKey string) string {
	return planID + "/" + sourceKey
}

// manualAssignees carries operator assignments over into a regeneration.
func (s *planService) manualAssignees(ctx context.Context, planID string) (map[string]domain.Assignee, error) {
	items, err := s.items.ListByPlan(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("listing previous items: %w", err)
	}
	out := map[string]domain.Assignee{}
	for _, it := range items {
		if it.Method == domain.AssignManual && it.Assignee != nil {
			out[it.SourceKey] = *it.Assignee
		}
	}
	return out, nil
}

// revert puts a plan stuck in GENERATING back to prior and records cause,
// unless another attempt has taken the generation over since startedAt.
func (s *planService) revert(ctx context.Context, planID string, startedAt *time.Time, prior domain.PlanStatus, cause error) error {
	return db.Retry(ctx, s.opts.Retry, retryable, func(ctx context.Context) error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			txPlans := repository.NewSQLitePlanRepo(tx)
			p, err := txPlans.GetByID(ctx, planID)
			if err != nil {
				return err
			}
			if !p.OwnsGeneration(startedAt) {
				return nil
			}
			if err := p.FailGeneration(prior, cause.Error(), time.Now().UTC()); err != nil {
				return err
			}
			return txPlans.UpdateIfStatus(ctx, p, domain.PlanGenerating)
		})
	})
}

func (s *planService) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	return s.plans.GetByID(ctx, id)
}

func (s *planService) GetByOrigin(ctx context.Context, kind domain.OriginKind, originID string) (*domain.Plan, error) {
	return s.plans.GetByOrigin(ctx, kind, originID)
}

func (s *planService) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Plan, error) {
	return s.plans.ListByTenant(ctx, tenantID)
}

func (s *planService) ListItems(ctx context.Context, planID string) ([]*domain.Item, error) {
	if _, err := s.plans.GetByID(ctx, planID); err != nil {
		return nil, err
	}
	return s.items.ListByPlan(ctx, planID)
}
