package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/remediate/internal/codes"
	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/repository"
	"github.com/google/uuid"
)

type actionService struct {
	actions   repository.ActionRepo
	uow       db.UnitOfWork
	allocator *codes.Allocator
	retry     db.RetryPolicy
	observer  UseCaseObserver
}

func NewActionService(
	actions repository.ActionRepo,
	uow db.UnitOfWork,
	allocator *codes.Allocator,
	retry db.RetryPolicy,
	observers ...UseCaseObserver,
) ActionService {
	return &actionService{
		actions:   actions,
		uow:       uow,
		allocator: allocator,
		retry:     retry,
		observer:  useCaseObserverOrNoop(observers),
	}
}

// CreateStandalone records an action that belongs to no plan. It draws its
// code from the tenant-wide scope.
func (s *actionService) CreateStandalone(ctx context.Context, in StandaloneInput) (action *domain.PublishedAction, err error) {
	fields := map[string]any{"tenant_id": in.TenantID}
	defer observe(ctx, s.observer, "create-standalone-action", fields, &err)()

	a, err := standaloneAction(in)
	if err != nil {
		return nil, err
	}

	err = db.RetryOnConflict(ctx, s.retry, func(ctx context.Context) error {
		return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			code, err := s.allocator.Allocate(ctx, tx, codes.TenantScope(in.TenantID), a.ID)
			if err != nil {
				return fmt.Errorf("allocating action code: %w", err)
			}
			a.Code = code
			return repository.NewSQLiteActionRepo(tx).Create(ctx, a)
		})
	})
	if err != nil {
		return nil, err
	}
	fields["code"] = a.Code
	return a, nil
}

func standaloneAction(in StandaloneInput) (*domain.PublishedAction, error) {
	rec := "standalone action"
	if in.TenantID == "" {
		return nil, domain.NewValidationError(rec, "tenant_id", "is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domain.NewValidationError(rec, "title", "is required")
	}

	// Standalone actions are not tied to an origin, so either vocabulary is
	// accepted.
	raw := strings.ToLower(strings.TrimSpace(in.Severity))
	sev := domain.Severity(raw)
	if sev.Rank() == 0 {
		return nil, domain.NewValidationError(rec, "severity", fmt.Sprintf("unknown value %q", in.Severity))
	}
	prio, ok := domain.ParsePriority(in.Priority)
	if !ok {
		return nil, domain.NewValidationError(rec, "priority", fmt.Sprintf("unknown value %q", in.Priority))
	}
	if in.DueDays <= 0 {
		return nil, domain.NewValidationError(rec, "due_days", "must be positive")
	}

	now := time.Now().UTC()
	a := &domain.PublishedAction{
		ID:                uuid.New().String(),
		TenantID:          in.TenantID,
		SourceType:        domain.SourceStandalone,
		Title:             title,
		Description:       in.Description,
		Objective:         in.Objective,
		Severity:          sev,
		Priority:          prio,
		Status:            domain.ActionStatusPending,
		DueDays:           in.DueDays,
		DueDate:           now.AddDate(0, 0, in.DueDays),
		SuggestedRole:     in.SuggestedRole,
		Method:            domain.AssignUnassigned,
		EntityID:          in.EntityID,
		EntityName:        in.EntityName,
		SourceQuestionIDs: []string{},
		ControlPointIDs:   []string{},
		CVEIDs:            []string{},
		Justification:     domain.Justification{WhyAction: "Created manually"}.Complete(),
		CreatedBy:         in.Actor,
		CreatedAt:         now,
	}
	if in.Assignee != nil && in.Assignee.ID != "" {
		assignee := *in.Assignee
		a.Assignee = &assignee
		a.Method = domain.AssignManual
	}
	return a, nil
}

func (s *actionService) GetByID(ctx context.Context, id string) (*domain.PublishedAction, error) {
	return s.actions.GetByID(ctx, id)
}

func (s *actionService) List(ctx context.Context, f repository.ActionFilter) ([]*domain.PublishedAction, error) {
	return s.actions.List(ctx, f)
}
