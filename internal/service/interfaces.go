package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/repository"
)

// GenerateRequest asks for the plan of one origin to be (re)generated.
type GenerateRequest struct {
	Origin     domain.Origin
	Actor      string
	Regenerate bool
}

type GenerateResult struct {
	Plan  *domain.Plan
	Items []*domain.Item
	// Replaced counts the unpublished items removed by a regeneration.
	Replaced int
}

type PlanService interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	GetByOrigin(ctx context.Context, kind domain.OriginKind, originID string) (*domain.Plan, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Plan, error)
	ListItems(ctx context.Context, planID string) ([]*domain.Item, error)
}

// ReviewService applies operator decisions to the items of DRAFT plans.
// Every operation recomputes the plan counters in the same transaction.
type ReviewService interface {
	Validate(ctx context.Context, itemID string) (*domain.Item, error)
	Exclude(ctx context.Context, itemID string) (*domain.Item, error)
	SetIncluded(ctx context.Context, itemID string, included bool) (*domain.Item, error)
	Reopen(ctx context.Context, itemID string) (*domain.Item, error)
	Edit(ctx context.Context, itemID string, edit domain.ItemEdit) (*domain.Item, error)
	Assign(ctx context.Context, itemID string, assignee domain.Assignee) (*domain.Item, error)
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)
}

type PublishRequest struct {
	PlanID string
	Actor  string
}

type PublishResult struct {
	Plan    *domain.Plan              `json:"plan"`
	Actions []*domain.PublishedAction `json:"actions"`
	// AlreadyPublished is set when the plan had been published before the
	// call; Actions then lists the existing actions.
	AlreadyPublished bool `json:"already_published"`
}

type PublishService interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}

// ItemFailure is one item rejected during publication.
type ItemFailure struct {
	ItemID string
	Code   string
	Err    error
}

// PublishError lists every item whose snapshot failed validation. Nothing
// is written when it is returned.
type PublishError struct {
	PlanID   string
	Failures []ItemFailure
}

func (e *PublishError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Code, f.Err))
	}
	return fmt.Sprintf("publishing plan %s: %d item(s) failed: %s", e.PlanID, len(e.Failures), strings.Join(parts, "; "))
}

func (e *PublishError) Unwrap() error { return domain.ErrValidation }

// StandaloneInput describes an action created outside any plan.
type StandaloneInput struct {
	TenantID      string
	Title         string
	Description   string
	Objective     string
	Severity      string
	Priority      string
	DueDays       int
	SuggestedRole string
	Assignee      *domain.Assignee
	EntityID      string
	EntityName    string
	Actor         string
}

type ActionService interface {
	CreateStandalone(ctx context.Context, in StandaloneInput) (*domain.PublishedAction, error)
	GetByID(ctx context.Context, id string) (*domain.PublishedAction, error)
	List(ctx context.Context, f repository.ActionFilter) ([]*domain.PublishedAction, error)
}

type ContactService interface {
	// Import upserts contacts and returns how many were written.
	Import(ctx context.Context, contacts []*domain.Contact) (int, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Contact, error)
}
