package repository

import (
	"context"

	"github.com/alexanderramin/remediate/internal/domain"
)

type PlanRepo interface {
	Create(ctx context.Context, p *domain.Plan) error
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	GetByOrigin(ctx context.Context, kind domain.OriginKind, originID string) (*domain.Plan, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Plan, error)
	// UpdateIfStatus writes p only while the stored status still equals
	// expected, and returns a ConflictError otherwise.
	UpdateIfStatus(ctx context.Context, p *domain.Plan, expected domain.PlanStatus) error
}

type ItemRepo interface {
	Create(ctx context.Context, it *domain.Item) error
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	ListByPlan(ctx context.Context, planID string) ([]*domain.Item, error)
	Update(ctx context.Context, it *domain.Item) error
	// DeleteUnpublished removes every non-published item of a plan and
	// returns how many were removed.
	DeleteUnpublished(ctx context.Context, planID string) (int, error)
}

// ActionFilter narrows action listings. Zero fields match everything.
type ActionFilter struct {
	TenantID   string
	SourceType domain.SourceType
	PlanID     string
}

type ActionRepo interface {
	Create(ctx context.Context, a *domain.PublishedAction) error
	GetByID(ctx context.Context, id string) (*domain.PublishedAction, error)
	GetBySourceItem(ctx context.Context, itemID string) (*domain.PublishedAction, error)
	List(ctx context.Context, f ActionFilter) ([]*domain.PublishedAction, error)
}

type CodeSequenceRepo interface {
	// NextSeq atomically reserves the next sequence number of a scope.
	NextSeq(ctx context.Context, scopeKey string) (int, error)
	// Lookup returns the code already issued to subjectID, if any.
	Lookup(ctx context.Context, subjectID string) (string, bool, error)
	Record(ctx context.Context, subjectID, scopeKey string, seq int, code string) error
}

type ContactRepo interface {
	Upsert(ctx context.Context, c *domain.Contact) error
	Find(ctx context.Context, tenantID, entityID, campaignID, role string) (*domain.Contact, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.Contact, error)
}
