package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlanCounts are the aggregate counters kept on a plan. Campaign severities
// fold into the bands of equal rank: major→High, minor→Medium, info→Low.
type PlanCounts struct {
	Total     int `json:"total"`
	Critical  int `json:"critical"`
	High      int `json:"high"`
	Medium    int `json:"medium"`
	Low       int `json:"low"`
	Validated int `json:"validated"`
	Excluded  int `json:"excluded"`
	Published int `json:"published"`
}

// CountItems recomputes counters from the full item set of a plan.
func CountItems(items []*Item) PlanCounts {
	var c PlanCounts
	for _, it := range items {
		c.Total++
		switch it.Severity.Rank() {
		case 4:
			c.Critical++
		case 3:
			c.High++
		case 2:
			c.Medium++
		case 1:
			c.Low++
		}
		switch it.Status {
		case ItemValidated:
			c.Validated++
		case ItemExcluded:
			c.Excluded++
		case ItemPublished:
			c.Published++
		}
	}
	return c
}

type Plan struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	OriginKind OriginKind `json:"origin_kind"`
	OriginID   string     `json:"origin_id"`
	ScopeToken string     `json:"scope_token"`
	Status     PlanStatus `json:"status"`
	Counts     PlanCounts `json:"counts"`
	LastError  string     `json:"last_error,omitempty"`

	GenerationStartedAt *time.Time `json:"generation_started_at,omitempty"`
	GeneratedAt         *time.Time `json:"generated_at,omitempty"`
	GeneratedBy         string     `json:"generated_by,omitempty"`
	PublishedAt         *time.Time `json:"published_at,omitempty"`
	PublishedBy         string     `json:"published_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlan returns an empty NOT_STARTED plan for origin.
func NewPlan(origin Origin, now time.Time) *Plan {
	return &Plan{
		ID:         uuid.New().String(),
		TenantID:   origin.Tenant(),
		OriginKind: origin.Kind(),
		OriginID:   origin.OriginID(),
		ScopeToken: origin.ScopeToken(),
		Status:     PlanNotStarted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (p *Plan) stateError(op string) *StateError {
	return &StateError{Entity: "plan", ID: p.ID, Status: string(p.Status), Op: op}
}

// BeginGeneration moves the plan into GENERATING and returns the status to
// revert to if generation fails. A DRAFT plan is only regenerated when
// regenerate is set. A GENERATING plan whose generation started more than
// staleAfter ago is taken over; staleAfter <= 0 disables takeover.
func (p *Plan) BeginGeneration(now time.Time, staleAfter time.Duration, regenerate bool) (PlanStatus, error) {
	prior := p.Status
	switch p.Status {
	case PlanNotStarted:
	case PlanDraft:
		if !regenerate {
			return "", p.stateError("generate")
		}
	case PlanGenerating:
		if staleAfter <= 0 || p.GenerationStartedAt == nil || now.Sub(*p.GenerationStartedAt) < staleAfter {
			return "", p.stateError("generate")
		}
		prior = PlanNotStarted
		if p.GeneratedAt != nil {
			prior = PlanDraft
		}
	default:
		return "", p.stateError("generate")
	}

	p.Status = PlanGenerating
	p.GenerationStartedAt = &now
	p.LastError = ""
	p.UpdatedAt = now
	return prior, nil
}

// OwnsGeneration reports whether the plan is still GENERATING under the
// attempt that started at startedAt. A takeover replaces the start time.
func (p *Plan) OwnsGeneration(startedAt *time.Time) bool {
	return p.Status == PlanGenerating && p.GenerationStartedAt != nil && startedAt != nil &&
		p.GenerationStartedAt.Equal(*startedAt)
}

// CompleteGeneration moves a GENERATING plan to DRAFT.
func (p *Plan) CompleteGeneration(counts PlanCounts, actor string, now time.Time) error {
	if p.Status != PlanGenerating {
		return p.stateError("complete generation of")
	}
	p.Status = PlanDraft
	p.Counts = counts
	p.GeneratedAt = &now
	p.GeneratedBy = actor
	p.GenerationStartedAt = nil
	p.LastError = ""
	p.UpdatedAt = now
	return nil
}

// FailGeneration reverts a GENERATING plan to prior and records the reason.
func (p *Plan) FailGeneration(prior PlanStatus, reason string, now time.Time) error {
	if p.Status != PlanGenerating {
		return p.stateError("fail generation of")
	}
	if prior != PlanNotStarted && prior != PlanDraft {
		prior = PlanNotStarted
	}
	p.Status = prior
	p.GenerationStartedAt = nil
	p.LastError = reason
	p.UpdatedAt = now
	return nil
}

// MarkPublished moves a DRAFT plan to PUBLISHED.
func (p *Plan) MarkPublished(actor string, now time.Time) error {
	if p.Status != PlanDraft {
		return p.stateError("publish")
	}
	p.Status = PlanPublished
	p.PublishedAt = &now
	p.PublishedBy = actor
	p.UpdatedAt = now
	return nil
}

// RequireReviewable returns a StateError unless items of p may be edited.
func (p *Plan) RequireReviewable(op string) error {
	if p.Status != PlanDraft {
		return p.stateError(op)
	}
	return nil
}
