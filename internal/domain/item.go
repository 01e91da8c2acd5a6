package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Item struct {
	ID         string     `json:"id"`
	PlanID     string     `json:"plan_id"`
	TenantID   string     `json:"tenant_id"`
	OriginKind OriginKind `json:"origin_kind"`
	Code       string     `json:"code"`
	SourceKey  string     `json:"source_key"`
	Status     ItemStatus `json:"status"`
	Included   bool       `json:"included"`
	OrderIndex int        `json:"order_index"`

	Title          string `json:"title"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`

	Severity      Severity         `json:"severity"`
	Priority      Priority         `json:"priority"`
	DueDays       int              `json:"due_days"`
	SuggestedRole string           `json:"suggested_role"`
	Assignee      *Assignee        `json:"assignee"`
	Method        AssignmentMethod `json:"assignment_method"`

	EntityID   string `json:"entity_id,omitempty"`
	EntityName string `json:"entity_name,omitempty"`

	SourceAnswerIDs   []string `json:"source_answer_ids"`
	SourceQuestionIDs []string `json:"source_question_ids"`
	ControlPointIDs   []string `json:"control_point_ids"`

	VulnerabilityID string   `json:"vulnerability_id,omitempty"`
	Port            *int     `json:"port,omitempty"`
	Protocol        string   `json:"protocol,omitempty"`
	ServiceName     string   `json:"service_name,omitempty"`
	ServiceVersion  string   `json:"service_version,omitempty"`
	CVEIDs          []string `json:"cve_ids"`
	CVSSScore       *float64 `json:"cvss_score,omitempty"`
	ReferenceURL    string   `json:"reference_url,omitempty"`

	Justification     Justification `json:"justification"`
	PublishedActionID *string       `json:"published_action_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewItem builds a PROPOSED, included item from a classified candidate.
// Title and description customizations on the candidate are applied here.
func NewItem(planID, code string, c Candidate, cls Classification, now time.Time) *Item {
	if o := c.Override; o != nil {
		if o.Title != nil && strings.TrimSpace(*o.Title) != "" {
			c.Title = strings.TrimSpace(*o.Title)
		}
		if o.Description != nil {
			c.Description = *o.Description
		}
	}
	return &Item{
		ID:                uuid.New().String(),
		PlanID:            planID,
		TenantID:          c.TenantID,
		OriginKind:        c.Kind,
		Code:              code,
		SourceKey:         c.SourceKey,
		Status:            ItemProposed,
		Included:          true,
		OrderIndex:        c.OrderIndex,
		Title:             c.Title,
		Description:       c.Description,
		Recommendation:    c.Recommendation,
		Severity:          cls.Severity,
		Priority:          cls.Priority,
		DueDays:           cls.DueDays,
		SuggestedRole:     cls.SuggestedRole,
		Assignee:          cls.Assignee,
		Method:            cls.Method,
		EntityID:          c.EntityID,
		EntityName:        c.EntityName,
		SourceAnswerIDs:   nonNil(c.SourceAnswerIDs),
		SourceQuestionIDs: nonNil(c.SourceQuestionIDs),
		ControlPointIDs:   nonNil(c.ControlPointIDs),
		VulnerabilityID:   c.VulnerabilityID,
		Port:              c.Port,
		Protocol:          c.Protocol,
		ServiceName:       c.ServiceName,
		ServiceVersion:    c.ServiceVersion,
		CVEIDs:            nonNil(c.CVEIDs),
		CVSSScore:         c.CVSSScore,
		ReferenceURL:      c.ReferenceURL,
		Justification:     cls.Justification.Complete(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (it *Item) stateError(op string) *StateError {
	return &StateError{Entity: "item", ID: it.Code, Status: string(it.Status), Op: op}
}

// Eligible reports whether the publisher should promote the item.
func (it *Item) Eligible() bool {
	return it.Status == ItemValidated && it.Included
}

// Validate approves the item. Validating an EXCLUDED item re-includes it.
func (it *Item) Validate(now time.Time) error {
	switch it.Status {
	case ItemValidated:
		return nil
	case ItemProposed:
	case ItemExcluded:
		it.Included = true
	default:
		return it.stateError("validate")
	}
	it.Status = ItemValidated
	it.UpdatedAt = now
	return nil
}

// Exclude rejects the item and clears its inclusion flag.
func (it *Item) Exclude(now time.Time) error {
	switch it.Status {
	case ItemProposed, ItemValidated:
	case ItemExcluded:
		return nil
	default:
		return it.stateError("exclude")
	}
	it.Status = ItemExcluded
	it.Included = false
	it.UpdatedAt = now
	return nil
}

// SetIncluded toggles the publication gate. An EXCLUDED item cannot be
// included without validating it first.
func (it *Item) SetIncluded(included bool, now time.Time) error {
	if it.Status == ItemPublished {
		return it.stateError("change inclusion of")
	}
	if included && it.Status == ItemExcluded {
		return it.stateError("include")
	}
	it.Included = included
	it.UpdatedAt = now
	return nil
}

// Reopen returns a reviewed item to PROPOSED.
func (it *Item) Reopen(now time.Time) error {
	switch it.Status {
	case ItemProposed:
		return nil
	case ItemValidated, ItemExcluded:
	default:
		return it.stateError("reopen")
	}
	it.Status = ItemProposed
	it.Included = true
	it.UpdatedAt = now
	return nil
}

// ItemEdit is a partial content update; nil fields are left untouched.
type ItemEdit struct {
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	Recommendation *string `json:"recommendation,omitempty"`
	Severity       *string `json:"severity,omitempty"`
	Priority       *string `json:"priority,omitempty"`
	DueDays        *int    `json:"due_days,omitempty"`
	SuggestedRole  *string `json:"suggested_role,omitempty"`
}

// Empty reports whether e changes nothing.
func (e ItemEdit) Empty() bool {
	return e.Title == nil && e.Description == nil && e.Recommendation == nil &&
		e.Severity == nil && e.Priority == nil && e.DueDays == nil && e.SuggestedRole == nil
}

// ApplyEdit validates e against the item's vocabulary and applies it.
// Nothing is changed when any field is rejected.
func (it *Item) ApplyEdit(e ItemEdit, now time.Time) error {
	if it.Status == ItemPublished {
		return it.stateError("edit")
	}

	next := *it
	if e.Title != nil {
		t := strings.TrimSpace(*e.Title)
		if t == "" {
			return NewValidationError("item "+it.Code, "title", "must not be empty")
		}
		next.Title = t
	}
	if e.Description != nil {
		next.Description = *e.Description
	}
	if e.Recommendation != nil {
		next.Recommendation = *e.Recommendation
	}
	if e.Severity != nil {
		s, ok := ParseSeverity(it.OriginKind, *e.Severity)
		if !ok {
			return NewValidationError("item "+it.Code, "severity", "unknown value "+*e.Severity)
		}
		next.Severity = s
	}
	if e.Priority != nil {
		p, ok := ParsePriority(*e.Priority)
		if !ok {
			return NewValidationError("item "+it.Code, "priority", "unknown value "+*e.Priority)
		}
		next.Priority = p
	}
	if e.DueDays != nil {
		if *e.DueDays <= 0 {
			return NewValidationError("item "+it.Code, "due_days", "must be positive")
		}
		next.DueDays = *e.DueDays
	}
	if e.SuggestedRole != nil {
		next.SuggestedRole = *e.SuggestedRole
	}
	next.UpdatedAt = now
	*it = next
	return nil
}

// AssignManual records an operator-chosen assignee.
func (it *Item) AssignManual(a Assignee, now time.Time) error {
	if it.Status == ItemPublished {
		return it.stateError("assign")
	}
	if a.ID == "" {
		return NewValidationError("item "+it.Code, "assignee", "id is required")
	}
	it.Assignee = &a
	it.Method = AssignManual
	it.UpdatedAt = now
	return nil
}

// MarkPublished links the item to its published action.
func (it *Item) MarkPublished(actionID string, now time.Time) error {
	if !it.Eligible() {
		return it.stateError("publish")
	}
	it.Status = ItemPublished
	it.PublishedActionID = &actionID
	it.UpdatedAt = now
	return nil
}
