package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PublishedAction is the durable record created from one item or directly
// as a standalone action. Content is copied at creation.
type PublishedAction struct {
	ID         string     `json:"id"`
	TenantID   string     `json:"tenant_id"`
	Code       string     `json:"code"`
	SourceType SourceType `json:"source_type"`

	CampaignID     *string `json:"campaign_id"`
	PlanID         *string `json:"plan_id"`
	PlanItemID     *string `json:"plan_item_id"`
	ScanID         *string `json:"scan_id"`
	ScanPlanItemID *string `json:"scan_plan_item_id"`

	Title       string    `json:"title"`
	Description string    `json:"description"`
	Objective   string    `json:"objective"`
	Severity    Severity  `json:"severity"`
	Priority    Priority  `json:"priority"`
	Status      string    `json:"status"`
	DueDays     int       `json:"due_days"`
	DueDate     time.Time `json:"due_date"`

	SuggestedRole string           `json:"suggested_role"`
	Assignee      *Assignee        `json:"assignee"`
	Method        AssignmentMethod `json:"assignment_method"`
	EntityID      string           `json:"entity_id,omitempty"`
	EntityName    string           `json:"entity_name,omitempty"`

	SourceQuestionIDs []string `json:"source_question_ids"`
	ControlPointIDs   []string `json:"control_point_ids"`
	CVEIDs            []string `json:"cve_ids"`
	CVSSScore         *float64 `json:"cvss_score,omitempty"`
	Port              *int     `json:"port,omitempty"`
	ReferenceURL      string   `json:"reference_url,omitempty"`

	Justification Justification `json:"justification"`
	CreatedBy     string        `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
}

// SourceItemID returns the plan item the action was published from, if any.
func (a *PublishedAction) SourceItemID() string {
	switch {
	case a.PlanItemID != nil:
		return *a.PlanItemID
	case a.ScanPlanItemID != nil:
		return *a.ScanPlanItemID
	default:
		return ""
	}
}

// Validate checks required content and that exactly the linkage set named
// by SourceType is populated.
func (a *PublishedAction) Validate() error {
	rec := "action"
	if a.Code != "" {
		rec = "action " + a.Code
	}
	if a.TenantID == "" {
		return NewValidationError(rec, "tenant_id", "is required")
	}
	if a.Code == "" {
		return NewValidationError(rec, "code", "is required")
	}
	if a.Title == "" {
		return NewValidationError(rec, "title", "is required")
	}
	if a.Severity.Rank() == 0 {
		return NewValidationError(rec, "severity", fmt.Sprintf("unknown value %q", a.Severity))
	}
	if !a.Priority.Valid() {
		return NewValidationError(rec, "priority", fmt.Sprintf("unknown value %q", a.Priority))
	}
	if a.DueDays <= 0 {
		return NewValidationError(rec, "due_days", "must be positive")
	}
	return a.validateLinkage(rec)
}

func present(s *string) bool { return s != nil && *s != "" }

func (a *PublishedAction) validateLinkage(rec string) error {
	campaign := present(a.CampaignID) || present(a.PlanID) || present(a.PlanItemID)
	scan := present(a.ScanID) || present(a.ScanPlanItemID)

	switch a.SourceType {
	case SourceCampaign:
		if !present(a.CampaignID) || !present(a.PlanID) || !present(a.PlanItemID) {
			return NewValidationError(rec, "linkage", "campaign actions need campaign, plan and plan item ids")
		}
		if scan {
			return NewValidationError(rec, "linkage", "campaign actions must not carry scan linkage")
		}
	case SourceScan:
		if !present(a.ScanID) || !present(a.ScanPlanItemID) {
			return NewValidationError(rec, "linkage", "scan actions need scan and scan plan item ids")
		}
		if campaign {
			return NewValidationError(rec, "linkage", "scan actions must not carry campaign linkage")
		}
	case SourceStandalone:
		if campaign || scan {
			return NewValidationError(rec, "linkage", "standalone actions must not carry plan linkage")
		}
	default:
		return NewValidationError(rec, "source_type", fmt.Sprintf("unknown value %q", a.SourceType))
	}
	return nil
}

// ScanObjective is the objective used when a scan item has no recommendation.
func ScanObjective(title string) string {
	return "Fix vulnerability: " + title
}

// SnapshotItem copies item into a new published action owned by plan.
// The result is not validated; callers run Validate before persisting.
func SnapshotItem(plan *Plan, item *Item, actor string, now time.Time) *PublishedAction {
	a := &PublishedAction{
		ID:                uuid.New().String(),
		TenantID:          item.TenantID,
		Code:              item.Code,
		Title:             item.Title,
		Description:       item.Description,
		Objective:         item.Recommendation,
		Severity:          item.Severity,
		Priority:          item.Priority,
		Status:            ActionStatusPending,
		DueDays:           item.DueDays,
		DueDate:           now.AddDate(0, 0, item.DueDays),
		SuggestedRole:     item.SuggestedRole,
		Method:            item.Method,
		EntityID:          item.EntityID,
		EntityName:        item.EntityName,
		SourceQuestionIDs: append([]string{}, item.SourceQuestionIDs...),
		ControlPointIDs:   append([]string{}, item.ControlPointIDs...),
		CVEIDs:            append([]string{}, item.CVEIDs...),
		ReferenceURL:      item.ReferenceURL,
		Justification:     item.Justification,
		CreatedBy:         actor,
		CreatedAt:         now,
	}
	if item.Assignee != nil {
		assignee := *item.Assignee
		a.Assignee = &assignee
	}
	if item.CVSSScore != nil {
		score := *item.CVSSScore
		a.CVSSScore = &score
	}
	if item.Port != nil {
		port := *item.Port
		a.Port = &port
	}

	planID, itemID, originID := plan.ID, item.ID, plan.OriginID
	switch plan.OriginKind {
	case OriginScan:
		a.SourceType = SourceScan
		a.ScanID = &originID
		a.ScanPlanItemID = &itemID
		a.Title = scanActionTitle(plan.ScopeToken, item)
		if a.Objective == "" {
			a.Objective = ScanObjective(item.Title)
		}
	default:
		a.SourceType = SourceCampaign
		a.CampaignID = &originID
		a.PlanID = &planID
		a.PlanItemID = &itemID
	}
	return a
}

func scanActionTitle(scope string, item *Item) string {
	if item.Title == "" {
		return ""
	}
	title := fmt.Sprintf("[%s] %s", scope, item.Title)
	if item.Port != nil {
		title = fmt.Sprintf("%s (Port %d)", title, *item.Port)
	}
	return title
}
