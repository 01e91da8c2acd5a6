package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/google/uuid"
)

var fixtureCounter atomic.Int64

func nextN() int64 { return fixtureCounter.Add(1) }

// Campaign options
type CampaignOption func(*domain.CampaignOrigin)

func WithCampaignCode(code string) CampaignOption {
	return func(c *domain.CampaignOrigin) { c.Code = code }
}

func WithAnswers(answers ...domain.Answer) CampaignOption {
	return func(c *domain.CampaignOrigin) { c.Answers = append(c.Answers, answers...) }
}

func WithCampaignCustomization(sourceKey string, cust domain.Customization) CampaignOption {
	return func(c *domain.CampaignOrigin) {
		if c.Customizations == nil {
			c.Customizations = map[string]domain.Customization{}
		}
		c.Customizations[sourceKey] = cust
	}
}

func NewTestCampaign(tenantID string, opts ...CampaignOption) *domain.CampaignOrigin {
	n := nextN()
	c := &domain.CampaignOrigin{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		Code:     fmt.Sprintf("CAMP_%03d", n),
		Name:     fmt.Sprintf("Campaign %d", n),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Answer options
type AnswerOption func(*domain.Answer)

func WithRequirement(code string) AnswerOption {
	return func(a *domain.Answer) { a.RequirementCode = code }
}

func WithEntity(id, name string) AnswerOption {
	return func(a *domain.Answer) {
		a.EntityID = id
		a.EntityName = name
	}
}

func WithControlPoints(ids ...string) AnswerOption {
	return func(a *domain.Answer) { a.ControlPointIDs = ids }
}

func WithConformity(conformity string) AnswerOption {
	return func(a *domain.Answer) { a.Conformity = conformity }
}

func WithRisk(level string) AnswerOption {
	return func(a *domain.Answer) { a.RiskLevel = level }
}

// NewTestAnswer returns a non-compliant answer for entity "ent-1".
func NewTestAnswer(questionText string, opts ...AnswerOption) domain.Answer {
	n := nextN()
	a := domain.Answer{
		ID:           fmt.Sprintf("ans-%d", n),
		QuestionID:   fmt.Sprintf("q-%d", n),
		QuestionText: questionText,
		EntityID:     "ent-1",
		EntityName:   "Head Office",
		Conformity:   domain.ConformityNonCompliant,
	}
	for _, opt := range opts {
		opt(&a)
	}
	return a
}

// Scan options
type ScanOption func(*domain.ScanOrigin)

func WithScanCode(code string) ScanOption {
	return func(s *domain.ScanOrigin) { s.Code = code }
}

func WithVulnerabilities(vulns ...domain.Vulnerability) ScanOption {
	return func(s *domain.ScanOrigin) { s.Vulnerabilities = append(s.Vulnerabilities, vulns...) }
}

func WithScanFilter(f domain.ScanFilter) ScanOption {
	return func(s *domain.ScanOrigin) { s.Filter = f }
}

func NewTestScan(tenantID string, opts ...ScanOption) *domain.ScanOrigin {
	s := &domain.ScanOrigin{
		ID:       uuid.New().String(),
		TenantID: tenantID,
		Target:   "example.org",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Vulnerability options
type VulnOption func(*domain.Vulnerability)

func WithPort(port int) VulnOption {
	return func(v *domain.Vulnerability) { v.Port = &port }
}

func WithCVEs(ids ...string) VulnOption {
	return func(v *domain.Vulnerability) { v.CVEIDs = ids }
}

func WithScore(score float64) VulnOption {
	return func(v *domain.Vulnerability) { v.CVSSScore = &score }
}

func WithRemediated() VulnOption {
	return func(v *domain.Vulnerability) { v.Remediated = true }
}

func WithVulnEntity(id, name string) VulnOption {
	return func(v *domain.Vulnerability) {
		v.EntityID = id
		v.EntityName = name
	}
}

func NewTestVulnerability(title, severity string, opts ...VulnOption) domain.Vulnerability {
	v := domain.Vulnerability{
		ID:             fmt.Sprintf("vuln-%d", nextN()),
		EntityID:       "asset-1",
		EntityName:     "edge-gw-01",
		Severity:       severity,
		Title:          title,
		Description:    title + " detected",
		Recommendation: "Upgrade to a supported release",
	}
	for _, opt := range opts {
		opt(&v)
	}
	return v
}

// NewTestContact registers contactID for role on entityID.
func NewTestContact(tenantID, entityID, role, contactID string) *domain.Contact {
	return &domain.Contact{
		TenantID:  tenantID,
		EntityID:  entityID,
		Role:      role,
		ContactID: contactID,
		Name:      "Contact " + contactID,
		Email:     contactID + "@example.org",
	}
}

// NewTestPlan returns a DRAFT plan for a fresh campaign origin.
func NewTestPlan(tenantID string) *domain.Plan {
	p := domain.NewPlan(NewTestCampaign(tenantID), time.Now().UTC())
	p.Status = domain.PlanDraft
	return p
}

// Item options
type ItemOption func(*domain.Item)

func WithItemStatus(s domain.ItemStatus) ItemOption {
	return func(it *domain.Item) {
		it.Status = s
		it.Included = s != domain.ItemExcluded
	}
}

func WithOrderIndex(i int) ItemOption {
	return func(it *domain.Item) { it.OrderIndex = i }
}

func NewTestItem(plan *domain.Plan, code string, opts ...ItemOption) *domain.Item {
	now := time.Now().UTC()
	c := domain.Candidate{
		Kind:              plan.OriginKind,
		TenantID:          plan.TenantID,
		OriginID:          plan.OriginID,
		ScopeToken:        plan.ScopeToken,
		SourceKey:         "key:" + code,
		Title:             "Remediate " + code,
		Recommendation:    "Apply the documented control",
		SourceQuestionIDs: []string{"q-" + code},
		ControlPointIDs:   []string{"CP-1"},
	}
	severity := domain.SeverityMajor
	if plan.OriginKind == domain.OriginScan {
		severity = domain.SeverityHigh
	}
	cls := domain.Classification{
		Severity: severity, Priority: domain.PriorityP2, DueDays: 30,
		SuggestedRole: "Security Officer", Method: domain.AssignUnassigned,
	}
	it := domain.NewItem(plan.ID, code, c, cls, now)
	for _, opt := range opts {
		opt(it)
	}
	return it
}
