package domain

// RiskSignal is the raw severity evidence of one campaign answer.
type RiskSignal struct {
	AnswerID   string
	Conformity string
	RiskLevel  string
}

// Assignee is a resolved contact.
type Assignee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Candidate is the origin-independent shape produced by normalization and
// consumed by classification. Collections are never nil.
type Candidate struct {
	Kind       OriginKind
	TenantID   string
	OriginID   string
	ScopeToken string
	// SourceKey identifies the origin record(s) behind the candidate and is
	// stable across regenerations of the same plan.
	SourceKey  string
	OrderIndex int

	Title          string
	Description    string
	Recommendation string

	EntityID   string
	EntityName string

	SourceAnswerIDs   []string
	SourceQuestionIDs []string
	ControlPointIDs   []string

	VulnerabilityID string
	Port            *int
	Protocol        string
	ServiceName     string
	ServiceVersion  string
	CVEIDs          []string
	CVSSScore       *float64
	ReferenceURL    string

	// Campaign severity evidence, one signal per source answer.
	Signals []RiskSignal
	// Scan severity as reported by the scanner.
	RawSeverity string

	Override       *Customization
	ManualAssignee *Assignee
}

// Justification holds one rationale string per derived field.
type Justification struct {
	WhyAction   string `json:"why_action"`
	WhySeverity string `json:"why_severity"`
	WhyPriority string `json:"why_priority"`
	WhyRole     string `json:"why_role"`
	WhyDueDays  string `json:"why_due_days"`
}

// JustificationUnavailable fills slots no rationale was produced for.
const JustificationUnavailable = "not available"

// Complete returns j with every empty slot set to the placeholder.
func (j Justification) Complete() Justification {
	for _, s := range []*string{&j.WhyAction, &j.WhySeverity, &j.WhyPriority, &j.WhyRole, &j.WhyDueDays} {
		if *s == "" {
			*s = JustificationUnavailable
		}
	}
	return j
}

// Overlay replaces slots of j with the non-empty slots of o.
func (j Justification) Overlay(o Justification) Justification {
	pairs := [][2]*string{
		{&j.WhyAction, &o.WhyAction},
		{&j.WhySeverity, &o.WhySeverity},
		{&j.WhyPriority, &o.WhyPriority},
		{&j.WhyRole, &o.WhyRole},
		{&j.WhyDueDays, &o.WhyDueDays},
	}
	for _, p := range pairs {
		if *p[1] != "" {
			*p[0] = *p[1]
		}
	}
	return j
}

// Classification is everything the classifier derives for one candidate.
type Classification struct {
	Severity      Severity
	Priority      Priority
	DueDays       int
	SuggestedRole string
	Method        AssignmentMethod
	Assignee      *Assignee
	Justification Justification
}
