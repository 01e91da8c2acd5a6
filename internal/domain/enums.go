package domain

import "strings"

type OriginKind string

const (
	OriginCampaign OriginKind = "campaign"
	OriginScan     OriginKind = "scan"
)

func (k OriginKind) Valid() bool {
	return k == OriginCampaign || k == OriginScan
}

type PlanStatus string

const (
	PlanNotStarted PlanStatus = "NOT_STARTED"
	PlanGenerating PlanStatus = "GENERATING"
	PlanDraft      PlanStatus = "DRAFT"
	PlanPublished  PlanStatus = "PUBLISHED"
)

type ItemStatus string

const (
	ItemProposed  ItemStatus = "PROPOSED"
	ItemValidated ItemStatus = "VALIDATED"
	ItemExcluded  ItemStatus = "EXCLUDED"
	ItemPublished ItemStatus = "PUBLISHED"
)

// Severity covers both origin vocabularies. Campaign plans use
// critical/major/minor/info; scan plans use critical/high/medium/low.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
	SeverityInfo     Severity = "info"
)

var campaignSeverities = []Severity{SeverityCritical, SeverityMajor, SeverityMinor, SeverityInfo}
var scanSeverities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// SeveritiesFor lists the vocabulary of an origin kind, most severe first.
func SeveritiesFor(kind OriginKind) []Severity {
	if kind == OriginScan {
		return append([]Severity(nil), scanSeverities...)
	}
	return append([]Severity(nil), campaignSeverities...)
}

// Rank orders severities across both vocabularies: 4 is critical, 1 is the
// lowest band (low or info). Unknown values rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh, SeverityMajor:
		return 3
	case SeverityMedium, SeverityMinor:
		return 2
	case SeverityLow, SeverityInfo:
		return 1
	default:
		return 0
	}
}

// ValidFor reports whether s belongs to the vocabulary of kind.
func (s Severity) ValidFor(kind OriginKind) bool {
	vocab := campaignSeverities
	if kind == OriginScan {
		vocab = scanSeverities
	}
	for _, v := range vocab {
		if v == s {
			return true
		}
	}
	return false
}

// ParseSeverity normalizes case and whitespace and checks the value against
// the vocabulary of kind.
func ParseSeverity(kind OriginKind, raw string) (Severity, bool) {
	s := Severity(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.ValidFor(kind)
}

type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

func (p Priority) Valid() bool {
	return p == PriorityP1 || p == PriorityP2 || p == PriorityP3
}

// ParsePriority accepts "P1", "p2" and friends.
func ParsePriority(raw string) (Priority, bool) {
	p := Priority(strings.ToUpper(strings.TrimSpace(raw)))
	return p, p.Valid()
}

// Higher returns the more urgent of p and o.
func (p Priority) Higher(o Priority) Priority {
	if !o.Valid() {
		return p
	}
	if !p.Valid() || o < p {
		return o
	}
	return p
}

type AssignmentMethod string

const (
	AssignDirect            AssignmentMethod = "direct"
	AssignFallbackManager   AssignmentMethod = "fallback_manager"
	AssignFallbackOwner     AssignmentMethod = "fallback_owner"
	AssignFallbackAuditResp AssignmentMethod = "fallback_audit_resp"
	AssignManual            AssignmentMethod = "manual"
	AssignUnassigned        AssignmentMethod = "unassigned"
)

type SourceType string

const (
	SourceCampaign   SourceType = "campaign"
	SourceScan       SourceType = "scan"
	SourceStandalone SourceType = "standalone"
)

// ActionStatusPending is the status every published action starts with.
const ActionStatusPending = "pending"

// CanonicalScanSeverity maps scanner severity labels onto the scan
// vocabulary. Informational findings fold into low.
func CanonicalScanSeverity(raw string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "CRITICAL":
		return SeverityCritical, true
	case "HIGH":
		return SeverityHigh, true
	case "MEDIUM", "MODERATE":
		return SeverityMedium, true
	case "LOW", "INFO", "INFORMATIONAL":
		return SeverityLow, true
	default:
		return "", false
	}
}
