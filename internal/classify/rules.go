package classify

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/remediate/internal/domain"
)

// SLA maps severities to remediation windows in days, per origin kind.
type SLA struct {
	Campaign map[domain.Severity]int
	Scan     map[domain.Severity]int
}

func DefaultSLA() SLA {
	return SLA{
		Campaign: map[domain.Severity]int{
			domain.SeverityCritical: 30,
			domain.SeverityMajor:    90,
			domain.SeverityMinor:    120,
			domain.SeverityInfo:     180,
		},
		Scan: map[domain.Severity]int{
			domain.SeverityCritical: 7,
			domain.SeverityHigh:     14,
			domain.SeverityMedium:   30,
			domain.SeverityLow:      90,
		},
	}
}

func (s SLA) table(kind domain.OriginKind) map[domain.Severity]int {
	if kind == domain.OriginScan {
		return s.Scan
	}
	return s.Campaign
}

// Validate checks that every severity of both vocabularies has a positive
// window.
func (s SLA) Validate() error {
	for _, kind := range []domain.OriginKind{domain.OriginCampaign, domain.OriginScan} {
		t := s.table(kind)
		for _, sev := range domain.SeveritiesFor(kind) {
			if t[sev] <= 0 {
				return domain.NewValidationError("sla "+string(kind), string(sev), "must be a positive number of days")
			}
		}
	}
	return nil
}

// Score bands that raise scan priority and shorten scan windows.
const (
	criticalScore = 9.0
	highScore     = 7.0
)

// Roles suggested when no override applies.
const (
	RoleSystemAdministrator = "System Administrator"
	RoleSecurityOfficer     = "Security Officer"
	RoleCISO                = "CISO"
)

// campaignSignalSeverity maps one answer onto the campaign vocabulary.
func campaignSignalSeverity(s domain.RiskSignal) (domain.Severity, error) {
	risk := strings.ToLower(strings.TrimSpace(s.RiskLevel))
	conformity := strings.ToLower(strings.TrimSpace(s.Conformity))
	switch {
	case risk == "critical" || conformity == domain.ConformityNonCompliant:
		return domain.SeverityCritical, nil
	case risk == "high" || conformity == domain.ConformityPartial:
		return domain.SeverityMajor, nil
	case risk == "medium" || risk == "low":
		return domain.SeverityMinor, nil
	case risk == "" && (conformity == domain.ConformityCompliant || conformity == domain.ConformityNotApplicable):
		return domain.SeverityInfo, nil
	}
	return "", domain.NewValidationError("answer "+s.AnswerID, "risk_level",
		fmt.Sprintf("cannot derive severity from risk %q and conformity %q", s.RiskLevel, s.Conformity))
}

// campaignSeverity is the most severe classification over the signals.
func campaignSeverity(c domain.Candidate) (domain.Severity, string, error) {
	if len(c.Signals) == 0 {
		return "", "", domain.NewValidationError("candidate "+c.SourceKey, "answers", "no answers to derive severity from")
	}
	var (
		worst domain.Severity
		from  domain.RiskSignal
	)
	for _, s := range c.Signals {
		sev, err := campaignSignalSeverity(s)
		if err != nil {
			return "", "", err
		}
		if sev.Rank() > worst.Rank() {
			worst, from = sev, s
		}
	}
	why := fmt.Sprintf("Answer %s is %s", from.AnswerID, describeSignal(from))
	if len(c.Signals) > 1 {
		why += fmt.Sprintf("; most severe of %d grouped answers", len(c.Signals))
	}
	return worst, why, nil
}

func describeSignal(s domain.RiskSignal) string {
	switch {
	case s.RiskLevel != "" && s.Conformity != "":
		return fmt.Sprintf("%s with %s risk", s.Conformity, s.RiskLevel)
	case s.RiskLevel != "":
		return s.RiskLevel + " risk"
	default:
		return s.Conformity
	}
}

func scanSeverity(c domain.Candidate) (domain.Severity, string, error) {
	if c.CVSSScore != nil && (*c.CVSSScore < 0 || *c.CVSSScore > 10) {
		return "", "", domain.NewValidationError("vulnerability "+c.VulnerabilityID, "cvss_score",
			fmt.Sprintf("%.1f is outside [0, 10]", *c.CVSSScore))
	}
	sev, ok := domain.CanonicalScanSeverity(c.RawSeverity)
	if !ok {
		return "", "", domain.NewValidationError("vulnerability "+c.VulnerabilityID, "severity",
			fmt.Sprintf("unknown severity %q", c.RawSeverity))
	}
	why := fmt.Sprintf("Scanner reported %s", strings.ToUpper(c.RawSeverity))
	if c.CVSSScore != nil {
		why += fmt.Sprintf(" (CVSS %.1f)", *c.CVSSScore)
	}
	return sev, why, nil
}

func basePriority(kind domain.OriginKind, sev domain.Severity) domain.Priority {
	switch sev {
	case domain.SeverityCritical:
		return domain.PriorityP1
	case domain.SeverityHigh:
		if kind == domain.OriginScan {
			return domain.PriorityP1
		}
		return domain.PriorityP2
	case domain.SeverityMajor, domain.SeverityMedium:
		return domain.PriorityP2
	default:
		return domain.PriorityP3
	}
}

func priorityFor(c domain.Candidate, sev domain.Severity) (domain.Priority, string) {
	p := basePriority(c.Kind, sev)
	why := fmt.Sprintf("%s severity maps to %s", sev, p)
	if c.Kind != domain.OriginScan || c.CVSSScore == nil {
		return p, why
	}
	score := *c.CVSSScore
	var band domain.Priority
	switch {
	case score >= criticalScore:
		band = domain.PriorityP1
	case score >= highScore:
		band = domain.PriorityP2
	}
	if raised := p.Higher(band); raised != p {
		why = fmt.Sprintf("%s; CVSS %.1f raises it to %s", why, score, raised)
		p = raised
	}
	return p, why
}

func dueDaysFor(sla SLA, c domain.Candidate, sev domain.Severity) (int, string) {
	table := sla.table(c.Kind)
	days := table[sev]
	why := fmt.Sprintf("%s SLA for %s severity is %d days", c.Kind, sev, days)
	if c.Kind == domain.OriginScan && c.CVSSScore != nil && *c.CVSSScore >= criticalScore {
		if crit := table[domain.SeverityCritical]; crit < days {
			days = crit
			why = fmt.Sprintf("CVSS %.1f caps the window at the critical SLA of %d days", *c.CVSSScore, days)
		}
	}
	return days, why
}

func roleFor(c domain.Candidate, sev domain.Severity) (string, string) {
	if c.Kind == domain.OriginScan {
		if c.Port != nil {
			return RoleSystemAdministrator, fmt.Sprintf("Exposed service on port %d is handled by system administration", *c.Port)
		}
		return RoleSecurityOfficer, "Host-level finding without a network port"
	}
	if sev == domain.SeverityCritical {
		return RoleCISO, "Critical audit gaps are owned by the CISO"
	}
	return RoleSecurityOfficer, "Audit gaps below critical are owned by the security officer"
}
