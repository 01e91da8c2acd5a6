// Package classify derives severity, priority, remediation window,
// suggested role, assignee and justification for candidates.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/remediate/internal/domain"
)

// Explainer supplies rationale prose. Non-empty fields replace the
// rule-derived text.
type Explainer interface {
	Explain(ctx context.Context, c domain.Candidate, cls domain.Classification) (domain.Justification, error)
}

type noopExplainer struct{}

func (noopExplainer) Explain(context.Context, domain.Candidate, domain.Classification) (domain.Justification, error) {
	return domain.Justification{}, nil
}

type Classifier struct {
	sla       SLA
	dir       Directory
	rules     []Rule
	explainer Explainer
}

type Option func(*Classifier)

func WithSLA(sla SLA) Option {
	return func(c *Classifier) { c.sla = sla }
}

func WithRules(rules ...Rule) Option {
	return func(c *Classifier) { c.rules = rules }
}

func WithExplainer(e Explainer) Option {
	return func(c *Classifier) {
		if e != nil {
			c.explainer = e
		}
	}
}

// New returns a classifier resolving assignees through dir, which may be
// nil when no directory is available.
func New(dir Directory, opts ...Option) *Classifier {
	c := &Classifier{
		sla:       DefaultSLA(),
		dir:       dir,
		rules:     DefaultRules(),
		explainer: noopExplainer{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify derives the classification of one candidate. Customizations on
// the candidate win over derived values and are checked against the
// vocabulary of its origin.
func (cl *Classifier) Classify(ctx context.Context, c domain.Candidate) (domain.Classification, error) {
	var (
		sev       domain.Severity
		whySev    string
		err       error
		overrides = c.Override
	)
	if c.Kind == domain.OriginScan {
		sev, whySev, err = scanSeverity(c)
	} else {
		sev, whySev, err = campaignSeverity(c)
	}
	if err != nil {
		return domain.Classification{}, err
	}
	record := "candidate " + c.SourceKey

	if overrides != nil && overrides.Severity != nil {
		s, ok := domain.ParseSeverity(c.Kind, *overrides.Severity)
		if !ok {
			return domain.Classification{}, domain.NewValidationError(record, "severity",
				fmt.Sprintf("%q is not a %s severity", *overrides.Severity, c.Kind))
		}
		sev, whySev = s, "Severity set by customization"
	}

	prio, whyPrio := priorityFor(c, sev)
	if overrides != nil && overrides.Priority != nil {
		p, ok := domain.ParsePriority(*overrides.Priority)
		if !ok {
			return domain.Classification{}, domain.NewValidationError(record, "priority",
				fmt.Sprintf("%q is not one of P1, P2, P3", *overrides.Priority))
		}
		prio, whyPrio = p, "Priority set by customization"
	}

	due, whyDue := dueDaysFor(cl.sla, c, sev)
	if overrides != nil && overrides.DueDays != nil {
		if *overrides.DueDays <= 0 {
			return domain.Classification{}, domain.NewValidationError(record, "due_days", "must be positive")
		}
		due, whyDue = *overrides.DueDays, "Remediation window set by customization"
	}

	role, whyRole := roleFor(c, sev)
	if overrides != nil && overrides.SuggestedRole != nil && strings.TrimSpace(*overrides.SuggestedRole) != "" {
		role, whyRole = strings.TrimSpace(*overrides.SuggestedRole), "Role set by customization"
	}

	assignment, err := resolve(ctx, cl.rules, cl.dir, c, role)
	if err != nil {
		return domain.Classification{}, err
	}

	cls := domain.Classification{
		Severity:      sev,
		Priority:      prio,
		DueDays:       due,
		SuggestedRole: role,
		Method:        assignment.Method,
		Assignee:      assignment.Assignee,
		Justification: domain.Justification{
			WhyAction:   whyAction(c),
			WhySeverity: whySev,
			WhyPriority: whyPrio,
			WhyRole:     whyRole + ". " + assignment.Why,
			WhyDueDays:  whyDue,
		},
	}

	extra, err := cl.explainer.Explain(ctx, c, cls)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("explaining %s: %w", c.SourceKey, err)
	}
	cls.Justification = cls.Justification.Overlay(extra).Complete()
	return cls, nil
}

func whyAction(c domain.Candidate) string {
	if c.Kind == domain.OriginScan {
		return fmt.Sprintf("Vulnerability %s found on %s", c.VulnerabilityID, orNone(entityLabel(c)))
	}
	n := len(c.SourceAnswerIDs)
	if n == 1 {
		return "One non-conforming answer on " + orNone(entityLabel(c))
	}
	return fmt.Sprintf("%d non-conforming answers on %s", n, orNone(entityLabel(c)))
}
