package classify

import (
	"context"
	"fmt"

	"github.com/alexanderramin/remediate/internal/domain"
)

// Directory resolves contacts holding a role on an entity or campaign.
// Find returns nil, nil when nobody holds the role.
type Directory interface {
	Find(ctx context.Context, tenantID, entityID, campaignID, role string) (*domain.Contact, error)
}

// Assignment is the outcome of one rule.
type Assignment struct {
	Method   domain.AssignmentMethod
	Assignee *domain.Assignee
	Why      string
}

// Rule tries to assign a candidate whose suggested role is already known.
// ok is false when the rule does not apply.
type Rule func(ctx context.Context, dir Directory, c domain.Candidate, role string) (a Assignment, ok bool, err error)

// DefaultRules is the assignment chain, tried in order.
func DefaultRules() []Rule {
	return []Rule{
		directRule,
		entityRoleRule(domain.RoleManager, domain.AssignFallbackManager),
		entityRoleRule(domain.RoleOwner, domain.AssignFallbackOwner),
		auditResponsibleRule,
		manualRule,
	}
}

func found(method domain.AssignmentMethod, ct *domain.Contact, why string) (Assignment, bool, error) {
	return Assignment{Method: method, Assignee: ct.Assignee(), Why: why}, true, nil
}

func directRule(ctx context.Context, dir Directory, c domain.Candidate, role string) (Assignment, bool, error) {
	if dir == nil || c.EntityID == "" {
		return Assignment{}, false, nil
	}
	ct, err := dir.Find(ctx, c.TenantID, c.EntityID, "", role)
	if err != nil || ct == nil {
		return Assignment{}, false, err
	}
	return found(domain.AssignDirect, ct,
		fmt.Sprintf("%s holds the %s role on %s", ct.Assignee().Name, role, entityLabel(c)))
}

func entityRoleRule(dirRole string, method domain.AssignmentMethod) Rule {
	return func(ctx context.Context, dir Directory, c domain.Candidate, role string) (Assignment, bool, error) {
		if dir == nil || c.EntityID == "" {
			return Assignment{}, false, nil
		}
		ct, err := dir.Find(ctx, c.TenantID, c.EntityID, "", dirRole)
		if err != nil || ct == nil {
			return Assignment{}, false, err
		}
		return found(method, ct,
			fmt.Sprintf("No %s on %s; falling back to %s %s", role, entityLabel(c), dirRole, ct.Assignee().Name))
	}
}

func auditResponsibleRule(ctx context.Context, dir Directory, c domain.Candidate, role string) (Assignment, bool, error) {
	if dir == nil || c.Kind != domain.OriginCampaign {
		return Assignment{}, false, nil
	}
	ct, err := dir.Find(ctx, c.TenantID, "", c.OriginID, domain.RoleAuditResponsible)
	if err != nil || ct == nil {
		return Assignment{}, false, err
	}
	return found(domain.AssignFallbackAuditResp, ct,
		fmt.Sprintf("No entity contact for %s; assigned to campaign audit responsible %s", role, ct.Assignee().Name))
}

func manualRule(_ context.Context, _ Directory, c domain.Candidate, _ string) (Assignment, bool, error) {
	if c.ManualAssignee == nil || c.ManualAssignee.ID == "" {
		return Assignment{}, false, nil
	}
	a := *c.ManualAssignee
	return Assignment{
		Method:   domain.AssignManual,
		Assignee: &a,
		Why:      "Manually assigned to " + a.Name,
	}, true, nil
}

func entityLabel(c domain.Candidate) string {
	if c.EntityName != "" {
		return c.EntityName
	}
	return c.EntityID
}

// resolve walks rules in order. An operator's assignment carried over from a
// previous generation outranks every directory lookup.
func resolve(ctx context.Context, rules []Rule, dir Directory, c domain.Candidate, role string) (Assignment, error) {
	if a, ok, _ := manualRule(ctx, dir, c, role); ok {
		return a, nil
	}
	for _, rule := range rules {
		a, ok, err := rule(ctx, dir, c, role)
		if err != nil {
			return Assignment{}, fmt.Errorf("resolving assignee for %s: %w", c.SourceKey, err)
		}
		if ok {
			return a, nil
		}
	}
	return Assignment{
		Method: domain.AssignUnassigned,
		Why:    fmt.Sprintf("Suggested role %s; no contact holds it or a fallback role on %s", role, orNone(entityLabel(c))),
	}, nil
}

func orNone(s string) string {
	if s == "" {
		return "the record"
	}
	return s
}
