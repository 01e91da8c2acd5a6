// Package codes issues human-readable action codes that are unique within
// a scope: a tenant, a campaign of a tenant, or a scan of a tenant.
package codes

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
	"github.com/alexanderramin/remediate/internal/repository"
)

// DefaultPrefix and DefaultWidth match the ACT_..._001 code format.
const (
	DefaultPrefix = "ACT"
	DefaultWidth  = 3
)

type ScopeKind string

const (
	ScopeTenant   ScopeKind = "tenant"
	ScopeCampaign ScopeKind = "campaign"
	ScopeScan     ScopeKind = "scan"
)

// Scope identifies one code sequence. Token is empty for tenant scopes.
type Scope struct {
	Kind     ScopeKind
	TenantID string
	Token    string
}

func TenantScope(tenantID string) Scope {
	return Scope{Kind: ScopeTenant, TenantID: tenantID}
}

func CampaignScope(tenantID, token string) Scope {
	return Scope{Kind: ScopeCampaign, TenantID: tenantID, Token: token}
}

func ScanScope(tenantID, token string) Scope {
	return Scope{Kind: ScopeScan, TenantID: tenantID, Token: token}
}

// ScopeFor returns the scope item codes of origin are drawn from.
func ScopeFor(o domain.Origin) Scope {
	if o.Kind() == domain.OriginScan {
		return ScanScope(o.Tenant(), o.ScopeToken())
	}
	return CampaignScope(o.Tenant(), o.ScopeToken())
}

// Key is the persistence key of the scope's counter.
func (s Scope) Key() string {
	if s.Kind == ScopeTenant {
		return s.TenantID + "/" + string(ScopeTenant)
	}
	return s.TenantID + "/" + string(s.Kind) + "/" + s.Token
}

func (s Scope) Validate() error {
	if s.TenantID == "" {
		return domain.NewValidationError("code scope", "tenant_id", "is required")
	}
	switch s.Kind {
	case ScopeTenant:
		if s.Token != "" {
			return domain.NewValidationError("code scope", "token", "tenant scopes carry no token")
		}
	case ScopeCampaign, ScopeScan:
		if strings.TrimSpace(s.Token) == "" {
			return domain.NewValidationError("code scope", "token", "is required for "+string(s.Kind)+" scopes")
		}
	default:
		return domain.NewValidationError("code scope", "kind", fmt.Sprintf("unknown value %q", s.Kind))
	}
	return nil
}

// Format renders <prefix>_<token>_<seq> or <prefix>_<seq> for tenant
// scopes. seq is zero-padded to width and simply grows past it.
func Format(prefix string, s Scope, seq, width int) string {
	if width < 1 {
		width = DefaultWidth
	}
	if s.Token == "" {
		return fmt.Sprintf("%s_%0*d", prefix, width, seq)
	}
	return fmt.Sprintf("%s_%s_%0*d", prefix, s.Token, width, seq)
}

// Allocator hands out codes. It keeps no state of its own: the counter and
// the ledger of issued codes live in the store, and Allocate must run in
// the caller's transaction so a rollback leaves no trace.
type Allocator struct {
	prefix string
	width  int
}

func NewAllocator(prefix string, width int) *Allocator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if width < 1 {
		width = DefaultWidth
	}
	return &Allocator{prefix: prefix, width: width}
}

// Allocate returns the code for subjectID in scope. A subject that already
// holds a code gets the same code back, so retried generations stay stable.
func (a *Allocator) Allocate(ctx context.Context, tx db.DBTX, scope Scope, subjectID string) (string, error) {
	if err := scope.Validate(); err != nil {
		return "", err
	}
	if subjectID == "" {
		return "", domain.NewValidationError("code allocation", "subject_id", "is required")
	}

	seqs := repository.NewSQLiteCodeSequenceRepo(tx)
	if code, ok, err := seqs.Lookup(ctx, subjectID); err != nil {
		return "", err
	} else if ok {
		return code, nil
	}

	seq, err := seqs.NextSeq(ctx, scope.Key())
	if err != nil {
		return "", err
	}
	code := Format(a.prefix, scope, seq, a.width)
	if err := seqs.Record(ctx, subjectID, scope.Key(), seq, code); err != nil {
		return "", err
	}
	return code, nil
}
