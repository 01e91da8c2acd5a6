// Package normalize turns campaign answers and scan vulnerabilities into
// origin-independent candidates.
package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/remediate/internal/domain"
)

// Options configure scan normalization.
type Options struct {
	// DefaultScanSeverities apply when a scan origin carries no filter.
	DefaultScanSeverities []string
	// ReferenceBaseURL is prefixed to the first CVE id of a vulnerability.
	ReferenceBaseURL string
}

func DefaultOptions() Options {
	return Options{
		DefaultScanSeverities: []string{"CRITICAL", "HIGH", "MEDIUM"},
		ReferenceBaseURL:      "https://nvd.nist.gov/vuln/detail/",
	}
}

type Normalizer struct {
	opts Options
}

func New(opts Options) *Normalizer {
	if len(opts.DefaultScanSeverities) == 0 {
		opts.DefaultScanSeverities = DefaultOptions().DefaultScanSeverities
	}
	return &Normalizer{opts: opts}
}

// Normalize returns the candidates of origin in generation order, with
// OrderIndex set. An origin with nothing to act on yields an empty slice.
func (n *Normalizer) Normalize(origin domain.Origin) ([]domain.Candidate, error) {
	if err := domain.ValidateOrigin(origin); err != nil {
		return nil, err
	}
	var (
		out []domain.Candidate
		err error
	)
	switch o := origin.(type) {
	case *domain.CampaignOrigin:
		out, err = n.campaign(o)
	case *domain.ScanOrigin:
		out, err = n.scan(o)
	default:
		return nil, domain.NewValidationError("origin", "kind", fmt.Sprintf("unsupported origin %T", origin))
	}
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].OrderIndex = i
	}
	return out, nil
}

func base(o domain.Origin, key string) domain.Candidate {
	return domain.Candidate{
		Kind:              o.Kind(),
		TenantID:          o.Tenant(),
		OriginID:          o.OriginID(),
		ScopeToken:        o.ScopeToken(),
		SourceKey:         key,
		SourceAnswerIDs:   []string{},
		SourceQuestionIDs: []string{},
		ControlPointIDs:   []string{},
		CVEIDs:            []string{},
		Signals:           []domain.RiskSignal{},
	}
}

// appendUnique appends the values of add missing from list, keeping
// first-appearance order. Blank values are skipped.
func appendUnique(list []string, add ...string) []string {
	for _, v := range add {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, have := range list {
			if have == v {
				dup = true
				break
			}
		}
		if !dup {
			list = append(list, v)
		}
	}
	return list
}

// campaignKey groups answers sharing an entity and requirement; answers
// without a requirement stand alone per question.
func campaignKey(a domain.Answer) string {
	if a.RequirementCode != "" {
		return "req:" + a.EntityID + ":" + a.RequirementCode
	}
	return "q:" + a.EntityID + ":" + a.QuestionID
}

func (n *Normalizer) campaign(c *domain.CampaignOrigin) ([]domain.Candidate, error) {
	var order []string
	groups := map[string][]domain.Answer{}
	seen := make(map[string]bool, len(c.Answers))
	for i, a := range c.Answers {
		if a.ID == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("campaign %s answer #%d", c.ID, i+1), "id", "is required")
		}
		if seen[a.ID] {
			return nil, domain.NewValidationError("answer "+a.ID, "id", "is duplicated")
		}
		seen[a.ID] = true
		if a.QuestionID == "" {
			return nil, domain.NewValidationError("answer "+a.ID, "question_id", "is required")
		}
		key := campaignKey(a)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], a)
	}

	out := make([]domain.Candidate, 0, len(order))
	for _, key := range order {
		answers := groups[key]
		first := answers[0]
		cand := base(c, key)
		cand.EntityID = first.EntityID
		cand.EntityName = first.EntityName
		cand.Title = campaignTitle(first)

		var comments []string
		for _, a := range answers {
			cand.SourceAnswerIDs = append(cand.SourceAnswerIDs, a.ID)
			cand.SourceQuestionIDs = appendUnique(cand.SourceQuestionIDs, a.QuestionID)
			cand.ControlPointIDs = appendUnique(cand.ControlPointIDs, a.ControlPointIDs...)
			comments = appendUnique(comments, a.Comment)
			if cand.Recommendation == "" {
				cand.Recommendation = strings.TrimSpace(a.Recommendation)
			}
			cand.Signals = append(cand.Signals, domain.RiskSignal{
				AnswerID:   a.ID,
				Conformity: a.Conformity,
				RiskLevel:  a.RiskLevel,
			})
		}
		cand.Description = campaignDescription(answers, comments)

		if cust, ok := c.Customizations[key]; ok {
			cust := cust
			cand.Override = &cust
		}
		out = append(out, cand)
	}
	return out, nil
}

func campaignTitle(a domain.Answer) string {
	switch {
	case a.RequirementTitle != "":
		return a.RequirementTitle
	case a.QuestionText != "":
		return a.QuestionText
	case a.RequirementCode != "":
		return "Requirement " + a.RequirementCode
	default:
		return "Question " + a.QuestionID
	}
}

func campaignDescription(answers []domain.Answer, comments []string) string {
	if len(comments) > 0 {
		return strings.Join(comments, "\n")
	}
	var qs []string
	for _, a := range answers {
		qs = appendUnique(qs, a.QuestionText)
	}
	if len(qs) == 0 {
		return fmt.Sprintf("%d non-conforming answer(s)", len(answers))
	}
	return "Non-conforming answer to: " + strings.Join(qs, "; ")
}

func (n *Normalizer) scanSeverities(f domain.ScanFilter) map[domain.Severity]bool {
	raw := f.Severities
	if len(raw) == 0 {
		raw = n.opts.DefaultScanSeverities
	}
	allowed := map[domain.Severity]bool{}
	for _, s := range raw {
		if sev, ok := domain.CanonicalScanSeverity(s); ok {
			allowed[sev] = true
		}
	}
	return allowed
}

func (n *Normalizer) scan(s *domain.ScanOrigin) ([]domain.Candidate, error) {
	allowed := n.scanSeverities(s.Filter)

	type ranked struct {
		cand domain.Candidate
		rank int
		pos  int
	}
	var kept []ranked
	seen := make(map[string]bool, len(s.Vulnerabilities))
	for i, v := range s.Vulnerabilities {
		if v.ID == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("scan %s vulnerability #%d", s.ID, i+1), "id", "is required")
		}
		// Each vulnerability keys its own code; a repeated ID would collide.
		if seen[v.ID] {
			return nil, domain.NewValidationError("vulnerability "+v.ID, "id", "is duplicated")
		}
		seen[v.ID] = true
		if strings.TrimSpace(v.Title) == "" {
			return nil, domain.NewValidationError("vulnerability "+v.ID, "title", "is required")
		}
		if v.Remediated && !s.Filter.IncludeRemediated {
			continue
		}
		// Unknown labels pass the filter so classification can reject them.
		sev, known := domain.CanonicalScanSeverity(v.Severity)
		if known && !allowed[sev] {
			continue
		}

		cand := base(s, "vuln:"+v.ID)
		cand.Title = strings.TrimSpace(v.Title)
		cand.Description = v.Description
		cand.Recommendation = v.Recommendation
		cand.EntityID = v.EntityID
		cand.EntityName = v.EntityName
		cand.VulnerabilityID = v.ID
		cand.Port = v.Port
		cand.Protocol = v.Protocol
		cand.ServiceName = v.ServiceName
		cand.ServiceVersion = v.ServiceVersion
		cand.CVEIDs = appendUnique(cand.CVEIDs, v.CVEIDs...)
		cand.CVSSScore = v.CVSSScore
		cand.RawSeverity = v.Severity
		if len(cand.CVEIDs) > 0 && n.opts.ReferenceBaseURL != "" {
			cand.ReferenceURL = n.opts.ReferenceBaseURL + cand.CVEIDs[0]
		}
		if cust, ok := s.Customizations[v.ID]; ok {
			cust := cust
			cand.Override = &cust
		}
		kept = append(kept, ranked{cand: cand, rank: sev.Rank(), pos: i})
	}

	// Most severe first, then highest score, missing scores last.
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.rank != b.rank {
			return a.rank > b.rank
		}
		as, bs := a.cand.CVSSScore, b.cand.CVSSScore
		switch {
		case as != nil && bs != nil && *as != *bs:
			return *as > *bs
		case as != nil && bs == nil:
			return true
		case as == nil && bs != nil:
			return false
		}
		return a.pos < b.pos
	})

	out := make([]domain.Candidate, 0, len(kept))
	for _, k := range kept {
		out = append(out, k.cand)
	}
	return out, nil
}
