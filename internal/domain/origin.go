package domain

// Origin is the source a plan is generated from: an audit campaign or a
// vulnerability scan.
type Origin interface {
	Kind() OriginKind
	OriginID() string
	Tenant() string
	// ScopeToken is the token embedded in item codes for this origin.
	ScopeToken() string
}

// Customization overrides derived fields for one origin record. Nil fields
// keep the derived value.
type Customization struct {
	Title         *string `yaml:"title,omitempty" json:"title,omitempty"`
	Description   *string `yaml:"description,omitempty" json:"description,omitempty"`
	Severity      *string `yaml:"severity,omitempty" json:"severity,omitempty"`
	Priority      *string `yaml:"priority,omitempty" json:"priority,omitempty"`
	DueDays       *int    `yaml:"due_days,omitempty" json:"due_days,omitempty"`
	SuggestedRole *string `yaml:"suggested_role,omitempty" json:"suggested_role,omitempty"`
}

// Conformity values reported for questionnaire answers.
const (
	ConformityCompliant     = "compliant"
	ConformityNonCompliant  = "non_compliant"
	ConformityPartial       = "partial"
	ConformityNotApplicable = "not_applicable"
)

// Answer is one flagged questionnaire answer.
type Answer struct {
	ID               string   `yaml:"id" json:"id"`
	QuestionID       string   `yaml:"question_id" json:"question_id"`
	QuestionText     string   `yaml:"question_text" json:"question_text"`
	EntityID         string   `yaml:"entity_id" json:"entity_id"`
	EntityName       string   `yaml:"entity_name" json:"entity_name"`
	RequirementCode  string   `yaml:"requirement_code" json:"requirement_code"`
	RequirementTitle string   `yaml:"requirement_title" json:"requirement_title"`
	ControlPointIDs  []string `yaml:"control_point_ids" json:"control_point_ids"`
	Conformity       string   `yaml:"conformity" json:"conformity"`
	RiskLevel        string   `yaml:"risk_level" json:"risk_level"`
	Comment          string   `yaml:"comment" json:"comment"`
	Recommendation   string   `yaml:"recommendation" json:"recommendation"`
}

// CampaignOrigin carries the flagged answers of one audit campaign.
// Customizations are keyed by candidate source key.
type CampaignOrigin struct {
	ID             string                   `yaml:"id" json:"id"`
	TenantID       string                   `yaml:"tenant_id" json:"tenant_id"`
	Code           string                   `yaml:"code" json:"code"`
	Name           string                   `yaml:"name" json:"name"`
	Answers        []Answer                 `yaml:"answers" json:"answers"`
	Customizations map[string]Customization `yaml:"customizations" json:"customizations"`
}

func (c *CampaignOrigin) Kind() OriginKind   { return OriginCampaign }
func (c *CampaignOrigin) OriginID() string   { return c.ID }
func (c *CampaignOrigin) Tenant() string     { return c.TenantID }
func (c *CampaignOrigin) ScopeToken() string { return scopeToken(c.Code, "CAMP", c.ID) }

// Vulnerability is one scanner finding.
type Vulnerability struct {
	ID             string   `yaml:"id" json:"id"`
	EntityID       string   `yaml:"entity_id" json:"entity_id"`
	EntityName     string   `yaml:"entity_name" json:"entity_name"`
	Port           *int     `yaml:"port" json:"port"`
	Protocol       string   `yaml:"protocol" json:"protocol"`
	ServiceName    string   `yaml:"service_name" json:"service_name"`
	ServiceVersion string   `yaml:"service_version" json:"service_version"`
	Severity       string   `yaml:"severity" json:"severity"`
	CVEIDs         []string `yaml:"cve_ids" json:"cve_ids"`
	CVSSScore      *float64 `yaml:"cvss_score" json:"cvss_score"`
	Title          string   `yaml:"title" json:"title"`
	Description    string   `yaml:"description" json:"description"`
	Recommendation string   `yaml:"recommendation" json:"recommendation"`
	Remediated     bool     `yaml:"remediated" json:"remediated"`
}

// ScanFilter narrows which vulnerabilities become candidates. Empty
// Severities means the configured default.
type ScanFilter struct {
	Severities        []string `yaml:"severities" json:"severities"`
	IncludeRemediated bool     `yaml:"include_remediated" json:"include_remediated"`
}

// ScanOrigin carries the vulnerabilities of one scan. Customizations are
// keyed by vulnerability id.
type ScanOrigin struct {
	ID              string                   `yaml:"id" json:"id"`
	TenantID        string                   `yaml:"tenant_id" json:"tenant_id"`
	Code            string                   `yaml:"code" json:"code"`
	Target          string                   `yaml:"target" json:"target"`
	Vulnerabilities []Vulnerability          `yaml:"vulnerabilities" json:"vulnerabilities"`
	Filter          ScanFilter               `yaml:"filter" json:"filter"`
	Customizations  map[string]Customization `yaml:"customizations" json:"customizations"`
}

func (s *ScanOrigin) Kind() OriginKind   { return OriginScan }
func (s *ScanOrigin) OriginID() string   { return s.ID }
func (s *ScanOrigin) Tenant() string     { return s.TenantID }
func (s *ScanOrigin) ScopeToken() string { return scopeToken(s.Code, "SCAN", s.ID) }

// scopeToken prefers the collaborator-supplied code and falls back to
// PREFIX_<first 8 id chars, upper-cased, dashes dropped>.
func scopeToken(code, prefix, id string) string {
	if code != "" {
		return code
	}
	short := make([]rune, 0, 8)
	for _, r := range id {
		if r == '-' {
			continue
		}
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		short = append(short, r)
		if len(short) == 8 {
			break
		}
	}
	return prefix + "_" + string(short)
}

// ValidateOrigin checks the identity fields every origin must carry.
func ValidateOrigin(o Origin) error {
	if o == nil {
		return NewValidationError("origin", "", "is required")
	}
	if o.OriginID() == "" {
		return NewValidationError(string(o.Kind()), "id", "is required")
	}
	if o.Tenant() == "" {
		return NewValidationError(string(o.Kind())+" "+o.OriginID(), "tenant_id", "is required")
	}
	return nil
}
