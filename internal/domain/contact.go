package domain

// Directory roles consulted by the assignment chain besides the suggested
// role of an item.
const (
	RoleManager          = "manager"
	RoleOwner            = "owner"
	RoleAuditResponsible = "audit_responsible"
)

// Contact is a person registered for a role on an entity, or on a campaign
// when CampaignID is set.
type Contact struct {
	TenantID   string `yaml:"tenant_id" json:"tenant_id"`
	EntityID   string `yaml:"entity_id" json:"entity_id"`
	CampaignID string `yaml:"campaign_id" json:"campaign_id"`
	Role       string `yaml:"role" json:"role"`
	ContactID  string `yaml:"contact_id" json:"contact_id"`
	Name       string `yaml:"name" json:"name"`
	Email      string `yaml:"email" json:"email"`
}

// Assignee converts c into the assignee recorded on items.
func (c *Contact) Assignee() *Assignee {
	name := c.Name
	if name == "" {
		name = c.Email
	}
	return &Assignee{ID: c.ContactID, Name: name}
}

func (c *Contact) Validate() error {
	if c.TenantID == "" {
		return NewValidationError("contact "+c.ContactID, "tenant_id", "is required")
	}
	if c.ContactID == "" {
		return NewValidationError("contact", "contact_id", "is required")
	}
	if c.Role == "" {
		return NewValidationError("contact "+c.ContactID, "role", "is required")
	}
	if c.EntityID == "" && c.CampaignID == "" {
		return NewValidationError("contact "+c.ContactID, "entity_id", "entity or campaign is required")
	}
	return nil
}
