// Package source reads collaborator payloads (scan results, campaign
// answers, contact directories) from YAML or JSON documents.
package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/alexanderramin/remediate/internal/domain"
)

type Kind string

const (
	KindScan     Kind = "scan"
	KindCampaign Kind = "campaign"
	KindContacts Kind = "contacts"
)

// Document is one parsed payload. Exactly one of Scan, Campaign or
// Contacts is set, matching Kind.
type Document struct {
	Kind     Kind
	Scan     *domain.ScanOrigin
	Campaign *domain.CampaignOrigin
	Contacts []*domain.Contact
}

// Origin returns the plan origin carried by the document, or nil for
// contact directories.
func (d *Document) Origin() domain.Origin {
	switch d.Kind {
	case KindScan:
		return d.Scan
	case KindCampaign:
		return d.Campaign
	default:
		return nil
	}
}

type envelope struct {
	Kind string `yaml:"kind"`
}

type contactsDoc struct {
	TenantID string            `yaml:"tenant_id"`
	Contacts []*domain.Contact `yaml:"contacts"`
}

// Supported reports whether path has an extension Parse understands.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// LoadFile reads and parses the document at path.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Parse decodes a document. The top-level kind field selects the payload
// type; the remaining fields are the payload itself. JSON is accepted as
// the YAML subset it is.
func Parse(data []byte) (*Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, domain.NewValidationError("document", "", "is empty")
	}
	var env envelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}

	doc := &Document{Kind: Kind(strings.ToLower(strings.TrimSpace(env.Kind)))}
	switch doc.Kind {
	case KindScan:
		var s domain.ScanOrigin
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decoding scan: %w", err)
		}
		doc.Scan = &s
		return doc, domain.ValidateOrigin(doc.Scan)
	case KindCampaign:
		var c domain.CampaignOrigin
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decoding campaign: %w", err)
		}
		doc.Campaign = &c
		return doc, domain.ValidateOrigin(doc.Campaign)
	case KindContacts:
		var cd contactsDoc
		if err := yaml.Unmarshal(data, &cd); err != nil {
			return nil, fmt.Errorf("decoding contacts: %w", err)
		}
		for i, c := range cd.Contacts {
			if c == nil {
				return nil, domain.NewValidationError(fmt.Sprintf("contact #%d", i+1), "", "is empty")
			}
			if c.TenantID == "" {
				c.TenantID = cd.TenantID
			}
			if err := c.Validate(); err != nil {
				return nil, err
			}
		}
		doc.Contacts = cd.Contacts
		if doc.Contacts == nil {
			doc.Contacts = []*domain.Contact{}
		}
		return doc, nil
	case "":
		return nil, domain.NewValidationError("document", "kind", "is required (scan, campaign or contacts)")
	default:
		return nil, domain.NewValidationError("document", "kind", fmt.Sprintf("unknown value %q", env.Kind))
	}
}
