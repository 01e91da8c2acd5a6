package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
)

// SQLiteContactRepo stores the role directory consulted by assignment.
type SQLiteContactRepo struct {
	db db.DBTX
}

func NewSQLiteContactRepo(conn db.DBTX) *SQLiteContactRepo {
	return &SQLiteContactRepo{db: conn}
}

func (r *SQLiteContactRepo) Upsert(ctx context.Context, c *domain.Contact) error {
	if err := c.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO contacts (tenant_id, entity_id, campaign_id, role, contact_id, name, email)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant_id, entity_id, campaign_id, role)
		DO UPDATE SET contact_id = excluded.contact_id, name = excluded.name, email = excluded.email`,
		c.TenantID, c.EntityID, c.CampaignID, c.Role, c.ContactID, c.Name, c.Email)
	if err != nil {
		return fmt.Errorf("upserting contact: %w", err)
	}
	return nil
}

// Find returns nil without error when nobody holds the role.
func (r *SQLiteContactRepo) Find(ctx context.Context, tenantID, entityID, campaignID, role string) (*domain.Contact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT tenant_id, entity_id, campaign_id, role, contact_id, name, email
		FROM contacts WHERE tenant_id = ? AND entity_id = ? AND campaign_id = ? AND role = ?`,
		tenantID, entityID, campaignID, role)
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding contact: %w", err)
	}
	return c, nil
}

func (r *SQLiteContactRepo) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT tenant_id, entity_id, campaign_id, role, contact_id, name, email
		FROM contacts WHERE tenant_id = ? ORDER BY entity_id, campaign_id, role`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning contact row: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func scanContact(row rowScanner) (*domain.Contact, error) {
	var c domain.Contact
	if err := row.Scan(&c.TenantID, &c.EntityID, &c.CampaignID, &c.Role, &c.ContactID, &c.Name, &c.Email); err != nil {
		return nil, err
	}
	return &c, nil
}
