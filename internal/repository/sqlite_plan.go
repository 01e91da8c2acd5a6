package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
)

// SQLitePlanRepo implements PlanRepo.
type SQLitePlanRepo struct {
	db db.DBTX
}

func NewSQLitePlanRepo(conn db.DBTX) *SQLitePlanRepo {
	return &SQLitePlanRepo{db: conn}
}

const planColumns = `id, tenant_id, origin_kind, origin_id, scope_token, status,
	total_items, critical_count, high_count, medium_count, low_count,
	validated_count, excluded_count, published_count, last_error,
	generation_started_at, generated_at, generated_by, published_at, published_by,
	created_at, updated_at`

func (r *SQLitePlanRepo) Create(ctx context.Context, p *domain.Plan) error {
	query := `INSERT INTO plans (` + planColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.TenantID, string(p.OriginKind), p.OriginID, p.ScopeToken, string(p.Status),
		p.Counts.Total, p.Counts.Critical, p.Counts.High, p.Counts.Medium, p.Counts.Low,
		p.Counts.Validated, p.Counts.Excluded, p.Counts.Published, p.LastError,
		nullableTime(p.GenerationStartedAt), nullableTime(p.GeneratedAt), p.GeneratedBy,
		nullableTime(p.PublishedAt), p.PublishedBy,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return conflictOr(err, "plan origin", string(p.OriginKind)+"/"+p.OriginID, "inserting plan")
	}
	return nil
}

func (r *SQLitePlanRepo) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if err != nil {
		return nil, notFound(err, "plan", id)
	}
	return p, nil
}

func (r *SQLitePlanRepo) GetByOrigin(ctx context.Context, kind domain.OriginKind, originID string) (*domain.Plan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE origin_kind = ? AND origin_id = ?`, string(kind), originID)
	p, err := scanPlan(row)
	if err != nil {
		return nil, notFound(err, string(kind)+" plan", originID)
	}
	return p, nil
}

func (r *SQLitePlanRepo) ListByTenant(ctx context.Context, tenantID string) ([]*domain.Plan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM plans WHERE tenant_id = ? ORDER BY created_at, id`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plan row: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plans: %w", err)
	}
	return plans, nil
}

func (r *SQLitePlanRepo) UpdateIfStatus(ctx context.Context, p *domain.Plan, expected domain.PlanStatus) error {
	query := `UPDATE plans SET status = ?,
		total_items = ?, critical_count = ?, high_count = ?, medium_count = ?, low_count = ?,
		validated_count = ?, excluded_count = ?, published_count = ?, last_error = ?,
		generation_started_at = ?, generated_at = ?, generated_by = ?, published_at = ?, published_by = ?,
		updated_at = ?
		WHERE id = ? AND status = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(p.Status),
		p.Counts.Total, p.Counts.Critical, p.Counts.High, p.Counts.Medium, p.Counts.Low,
		p.Counts.Validated, p.Counts.Excluded, p.Counts.Published, p.LastError,
		nullableTime(p.GenerationStartedAt), nullableTime(p.GeneratedAt), p.GeneratedBy,
		nullableTime(p.PublishedAt), p.PublishedBy,
		formatTime(p.UpdatedAt),
		p.ID, string(expected),
	)
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating plan: %w", err)
	}
	if n == 0 {
		return &domain.ConflictError{Resource: "plan status", Key: p.ID}
	}
	return nil
}

func scanPlan(row rowScanner) (*domain.Plan, error) {
	var p domain.Plan
	var kind, status, createdAt, updatedAt string
	var genStarted, generatedAt, publishedAt sql.NullString

	err := row.Scan(
		&p.ID, &p.TenantID, &kind, &p.OriginID, &p.ScopeToken, &status,
		&p.Counts.Total, &p.Counts.Critical, &p.Counts.High, &p.Counts.Medium, &p.Counts.Low,
		&p.Counts.Validated, &p.Counts.Excluded, &p.Counts.Published, &p.LastError,
		&genStarted, &generatedAt, &p.GeneratedBy, &publishedAt, &p.PublishedBy,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.OriginKind = domain.OriginKind(kind)
	p.Status = domain.PlanStatus(status)
	p.GenerationStartedAt = parseNullableTime(genStarted)
	p.GeneratedAt = parseNullableTime(generatedAt)
	p.PublishedAt = parseNullableTime(publishedAt)

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &p, nil
}
