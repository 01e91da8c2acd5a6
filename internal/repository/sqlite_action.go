package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
)

// SQLiteActionRepo implements ActionRepo. Published actions are
// insert-only from this package's point of view.
type SQLiteActionRepo struct {
	db db.DBTX
}

func NewSQLiteActionRepo(conn db.DBTX) *SQLiteActionRepo {
	return &SQLiteActionRepo{db: conn}
}

const actionColumns = `id, tenant_id, code, source_type,
	campaign_id, plan_id, plan_item_id, scan_id, scan_plan_item_id,
	title, description, objective, severity, priority, status, due_days, due_date,
	suggested_role, assignee_id, assignee_name, assignment_method, entity_id, entity_name,
	source_question_ids, control_point_ids, cve_ids, cvss_score, port, reference_url,
	justification, created_by, created_at`

// Create validates a before inserting it. A unique violation on the code or
// on the source item is reported as a ConflictError.
func (r *SQLiteActionRepo) Create(ctx context.Context, a *domain.PublishedAction) error {
	if err := a.Validate(); err != nil {
		return err
	}

	questions, err := encodeList(a.SourceQuestionIDs)
	if err != nil {
		return fmt.Errorf("encoding source_question_ids: %w", err)
	}
	controlPoints, err := encodeList(a.ControlPointIDs)
	if err != nil {
		return fmt.Errorf("encoding control_point_ids: %w", err)
	}
	cves, err := encodeList(a.CVEIDs)
	if err != nil {
		return fmt.Errorf("encoding cve_ids: %w", err)
	}
	justification, err := encodeJustification(a.Justification)
	if err != nil {
		return fmt.Errorf("encoding justification: %w", err)
	}
	assigneeID, assigneeName := assigneeColumns(a.Assignee)

	query := `INSERT INTO published_actions (` + actionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		a.ID, a.TenantID, a.Code, string(a.SourceType),
		nullableString(a.CampaignID), nullableString(a.PlanID), nullableString(a.PlanItemID),
		nullableString(a.ScanID), nullableString(a.ScanPlanItemID),
		a.Title, a.Description, a.Objective, string(a.Severity), string(a.Priority), a.Status,
		a.DueDays, formatTime(a.DueDate),
		a.SuggestedRole, assigneeID, assigneeName, string(a.Method), a.EntityID, a.EntityName,
		questions, controlPoints, cves, nullableFloat(a.CVSSScore), nullableInt(a.Port), a.ReferenceURL,
		justification, a.CreatedBy, formatTime(a.CreatedAt),
	)
	if err != nil {
		return conflictOr(err, "published action", a.Code, "inserting published action")
	}
	return nil
}

func (r *SQLiteActionRepo) GetByID(ctx context.Context, id string) (*domain.PublishedAction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM published_actions WHERE id = ?`, id)
	a, err := scanAction(row)
	if err != nil {
		return nil, notFound(err, "published action", id)
	}
	return a, nil
}

func (r *SQLiteActionRepo) GetBySourceItem(ctx context.Context, itemID string) (*domain.PublishedAction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM published_actions
		WHERE plan_item_id = ? OR scan_plan_item_id = ?`, itemID, itemID)
	a, err := scanAction(row)
	if err != nil {
		return nil, notFound(err, "published action for item", itemID)
	}
	return a, nil
}

func (r *SQLiteActionRepo) List(ctx context.Context, f ActionFilter) ([]*domain.PublishedAction, error) {
	var where []string
	var args []any
	if f.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, f.TenantID)
	}
	if f.SourceType != "" {
		where = append(where, "source_type = ?")
		args = append(args, string(f.SourceType))
	}
	if f.PlanID != "" {
		where = append(where, `(plan_item_id IN (SELECT id FROM plan_items WHERE plan_id = ?)
			OR scan_plan_item_id IN (SELECT id FROM plan_items WHERE plan_id = ?))`)
		args = append(args, f.PlanID, f.PlanID)
	}

	query := `SELECT ` + actionColumns + ` FROM published_actions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, code"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing published actions: %w", err)
	}
	defer rows.Close()

	actions := []*domain.PublishedAction{}
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning published action row: %w", err)
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating published actions: %w", err)
	}
	return actions, nil
}

func scanAction(row rowScanner) (*domain.PublishedAction, error) {
	var a domain.PublishedAction
	var sourceType, severity, priority, method, dueDate, createdAt string
	var questions, controlPoints, cves, justification, assigneeName string
	var campaignID, planID, planItemID, scanID, scanPlanItemID, assigneeID sql.NullString
	var score sql.NullFloat64
	var port sql.NullInt64

	err := row.Scan(
		&a.ID, &a.TenantID, &a.Code, &sourceType,
		&campaignID, &planID, &planItemID, &scanID, &scanPlanItemID,
		&a.Title, &a.Description, &a.Objective, &severity, &priority, &a.Status, &a.DueDays, &dueDate,
		&a.SuggestedRole, &assigneeID, &assigneeName, &method, &a.EntityID, &a.EntityName,
		&questions, &controlPoints, &cves, &score, &port, &a.ReferenceURL,
		&justification, &a.CreatedBy, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	a.SourceType = domain.SourceType(sourceType)
	a.Severity = domain.Severity(severity)
	a.Priority = domain.Priority(priority)
	a.Method = domain.AssignmentMethod(method)
	a.CampaignID = stringPtr(campaignID)
	a.PlanID = stringPtr(planID)
	a.PlanItemID = stringPtr(planItemID)
	a.ScanID = stringPtr(scanID)
	a.ScanPlanItemID = stringPtr(scanPlanItemID)
	a.Assignee = assigneeFromColumns(assigneeID, assigneeName)
	a.CVSSScore = floatPtr(score)
	a.Port = intPtr(port)

	if a.SourceQuestionIDs, err = decodeList(questions); err != nil {
		return nil, fmt.Errorf("decoding source_question_ids: %w", err)
	}
	if a.ControlPointIDs, err = decodeList(controlPoints); err != nil {
		return nil, fmt.Errorf("decoding control_point_ids: %w", err)
	}
	if a.CVEIDs, err = decodeList(cves); err != nil {
		return nil, fmt.Errorf("decoding cve_ids: %w", err)
	}
	if a.Justification, err = decodeJustification(justification); err != nil {
		return nil, fmt.Errorf("decoding justification: %w", err)
	}
	if a.DueDate, err = parseTime(dueDate); err != nil {
		return nil, fmt.Errorf("parsing due_date: %w", err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &a, nil
}
