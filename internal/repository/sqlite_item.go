package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
)

// SQLiteItemRepo implements ItemRepo.
type SQLiteItemRepo struct {
	db db.DBTX
}

func NewSQLiteItemRepo(conn db.DBTX) *SQLiteItemRepo {
	return &SQLiteItemRepo{db: conn}
}

const itemColumns = `id, plan_id, tenant_id, origin_kind, code, source_key, status, included, order_index,
	title, description, recommendation, severity, priority, due_days, suggested_role,
	assignee_id, assignee_name, assignment_method, entity_id, entity_name,
	source_answer_ids, source_question_ids, control_point_ids,
	vulnerability_id, port, protocol, service_name, service_version, cve_ids, cvss_score, reference_url,
	justification, published_action_id, created_at, updated_at`

// itemEncoded holds the JSON-encoded columns of an item.
type itemEncoded struct {
	answers, questions, controlPoints, cves, justification string
}

func encodeItem(it *domain.Item) (itemEncoded, error) {
	var e itemEncoded
	var err error
	if e.answers, err = encodeList(it.SourceAnswerIDs); err != nil {
		return e, fmt.Errorf("encoding source_answer_ids: %w", err)
	}
	if e.questions, err = encodeList(it.SourceQuestionIDs); err != nil {
		return e, fmt.Errorf("encoding source_question_ids: %w", err)
	}
	if e.controlPoints, err = encodeList(it.ControlPointIDs); err != nil {
		return e, fmt.Errorf("encoding control_point_ids: %w", err)
	}
	if e.cves, err = encodeList(it.CVEIDs); err != nil {
		return e, fmt.Errorf("encoding cve_ids: %w", err)
	}
	if e.justification, err = encodeJustification(it.Justification); err != nil {
		return e, fmt.Errorf("encoding justification: %w", err)
	}
	return e, nil
}

func (r *SQLiteItemRepo) Create(ctx context.Context, it *domain.Item) error {
	enc, err := encodeItem(it)
	if err != nil {
		return err
	}
	assigneeID, assigneeName := assigneeColumns(it.Assignee)

	query := `INSERT INTO plan_items (` + itemColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		it.ID, it.PlanID, it.TenantID, string(it.OriginKind), it.Code, it.SourceKey,
		string(it.Status), boolToInt(it.Included), it.OrderIndex,
		it.Title, it.Description, it.Recommendation,
		string(it.Severity), string(it.Priority), it.DueDays, it.SuggestedRole,
		assigneeID, assigneeName, string(it.Method), it.EntityID, it.EntityName,
		enc.answers, enc.questions, enc.controlPoints,
		it.VulnerabilityID, nullableInt(it.Port), it.Protocol, it.ServiceName, it.ServiceVersion,
		enc.cves, nullableFloat(it.CVSSScore), it.ReferenceURL,
		enc.justification, nullableString(it.PublishedActionID),
		formatTime(it.CreatedAt), formatTime(it.UpdatedAt),
	)
	if err != nil {
		return conflictOr(err, "item code", it.Code, "inserting plan item")
	}
	return nil
}

func (r *SQLiteItemRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM plan_items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err != nil {
		return nil, notFound(err, "item", id)
	}
	return it, nil
}

func (r *SQLiteItemRepo) ListByPlan(ctx context.Context, planID string) ([]*domain.Item, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM plan_items WHERE plan_id = ? ORDER BY order_index, code`, planID)
	if err != nil {
		return nil, fmt.Errorf("listing plan items: %w", err)
	}
	defer rows.Close()

	items := []*domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning plan item row: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating plan items: %w", err)
	}
	return items, nil
}

// Update writes the mutable columns of an item. Code, plan, source linkage
// and enrichment are fixed at generation.
func (r *SQLiteItemRepo) Update(ctx context.Context, it *domain.Item) error {
	enc, err := encodeItem(it)
	if err != nil {
		return err
	}
	assigneeID, assigneeName := assigneeColumns(it.Assignee)

	query := `UPDATE plan_items SET status = ?, included = ?,
		title = ?, description = ?, recommendation = ?, severity = ?, priority = ?, due_days = ?, suggested_role = ?,
		assignee_id = ?, assignee_name = ?, assignment_method = ?,
		justification = ?, published_action_id = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		string(it.Status), boolToInt(it.Included),
		it.Title, it.Description, it.Recommendation, string(it.Severity), string(it.Priority), it.DueDays, it.SuggestedRole,
		assigneeID, assigneeName, string(it.Method),
		enc.justification, nullableString(it.PublishedActionID), formatTime(it.UpdatedAt),
		it.ID,
	)
	if err != nil {
		return fmt.Errorf("updating plan item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &domain.NotFoundError{Entity: "item", ID: it.ID}
	}
	return nil
}

func (r *SQLiteItemRepo) DeleteUnpublished(ctx context.Context, planID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM plan_items WHERE plan_id = ? AND status != 'PUBLISHED'`, planID)
	if err != nil {
		return 0, fmt.Errorf("deleting plan items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleting plan items: %w", err)
	}
	return int(n), nil
}

func scanItem(row rowScanner) (*domain.Item, error) {
	var it domain.Item
	var kind, status, severity, priority, method, createdAt, updatedAt string
	var answers, questions, controlPoints, cves, justification, assigneeName string
	var included int
	var assigneeID, publishedActionID sql.NullString
	var port sql.NullInt64
	var score sql.NullFloat64

	err := row.Scan(
		&it.ID, &it.PlanID, &it.TenantID, &kind, &it.Code, &it.SourceKey, &status, &included, &it.OrderIndex,
		&it.Title, &it.Description, &it.Recommendation, &severity, &priority, &it.DueDays, &it.SuggestedRole,
		&assigneeID, &assigneeName, &method, &it.EntityID, &it.EntityName,
		&answers, &questions, &controlPoints,
		&it.VulnerabilityID, &port, &it.Protocol, &it.ServiceName, &it.ServiceVersion, &cves, &score, &it.ReferenceURL,
		&justification, &publishedActionID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	it.OriginKind = domain.OriginKind(kind)
	it.Status = domain.ItemStatus(status)
	it.Included = included != 0
	it.Severity = domain.Severity(severity)
	it.Priority = domain.Priority(priority)
	it.Method = domain.AssignmentMethod(method)
	it.Assignee = assigneeFromColumns(assigneeID, assigneeName)
	it.Port = intPtr(port)
	it.CVSSScore = floatPtr(score)
	it.PublishedActionID = stringPtr(publishedActionID)

	if it.SourceAnswerIDs, err = decodeList(answers); err != nil {
		return nil, fmt.Errorf("decoding source_answer_ids: %w", err)
	}
	if it.SourceQuestionIDs, err = decodeList(questions); err != nil {
		return nil, fmt.Errorf("decoding source_question_ids: %w", err)
	}
	if it.ControlPointIDs, err = decodeList(controlPoints); err != nil {
		return nil, fmt.Errorf("decoding control_point_ids: %w", err)
	}
	if it.CVEIDs, err = decodeList(cves); err != nil {
		return nil, fmt.Errorf("decoding cve_ids: %w", err)
	}
	if it.Justification, err = decodeJustification(justification); err != nil {
		return nil, fmt.Errorf("decoding justification: %w", err)
	}
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if it.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &it, nil
}
