package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/remediate/internal/db"
	"github.com/alexanderramin/remediate/internal/domain"
)

// timeLayout is used for every timestamp column.
const timeLayout = time.RFC3339Nano

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// parseNullableTime returns nil for NULL, empty or unparsable values.
func parseNullableTime(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// nullableTime converts a *time.Time to a value for a nullable column.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid || s.String == "" {
		return nil
	}
	v := s.String
	return &v
}

func nullableInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// encodeList stores a string list as a JSON array; nil becomes "[]".
func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// decodeList never returns nil.
func decodeList(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func encodeJustification(j domain.Justification) (string, error) {
	b, err := json.Marshal(j.Complete())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeJustification(raw string) (domain.Justification, error) {
	var j domain.Justification
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &j); err != nil {
			return j, err
		}
	}
	return j.Complete(), nil
}

// assigneeColumns splits an optional assignee into id and name columns.
func assigneeColumns(a *domain.Assignee) (any, string) {
	if a == nil || a.ID == "" {
		return nil, ""
	}
	return a.ID, a.Name
}

func assigneeFromColumns(id sql.NullString, name string) *domain.Assignee {
	if !id.Valid || id.String == "" {
		return nil
	}
	return &domain.Assignee{ID: id.String, Name: name}
}

// notFound maps sql.ErrNoRows to a typed NotFoundError.
func notFound(err error, entity, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Entity: entity, ID: id}
	}
	return fmt.Errorf("scanning %s: %w", entity, err)
}

// conflictOr wraps unique violations as ConflictError and other errors
// with msg.
func conflictOr(err error, resource, key, msg string) error {
	if db.IsUniqueViolation(err) {
		return &domain.ConflictError{Resource: resource, Key: key, Err: err}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
