package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent, so the
// full list is replayed on every open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// ALTER TABLE ADD COLUMN has no IF NOT EXISTS form.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS plans (
		id                    TEXT PRIMARY KEY,
		tenant_id             TEXT NOT NULL,
		origin_kind           TEXT NOT NULL CHECK(origin_kind IN ('campaign','scan')),
		origin_id             TEXT NOT NULL,
		scope_token           TEXT NOT NULL,
		status                TEXT NOT NULL DEFAULT 'NOT_STARTED'
		                      CHECK(status IN ('NOT_STARTED','GENERATING','DRAFT','PUBLISHED')),
		total_items           INTEGER NOT NULL DEFAULT 0,
		critical_count        INTEGER NOT NULL DEFAULT 0,
		high_count            INTEGER NOT NULL DEFAULT 0,
		medium_count          INTEGER NOT NULL DEFAULT 0,
		low_count             INTEGER NOT NULL DEFAULT 0,
		validated_count       INTEGER NOT NULL DEFAULT 0,
		excluded_count        INTEGER NOT NULL DEFAULT 0,
		last_error            TEXT NOT NULL DEFAULT '',
		generation_started_at TEXT,
		generated_at          TEXT,
		generated_by          TEXT NOT NULL DEFAULT '',
		published_at          TEXT,
		published_by          TEXT NOT NULL DEFAULT '',
		created_at            TEXT NOT NULL,
		updated_at            TEXT NOT NULL,
		UNIQUE(origin_kind, origin_id)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_plans_tenant ON plans(tenant_id)`,

	`CREATE TABLE IF NOT EXISTS plan_items (
		id                  TEXT PRIMARY KEY,
		plan_id             TEXT NOT NULL REFERENCES plans(id) ON DELETE CASCADE,
		tenant_id           TEXT NOT NULL,
		origin_kind         TEXT NOT NULL CHECK(origin_kind IN ('campaign','scan')),
		code                TEXT NOT NULL,
		source_key          TEXT NOT NULL,
		status              TEXT NOT NULL DEFAULT 'PROPOSED'
		                    CHECK(status IN ('PROPOSED','VALIDATED','EXCLUDED','PUBLISHED')),
		included            INTEGER NOT NULL DEFAULT 1,
		order_index         INTEGER NOT NULL DEFAULT 0,
		title               TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		recommendation      TEXT NOT NULL DEFAULT '',
		severity            TEXT NOT NULL,
		priority            TEXT NOT NULL CHECK(priority IN ('P1','P2','P3')),
		due_days            INTEGER NOT NULL,
		suggested_role      TEXT NOT NULL DEFAULT '',
		assignee_id         TEXT,
		assignee_name       TEXT NOT NULL DEFAULT '',
		assignment_method   TEXT NOT NULL
		                    CHECK(assignment_method IN ('direct','fallback_manager','fallback_owner','fallback_audit_resp','manual','unassigned')),
		entity_id           TEXT NOT NULL DEFAULT '',
		entity_name         TEXT NOT NULL DEFAULT '',
		source_answer_ids   TEXT NOT NULL DEFAULT '[]',
		source_question_ids TEXT NOT NULL DEFAULT '[]',
		control_point_ids   TEXT NOT NULL DEFAULT '[]',
		vulnerability_id    TEXT NOT NULL DEFAULT '',
		port                INTEGER,
		protocol            TEXT NOT NULL DEFAULT '',
		service_name        TEXT NOT NULL DEFAULT '',
		service_version     TEXT NOT NULL DEFAULT '',
		cve_ids             TEXT NOT NULL DEFAULT '[]',
		cvss_score          REAL,
		reference_url       TEXT NOT NULL DEFAULT '',
		justification       TEXT NOT NULL DEFAULT '{}',
		published_action_id TEXT,
		created_at          TEXT NOT NULL,
		updated_at          TEXT NOT NULL,
		UNIQUE(tenant_id, code)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_plan_items_plan ON plan_items(plan_id, order_index)`,

	`CREATE TABLE IF NOT EXISTS code_sequences (
		scope_key TEXT PRIMARY KEY,
		next_seq  INTEGER NOT NULL CHECK(next_seq > 0)
	)`,

	`CREATE TABLE IF NOT EXISTS code_assignments (
		subject_id TEXT PRIMARY KEY,
		scope_key  TEXT NOT NULL,
		seq        INTEGER NOT NULL,
		code       TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(scope_key, seq)
	)`,

	`CREATE TABLE IF NOT EXISTS published_actions (
		id                  TEXT PRIMARY KEY,
		tenant_id           TEXT NOT NULL,
		code                TEXT NOT NULL,
		source_type         TEXT NOT NULL CHECK(source_type IN ('campaign','scan','standalone')),
		campaign_id         TEXT,
		plan_id             TEXT,
		plan_item_id        TEXT UNIQUE,
		scan_id             TEXT,
		scan_plan_item_id   TEXT UNIQUE,
		title               TEXT NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		objective           TEXT NOT NULL DEFAULT '',
		severity            TEXT NOT NULL,
		priority            TEXT NOT NULL CHECK(priority IN ('P1','P2','P3')),
		status              TEXT NOT NULL DEFAULT 'pending',
		due_days            INTEGER NOT NULL,
		due_date            TEXT NOT NULL,
		suggested_role      TEXT NOT NULL DEFAULT '',
		assignee_id         TEXT,
		assignee_name       TEXT NOT NULL DEFAULT '',
		assignment_method   TEXT NOT NULL DEFAULT 'unassigned',
		entity_id           TEXT NOT NULL DEFAULT '',
		entity_name         TEXT NOT NULL DEFAULT '',
		source_question_ids TEXT NOT NULL DEFAULT '[]',
		control_point_ids   TEXT NOT NULL DEFAULT '[]',
		cve_ids             TEXT NOT NULL DEFAULT '[]',
		cvss_score          REAL,
		port                INTEGER,
		reference_url       TEXT NOT NULL DEFAULT '',
		justification       TEXT NOT NULL DEFAULT '{}',
		created_by          TEXT NOT NULL DEFAULT '',
		created_at          TEXT NOT NULL,
		UNIQUE(tenant_id, code),
		CHECK (
			(source_type = 'campaign'
				AND campaign_id IS NOT NULL AND plan_id IS NOT NULL AND plan_item_id IS NOT NULL
				AND scan_id IS NULL AND scan_plan_item_id IS NULL)
			OR (source_type = 'scan'
				AND scan_id IS NOT NULL AND scan_plan_item_id IS NOT NULL
				AND campaign_id IS NULL AND plan_id IS NULL AND plan_item_id IS NULL)
			OR (source_type = 'standalone'
				AND campaign_id IS NULL AND plan_id IS NULL AND plan_item_id IS NULL
				AND scan_id IS NULL AND scan_plan_item_id IS NULL)
		)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_published_actions_tenant ON published_actions(tenant_id, source_type)`,

	`CREATE TABLE IF NOT EXISTS contacts (
		tenant_id   TEXT NOT NULL,
		entity_id   TEXT NOT NULL DEFAULT '',
		campaign_id TEXT NOT NULL DEFAULT '',
		role        TEXT NOT NULL,
		contact_id  TEXT NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		email       TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (tenant_id, entity_id, campaign_id, role)
	)`,

	// Column additions to existing tables.
	`ALTER TABLE plans ADD COLUMN published_count INTEGER NOT NULL DEFAULT 0`,
}
