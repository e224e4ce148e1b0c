package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/maltedev/boiler-scraper/internal/models"
)

const outboxTableDDL = `
CREATE TABLE IF NOT EXISTS outbox_event (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	target_stream  TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'pending',
	retry_count    INT NOT NULL DEFAULT 0,
	error_message  TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	processed_at   TIMESTAMPTZ,
	next_retry_at  TIMESTAMPTZ
)`

const outboxIndexDDL = `
CREATE INDEX IF NOT EXISTS idx_outbox_event_pending
	ON outbox_event (status, next_retry_at)`

const runsTableDDL = `
CREATE TABLE IF NOT EXISTS scrape_runs (
	id                 UUID PRIMARY KEY,
	status             TEXT NOT NULL,
	trigger            TEXT NOT NULL DEFAULT '',
	pages              INT NOT NULL DEFAULT 0,
	created            INT NOT NULL DEFAULT 0,
	updated            INT NOT NULL DEFAULT 0,
	skipped_not_target INT NOT NULL DEFAULT 0,
	skipped_existing   INT NOT NULL DEFAULT 0,
	errors             INT NOT NULL DEFAULT 0,
	error_message      TEXT,
	created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	started_at         TIMESTAMPTZ,
	finished_at        TIMESTAMPTZ
)`

// boilersTableDDL derives the attribute and image columns from the model so
// the table and the reconcile field list cannot drift apart.
func boilersTableDDL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS boilers (\n")
	b.WriteString("\tid            BIGSERIAL PRIMARY KEY,\n")
	b.WriteString("\tname          TEXT NOT NULL UNIQUE,\n")
	b.WriteString("\tprice         TEXT NOT NULL DEFAULT '',\n")
	b.WriteString("\tproduct_url   TEXT NOT NULL,\n")
	b.WriteString("\tdescription   TEXT NOT NULL DEFAULT '',\n")
	b.WriteString("\tcountry       TEXT NOT NULL DEFAULT '',\n")
	b.WriteString("\tdocumentation TEXT,\n")
	for _, key := range models.AttributeKeys {
		fmt.Fprintf(&b, "\t%s TEXT,\n", key)
	}
	for i := 1; i <= models.MaxImages; i++ {
		fmt.Fprintf(&b, "\timage_%d TEXT,\n", i)
	}
	b.WriteString("\tcreated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),\n")
	b.WriteString("\tupdated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()\n")
	b.WriteString(")")
	return b.String()
}

// EnsureSchema creates the tables the scraper writes to when they are missing.
func (db *DB) EnsureSchema(ctx context.Context) error {
	statements := []string{
		boilersTableDDL(),
		outboxTableDDL,
		outboxIndexDDL,
		runsTableDDL,
	}
	for _, stmt := range statements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
