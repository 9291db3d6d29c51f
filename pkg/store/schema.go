package store

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is the relational layout. Foreign keys restrict on delete and
// cascade on update; join tables carry composite primary keys.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	email       TEXT,
	name        TEXT,
	phone       TEXT,
	picture     TEXT,
	managed     BOOLEAN NOT NULL DEFAULT FALSE,
	super_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_authentications (
	user_id TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	subject TEXT NOT NULL UNIQUE,
	PRIMARY KEY (user_id, subject)
);

CREATE TABLE IF NOT EXISTS orgs (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	contact_email TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS org_users (
	org_id     TEXT NOT NULL REFERENCES orgs(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	role       INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (org_id, user_id)
);

CREATE TABLE IF NOT EXISTS invoices (
	id         TEXT PRIMARY KEY,
	paid       BOOLEAN NOT NULL DEFAULT FALSE,
	value      BIGINT NOT NULL,
	start_at   TIMESTAMPTZ NOT NULL,
	end_at     TIMESTAMPTZ NOT NULL,
	due_at     TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS reports (
	id         TEXT PRIMARY KEY,
	rating     INTEGER NOT NULL,
	notes      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_invoices (
	user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	PRIMARY KEY (user_id, invoice_id)
);

CREATE TABLE IF NOT EXISTS org_invoices (
	org_id     TEXT NOT NULL REFERENCES orgs(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	invoice_id TEXT NOT NULL REFERENCES invoices(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	PRIMARY KEY (org_id, invoice_id)
);

CREATE TABLE IF NOT EXISTS user_reports (
	user_id   TEXT NOT NULL REFERENCES users(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	PRIMARY KEY (user_id, report_id)
);

CREATE TABLE IF NOT EXISTS org_reports (
	org_id    TEXT NOT NULL REFERENCES orgs(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	report_id TEXT NOT NULL REFERENCES reports(id) ON DELETE RESTRICT ON UPDATE CASCADE,
	PRIMARY KEY (org_id, report_id)
);

CREATE TABLE IF NOT EXISTS oauth_states (
	state        TEXT PRIMARY KEY,
	redirect_uri TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	expires_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_org_users_user ON org_users(user_id);
CREATE INDEX IF NOT EXISTS idx_user_invoices_invoice ON user_invoices(invoice_id);
CREATE INDEX IF NOT EXISTS idx_user_reports_report ON user_reports(report_id);
CREATE INDEX IF NOT EXISTS idx_oauth_states_expiry ON oauth_states(expires_at);
`

// Migrate bootstraps the schema. Safe to run on every startup.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
