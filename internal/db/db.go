package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// schema is portable across postgres and sqlite: text primary keys,
// timestamps written by the application, no server-side defaults
// beyond constants.
const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id                    TEXT PRIMARY KEY,
	name                  TEXT NOT NULL,
	email                 TEXT NOT NULL UNIQUE,
	password_hash         TEXT NOT NULL,
	encrypted_credentials TEXT,
	forward_url           TEXT NOT NULL DEFAULT '',
	created_at            TIMESTAMP NOT NULL,
	updated_at            TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS received_emails (
	id               TEXT PRIMARY KEY,
	gmail_message_id TEXT NOT NULL UNIQUE,
	account_id       TEXT NOT NULL REFERENCES accounts(id),
	sender           TEXT NOT NULL,
	subject          TEXT NOT NULL DEFAULT '',
	body             TEXT NOT NULL DEFAULT '',
	received_at      TIMESTAMP NOT NULL,
	is_read          BOOLEAN NOT NULL DEFAULT FALSE,
	created_at       TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS email_summaries (
	id                TEXT PRIMARY KEY,
	received_email_id TEXT NOT NULL REFERENCES received_emails(id),
	summary_text      TEXT NOT NULL,
	forward_url       TEXT NOT NULL,
	forward_status    TEXT NOT NULL DEFAULT 'pending',
	status_message    TEXT,
	created_at        TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS outgoing_emails (
	id            TEXT PRIMARY KEY,
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	recipient     TEXT NOT NULL,
	subject       TEXT NOT NULL DEFAULT '',
	body          TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'draft',
	created_at    TIMESTAMP NOT NULL,
	sent_at       TIMESTAMP,
	error_message TEXT
);
`

func Connect(driver, dsn string) (*sqlx.DB, error) {
	return sqlx.Connect(driver, dsn)
}

func DSN(host string, port int, user, pass, name, ssl string) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, pass, name, ssl,
	)
}

// Migrate creates the tables if they do not exist yet.
func Migrate(db *sqlx.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}
