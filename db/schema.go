// ABOUTME: Database schema definitions
// ABOUTME: Creates company settings, client scheduling state and the append-only warming log
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS company_settings (
	id INTEGER PRIMARY KEY,
	company_name TEXT NOT NULL,
	from_email TEXT NOT NULL,
	from_name TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS clients (
	id TEXT PRIMARY KEY,
	company_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	linkedin TEXT,
	status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active', 'inactive', 'paused')),
	expiration_date DATETIME,
	last_contact_date DATETIME,
	next_contact_date DATETIME,
	current_cadence_name TEXT,
	total_messages_count INTEGER NOT NULL DEFAULT 0 CHECK(total_messages_count >= 0),
	claim_token TEXT,
	claimed_until DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL,
	FOREIGN KEY (company_id) REFERENCES company_settings(id)
);

CREATE INDEX IF NOT EXISTS idx_clients_due ON clients(company_id, status, next_contact_date);
CREATE INDEX IF NOT EXISTS idx_clients_email ON clients(email);

CREATE TABLE IF NOT EXISTS warming_log (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	client_id TEXT NOT NULL,
	company_id INTEGER NOT NULL,
	status TEXT NOT NULL CHECK(status IN ('sent', 'failed')),
	generated_subject TEXT,
	generated_body TEXT,
	error_message TEXT,
	cadence_name TEXT,
	cadence_step_prompt TEXT,
	reason TEXT,
	triggered_by TEXT NOT NULL,
	delivery_id TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_warming_log_client ON warming_log(client_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_warming_log_run ON warming_log(run_id);

CREATE TRIGGER IF NOT EXISTS warming_log_no_update
BEFORE UPDATE ON warming_log
BEGIN
	SELECT RAISE(ABORT, 'warming_log is append-only');
END;

CREATE TRIGGER IF NOT EXISTS warming_log_no_delete
BEFORE DELETE ON warming_log
BEGIN
	SELECT RAISE(ABORT, 'warming_log is append-only');
END;
`

func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
