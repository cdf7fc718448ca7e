package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS notifications (
	id                   TEXT PRIMARY KEY,
	reason               TEXT NOT NULL,
	unread               INTEGER NOT NULL DEFAULT 1 CHECK(unread IN (0, 1)),
	subject_title        TEXT NOT NULL,
	subject_type         TEXT NOT NULL DEFAULT '',
	subject_url          TEXT NOT NULL DEFAULT '',
	repository_name      TEXT NOT NULL,
	repository_full_name TEXT NOT NULL,
	repository_html_url  TEXT NOT NULL,
	updated_at           DATETIME NOT NULL,
	batch_id             TEXT NOT NULL DEFAULT '',
	inserted_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	read_at              DATETIME
);

CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(unread);
CREATE INDEX IF NOT EXISTS idx_notifications_updated_at ON notifications(updated_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_notifications_repository
	ON notifications(repository_full_name, updated_at);

CREATE INDEX IF NOT EXISTS idx_notifications_batch_id
	ON notifications(batch_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
