package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/gh-notifier/internal/model"
)

// ErrNotFound is returned when a notification does not exist.
var ErrNotFound = errors.New("notification not found")

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database is per-connection; keep a single one.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertNotifications inserts a batch of notifications. Existing rows keep
// their insert time; server-side fields are refreshed.
func (s *SQLiteStore) UpsertNotifications(
	ctx context.Context,
	batchID string,
	items []model.Notification,
) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO notifications (
			id, reason, unread,
			subject_title, subject_type, subject_url,
			repository_name, repository_full_name, repository_html_url,
			updated_at, batch_id, inserted_at
		) VALUES (
			?, ?, ?,
			?, ?, ?,
			?, ?, ?,
			?, ?, ?
		)
		ON CONFLICT(id) DO UPDATE SET
			reason        = excluded.reason,
			unread        = excluded.unread,
			subject_title = excluded.subject_title,
			subject_type  = excluded.subject_type,
			subject_url   = excluded.subject_url,
			updated_at    = excluded.updated_at,
			batch_id      = excluded.batch_id,
			read_at       = CASE WHEN excluded.unread = 1 THEN NULL ELSE notifications.read_at END`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, n := range items {
		_, err = stmt.ExecContext(ctx,
			n.ID, n.Reason, boolToInt(n.Unread),
			n.Subject.Title, n.Subject.Type, n.Subject.URL,
			n.Repository.Name, n.Repository.FullName, n.Repository.HTMLURL,
			n.UpdatedAt.UTC(), batchID, now,
		)
		if err != nil {
			return fmt.Errorf("upserting notification %s: %w", n.ID, err)
		}
	}

	return tx.Commit()
}

// notificationRow mirrors the notifications table.
type notificationRow struct {
	ID                 string       `db:"id"`
	Reason             string       `db:"reason"`
	Unread             int          `db:"unread"`
	SubjectTitle       string       `db:"subject_title"`
	SubjectType        string       `db:"subject_type"`
	SubjectURL         string       `db:"subject_url"`
	RepositoryName     string       `db:"repository_name"`
	RepositoryFullName string       `db:"repository_full_name"`
	RepositoryHTMLURL  string       `db:"repository_html_url"`
	UpdatedAt          time.Time    `db:"updated_at"`
	BatchID            string       `db:"batch_id"`
	InsertedAt         time.Time    `db:"inserted_at"`
	ReadAt             sql.NullTime `db:"read_at"`
}

const selectColumns = `
	id, reason, unread,
	subject_title, subject_type, subject_url,
	repository_name, repository_full_name, repository_html_url,
	updated_at, batch_id, inserted_at, read_at`

// GetNotifications retrieves notifications matching the filter, most
// recently updated first.
func (s *SQLiteStore) GetNotifications(
	ctx context.Context,
	filter NotificationFilter,
) ([]StoredNotification, error) {
	var conditions []string
	var args []interface{}

	if filter.UnreadOnly {
		conditions = append(conditions, "unread = 1")
	}
	if filter.Reason != nil {
		conditions = append(conditions, "reason = ?")
		args = append(args, *filter.Reason)
	}
	if filter.Repository != nil {
		conditions = append(conditions, "repository_full_name = ?")
		args = append(args, *filter.Repository)
	}

	query := "SELECT" + selectColumns + " FROM notifications"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC, id"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	var rows []notificationRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}

	out := make([]StoredNotification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toStored())
	}
	return out, nil
}

// GetNotificationByID retrieves a single notification by its ID.
func (s *SQLiteStore) GetNotificationByID(
	ctx context.Context,
	id string,
) (*StoredNotification, error) {
	var row notificationRow
	err := s.db.GetContext(ctx, &row,
		"SELECT"+selectColumns+" FROM notifications WHERE id = ?", id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting notification %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting notification %s: %w", id, err)
	}

	n := row.toStored()
	return &n, nil
}

// MarkRead marks a single notification as read locally.
func (s *SQLiteStore) MarkRead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET unread = 0, read_at = ? WHERE id = ?",
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking notification %s as read: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("marking notification %s as read: %w", id, ErrNotFound)
	}
	return nil
}

// CountUnread returns the number of unread notifications.
func (s *SQLiteStore) CountUnread(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM notifications WHERE unread = 1",
	); err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return count, nil
}

func (r notificationRow) toStored() StoredNotification {
	n := StoredNotification{
		Notification: model.Notification{
			ID:     r.ID,
			Reason: r.Reason,
			Unread: r.Unread != 0,
			Subject: model.Subject{
				Title: r.SubjectTitle,
				Type:  r.SubjectType,
				URL:   r.SubjectURL,
			},
			Repository: model.Repository{
				Name:     r.RepositoryName,
				FullName: r.RepositoryFullName,
				HTMLURL:  r.RepositoryHTMLURL,
			},
			UpdatedAt: r.UpdatedAt,
		},
		BatchID:    r.BatchID,
		InsertedAt: r.InsertedAt,
	}
	if r.ReadAt.Valid {
		t := r.ReadAt.Time
		n.ReadAt = &t
	}
	return n
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
