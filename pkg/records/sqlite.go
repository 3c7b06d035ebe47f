package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteArchive stores records in an embedded SQLite database. It is
// the default backend for single-node runs.
type SQLiteArchive struct {
	db    *sql.DB
	clock func() time.Time
}

// OpenSQLiteArchive opens (creating if needed) the database at path
// and ensures the archive table exists.
func OpenSQLiteArchive(path string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite archive: %w", err)
	}
	return NewSQLiteArchive(db)
}

func NewSQLiteArchive(db *sql.DB) (*SQLiteArchive, error) {
	a := &SQLiteArchive{db: db, clock: time.Now}
	if err := a.migrate(); err != nil {
		return nil, fmt.Errorf("migrate archive table: %w", err)
	}
	return a, nil
}

// WithClock overrides the timestamp source. Used by tests that assert
// on LastModified windows.
func (a *SQLiteArchive) WithClock(clock func() time.Time) *SQLiteArchive {
	a.clock = clock
	return a
}

func (a *SQLiteArchive) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS archive (
        key TEXT PRIMARY KEY,
        body TEXT NOT NULL,
        updated_at TEXT NOT NULL
    );`
	_, err := a.db.ExecContext(context.Background(), query)
	return err
}

func (a *SQLiteArchive) Put(ctx context.Context, key string, v any) error {
	data, err := marshalRecord(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	query := `
		INSERT INTO archive (key, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`
	updatedAt := a.clock().UTC().Format(time.RFC3339Nano)
	if _, err := a.db.ExecContext(ctx, query, key, string(data), updatedAt); err != nil {
		return fmt.Errorf("insert %s: %w", key, err)
	}
	return nil
}

func (a *SQLiteArchive) Get(ctx context.Context, key string, out any) error {
	row := a.db.QueryRowContext(ctx, `SELECT body FROM archive WHERE key = ?`, key)
	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

func (a *SQLiteArchive) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	query := `SELECT key, updated_at FROM archive WHERE key LIKE ? ESCAPE '\' ORDER BY key`
	rows, err := a.db.QueryContext(ctx, query, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	var infos []ObjectInfo
	for rows.Next() {
		var key, updatedAt string
		if err := rows.Scan(&key, &updatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, ObjectInfo{Key: key, LastModified: parseStoredTime(updatedAt)})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

func (a *SQLiteArchive) Delete(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM archive WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (a *SQLiteArchive) Close() error { return a.db.Close() }

// likePrefix escapes LIKE wildcards so prefixes such as
// "hitl_approvals/" match literally.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}

func parseStoredTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
