package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresArchive stores records in a shared Postgres table so
// several workers can serve one pipeline.
type PostgresArchive struct {
	db    *sql.DB
	clock func() time.Time
}

// OpenPostgresArchive connects with the given DSN and ensures the
// archive table exists.
func OpenPostgresArchive(dsn string) (*PostgresArchive, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres archive: %w", err)
	}
	return NewPostgresArchive(db)
}

func NewPostgresArchive(db *sql.DB) (*PostgresArchive, error) {
	a := &PostgresArchive{db: db, clock: time.Now}
	if err := a.migrate(); err != nil {
		return nil, fmt.Errorf("migrate archive table: %w", err)
	}
	return a, nil
}

// WithClock overrides the timestamp source. Used by tests that assert
// on LastModified windows.
func (a *PostgresArchive) WithClock(clock func() time.Time) *PostgresArchive {
	a.clock = clock
	return a
}

func (a *PostgresArchive) migrate() error {
	query := `
    CREATE TABLE IF NOT EXISTS archive (
        key TEXT PRIMARY KEY,
        body TEXT NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL
    );`
	_, err := a.db.ExecContext(context.Background(), query)
	return err
}

func (a *PostgresArchive) Put(ctx context.Context, key string, v any) error {
	data, err := marshalRecord(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	query := `
		INSERT INTO archive (key, body, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			body = EXCLUDED.body,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := a.db.ExecContext(ctx, query, key, string(data), a.clock().UTC()); err != nil {
		return fmt.Errorf("insert %s: %w", key, err)
	}
	return nil
}

func (a *PostgresArchive) Get(ctx context.Context, key string, out any) error {
	row := a.db.QueryRowContext(ctx, `SELECT body FROM archive WHERE key = $1`, key)
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

func (a *PostgresArchive) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	query := `SELECT key, updated_at FROM archive WHERE key LIKE $1 ESCAPE '\' ORDER BY key`
	rows, err := a.db.QueryContext(ctx, query, likePrefix(prefix))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer func() { _ = rows.Close() }()

	var infos []ObjectInfo
	for rows.Next() {
		var key string
		var updatedAt time.Time
		if err := rows.Scan(&key, &updatedAt); err != nil {
			return nil, err
		}
		infos = append(infos, ObjectInfo{Key: key, LastModified: updatedAt.UTC()})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

func (a *PostgresArchive) Delete(ctx context.Context, key string) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM archive WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (a *PostgresArchive) Close() error { return a.db.Close() }
