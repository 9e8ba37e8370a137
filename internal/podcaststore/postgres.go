package podcaststore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the podcasts table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS podcasts (
    id          TEXT PRIMARY KEY,
    user_id     TEXT NOT NULL,
    idea        TEXT NOT NULL DEFAULT '',
    title       TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    script      TEXT NOT NULL,
    urls        JSONB NOT NULL DEFAULT '{}',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_podcasts_user ON podcasts(user_id, created_at DESC);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// PostgresStore is a [Store] backed by PostgreSQL. Language URLs are kept in
// a JSONB column.
type PostgresStore struct {
	db DB
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore returns a store using db. Call [PostgresStore.Migrate]
// before the first query.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes [Schema].
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("podcaststore: migrate: %w", err)
	}
	return nil
}

// Create implements [Store.Create].
func (s *PostgresStore) Create(ctx context.Context, r *Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r.prepare()

	urlsJSON, err := json.Marshal(r.URLs)
	if err != nil {
		return fmt.Errorf("podcaststore: marshal urls: %w", err)
	}

	const query = `
		INSERT INTO podcasts (id, user_id, idea, title, description, script, urls)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`

	err = s.db.QueryRow(ctx, query,
		r.ID, r.UserID, r.Idea, r.Title, r.Description, r.Script, urlsJSON,
	).Scan(&r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %q", ErrDuplicateID, r.ID)
		}
		return fmt.Errorf("podcaststore: create: %w", err)
	}
	return nil
}

const selectColumns = `id, user_id, idea, title, description, script, urls, created_at`

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	const query = `SELECT ` + selectColumns + ` FROM podcasts WHERE id = $1`

	var (
		r        Record
		urlsJSON []byte
	)
	err := s.db.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.UserID, &r.Idea, &r.Title, &r.Description, &r.Script, &urlsJSON, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("podcaststore: get %q: %w", id, err)
	}
	if err := unmarshalURLs(&r, urlsJSON); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListByUser implements [Store.ListByUser].
func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	const query = `SELECT ` + selectColumns + `
		FROM podcasts
		WHERE user_id = $1
		ORDER BY created_at DESC, id`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("podcaststore: list: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r        Record
			urlsJSON []byte
		)
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Idea, &r.Title, &r.Description, &r.Script, &urlsJSON, &r.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("podcaststore: list scan: %w", err)
		}
		if err := unmarshalURLs(&r, urlsJSON); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("podcaststore: list: %w", err)
	}
	return out, nil
}

// Ping implements [Store.Ping].
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("podcaststore: ping: %w", err)
	}
	return nil
}

func unmarshalURLs(r *Record, raw []byte) error {
	var urls map[string]string
	if err := json.Unmarshal(raw, &urls); err != nil {
		return fmt.Errorf("podcaststore: unmarshal urls: %w", err)
	}
	r.URLs = normalizeURLs(urls)
	return nil
}

// isDuplicateKeyError reports a unique violation (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
