package taskstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/af-corp/taskmind/internal/types"
	"github.com/af-corp/taskmind/migrations"
)

// PostgresStore keeps tasks as JSONB rows keyed by (uid, id).
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Add(ctx context.Context, uid string, task types.Task) (string, error) {
	id, err := NewDocumentID()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	if task == nil {
		task = types.Task{}
	}
	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}

	// The primary key rejects an id collision instead of overwriting.
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tasks (uid, id, data)
		VALUES ($1, $2, $3::jsonb)
	`, uid, id, string(data))
	if err != nil {
		return "", fmt.Errorf("insert task: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) List(ctx context.Context, uid string) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, data
		FROM tasks
		WHERE uid = $1
		ORDER BY created_at, id
	`, uid)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		data, err := types.DecodeObjectBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("decode task %s: %w", id, err)
		}
		if data == nil {
			data = types.Task{}
		}
		docs = append(docs, Document{ID: id, Data: data})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return docs, nil
}

// Update merges top-level keys with jsonb concatenation; keys are taken literally.
func (s *PostgresStore) Update(ctx context.Context, uid, taskID string, fields types.Task) error {
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal update: %w", err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks
		SET data = data || $3::jsonb, updated_at = now()
		WHERE uid = $1 AND id = $2
	`, uid, taskID, string(patch))
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Migrate applies the embedded schema migrations to the database at dsn.
func Migrate(dsn string) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
