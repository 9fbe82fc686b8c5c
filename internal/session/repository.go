package session

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

// Repository archives session snapshots outside the in-memory hot path.
// Archiving is optional; the store itself never does I/O.
type Repository interface {
	Save(ctx context.Context, snapshot []byte, id string) error
	Load(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

type postgresRepo struct {
	db *sql.DB
}

// NewRepository returns a Postgres-backed session archive.
func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Save(ctx context.Context, snapshot []byte, id string) error {
	query := `
		INSERT INTO session_archive (session_id, snapshot, archived_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_id) DO UPDATE SET
			snapshot = $2,
			archived_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, id, snapshot)
	return errors.Wrap(err, "archive session")
}

func (r *postgresRepo) Load(ctx context.Context, id string) ([]byte, error) {
	var snapshot []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT snapshot FROM session_archive WHERE session_id = $1`, id,
	).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, errors.Errorf("archived session %q not found", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "load archived session")
	}
	return snapshot, nil
}

func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_archive WHERE session_id = $1`, id)
	return errors.Wrap(err, "delete archived session")
}
