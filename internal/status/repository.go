package status

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository stores status documents as JSONB rows.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Load fetches the saved document of a user.
func (r *PGRepository) Load(ctx context.Context, userID int64) (Document, bool, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT document FROM status_configs WHERE user_id = $1`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, false, nil
		}
		return Document{}, false, err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, false, err
	}
	return doc, true, nil
}

// Save upserts the document of a user.
func (r *PGRepository) Save(ctx context.Context, userID int64, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO status_configs (user_id, document, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`,
		userID, raw)
	return err
}

var _ Repository = (*PGRepository)(nil)
