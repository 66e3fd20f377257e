package draft

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/personewsap/personews/internal/client/models"
	"github.com/personewsap/personews/internal/dbx"
)

// SQLiteRepository stores the draft as a JSON payload in a one-row table.
// The slot column is constrained to 0 so the database itself guarantees the
// single-slot semantics.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save serializes the draft and overwrites whatever the slot held before.
func (r *SQLiteRepository) Save(ctx context.Context, reg models.PendingRegistration) error {
	payload, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("failed to serialize pending registration: %w", err)
	}

	query := `INSERT INTO pending_registration (slot, payload, created_at)
			VALUES (0, ?, ?)
			ON CONFLICT(slot) DO UPDATE SET payload = excluded.payload,
				created_at = excluded.created_at
	`
	_, err = r.db.ExecContext(ctx, query, payload, reg.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save pending registration: %w", err)
	}
	return nil
}

// Load returns the staged draft if one is present and well-formed. A payload
// that no longer unmarshals is treated as absence, not as a fatal error; the
// caller simply restarts the form portion of the flow.
func (r *SQLiteRepository) Load(ctx context.Context) (models.PendingRegistration, bool, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM pending_registration WHERE slot = 0`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PendingRegistration{}, false, nil
	}
	if err != nil {
		return models.PendingRegistration{}, false, fmt.Errorf("failed to load pending registration: %w", err)
	}

	var reg models.PendingRegistration
	if err := json.Unmarshal(payload, &reg); err != nil {
		return models.PendingRegistration{}, false, nil
	}
	return reg, true, nil
}

// Clear removes the draft. Deleting an empty slot is not an error.
func (r *SQLiteRepository) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_registration WHERE slot = 0`)
	if err != nil {
		return fmt.Errorf("failed to clear pending registration: %w", err)
	}
	return nil
}
