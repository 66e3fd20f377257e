package draft

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personewsap/personews/internal/client/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE pending_registration (
  slot INTEGER PRIMARY KEY CHECK (slot = 0),
  payload BLOB NOT NULL,
  created_at TEXT NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func sampleDraft() models.PendingRegistration {
	return models.PendingRegistration{
		Language: "fr",
		User: models.UserProfile{
			FirstName:  "Ada",
			LastName:   "Lovelace",
			Email:      "ada@example.com",
			EmailOptIn: true,
		},
		Topics: []models.TopicPreference{
			{TopicKey: "finance", ArticlesCount: 2},
			{TopicKey: "ai", ArticlesCount: 3},
		},
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSaveAndLoad(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	want := sampleDraft()
	require.NoError(t, r.Save(ctx, want))

	got, ok, err := r.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestSaveOverwritesPreviousDraft(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	first := sampleDraft()
	require.NoError(t, r.Save(ctx, first))

	second := sampleDraft()
	second.User.Email = "second@example.com"
	second.Topics = []models.TopicPreference{{TopicKey: "sport", ArticlesCount: 1}}
	require.NoError(t, r.Save(ctx, second))

	got, ok, err := r.Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second, got)

	var count int
	require.NoError(t, r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_registration`).Scan(&count))
	assert.Equal(t, 1, count, "the slot never holds more than one draft")
}

func TestLoadMissingDraft(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, ok, err := r.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadCorruptedPayloadDegradesToAbsent(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO pending_registration (slot, payload, created_at) VALUES (0, ?, ?)`,
		[]byte("{not json"), "2026-03-01T10:00:00Z")
	require.NoError(t, err)

	_, ok, err := r.Load(ctx)
	require.NoError(t, err, "corrupted content must not surface as an error")
	assert.False(t, ok)
}

func TestClearIsIdempotent(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Clear(ctx), "clearing an empty slot succeeds")

	require.NoError(t, r.Save(ctx, sampleDraft()))
	require.NoError(t, r.Clear(ctx))
	require.NoError(t, r.Clear(ctx))

	_, ok, err := r.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}
