package gateway

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/personewsap/personews/internal/client/models"
)

// newSubscriberDB opens an in-memory database with the service-side schema.
// The queries under test bind their parameters in order of appearance, so
// they behave the same here as against postgres.
func newSubscriberDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema := `
	CREATE TABLE subscribers (
		id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
		auth_user_id TEXT NOT NULL UNIQUE,
		language TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		phone TEXT,
		whatsapp_opt_in BOOLEAN NOT NULL,
		email_opt_in BOOLEAN NOT NULL,
		verified_at TIMESTAMP
	);
	CREATE TABLE newsletter_feedback (
		id INTEGER PRIMARY KEY,
		email TEXT NOT NULL,
		issue_date DATE,
		rating TEXT NOT NULL,
		message TEXT
	);`
	_, err = db.Exec(schema)
	require.NoError(t, err)
	return db
}

func TestFindAccountTreatsNullVerifiedAtAsZero(t *testing.T) {
	ctx := context.Background()
	db := newSubscriberDB(t)
	repo := NewPostgres(db)

	// Rows created before verification carry a NULL verified_at.
	_, err := db.Exec(`INSERT INTO subscribers
			(auth_user_id, language, first_name, last_name, email, whatsapp_opt_in, email_opt_in, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NULL)`,
		"auth-1", "fr", "Ada", "Lovelace", "ada@example.com", false, true)
	require.NoError(t, err)

	rec, found, err := repo.FindAccountByAuthID(ctx, "auth-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "ada@example.com", rec.Email)
	assert.Empty(t, rec.Phone)
	assert.True(t, rec.VerifiedAt.IsZero())
}

func TestFindAccountMissing(t *testing.T) {
	repo := NewPostgres(newSubscriberDB(t))

	_, found, err := repo.FindAccountByAuthID(context.Background(), "no-such-auth")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCreateAccountStoresNullForZeroVerifiedAt(t *testing.T) {
	ctx := context.Background()
	db := newSubscriberDB(t)
	repo := NewPostgres(db)

	rec, err := repo.CreateAccount(ctx, models.AccountRecord{
		AuthID:     "auth-2",
		Language:   "en",
		FirstName:  "Grace",
		LastName:   "Hopper",
		Email:      "grace@example.com",
		EmailOptIn: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)

	var n int
	require.NoError(t, db.QueryRow(
		`SELECT count(*) FROM subscribers WHERE id = ? AND verified_at IS NULL AND phone IS NULL`,
		rec.ID).Scan(&n))
	assert.Equal(t, 1, n)

	got, found, err := repo.FindAccountByAuthID(ctx, "auth-2")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, got.VerifiedAt.IsZero())
}

func TestPostgresSubmitFeedbackNullsOptionals(t *testing.T) {
	ctx := context.Background()
	db := newSubscriberDB(t)
	repo := NewPostgres(db)

	require.NoError(t, repo.SubmitFeedback(ctx, models.Feedback{
		Email:  "ada@example.com",
		Rating: models.RatingBad,
	}))

	var n int
	require.NoError(t, db.QueryRow(
		`SELECT count(*) FROM newsletter_feedback
		 WHERE email = 'ada@example.com' AND rating = 'bad'
		   AND issue_date IS NULL AND message IS NULL`).Scan(&n))
	assert.Equal(t, 1, n)
}
