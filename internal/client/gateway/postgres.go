package gateway

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/personewsap/personews/internal/client/models"
	"github.com/personewsap/personews/internal/common"
	"github.com/personewsap/personews/internal/dbx"
)

const pgUniqueViolation = "23505"

// Postgres implements DataAPI directly against the service database. It is
// the service-role path used by the dispatcher, which reads subscribers in
// bulk without going through the public HTTP surface.
type Postgres struct {
	db dbx.DBTX
}

// NewPostgres returns a DataAPI bound to the given DBTX.
func NewPostgres(db dbx.DBTX) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres opens a database/sql handle through the pgx stdlib driver.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	return db, nil
}

func (r *Postgres) FindAccountByAuthID(ctx context.Context, authID string) (models.AccountRecord, bool, error) {
	query := `SELECT id, auth_user_id, language, first_name, last_name, email,
			COALESCE(phone, ''), whatsapp_opt_in, email_opt_in, verified_at
		FROM subscribers WHERE auth_user_id = $1`

	// verified_at is nullable upstream.
	var rec models.AccountRecord
	var verifiedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, authID).Scan(
		&rec.ID, &rec.AuthID, &rec.Language, &rec.FirstName, &rec.LastName,
		&rec.Email, &rec.Phone, &rec.WhatsappOptIn, &rec.EmailOptIn, &verifiedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.AccountRecord{}, false, nil
	}
	if err != nil {
		return models.AccountRecord{}, false, fmt.Errorf("db error: %w", err)
	}
	if verifiedAt.Valid {
		rec.VerifiedAt = verifiedAt.Time
	}
	return rec, true, nil
}

func (r *Postgres) CreateAccount(ctx context.Context, rec models.AccountRecord) (models.AccountRecord, error) {
	query := `INSERT INTO subscribers
			(auth_user_id, language, first_name, last_name, email, phone,
			 whatsapp_opt_in, email_opt_in, verified_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		rec.AuthID, rec.Language, rec.FirstName, rec.LastName, rec.Email,
		rec.Phone, rec.WhatsappOptIn, rec.EmailOptIn, nullTime(rec.VerifiedAt)).Scan(&rec.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return models.AccountRecord{}, common.ErrDuplicateEmail
		}
		return models.AccountRecord{}, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *Postgres) UpdateAccount(ctx context.Context, rec models.AccountRecord) error {
	query := `UPDATE subscribers
		SET language = $2, first_name = $3, last_name = $4, email = $5,
			phone = NULLIF($6, ''), whatsapp_opt_in = $7, email_opt_in = $8,
			verified_at = $9
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Language, rec.FirstName, rec.LastName, rec.Email,
		rec.Phone, rec.WhatsappOptIn, rec.EmailOptIn, nullTime(rec.VerifiedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrDuplicateEmail
		}
		return fmt.Errorf("db error: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *Postgres) UpsertTopicRows(ctx context.Context, accountID string, prefs []models.TopicPreference) error {
	query := `INSERT INTO subscriber_topics (subscriber_id, topic_key, articles_count)
		VALUES ($1, $2, $3)
		ON CONFLICT (subscriber_id, topic_key) DO UPDATE SET articles_count = excluded.articles_count`

	for _, p := range prefs {
		if _, err := r.db.ExecContext(ctx, query, accountID, p.TopicKey, p.ArticlesCount); err != nil {
			return fmt.Errorf("failed to upsert topic row %s: %w", p.TopicKey, err)
		}
	}
	return nil
}

func (r *Postgres) DeleteTopicRows(ctx context.Context, accountID string, topicKeys []string) error {
	if len(topicKeys) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(topicKeys))
	args := make([]any, 0, len(topicKeys)+1)
	args = append(args, accountID)
	for i, key := range topicKeys {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, key)
	}

	query := fmt.Sprintf(
		`DELETE FROM subscriber_topics WHERE subscriber_id = $1 AND topic_key IN (%s)`,
		strings.Join(placeholders, ", "))

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete topic rows: %w", err)
	}
	return nil
}

func (r *Postgres) SelectTopicRows(ctx context.Context, accountID string) ([]models.TopicPreference, error) {
	query := `SELECT topic_key, articles_count FROM subscriber_topics
		WHERE subscriber_id = $1 ORDER BY topic_key`

	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var prefs []models.TopicPreference
	for rows.Next() {
		var p models.TopicPreference
		if err := rows.Scan(&p.TopicKey, &p.ArticlesCount); err != nil {
			return nil, err
		}
		prefs = append(prefs, p)
	}
	return prefs, rows.Err()
}

func (r *Postgres) ListOptedInSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	query := `SELECT s.id, s.email, COALESCE(s.language, ''),
			t.topic_key, t.articles_count
		FROM subscribers s
		JOIN subscriber_topics t ON t.subscriber_id = s.id
		WHERE s.email_opt_in = true
		ORDER BY s.id, t.topic_key`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscriber
	index := make(map[string]int)
	for rows.Next() {
		var (
			id, email, language string
			pref                models.TopicPreference
		)
		if err := rows.Scan(&id, &email, &language, &pref.TopicKey, &pref.ArticlesCount); err != nil {
			return nil, err
		}
		i, ok := index[id]
		if !ok {
			subs = append(subs, models.Subscriber{AccountID: id, Email: email, Language: language})
			i = len(subs) - 1
			index[id] = i
		}
		subs[i].Topics = append(subs[i].Topics, pref)
	}
	return subs, rows.Err()
}

func (r *Postgres) SubmitFeedback(ctx context.Context, fb models.Feedback) error {
	query := `INSERT INTO newsletter_feedback (email, issue_date, rating, message)
		VALUES ($1, $2, $3, NULLIF($4, ''))`

	if _, err := r.db.ExecContext(ctx, query,
		fb.Email, nullTime(fb.IssueDate), fb.Rating, fb.Message); err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// nullTime maps the zero time to a database NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
