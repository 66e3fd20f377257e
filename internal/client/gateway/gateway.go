// Package gateway is the façade over the external identity/data service.
// Everything durable (identities, account records, topic rows) lives on the
// other side of these interfaces; the client only ever talks to them through
// upsert-shaped operations, which is what makes registration replay safe.
package gateway

import (
	"context"

	"github.com/personewsap/personews/internal/client/models"
)

// AuthAPI covers the identity half of the service: account creation with
// out-of-band email verification, password sign-in, and session inspection.
//
// Failures are returned as sentinel errors from internal/common:
// ErrDuplicateEmail for uniqueness violations, ErrUnauthorized for rejected
// credentials or a missing session, ErrUnavailable for transient transport
// failures worth retrying.
type AuthAPI interface {
	// SignUp creates an identity. The service delivers a verification email
	// out of band; the identity is not usable until the link is followed.
	SignUp(ctx context.Context, email, password string) error

	// SignIn exchanges credentials for a session.
	SignIn(ctx context.Context, email, password string) error

	// ResendVerification re-delivers the signup verification email.
	ResendVerification(ctx context.Context, email string) error

	// RequestPasswordReset triggers the out-of-band credential reset flow.
	RequestPasswordReset(ctx context.Context, email string) error

	// UpdatePassword changes the password of the signed-in identity.
	UpdatePassword(ctx context.Context, newPassword string) error

	// CurrentIdentity returns the confirmed identity of the active session,
	// or ok=false when no session is present.
	CurrentIdentity(ctx context.Context) (models.Identity, bool, error)

	// SignOut terminates the active session. Safe to call without one.
	SignOut(ctx context.Context) error
}

// DataAPI covers the record half of the service. The service guarantees at
// most one account row per auth id and per email, and at most one topic row
// per (account, topic) pair; every write here is keyed accordingly.
type DataAPI interface {
	FindAccountByAuthID(ctx context.Context, authID string) (models.AccountRecord, bool, error)
	CreateAccount(ctx context.Context, rec models.AccountRecord) (models.AccountRecord, error)
	UpdateAccount(ctx context.Context, rec models.AccountRecord) error

	// UpsertTopicRows inserts or replaces rows keyed by (accountID,
	// topicKey). Repeating the call with the same input is a no-op.
	UpsertTopicRows(ctx context.Context, accountID string, prefs []models.TopicPreference) error

	// DeleteTopicRows removes the rows for the given topic keys. Keys with
	// no row are ignored.
	DeleteTopicRows(ctx context.Context, accountID string, topicKeys []string) error

	SelectTopicRows(ctx context.Context, accountID string) ([]models.TopicPreference, error)

	// ListOptedInSubscribers returns every account with email opt-in set,
	// together with its topic rows. Used by the dispatcher.
	ListOptedInSubscribers(ctx context.Context) ([]models.Subscriber, error)

	// SubmitFeedback records a reader's verdict on an issue. Insert-only;
	// the feedback table is keyed by email, not account id, so no session
	// is required.
	SubmitFeedback(ctx context.Context, fb models.Feedback) error
}
