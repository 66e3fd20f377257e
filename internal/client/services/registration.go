// Package services contains the application services behind the wizard: the
// registration-completion protocol and account maintenance.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/personewsap/personews/internal/client/gateway"
	"github.com/personewsap/personews/internal/client/models"
	"github.com/personewsap/personews/internal/client/repositories/draft"
	"github.com/personewsap/personews/internal/common"
	"github.com/personewsap/personews/internal/logging"
)

// RegistrationService owns the deferred registration-completion protocol.
// Signup stages a draft locally and creates an identity; completion runs
// later, possibly much later and possibly more than once, after the email
// verification link confirms the identity. Every durable write it performs
// is keyed and upsert-shaped, so the whole procedure is safe to replay after
// partial failure.
type RegistrationService struct {
	auth   gateway.AuthAPI
	data   gateway.DataAPI
	drafts draft.Repository
	log    logging.Logger
	now    func() time.Time
}

func NewRegistrationService(auth gateway.AuthAPI, data gateway.DataAPI, drafts draft.Repository, log logging.Logger) *RegistrationService {
	return &RegistrationService{
		auth:   auth,
		data:   data,
		drafts: drafts,
		log:    log,
		now:    time.Now,
	}
}

// Stage validates the registration, writes it to the draft slot, and creates
// the identity (which triggers the out-of-band verification email). The
// draft is written before the identity call so a crash in between leaves a
// resumable state rather than an orphaned identity.
//
// Returns the normalized draft as staged. A common.ErrDuplicateEmail means
// the visitor already has an identity and should sign in instead.
func (s *RegistrationService) Stage(ctx context.Context, reg models.PendingRegistration, password, confirm string) (models.PendingRegistration, error) {
	reg.User.FirstName = strings.TrimSpace(reg.User.FirstName)
	reg.User.LastName = strings.TrimSpace(reg.User.LastName)
	reg.User.Email = common.NormalizeEmail(reg.User.Email)

	if err := models.ValidateSignup(reg.User, password, confirm); err != nil {
		return models.PendingRegistration{}, err
	}
	if err := models.ValidateTopics(reg.Topics); err != nil {
		return models.PendingRegistration{}, err
	}

	reg.CreatedAt = s.now().UTC()

	if err := s.drafts.Save(ctx, reg); err != nil {
		return models.PendingRegistration{}, fmt.Errorf("failed to stage registration: %w", err)
	}

	if err := s.auth.SignUp(ctx, reg.User.Email, password); err != nil {
		return models.PendingRegistration{}, err
	}

	s.log.Info(ctx, "registration staged", "email", reg.User.Email, "topics", len(reg.Topics))
	return reg, nil
}

// SignIn opens a session for the staged identity. While the email is still
// unverified the identity service rejects the credentials, which surfaces
// here as common.ErrUnauthorized; the caller keeps the user on the
// verification screen.
func (s *RegistrationService) SignIn(ctx context.Context, email, password string) error {
	return s.auth.SignIn(ctx, common.NormalizeEmail(email), password)
}

// Complete reconciles the staged draft with the confirmed identity and, on
// full success only, clears the draft slot. It is the entry point invoked
// after the verification link, after a sign-in on the signup screen, and on
// any retry; invoking it again converges instead of duplicating.
func (s *RegistrationService) Complete(ctx context.Context) (models.AccountRecord, error) {
	identity, ok, err := s.auth.CurrentIdentity(ctx)
	if err != nil {
		return models.AccountRecord{}, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return models.AccountRecord{}, common.ErrUnauthorized
	}

	pending, ok, err := s.drafts.Load(ctx)
	if err != nil {
		return models.AccountRecord{}, fmt.Errorf("failed to load pending registration: %w", err)
	}
	if !ok {
		return models.AccountRecord{}, common.ErrDraftNotFound
	}

	rec, err := s.Reconcile(ctx, pending, identity)
	if err != nil {
		// The draft stays in place so the user can retry.
		return models.AccountRecord{}, err
	}

	if err := s.drafts.Clear(ctx); err != nil {
		// The account is durable; a leftover draft only means a future
		// replay, which converges to the same state.
		s.log.Warn(ctx, "failed to clear pending registration after success", "error", err)
	}

	s.log.Info(ctx, "registration completed", "account_id", rec.ID)
	return rec, nil
}

// Reconcile converges a staged registration and a confirmed identity into
// exactly one account record plus a matching topic-row set.
//
// Step one compares normalized emails and fails fast with
// common.ErrIdentityMismatch before any write: the verification link may
// have been opened while signed in as someone else. Step two upserts the
// account keyed by auth id; whichever branch runs, the record ends up
// holding the latest draft's values and a fresh verification timestamp.
// Step three upserts the topic rows keyed by (account, topic) and runs
// regardless of the branch taken in step two. Each step is independently
// idempotent, so replay after partial completion is safe.
func (s *RegistrationService) Reconcile(ctx context.Context, pending models.PendingRegistration, identity models.Identity) (models.AccountRecord, error) {
	stagedEmail := common.NormalizeEmail(pending.User.Email)
	authEmail := common.NormalizeEmail(identity.Email)
	if authEmail == "" || stagedEmail != authEmail {
		return models.AccountRecord{}, common.ErrIdentityMismatch
	}

	language := pending.Language
	if language == "" {
		language = common.DefaultLanguage
	}

	rec := models.AccountRecord{
		AuthID:        identity.AuthID,
		Language:      language,
		FirstName:     strings.TrimSpace(pending.User.FirstName),
		LastName:      strings.TrimSpace(pending.User.LastName),
		Email:         stagedEmail,
		Phone:         pending.User.Phone,
		WhatsappOptIn: pending.User.WhatsappOptIn,
		EmailOptIn:    pending.User.EmailOptIn,
		VerifiedAt:    s.now().UTC(),
	}

	existing, found, err := s.data.FindAccountByAuthID(ctx, identity.AuthID)
	if err != nil {
		return models.AccountRecord{}, fmt.Errorf("failed to look up account: %w", err)
	}

	if found {
		rec.ID = existing.ID
		if err := s.data.UpdateAccount(ctx, rec); err != nil {
			return models.AccountRecord{}, fmt.Errorf("failed to update account: %w", err)
		}
	} else {
		created, err := s.data.CreateAccount(ctx, rec)
		if err != nil {
			return models.AccountRecord{}, fmt.Errorf("failed to create account: %w", err)
		}
		rec = created
	}

	if err := s.data.UpsertTopicRows(ctx, rec.ID, pending.Topics); err != nil {
		return models.AccountRecord{}, fmt.Errorf("failed to upsert topic rows: %w", err)
	}

	return rec, nil
}

// ResendVerification re-delivers the verification email for the staged
// draft. When the identity service refuses a resend (e.g. rate limiting),
// it falls back to the credential-reset delivery, which also lands the user
// in an authenticated session.
func (s *RegistrationService) ResendVerification(ctx context.Context) error {
	pending, ok, err := s.drafts.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load pending registration: %w", err)
	}
	if !ok {
		return common.ErrDraftNotFound
	}

	if err := s.auth.ResendVerification(ctx, pending.User.Email); err != nil {
		s.log.Warn(ctx, "resend failed, falling back to credential reset", "error", err)
		return s.auth.RequestPasswordReset(ctx, pending.User.Email)
	}
	return nil
}

// HasStagedDraft reports whether a registration is waiting for completion.
func (s *RegistrationService) HasStagedDraft(ctx context.Context) (bool, error) {
	_, ok, err := s.drafts.Load(ctx)
	return ok, err
}
