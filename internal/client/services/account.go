package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/personewsap/personews/internal/client/gateway"
	"github.com/personewsap/personews/internal/client/models"
	"github.com/personewsap/personews/internal/common"
	"github.com/personewsap/personews/internal/logging"
)

// AccountView is the editable state of a signed-in subscriber: the account
// record plus the topic rows currently on file.
type AccountView struct {
	Account models.AccountRecord
	Topics  []models.TopicPreference
}

// AccountService serves the post-verification surface: loading and saving
// profile and topic edits, password changes, and unsubscribing.
type AccountService struct {
	auth gateway.AuthAPI
	data gateway.DataAPI
	log  logging.Logger
}

func NewAccountService(auth gateway.AuthAPI, data gateway.DataAPI, log logging.Logger) *AccountService {
	return &AccountService{auth: auth, data: data, log: log}
}

func (s *AccountService) SignIn(ctx context.Context, email, password string) error {
	return s.auth.SignIn(ctx, common.NormalizeEmail(email), password)
}

func (s *AccountService) SignOut(ctx context.Context) error {
	return s.auth.SignOut(ctx)
}

// Load fetches the signed-in subscriber's account and topic rows.
func (s *AccountService) Load(ctx context.Context) (AccountView, error) {
	rec, err := s.currentAccount(ctx)
	if err != nil {
		return AccountView{}, err
	}

	topics, err := s.data.SelectTopicRows(ctx, rec.ID)
	if err != nil {
		return AccountView{}, fmt.Errorf("failed to load topic rows: %w", err)
	}
	return AccountView{Account: rec, Topics: topics}, nil
}

// Save applies a profile and topic edit. Topic rows are reconciled
// surgically: enabled topics are upserted, and only the complement of the
// enabled set is deleted, so an enabled topic's row is never dropped and
// recreated.
//
// The account email is not editable here; it stays bound to the identity.
func (s *AccountService) Save(ctx context.Context, profile models.UserProfile, language string, topics []models.TopicPreference) error {
	rec, err := s.currentAccount(ctx)
	if err != nil {
		return err
	}

	profile.FirstName = strings.TrimSpace(profile.FirstName)
	profile.LastName = strings.TrimSpace(profile.LastName)
	profile.Email = rec.Email

	if err := models.ValidateProfile(profile); err != nil {
		return err
	}
	if err := models.ValidateTopics(topics); err != nil {
		return err
	}

	rec.FirstName = profile.FirstName
	rec.LastName = profile.LastName
	rec.Phone = profile.Phone
	rec.WhatsappOptIn = profile.WhatsappOptIn
	rec.EmailOptIn = profile.EmailOptIn
	if language != "" {
		rec.Language = language
	}

	if err := s.data.UpdateAccount(ctx, rec); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	if err := s.data.UpsertTopicRows(ctx, rec.ID, topics); err != nil {
		return fmt.Errorf("failed to upsert topic rows: %w", err)
	}

	disabled := complementTopics(topics)
	if len(disabled) > 0 {
		if err := s.data.DeleteTopicRows(ctx, rec.ID, disabled); err != nil {
			return fmt.Errorf("failed to delete topic rows: %w", err)
		}
	}

	s.log.Info(ctx, "account saved", "account_id", rec.ID, "topics", len(topics))
	return nil
}

// ChangePassword updates the identity's credential for the active session.
func (s *AccountService) ChangePassword(ctx context.Context, password, confirm string) error {
	if len(password) < 8 || len(password) > 128 {
		return models.FieldErrors{"password": "password must be between 8 and 128 characters"}
	}
	if password != confirm {
		return models.FieldErrors{"confirmPassword": "passwords do not match"}
	}
	return s.auth.UpdatePassword(ctx, password)
}

// SubmitFeedback records the reader's verdict on an issue. No session is
// required; when the email is left empty the signed-in account's address is
// used instead.
func (s *AccountService) SubmitFeedback(ctx context.Context, fb models.Feedback) error {
	fb.Email = common.NormalizeEmail(fb.Email)
	if fb.Email == "" {
		rec, err := s.currentAccount(ctx)
		if err != nil {
			return err
		}
		fb.Email = rec.Email
	}
	fb.Message = strings.TrimSpace(fb.Message)

	if err := models.ValidateFeedback(fb); err != nil {
		return err
	}

	if err := s.data.SubmitFeedback(ctx, fb); err != nil {
		return fmt.Errorf("failed to submit feedback: %w", err)
	}
	s.log.Info(ctx, "feedback submitted", "rating", fb.Rating)
	return nil
}

// Unsubscribe turns off email delivery and removes every topic row, then
// closes the session. The account record itself is kept so a later
// re-subscription reuses it.
func (s *AccountService) Unsubscribe(ctx context.Context) error {
	rec, err := s.currentAccount(ctx)
	if err != nil {
		return err
	}

	rec.EmailOptIn = false
	if err := s.data.UpdateAccount(ctx, rec); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	if err := s.data.DeleteTopicRows(ctx, rec.ID, models.TopicKeys); err != nil {
		return fmt.Errorf("failed to delete topic rows: %w", err)
	}

	s.log.Info(ctx, "account unsubscribed", "account_id", rec.ID)
	return s.auth.SignOut(ctx)
}

func (s *AccountService) currentAccount(ctx context.Context) (models.AccountRecord, error) {
	identity, ok, err := s.auth.CurrentIdentity(ctx)
	if err != nil {
		return models.AccountRecord{}, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok {
		return models.AccountRecord{}, common.ErrUnauthorized
	}

	rec, found, err := s.data.FindAccountByAuthID(ctx, identity.AuthID)
	if err != nil {
		return models.AccountRecord{}, fmt.Errorf("failed to look up account: %w", err)
	}
	if !found {
		return models.AccountRecord{}, common.ErrNotFound
	}
	return rec, nil
}

// complementTopics returns the catalogue keys absent from prefs.
func complementTopics(prefs []models.TopicPreference) []string {
	enabled := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		enabled[p.TopicKey] = true
	}
	var out []string
	for _, key := range models.TopicKeys {
		if !enabled[key] {
			out = append(out, key)
		}
	}
	return out
}
