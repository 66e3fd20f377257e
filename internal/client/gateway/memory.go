package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/personewsap/personews/internal/client/models"
	"github.com/personewsap/personews/internal/common"
)

// Memory is an in-memory stand-in for the external identity/data service.
// It enforces the same constraints the real service does (unique email per
// identity and per account, one topic row per account and topic) so
// tests exercise the reconciliation protocol against honest semantics.
type Memory struct {
	mu sync.Mutex

	identities map[string]*memIdentity // keyed by normalized email
	session    string                  // email of the signed-in identity, "" when none

	accounts  map[string]models.AccountRecord // keyed by account id
	byAuthID  map[string]string               // auth id -> account id
	byEmail   map[string]string               // normalized email -> account id
	topicRows map[string]map[string]int       // account id -> topic key -> count
	feedback  []models.Feedback
}

type memIdentity struct {
	authID   string
	email    string
	password string
	verified bool
}

func NewMemory() *Memory {
	return &Memory{
		identities: make(map[string]*memIdentity),
		accounts:   make(map[string]models.AccountRecord),
		byAuthID:   make(map[string]string),
		byEmail:    make(map[string]string),
		topicRows:  make(map[string]map[string]int),
	}
}

func (m *Memory) SignUp(_ context.Context, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := common.NormalizeEmail(email)
	if _, exists := m.identities[key]; exists {
		return common.ErrDuplicateEmail
	}
	m.identities[key] = &memIdentity{
		authID:   uuid.NewString(),
		email:    key,
		password: password,
	}
	return nil
}

func (m *Memory) SignIn(_ context.Context, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := common.NormalizeEmail(email)
	id, ok := m.identities[key]
	if !ok || id.password != password || !id.verified {
		return common.ErrUnauthorized
	}
	m.session = key
	return nil
}

func (m *Memory) ResendVerification(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.identities[common.NormalizeEmail(email)]; !ok {
		return common.ErrNotFound
	}
	return nil
}

func (m *Memory) RequestPasswordReset(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.identities[common.NormalizeEmail(email)]; !ok {
		return common.ErrNotFound
	}
	return nil
}

func (m *Memory) UpdatePassword(_ context.Context, newPassword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == "" {
		return common.ErrUnauthorized
	}
	m.identities[m.session].password = newPassword
	return nil
}

func (m *Memory) CurrentIdentity(_ context.Context) (models.Identity, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == "" {
		return models.Identity{}, false, nil
	}
	id := m.identities[m.session]
	return models.Identity{AuthID: id.authID, Email: id.email}, true, nil
}

func (m *Memory) SignOut(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = ""
	return nil
}

// Verify marks an identity as email-verified and opens a session for it,
// simulating the user following the verification link. Test helper.
func (m *Memory) Verify(email string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := common.NormalizeEmail(email)
	if id, ok := m.identities[key]; ok {
		id.verified = true
		m.session = key
	}
}

func (m *Memory) FindAccountByAuthID(_ context.Context, authID string) (models.AccountRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	accountID, ok := m.byAuthID[authID]
	if !ok {
		return models.AccountRecord{}, false, nil
	}
	return m.accounts[accountID], true, nil
}

func (m *Memory) CreateAccount(_ context.Context, rec models.AccountRecord) (models.AccountRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := common.NormalizeEmail(rec.Email)
	if _, exists := m.byEmail[email]; exists {
		return models.AccountRecord{}, common.ErrDuplicateEmail
	}
	if _, exists := m.byAuthID[rec.AuthID]; exists {
		return models.AccountRecord{}, common.ErrDuplicateEmail
	}

	rec.ID = uuid.NewString()
	rec.Email = email
	m.accounts[rec.ID] = rec
	m.byAuthID[rec.AuthID] = rec.ID
	m.byEmail[email] = rec.ID
	return rec, nil
}

func (m *Memory) UpdateAccount(_ context.Context, rec models.AccountRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.accounts[rec.ID]
	if !ok {
		return common.ErrNotFound
	}

	email := common.NormalizeEmail(rec.Email)
	if other, taken := m.byEmail[email]; taken && other != rec.ID {
		return common.ErrDuplicateEmail
	}
	delete(m.byEmail, common.NormalizeEmail(existing.Email))

	rec.AuthID = existing.AuthID
	rec.Email = email
	m.accounts[rec.ID] = rec
	m.byEmail[email] = rec.ID
	return nil
}

func (m *Memory) UpsertTopicRows(_ context.Context, accountID string, prefs []models.TopicPreference) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.topicRows[accountID]
	if rows == nil {
		rows = make(map[string]int)
		m.topicRows[accountID] = rows
	}
	for _, p := range prefs {
		rows[p.TopicKey] = p.ArticlesCount
	}
	return nil
}

func (m *Memory) DeleteTopicRows(_ context.Context, accountID string, topicKeys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := m.topicRows[accountID]
	for _, key := range topicKeys {
		delete(rows, key)
	}
	return nil
}

func (m *Memory) SelectTopicRows(_ context.Context, accountID string) ([]models.TopicPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.topicPrefsLocked(accountID), nil
}

func (m *Memory) ListOptedInSubscribers(_ context.Context) ([]models.Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	subs := make([]models.Subscriber, 0, len(m.accounts))
	for id, rec := range m.accounts {
		if !rec.EmailOptIn {
			continue
		}
		subs = append(subs, models.Subscriber{
			AccountID: id,
			Email:     rec.Email,
			Language:  rec.Language,
			Topics:    m.topicPrefsLocked(id),
		})
	}
	return subs, nil
}

func (m *Memory) SubmitFeedback(_ context.Context, fb models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	fb.Email = common.NormalizeEmail(fb.Email)
	m.feedback = append(m.feedback, fb)
	return nil
}

func (m *Memory) topicPrefsLocked(accountID string) []models.TopicPreference {
	rows := m.topicRows[accountID]
	prefs := make([]models.TopicPreference, 0, len(rows))
	for _, key := range models.TopicKeys {
		if count, ok := rows[key]; ok {
			prefs = append(prefs, models.TopicPreference{TopicKey: key, ArticlesCount: count})
		}
	}
	return prefs
}

// AccountCount reports how many account rows exist. Test helper.
func (m *Memory) AccountCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.accounts)
}

// Feedbacks returns a copy of the recorded feedback entries. Test helper.
func (m *Memory) Feedbacks() []models.Feedback {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Feedback, len(m.feedback))
	copy(out, m.feedback)
	return out
}

// TopicRowCount reports how many topic rows an account has. Test helper.
func (m *Memory) TopicRowCount(accountID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.topicRows[accountID])
}
