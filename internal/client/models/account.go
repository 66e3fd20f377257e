package models

import "time"

// Identity is the confirmed principal issued by the external identity
// service. It is referenced, never owned, by this system.
type Identity struct {
	AuthID string
	Email  string
}

// AccountRecord is the durable subscriber row, keyed one-to-one to an
// identity by AuthID. At most one record exists per AuthID and per email;
// the email constraint is enforced at the service boundary and surfaces as
// common.ErrDuplicateEmail.
type AccountRecord struct {
	ID            string
	AuthID        string
	Language      string
	FirstName     string
	LastName      string
	Email         string
	Phone         string
	WhatsappOptIn bool
	EmailOptIn    bool
	VerifiedAt    time.Time
}

// UserProfile extracts the editable profile fields from the record.
func (r AccountRecord) UserProfile() UserProfile {
	return UserProfile{
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Phone:         r.Phone,
		WhatsappOptIn: r.WhatsappOptIn,
		EmailOptIn:    r.EmailOptIn,
	}
}

// TopicPreferenceRow is a durable topic row keyed by (AccountID, TopicKey).
type TopicPreferenceRow struct {
	AccountID     string
	TopicKey      string
	ArticlesCount int
}

// Subscriber is the dispatcher's read model: an opted-in account together
// with its topic rows.
type Subscriber struct {
	AccountID string
	Email     string
	Language  string
	Topics    []TopicPreference
}
