// Package models defines the client-side data model: the staged registration
// draft, the durable account record, and the fixed topic catalogue.
package models

import "time"

// TopicPreference is one selected topic with its per-day article quota.
// Unique by TopicKey within a registration.
type TopicPreference struct {
	TopicKey      string `json:"topicKey"`
	ArticlesCount int    `json:"articlesCount"`
}

// UserProfile holds the contact details captured on the signup screen.
// It lives only in wizard memory until the registration is staged.
type UserProfile struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"` // E.164, empty when not provided
	WhatsappOptIn bool   `json:"whatsappOptIn"`
	EmailOptIn    bool   `json:"emailOptIn"`
}

// PendingRegistration is the unit of staging: written once at signup
// submission, read back by the reconciler after email verification, deleted
// on success. A single slot exists per client; a second submission
// overwrites the first (last write wins).
type PendingRegistration struct {
	Language  string            `json:"language"` // "fr", "en" or empty
	User      UserProfile       `json:"user"`
	Topics    []TopicPreference `json:"topics"`
	CreatedAt time.Time         `json:"createdAt"`
}
