package models

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// FieldErrors maps a field name to a human-readable validation problem.
// It is the "recoverable, re-shown inline" error kind: the wizard keeps the
// user on the same step and highlights the offending fields.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var (
	emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	// E.164: leading +, 7 to 15 digits, no leading zero.
	phoneRe = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
)

// ValidateSignup checks a profile plus the chosen password pair against the
// signup rules. It returns nil when everything passes, otherwise a
// FieldErrors describing every failing field at once.
func ValidateSignup(user UserProfile, password, confirm string) error {
	errs := validateProfile(user)

	if len(password) < 8 || len(password) > 128 {
		errs["password"] = "password must be between 8 and 128 characters"
	}
	if password != confirm {
		errs["confirmPassword"] = "passwords do not match"
	}
	if !user.EmailOptIn {
		errs["emailOptIn"] = "email opt-in is required to subscribe"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateProfile checks the profile fields alone, as used by account edits
// where no password is involved and the email is not editable.
func ValidateProfile(user UserProfile) error {
	errs := validateProfile(user)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateProfile(user UserProfile) FieldErrors {
	errs := FieldErrors{}

	if n := strings.TrimSpace(user.FirstName); n == "" || len(n) > 100 {
		errs["firstName"] = "first name must be between 1 and 100 characters"
	}
	if n := strings.TrimSpace(user.LastName); n == "" || len(n) > 100 {
		errs["lastName"] = "last name must be between 1 and 100 characters"
	}

	email := strings.TrimSpace(user.Email)
	if email == "" || len(email) > 255 || !emailRe.MatchString(email) {
		errs["email"] = "a valid email address is required"
	}

	if user.Phone != "" {
		if !phoneRe.MatchString(user.Phone) {
			errs["phone"] = "phone number must be in international E.164 form, e.g. +33612345678"
		}
		if !user.WhatsappOptIn {
			errs["whatsappOptIn"] = "WhatsApp opt-in is required when a phone number is given"
		}
	}

	return errs
}

// ValidateFeedback checks a feedback entry: the email must be valid and the
// rating one of the three known values.
func ValidateFeedback(fb Feedback) error {
	errs := FieldErrors{}

	email := strings.TrimSpace(fb.Email)
	if email == "" || len(email) > 255 || !emailRe.MatchString(email) {
		errs["email"] = "a valid email address is required"
	}
	switch fb.Rating {
	case RatingGood, RatingAverage, RatingBad:
	default:
		errs["rating"] = fmt.Sprintf("rating must be %s, %s or %s", RatingGood, RatingAverage, RatingBad)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateTopics checks that every preference references a known topic
// exactly once with a quota inside the allowed range.
func ValidateTopics(prefs []TopicPreference) error {
	errs := FieldErrors{}
	seen := make(map[string]bool, len(prefs))
	for _, p := range prefs {
		switch {
		case !IsKnownTopic(p.TopicKey):
			errs["topics"] = fmt.Sprintf("unknown topic %q", p.TopicKey)
		case seen[p.TopicKey]:
			errs["topics"] = fmt.Sprintf("duplicate topic %q", p.TopicKey)
		case p.ArticlesCount < MinArticlesCount || p.ArticlesCount > MaxArticlesCount:
			errs["topics"] = fmt.Sprintf("article count for %q must be between %d and %d",
				p.TopicKey, MinArticlesCount, MaxArticlesCount)
		}
		seen[p.TopicKey] = true
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
