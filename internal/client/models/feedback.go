package models

import "time"

// Feedback ratings.
const (
	RatingGood    = "good"
	RatingAverage = "average"
	RatingBad     = "bad"
)

// Feedback is a reader's verdict on a newsletter issue. It is keyed by email
// rather than account id so readers can answer straight from the email link
// without a session.
type Feedback struct {
	Email     string
	Rating    string
	Message   string
	IssueDate time.Time // zero when the reader did not name an issue
}
