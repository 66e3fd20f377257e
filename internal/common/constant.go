package common

const (
	// BrandName appears in dispatched email subjects and digest headers.
	BrandName = "PersoNewsAP"

	// DefaultLanguage is used when a subscriber record carries no language.
	DefaultLanguage = "en"
)
