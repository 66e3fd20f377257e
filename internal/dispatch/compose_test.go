package dispatch

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubject(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "PersoNewsAP · 2026-03-14", Subject(now))
}

func TestBuildTextFrench(t *testing.T) {
	text := BuildText("fr", []Article{
		{Title: "Titre", Content: "Corps", Sources: []string{"https://x"}},
	})

	assert.True(t, strings.HasPrefix(text, "Bonjour,"))
	assert.Contains(t, text, "Titre")
	assert.Contains(t, text, "- https://x")
	assert.True(t, strings.HasSuffix(text, "Merci !"))
}

func TestBuildTextEnglish(t *testing.T) {
	text := BuildText("en", []Article{{Title: "T", Content: "C"}})
	assert.True(t, strings.HasPrefix(text, "Hello,"))
	assert.True(t, strings.HasSuffix(text, "Thanks!"))
}

func TestBuildHTML(t *testing.T) {
	html := BuildHTML("en", []Article{
		{Topic: "finance", Title: "Rates & markets", Content: "Some **bold** text\nsecond line", Sources: []string{"https://x"}},
		{Topic: "ai", Title: "Models", Content: "More"},
	})

	// Menu groups by topic label, titles escaped.
	assert.Contains(t, html, "Today's menu")
	assert.Contains(t, html, "Finance / Economy")
	assert.Contains(t, html, "Artificial Intelligence")
	assert.Contains(t, html, "Rates &amp; markets")

	// Bold markers become strong tags, newlines become breaks.
	assert.Contains(t, html, "<strong>bold</strong>")
	assert.Contains(t, html, "second line")
	assert.NotContains(t, html, "**")

	assert.Contains(t, html, "Article 1:")
	assert.Contains(t, html, "Article 2:")
	assert.Contains(t, html, unsubscribeURL)
	assert.Contains(t, html, "Unsubscribe")
}

func TestBuildHTMLFrenchLabels(t *testing.T) {
	html := BuildHTML("fr", []Article{{Topic: "stocks", Title: "T", Content: "C"}})
	assert.Contains(t, html, "Menu du jour")
	assert.Contains(t, html, "Se désinscrire")
}
