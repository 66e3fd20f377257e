package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personewsap/personews/internal/client/gateway"
	"github.com/personewsap/personews/internal/client/models"
)

// captureSender records sent messages instead of delivering them.
type captureSender struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]error // keyed by recipient
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(msg.To) == 1 {
		if err, ok := c.fail[msg.To[0]]; ok {
			return err
		}
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) recipients() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, m := range c.sent {
		out = append(out, m.To...)
	}
	return out
}

// seedSubscriber creates a verified, opted-in account with the given topics.
func seedSubscriber(t *testing.T, mem *gateway.Memory, email, language string, topics ...models.TopicPreference) {
	t.Helper()
	ctx := context.Background()

	rec, err := mem.CreateAccount(ctx, models.AccountRecord{
		AuthID:     "auth-" + email,
		Language:   language,
		FirstName:  "Test",
		LastName:   "Subscriber",
		Email:      email,
		EmailOptIn: true,
	})
	require.NoError(t, err)
	require.NoError(t, mem.UpsertTopicRows(ctx, rec.ID, topics))
}

var testBundle = []byte(`[
	{"language": "en", "topic": "finance", "title": "F1", "content": "c", "article_number": 1},
	{"language": "en", "topic": "finance", "title": "F2", "content": "c", "article_number": 2},
	{"language": "fr", "topic": "sport", "title": "S1", "content": "c", "article_number": 1}
]`)

func TestDispatchRun(t *testing.T) {
	ctx := context.Background()
	mem := gateway.NewMemory()
	seedSubscriber(t, mem, "en@example.com", "en", models.TopicPreference{TopicKey: "finance", ArticlesCount: 2})
	seedSubscriber(t, mem, "fr@example.com", "fr", models.TopicPreference{TopicKey: "sport", ArticlesCount: 1})
	// Topic rows match nothing in the bundle for this subscriber.
	seedSubscriber(t, mem, "none@example.com", "en", models.TopicPreference{TopicKey: "culture", ArticlesCount: 1})

	sender := &captureSender{}
	d := NewDispatcher(mem, sender, testLogger())

	summary, err := d.Run(ctx, testBundle, Options{From: "news@personewsap.com"})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Subscribers)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)
	assert.ElementsMatch(t, []string{"en@example.com", "fr@example.com"}, sender.recipients())

	for _, m := range sender.sent {
		assert.Equal(t, "news@personewsap.com", m.From)
		assert.NotEmpty(t, m.HTML)
		assert.NotEmpty(t, m.Text)
	}
}

func TestDispatchOnlyEmailFilter(t *testing.T) {
	ctx := context.Background()
	mem := gateway.NewMemory()
	seedSubscriber(t, mem, "a@example.com", "en", models.TopicPreference{TopicKey: "finance", ArticlesCount: 1})
	seedSubscriber(t, mem, "b@example.com", "en", models.TopicPreference{TopicKey: "finance", ArticlesCount: 1})

	sender := &captureSender{}
	d := NewDispatcher(mem, sender, testLogger())

	summary, err := d.Run(ctx, testBundle, Options{From: "n@x.com", OnlyEmail: "B@Example.com"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, []string{"b@example.com"}, sender.recipients())
}

func TestDispatchDryRunWritesPreviews(t *testing.T) {
	ctx := context.Background()
	mem := gateway.NewMemory()
	seedSubscriber(t, mem, "ada@example.com", "en", models.TopicPreference{TopicKey: "finance", ArticlesCount: 1})

	dir := t.TempDir()
	// A stale preview from an earlier run is cleared first.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "old.html"), []byte("stale"), 0o644))

	sender := &captureSender{}
	d := NewDispatcher(mem, sender, testLogger())

	summary, err := d.Run(ctx, testBundle, Options{DryRun: true, PreviewDir: dir})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	assert.Empty(t, sender.sent)

	assert.NoFileExists(t, filepath.Join(dir, "old.html"))
	data, err := os.ReadFile(filepath.Join(dir, "ada_at_example_com.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "F1")
}

func TestDispatchSendFailureDoesNotStopRun(t *testing.T) {
	ctx := context.Background()
	mem := gateway.NewMemory()
	seedSubscriber(t, mem, "ok@example.com", "en", models.TopicPreference{TopicKey: "finance", ArticlesCount: 1})
	seedSubscriber(t, mem, "bad@example.com", "en", models.TopicPreference{TopicKey: "finance", ArticlesCount: 1})

	sender := &captureSender{fail: map[string]error{"bad@example.com": errors.New("boom")}}
	d := NewDispatcher(mem, sender, testLogger())

	summary, err := d.Run(ctx, testBundle, Options{From: "n@x.com"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 1, summary.Failed)
}

func TestDispatchInvalidBundle(t *testing.T) {
	d := NewDispatcher(gateway.NewMemory(), &captureSender{}, testLogger())
	_, err := d.Run(context.Background(), []byte("{bad"), Options{})
	assert.Error(t, err)
}
