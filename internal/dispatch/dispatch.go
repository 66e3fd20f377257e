package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/personewsap/personews/internal/client/gateway"
	"github.com/personewsap/personews/internal/common"
	"github.com/personewsap/personews/internal/logging"
)

// Options controls one dispatch run.
type Options struct {
	// From is the sender address, e.g. "PersoNewsAP <news@personewsap.com>".
	From string

	// DryRun writes HTML previews to PreviewDir instead of sending.
	DryRun     bool
	PreviewDir string

	// OnlyEmail restricts the run to a single subscriber.
	OnlyEmail string

	// Concurrency bounds parallel sends. Zero means 4.
	Concurrency int
}

// Summary reports what a run did.
type Summary struct {
	Subscribers int
	Sent        int
	Skipped     int
	Failed      int
}

// Dispatcher sends one digest per opted-in subscriber.
type Dispatcher struct {
	data   gateway.DataAPI
	sender Sender
	log    logging.Logger
	now    func() time.Time
}

func NewDispatcher(data gateway.DataAPI, sender Sender, log logging.Logger) *Dispatcher {
	return &Dispatcher{data: data, sender: sender, log: log, now: time.Now}
}

// Run loads and groups the bundle, fetches the subscribers, and delivers a
// digest to everyone with at least one matching article. Subscribers whose
// topic rows match nothing in the bundle are skipped, and one failed send
// does not stop the rest of the run.
func (d *Dispatcher) Run(ctx context.Context, bundle []byte, opts Options) (Summary, error) {
	runID := uuid.NewString()
	log := d.log.With("run_id", runID)

	articles, err := LoadBundle(bundle)
	if err != nil {
		return Summary{}, err
	}
	grouped := GroupArticles(articles)
	log.Info(ctx, "bundle loaded", "articles", len(articles), "groups", len(grouped))

	subscribers, err := d.data.ListOptedInSubscribers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to list subscribers: %w", err)
	}
	if len(subscribers) == 0 {
		log.Info(ctx, "no subscribers found")
		return Summary{}, nil
	}

	if opts.DryRun {
		if err := resetPreviewDir(opts.PreviewDir); err != nil {
			return Summary{}, err
		}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	subject := Subject(d.now())

	var sent, skipped, failed atomic.Int64
	p := pool.New().WithMaxGoroutines(concurrency)
	for _, sub := range subscribers {
		if opts.OnlyEmail != "" && common.NormalizeEmail(sub.Email) != common.NormalizeEmail(opts.OnlyEmail) {
			continue
		}

		sub := sub // per-iteration copy: the go directive here is 1.21, so the range variable is shared
		p.Go(func() {
			selected := SelectForSubscriber(grouped, sub)
			if len(selected) == 0 {
				skipped.Add(1)
				return
			}

			language := sub.Language
			if language == "" {
				language = "en"
			}
			html := BuildHTML(language, selected)

			if opts.DryRun {
				path := filepath.Join(opts.PreviewDir, previewName(sub.Email))
				if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
					log.Error(ctx, "failed to write preview", "email", sub.Email, "error", err)
					failed.Add(1)
					return
				}
				log.Info(ctx, "dry run", "email", sub.Email, "articles", len(selected), "preview", path)
				sent.Add(1)
				return
			}

			msg := Message{
				From:    opts.From,
				To:      []string{sub.Email},
				Subject: subject,
				HTML:    html,
				Text:    BuildText(language, selected),
			}
			if err := d.sender.Send(ctx, msg); err != nil {
				log.Error(ctx, "send failed", "email", sub.Email, "error", err)
				failed.Add(1)
				return
			}
			log.Info(ctx, "sent", "email", sub.Email, "articles", len(selected))
			sent.Add(1)
		})
	}
	p.Wait()

	summary := Summary{
		Subscribers: len(subscribers),
		Sent:        int(sent.Load()),
		Skipped:     int(skipped.Load()),
		Failed:      int(failed.Load()),
	}
	log.Info(ctx, "run complete", "sent", summary.Sent, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

func resetPreviewDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("preview directory is required for a dry run")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create preview directory: %w", err)
	}
	old, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return err
	}
	for _, f := range old {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("failed to clear preview directory: %w", err)
		}
	}
	return nil
}

func previewName(email string) string {
	safe := strings.NewReplacer("@", "_at_", ".", "_").Replace(email)
	return safe + ".html"
}
