package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/personewsap/personews/internal/common"
	"github.com/personewsap/personews/internal/logging"
)

// Message is one outbound digest email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// Sender delivers a digest email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const defaultMailerURL = "https://api.resend.com/emails"

// HTTPSender delivers messages through a Resend-compatible transactional
// mail API. Transient failures (5xx, 429, transport errors) are retried
// with backoff.
type HTTPSender struct {
	url    string
	apiKey string
	hc     *http.Client
	log    logging.Logger
}

func NewHTTPSender(apiKey string, log logging.Logger) *HTTPSender {
	return &HTTPSender{
		url:    defaultMailerURL,
		apiKey: apiKey,
		hc:     &http.Client{Timeout: 20 * time.Second},
		log:    log,
	}
}

func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	return retry.Do(
		func() error { return s.post(ctx, body) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, common.ErrUnavailable) }),
	)
}

func (s *HTTPSender) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", common.BrandName+"-Dispatcher/1.0")

	resp, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		io.Copy(io.Discard, resp.Body)
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: mailer returned %s", common.ErrUnavailable, resp.Status)
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("mailer rejected message: %s: %s", resp.Status, detail)
	}
}
