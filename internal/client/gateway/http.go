package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/golang-jwt/jwt/v5"

	"github.com/personewsap/personews/internal/client/models"
	"github.com/personewsap/personews/internal/common"
	"github.com/personewsap/personews/internal/logging"
)

const (
	retryAttempts = 3
	retryBaseWait = 200 * time.Millisecond
)

// HTTP talks to a GoTrue/PostgREST style identity and data service. Auth
// endpoints live under /auth/v1, record access under /rest/v1. The service
// fails fast; the caller-supplied timeout on the underlying http.Client
// bounds every request.
type HTTP struct {
	baseURL string
	apiKey  string
	hc      *http.Client
	log     logging.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

// NewHTTP returns a gateway bound to baseURL. apiKey is the public service
// key sent with every request; the per-session access token is added after
// SignIn.
func NewHTTP(baseURL, apiKey string, timeout time.Duration, log logging.Logger) *HTTP {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: timeout},
		log:     log,
	}
}

type authErrorBody struct {
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
	Message   string `json:"message"`
}

type sessionBody struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// subscriberRow mirrors the subscribers table exposed by the data API.
type subscriberRow struct {
	ID            string `json:"id,omitempty"`
	AuthUserID    string `json:"auth_user_id"`
	Language      string `json:"language"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	WhatsappOptIn bool   `json:"whatsapp_opt_in"`
	EmailOptIn    bool   `json:"email_opt_in"`
	VerifiedAt    string `json:"verified_at,omitempty"`
}

type topicRow struct {
	SubscriberID  string `json:"subscriber_id"`
	TopicKey      string `json:"topic_key"`
	ArticlesCount int    `json:"articles_count"`
}

type feedbackRow struct {
	Email     string `json:"email"`
	Rating    string `json:"rating"`
	Message   string `json:"message,omitempty"`
	IssueDate string `json:"issue_date,omitempty"`
}

func (g *HTTP) SignUp(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	resp, err := g.do(ctx, http.MethodPost, "/auth/v1/signup", nil, body, nil, false)
	if err != nil {
		return err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		return common.ErrDuplicateEmail
	default:
		// The body's error_code is authoritative; GoTrue answers 422 for
		// more than duplicates (weak passwords, for one), so the status
		// code alone is only a fallback when no body came through.
		if e := decodeAuthError(resp); e != nil {
			return e
		}
		if resp.StatusCode == http.StatusUnprocessableEntity {
			return common.ErrDuplicateEmail
		}
		return fmt.Errorf("signup failed: %s", resp.Status)
	}
}

func (g *HTTP) SignIn(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	resp, err := g.do(ctx, http.MethodPost, "/auth/v1/token", url.Values{"grant_type": {"password"}}, body, nil, false)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
			return common.ErrUnauthorized
		}
		return fmt.Errorf("sign-in failed: %s", resp.Status)
	}

	var session sessionBody
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return fmt.Errorf("failed to decode session: %w", err)
	}

	g.mu.Lock()
	g.accessToken = session.AccessToken
	g.refreshToken = session.RefreshToken
	g.mu.Unlock()
	return nil
}

func (g *HTTP) ResendVerification(ctx context.Context, email string) error {
	body := map[string]string{"type": "signup", "email": email}
	return g.simpleAuthCall(ctx, http.MethodPost, "/auth/v1/resend", body)
}

func (g *HTTP) RequestPasswordReset(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return g.simpleAuthCall(ctx, http.MethodPost, "/auth/v1/recover", body)
}

func (g *HTTP) UpdatePassword(ctx context.Context, newPassword string) error {
	body := map[string]string{"password": newPassword}
	resp, err := g.do(ctx, http.MethodPut, "/auth/v1/user", nil, body, nil, false)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		return common.ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("password update failed: %s", resp.Status)
	}
	return nil
}

// CurrentIdentity derives the identity from the session's access token. The
// token is issued by the identity service and carries the auth id and email
// as claims; an expired or absent token means no session.
func (g *HTTP) CurrentIdentity(_ context.Context) (models.Identity, bool, error) {
	g.mu.Lock()
	token := g.accessToken
	g.mu.Unlock()

	if token == "" {
		return models.Identity{}, false, nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return models.Identity{}, false, fmt.Errorf("failed to parse access token: %w", err)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && exp.Before(time.Now()) {
		return models.Identity{}, false, nil
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return models.Identity{}, false, nil
	}
	email, _ := claims["email"].(string)

	return models.Identity{AuthID: sub, Email: email}, true, nil
}

func (g *HTTP) SignOut(ctx context.Context) error {
	g.mu.Lock()
	hadSession := g.accessToken != ""
	g.mu.Unlock()

	if hadSession {
		resp, err := g.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil, nil, false)
		if err == nil {
			drain(resp)
		}
	}

	g.mu.Lock()
	g.accessToken = ""
	g.refreshToken = ""
	g.mu.Unlock()
	return nil
}

func (g *HTTP) FindAccountByAuthID(ctx context.Context, authID string) (models.AccountRecord, bool, error) {
	q := url.Values{
		"select":       {"*"},
		"auth_user_id": {"eq." + authID},
	}
	var rows []subscriberRow
	if err := g.restJSON(ctx, http.MethodGet, "/rest/v1/subscribers", q, nil, nil, &rows); err != nil {
		return models.AccountRecord{}, false, err
	}
	if len(rows) == 0 {
		return models.AccountRecord{}, false, nil
	}
	return rows[0].toModel(), true, nil
}

func (g *HTTP) CreateAccount(ctx context.Context, rec models.AccountRecord) (models.AccountRecord, error) {
	headers := map[string]string{"Prefer": "return=representation"}
	var rows []subscriberRow
	err := g.restJSON(ctx, http.MethodPost, "/rest/v1/subscribers", nil, fromModel(rec), headers, &rows)
	if err != nil {
		return models.AccountRecord{}, err
	}
	if len(rows) == 0 {
		return models.AccountRecord{}, fmt.Errorf("account creation returned no row")
	}
	return rows[0].toModel(), nil
}

func (g *HTTP) UpdateAccount(ctx context.Context, rec models.AccountRecord) error {
	q := url.Values{"id": {"eq." + rec.ID}}
	return g.restJSON(ctx, http.MethodPatch, "/rest/v1/subscribers", q, fromModel(rec), nil, nil)
}

func (g *HTTP) UpsertTopicRows(ctx context.Context, accountID string, prefs []models.TopicPreference) error {
	if len(prefs) == 0 {
		return nil
	}
	rows := make([]topicRow, 0, len(prefs))
	for _, p := range prefs {
		rows = append(rows, topicRow{SubscriberID: accountID, TopicKey: p.TopicKey, ArticlesCount: p.ArticlesCount})
	}
	headers := map[string]string{"Prefer": "resolution=merge-duplicates"}
	return g.restJSON(ctx, http.MethodPost, "/rest/v1/subscriber_topics", nil, rows, headers, nil)
}

func (g *HTTP) DeleteTopicRows(ctx context.Context, accountID string, topicKeys []string) error {
	if len(topicKeys) == 0 {
		return nil
	}
	q := url.Values{
		"subscriber_id": {"eq." + accountID},
		"topic_key":     {"in.(" + strings.Join(topicKeys, ",") + ")"},
	}
	return g.restJSON(ctx, http.MethodDelete, "/rest/v1/subscriber_topics", q, nil, nil, nil)
}

func (g *HTTP) SelectTopicRows(ctx context.Context, accountID string) ([]models.TopicPreference, error) {
	q := url.Values{
		"select":        {"topic_key,articles_count"},
		"subscriber_id": {"eq." + accountID},
	}
	var rows []topicRow
	if err := g.restJSON(ctx, http.MethodGet, "/rest/v1/subscriber_topics", q, nil, nil, &rows); err != nil {
		return nil, err
	}
	prefs := make([]models.TopicPreference, 0, len(rows))
	for _, r := range rows {
		prefs = append(prefs, models.TopicPreference{TopicKey: r.TopicKey, ArticlesCount: r.ArticlesCount})
	}
	return prefs, nil
}

func (g *HTTP) ListOptedInSubscribers(ctx context.Context) ([]models.Subscriber, error) {
	q := url.Values{
		"select":       {"id,email,language"},
		"email_opt_in": {"eq.true"},
	}
	var accounts []subscriberRow
	if err := g.restJSON(ctx, http.MethodGet, "/rest/v1/subscribers", q, nil, nil, &accounts); err != nil {
		return nil, err
	}

	subs := make([]models.Subscriber, 0, len(accounts))
	for _, a := range accounts {
		topics, err := g.SelectTopicRows(ctx, a.ID)
		if err != nil {
			return nil, err
		}
		subs = append(subs, models.Subscriber{
			AccountID: a.ID,
			Email:     a.Email,
			Language:  a.Language,
			Topics:    topics,
		})
	}
	return subs, nil
}

func (g *HTTP) SubmitFeedback(ctx context.Context, fb models.Feedback) error {
	row := feedbackRow{
		Email:   fb.Email,
		Rating:  fb.Rating,
		Message: fb.Message,
	}
	if !fb.IssueDate.IsZero() {
		row.IssueDate = fb.IssueDate.Format("2006-01-02")
	}
	return g.restJSON(ctx, http.MethodPost, "/rest/v1/newsletter_feedback", nil, row, nil, nil)
}

// restJSON performs a data-API call with retry on transient failures. Every
// data operation is upsert- or filter-shaped (feedback is append-only and
// unkeyed), so replaying a request that may already have been applied is
// safe.
func (g *HTTP) restJSON(ctx context.Context, method, path string, q url.Values, body any, headers map[string]string, out any) error {
	return retry.Do(
		func() error {
			resp, err := g.do(ctx, method, path, q, body, headers, true)
			if err != nil {
				return err
			}
			defer drain(resp)

			switch {
			case resp.StatusCode == http.StatusConflict:
				return common.ErrDuplicateEmail
			case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
				return common.ErrUnauthorized
			case resp.StatusCode == http.StatusNotFound:
				return common.ErrNotFound
			case resp.StatusCode >= 500:
				return fmt.Errorf("%w: %s %s: %s", common.ErrUnavailable, method, path, resp.Status)
			case resp.StatusCode >= 300:
				return fmt.Errorf("%s %s failed: %s", method, path, resp.Status)
			}

			if out != nil {
				if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
					return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(retryAttempts),
		retry.Delay(retryBaseWait),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, common.ErrUnavailable) }),
	)
}

// do issues a single request. Transport-level failures come back wrapped in
// common.ErrUnavailable so callers can tell "retry" from "give up".
func (g *HTTP) do(ctx context.Context, method, path string, q url.Values, body any, headers map[string]string, withBearer bool) (*http.Response, error) {
	u := g.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", g.apiKey)

	g.mu.Lock()
	token := g.accessToken
	g.mu.Unlock()
	if token == "" {
		token = g.apiKey
	}
	if withBearer || g.isAuthPath(path) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", common.ErrUnavailable, method, path, err)
	}
	return resp, nil
}

func (g *HTTP) isAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/")
}

func (g *HTTP) simpleAuthCall(ctx context.Context, method, path string, body any) error {
	resp, err := g.do(ctx, method, path, nil, body, nil, false)
	if err != nil {
		return err
	}
	defer drain(resp)

	if resp.StatusCode >= 300 {
		if e := decodeAuthError(resp); e != nil {
			return e
		}
		return fmt.Errorf("%s %s failed: %s", method, path, resp.Status)
	}
	return nil
}

func decodeAuthError(resp *http.Response) error {
	var body authErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil
	}
	msg := body.Msg
	if msg == "" {
		msg = body.Message
	}
	switch {
	case body.ErrorCode == "user_already_exists",
		strings.Contains(strings.ToLower(msg), "already registered"):
		return common.ErrDuplicateEmail
	case msg != "":
		return fmt.Errorf("identity service: %s", msg)
	default:
		return nil
	}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func (r subscriberRow) toModel() models.AccountRecord {
	rec := models.AccountRecord{
		ID:            r.ID,
		AuthID:        r.AuthUserID,
		Language:      r.Language,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		Phone:         r.Phone,
		WhatsappOptIn: r.WhatsappOptIn,
		EmailOptIn:    r.EmailOptIn,
	}
	if r.VerifiedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, r.VerifiedAt); err == nil {
			rec.VerifiedAt = ts
		}
	}
	return rec
}

func fromModel(rec models.AccountRecord) subscriberRow {
	row := subscriberRow{
		AuthUserID:    rec.AuthID,
		Language:      rec.Language,
		FirstName:     rec.FirstName,
		LastName:      rec.LastName,
		Email:         rec.Email,
		Phone:         rec.Phone,
		WhatsappOptIn: rec.WhatsappOptIn,
		EmailOptIn:    rec.EmailOptIn,
	}
	if !rec.VerifiedAt.IsZero() {
		row.VerifiedAt = rec.VerifiedAt.UTC().Format(time.RFC3339Nano)
	}
	return row
}
