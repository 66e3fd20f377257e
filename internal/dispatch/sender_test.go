package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personewsap/personews/internal/common"
	"github.com/personewsap/personews/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestSender(t *testing.T, handler http.HandlerFunc) *HTTPSender {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s := NewHTTPSender("re_test_key", testLogger())
	s.url = srv.URL
	return s
}

func testMessage() Message {
	return Message{
		From:    "News <news@personewsap.com>",
		To:      []string{"ada@example.com"},
		Subject: "PersoNewsAP · 2026-03-14",
		HTML:    "<p>hi</p>",
		Text:    "hi",
	}
}

func TestSenderPostsMessage(t *testing.T) {
	var got Message
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer re_test_key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, s.Send(context.Background(), testMessage()))
	assert.Equal(t, []string{"ada@example.com"}, got.To)
	assert.Equal(t, "PersoNewsAP · 2026-03-14", got.Subject)
}

func TestSenderRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, s.Send(context.Background(), testMessage()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSenderGivesUpAfterBudget(t *testing.T) {
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := s.Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestSenderDoesNotRetryRejection(t *testing.T) {
	var calls atomic.Int32
	s := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"message":"invalid from"}`, http.StatusUnprocessableEntity)
	})

	err := s.Send(context.Background(), testMessage())
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}
