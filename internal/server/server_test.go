package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/iamwavecut/groupwarden/internal/moderation"
)

type updatesStub struct {
	mu      sync.Mutex
	updates []api.Update
	err     error
}

func (s *updatesStub) Process(_ context.Context, u *api.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, *u)
	return s.err
}

type sweeperStub struct {
	result moderation.SweepResult
	err    error
	calls  int
}

func (s *sweeperStub) Sweep(context.Context) (moderation.SweepResult, error) {
	s.calls++
	return s.result, s.err
}

type webhookStub struct {
	url, secret string
	err         error
}

func (s *webhookStub) SetWebhook(_ context.Context, url, secret string) error {
	s.url, s.secret = url, secret
	return s.err
}

func newTestServer(cfg Config) (*Server, *updatesStub, *sweeperStub, *webhookStub) {
	gin.SetMode(gin.TestMode)
	updates := &updatesStub{}
	sweeper := &sweeperStub{result: moderation.SweepResult{DeletedCount: 3, UnmutedCount: 1}}
	webhook := &webhookStub{}
	return New(cfg, updates, sweeper, webhook), updates, sweeper, webhook
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhookProcessesUpdate(t *testing.T) {
	t.Parallel()
	s, updates, _, _ := newTestServer(Config{WebhookSecret: "s3cret"})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id": 7, "message": {"message_id": 1, "date": 0, "chat": {"id": -100, "type": "supergroup"}, "text": "hi"}}`))
	req.Header.Set(secretTokenHeader, "s3cret")
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, updates.updates, 1)
	require.Equal(t, 7, updates.updates[0].UpdateID)
	require.Equal(t, int64(-100), updates.updates[0].Message.Chat.ID)
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	t.Parallel()
	s, updates, _, _ := newTestServer(Config{WebhookSecret: "s3cret"})

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id": 7}`))
	req.Header.Set(secretTokenHeader, "nope")
	rec := serve(s, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Empty(t, updates.updates)
}

func TestWebhookAcknowledgesProcessingErrors(t *testing.T) {
	t.Parallel()
	s, updates, _, _ := newTestServer(Config{})
	updates.err = errors.New("boom")

	rec := serve(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"update_id": 8}`)))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookRejectsGarbage(t *testing.T) {
	t.Parallel()
	s, _, _, _ := newTestServer(Config{})

	rec := serve(s, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`not json`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMaintenanceSweep(t *testing.T) {
	t.Parallel()
	s, _, sweeper, _ := newTestServer(Config{MaintenanceToken: "tok"})

	rec := serve(s, httptest.NewRequest(http.MethodPost, "/maintenance/sweep", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Zero(t, sweeper.calls)

	req := httptest.NewRequest(http.MethodPost, "/maintenance/sweep", nil)
	req.Header.Set("Authorization", "Bearer tok")
	rec = serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, map[string]int{"deletedCount": 3, "unmutedCount": 1}, body)
}

func TestMaintenanceSweepReportsPartialFailure(t *testing.T) {
	t.Parallel()
	s, _, sweeper, _ := newTestServer(Config{})
	sweeper.err = errors.New("list expired mutes: db down")

	rec := serve(s, httptest.NewRequest(http.MethodPost, "/maintenance/sweep", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.EqualValues(t, 3, body["deletedCount"])
	require.Contains(t, body["error"], "db down")
}

func TestSetWebhook(t *testing.T) {
	t.Parallel()
	s, _, _, webhook := newTestServer(Config{WebhookURL: "https://bot.example.com/", WebhookSecret: "s3cret"})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/setwebhook", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://bot.example.com/webhook", webhook.url)
	require.Equal(t, "s3cret", webhook.secret)
}

func TestSetWebhookWithoutURL(t *testing.T) {
	t.Parallel()
	s, _, _, _ := newTestServer(Config{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/setwebhook", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	s, _, _, _ := newTestServer(Config{})

	require.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	require.Equal(t, http.StatusOK, serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}
