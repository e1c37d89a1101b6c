package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/annpale/payments/internal/config"
	"github.com/annpale/payments/internal/observability"
	"github.com/annpale/payments/internal/server"
	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	"github.com/gin-gonic/gin"
)

type stubWebhookService struct {
	err error
}

func (s stubWebhookService) Ingest(ctx context.Context, payload []byte, headers http.Header) error {
	return s.err
}

func newTestServer(t *testing.T, svcErr error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := server.NewEngine(observability.Config{})
	server.NewServer(server.ServerParams{
		Gin:        engine,
		Cfg:        config.Config{},
		WebhookSvc: stubWebhookService{err: svcErr},
	})
	return engine
}

func postWebhook(engine *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(body))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestWebhookEndpointAcknowledges(t *testing.T) {
	engine := newTestServer(t, nil)

	rec := postWebhook(engine, `{"id":"evt_1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Fatalf("expected received ack, got %s", rec.Body.String())
	}
}

func TestWebhookEndpointAcknowledgesRedelivery(t *testing.T) {
	engine := newTestServer(t, webhookdomain.ErrEventAlreadyProcessed)

	rec := postWebhook(engine, `{"id":"evt_1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for redelivery, got %d", rec.Code)
	}
}

func TestWebhookEndpointRejectsBadSignature(t *testing.T) {
	engine := newTestServer(t, webhookdomain.ErrInvalidSignature)

	rec := postWebhook(engine, `{"id":"evt_1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d", rec.Code)
	}
}

func TestWebhookEndpointRejectsMissingSignature(t *testing.T) {
	engine := newTestServer(t, webhookdomain.ErrMissingSignature)

	rec := postWebhook(engine, `{"id":"evt_1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing signature, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	engine := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
