package service_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	auditrepo "github.com/annpale/payments/internal/audit/repository"
	auditservice "github.com/annpale/payments/internal/audit/service"
	"github.com/annpale/payments/internal/clock"
	"github.com/annpale/payments/internal/config"
	connectrepo "github.com/annpale/payments/internal/connect/repository"
	connectservice "github.com/annpale/payments/internal/connect/service"
	ledgerrepo "github.com/annpale/payments/internal/ledger/repository"
	ledgerservice "github.com/annpale/payments/internal/ledger/service"
	notificationdomain "github.com/annpale/payments/internal/notification/domain"
	orderrepo "github.com/annpale/payments/internal/order/repository"
	orderservice "github.com/annpale/payments/internal/order/service"
	"github.com/annpale/payments/internal/providers/stripe"
	subscriptionrepo "github.com/annpale/payments/internal/subscription/repository"
	subscriptionservice "github.com/annpale/payments/internal/subscription/service"
	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	webhookservice "github.com/annpale/payments/internal/webhook/service"
	"github.com/annpale/payments/internal/webhook/verifier"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const webhookSecret = "whsec_test"

type fakeDispatcher struct {
	creatorNotifications []notificationdomain.CreatorNotification
	alerts               []notificationdomain.SystemAlert
}

func (f *fakeDispatcher) SendCreatorNotification(ctx context.Context, n notificationdomain.CreatorNotification) error {
	f.creatorNotifications = append(f.creatorNotifications, n)
	return nil
}

func (f *fakeDispatcher) SendNotification(ctx context.Context, recipientID, title, body string) error {
	return nil
}

func (f *fakeDispatcher) SendSystemAlert(ctx context.Context, alert notificationdomain.SystemAlert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE orders (
			id BIGINT PRIMARY KEY,
			payment_reference_id TEXT NOT NULL,
			creator_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			amount BIGINT NOT NULL,
			creator_earnings BIGINT NOT NULL,
			platform_fee BIGINT NOT NULL,
			currency TEXT NOT NULL,
			status TEXT NOT NULL,
			video_request_id BIGINT,
			metadata TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_orders_payment_reference_id ON orders(payment_reference_id)`,
		`CREATE TABLE video_requests (
			id BIGINT PRIMARY KEY,
			creator_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			status TEXT NOT NULL,
			rejection_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE subscription_orders (
			id BIGINT PRIMARY KEY,
			checkout_session_id TEXT,
			provider_subscription_id TEXT,
			provider_customer_id TEXT,
			creator_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			tier_id TEXT,
			status TEXT NOT NULL,
			current_period_start TIMESTAMPTZ,
			current_period_end TIMESTAMPTZ,
			next_billing_date TIMESTAMPTZ,
			last_payment_status TEXT,
			last_payment_at TIMESTAMP,
			failed_payment_count INTEGER NOT NULL DEFAULT 0,
			activated_at TIMESTAMPTZ,
			cancelled_at TIMESTAMPTZ,
			metadata TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE stripe_accounts (
			account_id TEXT PRIMARY KEY,
			charges_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			payouts_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			details_submitted BOOLEAN NOT NULL DEFAULT FALSE,
			requirements_due TEXT,
			metadata TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE profiles (
			id TEXT PRIMARY KEY,
			stripe_account_id TEXT,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE transactions (
			id BIGINT PRIMARY KEY,
			provider_reference_id TEXT NOT NULL,
			platform_fee BIGINT NOT NULL DEFAULT 0,
			metadata TEXT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_transactions_provider_reference_id ON transactions(provider_reference_id)`,
		`CREATE TABLE webhook_events (
			id BIGINT PRIMARY KEY,
			provider_event_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			api_version TEXT,
			live_mode BOOLEAN NOT NULL DEFAULT FALSE,
			received_at TIMESTAMPTZ NOT NULL,
			processed_at TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX ux_webhook_events_provider_event_id ON webhook_events(provider_event_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}

type ingestFixture struct {
	svc      webhookdomain.Service
	db       *gorm.DB
	notifier *fakeDispatcher
}

type noopStripeClient struct{}

func (noopStripeClient) GetCharge(ctx context.Context, chargeID string) (*stripe.Charge, error) {
	return nil, stripe.ErrNotConfigured
}

func newIngestFixture(t *testing.T, nodeID int64) *ingestFixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	notifier := &fakeDispatcher{}
	cfg := config.Config{
		StripeWebhookSecret: webhookSecret,
		SourceMarker:        "ann-pale-video-request",
	}

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  ledgerrepo.Provide(),
	})
	orderSvc := orderservice.NewService(orderservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Cfg:       cfg,
		Repo:      orderrepo.Provide(),
		LedgerSvc: ledgerSvc,
		Notifier:  notifier,
		Stripe:    noopStripeClient{},
	})
	subSvc := subscriptionservice.NewService(subscriptionservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    fakeClock,
		Repo:     subscriptionrepo.Provide(),
		Notifier: notifier,
	})
	connectSvc := connectservice.NewService(connectservice.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Clock:    fakeClock,
		Repo:     connectrepo.Provide(),
		Notifier: notifier,
	})
	auditSvc := auditservice.NewService(auditservice.Params{
		DB:   db,
		Log:  zap.NewNop(),
		Repo: auditrepo.Provide(),
	})

	svc := webhookservice.NewService(webhookservice.Params{
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fakeClock,
		Verifier: verifier.New(verifier.Params{Log: zap.NewNop(), Cfg: cfg}),
		Audit:    auditSvc,
		Orders:   orderSvc,
		Subs:     subSvc,
		Connect:  connectSvc,
		Ledger:   ledgerSvc,
	})

	return &ingestFixture{svc: svc, db: db, notifier: notifier}
}

func signedHeaders(payload []byte, timestamp int64) http.Header {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(signedPayload))
	headers := http.Header{}
	headers.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil))))
	return headers
}

func chargeSucceededPayload(eventID string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":"%s","type":"charge.succeeded","api_version":"2023-10-16","livemode":false,"created":1748779200,"data":{"object":{"id":"ch_1","payment_intent":"pi_1","amount":10000,"currency":"usd","metadata":{"source":"ann-pale-video-request","creatorId":"creator_1","userId":"customer_1"}}}}`,
		eventID,
	))
}

func assertCount(t *testing.T, db *gorm.DB, query string, want int64) {
	t.Helper()
	var got int64
	if err := db.Raw(query).Scan(&got).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if got != want {
		t.Fatalf("expected count %d, got %d", want, got)
	}
}

func TestIngestChargeSucceededCreatesOrderAndReceipt(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, 50)

	payload := chargeSucceededPayload("evt_1")
	now := time.Now().Unix()

	if err := f.svc.Ingest(ctx, payload, signedHeaders(payload, now)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM orders", 1)
	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events", 1)
	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events WHERE processed_at IS NOT NULL", 1)

	var earnings int64
	if err := f.db.Raw("SELECT creator_earnings FROM orders WHERE payment_reference_id = ?", "pi_1").Scan(&earnings).Error; err != nil {
		t.Fatalf("scan earnings: %v", err)
	}
	if earnings != 7000 {
		t.Fatalf("expected creator earnings 7000, got %d", earnings)
	}
}

func TestIngestRedeliveryIsAcknowledgedOnce(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, 51)

	payload := chargeSucceededPayload("evt_2")
	now := time.Now().Unix()
	headers := signedHeaders(payload, now)

	if err := f.svc.Ingest(ctx, payload, headers); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	err := f.svc.Ingest(ctx, payload, headers)
	if !errors.Is(err, webhookdomain.ErrEventAlreadyProcessed) {
		t.Fatalf("expected ErrEventAlreadyProcessed, got %v", err)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM orders", 1)
	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events", 1)
	if len(f.notifier.creatorNotifications) != 1 {
		t.Fatalf("expected one creator notification, got %d", len(f.notifier.creatorNotifications))
	}
}

func TestIngestUnknownEventTypeIsAcknowledged(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, 52)

	payload := []byte(`{"id":"evt_3","type":"balance.available","created":1748779200,"data":{"object":{}}}`)
	now := time.Now().Unix()

	if err := f.svc.Ingest(ctx, payload, signedHeaders(payload, now)); err != nil {
		t.Fatalf("ingest unknown type: %v", err)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM orders", 0)
	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events", 1)
}

func TestIngestRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, 53)

	payload := chargeSucceededPayload("evt_4")
	headers := http.Header{}
	headers.Set("Stripe-Signature", "t=123,v1=deadbeef")

	err := f.svc.Ingest(ctx, payload, headers)
	if !errors.Is(err, webhookdomain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events", 0)
}

func TestIngestForeignChargeIsSkippedButAudited(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, 54)

	payload := []byte(`{"id":"evt_5","type":"charge.succeeded","created":1748779200,"data":{"object":{"id":"ch_9","payment_intent":"pi_9","amount":5000,"currency":"usd","metadata":{"source":"another-app"}}}}`)
	now := time.Now().Unix()

	if err := f.svc.Ingest(ctx, payload, signedHeaders(payload, now)); err != nil {
		t.Fatalf("ingest foreign charge: %v", err)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM orders", 0)
	assertCount(t, f.db, "SELECT COUNT(1) FROM webhook_events", 1)
}

func TestIngestTransferAndFeeBuildLedger(t *testing.T) {
	ctx := context.Background()
	f := newIngestFixture(t, 55)

	now := time.Now().Unix()

	transfer := []byte(`{"id":"evt_6","type":"transfer.created","created":1748779200,"data":{"object":{"id":"tr_1","amount":7000,"currency":"usd","destination":"acct_1","source_transaction":"pi_1"}}}`)
	if err := f.svc.Ingest(ctx, transfer, signedHeaders(transfer, now)); err != nil {
		t.Fatalf("ingest transfer: %v", err)
	}

	fee := []byte(`{"id":"evt_7","type":"application_fee.created","created":1748779200,"data":{"object":{"id":"fee_1","amount":3000,"currency":"usd","charge":"pi_1"}}}`)
	if err := f.svc.Ingest(ctx, fee, signedHeaders(fee, now)); err != nil {
		t.Fatalf("ingest fee: %v", err)
	}

	assertCount(t, f.db, "SELECT COUNT(1) FROM transactions", 1)

	var platformFee int64
	if err := f.db.Raw("SELECT platform_fee FROM transactions WHERE provider_reference_id = ?", "pi_1").Scan(&platformFee).Error; err != nil {
		t.Fatalf("scan platform_fee: %v", err)
	}
	if platformFee != 3000 {
		t.Fatalf("expected platform_fee 3000, got %d", platformFee)
	}
}
