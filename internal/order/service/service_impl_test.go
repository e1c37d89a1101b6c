package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/annpale/payments/internal/clock"
	"github.com/annpale/payments/internal/config"
	ledgerrepo "github.com/annpale/payments/internal/ledger/repository"
	ledgerservice "github.com/annpale/payments/internal/ledger/service"
	notificationdomain "github.com/annpale/payments/internal/notification/domain"
	orderdomain "github.com/annpale/payments/internal/order/domain"
	orderrepo "github.com/annpale/payments/internal/order/repository"
	orderservice "github.com/annpale/payments/internal/order/service"
	"github.com/annpale/payments/internal/providers/stripe"
	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeDispatcher struct {
	creatorNotifications []notificationdomain.CreatorNotification
	notifications        []string
	alerts               []notificationdomain.SystemAlert
}

func (f *fakeDispatcher) SendCreatorNotification(ctx context.Context, n notificationdomain.CreatorNotification) error {
	f.creatorNotifications = append(f.creatorNotifications, n)
	return nil
}

func (f *fakeDispatcher) SendNotification(ctx context.Context, recipientID, title, body string) error {
	f.notifications = append(f.notifications, fmt.Sprintf("%s|%s|%s", recipientID, title, body))
	return nil
}

func (f *fakeDispatcher) SendSystemAlert(ctx context.Context, alert notificationdomain.SystemAlert) error {
	f.alerts = append(f.alerts, alert)
	return nil
}

type fakeStripeClient struct {
	charges map[string]*stripe.Charge
}

func (f *fakeStripeClient) GetCharge(ctx context.Context, chargeID string) (*stripe.Charge, error) {
	if charge, ok := f.charges[chargeID]; ok {
		return charge, nil
	}
	return nil, stripe.ErrNotConfigured
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
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_orders_payment_reference_id ON orders(payment_reference_id)`,
		`CREATE TABLE video_requests (
			id BIGINT PRIMARY KEY,
			creator_id TEXT NOT NULL,
			customer_id TEXT NOT NULL,
			status TEXT NOT NULL,
			rejection_reason TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE transactions (
			id BIGINT PRIMARY KEY,
			provider_reference_id TEXT NOT NULL,
			platform_fee BIGINT NOT NULL DEFAULT 0,
			metadata TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_transactions_provider_reference_id ON transactions(provider_reference_id)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("schema exec failed: %v", err)
		}
	}

	return db
}

type orderFixture struct {
	svc      orderdomain.Service
	db       *gorm.DB
	node     *snowflake.Node
	notifier *fakeDispatcher
	stripe   *fakeStripeClient
	clock    *clock.FakeClock
}

func newOrderFixture(t *testing.T, nodeID int64) *orderFixture {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	fakeClock := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	notifier := &fakeDispatcher{}
	stripeClient := &fakeStripeClient{charges: map[string]*stripe.Charge{}}

	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Repo:  ledgerrepo.Provide(),
	})

	svc := orderservice.NewService(orderservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     fakeClock,
		Cfg:       config.Config{SourceMarker: "ann-pale-video-request"},
		Repo:      orderrepo.Provide(),
		LedgerSvc: ledgerSvc,
		Notifier:  notifier,
		Stripe:    stripeClient,
	})

	return &orderFixture{
		svc:      svc,
		db:       db,
		node:     node,
		notifier: notifier,
		stripe:   stripeClient,
		clock:    fakeClock,
	}
}

func chargePayload(chargeID, paymentIntent string, amount int64) webhookdomain.Charge {
	return webhookdomain.Charge{
		ID:            chargeID,
		PaymentIntent: paymentIntent,
		Amount:        amount,
		Currency:      "usd",
		Metadata: map[string]string{
			"source":        "ann-pale-video-request",
			"creatorId":     "creator_1",
			"userId":        "customer_1",
			"occasion":      "birthday",
			"recipientName": "Marie",
		},
	}
}

func TestHandleChargeSucceededCreatesOrderWithSplit(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 30)

	charge := chargePayload("ch_1", "pi_1", 10000)
	if err := f.svc.HandleChargeSucceeded(ctx, &webhookdomain.Event{ID: "evt_1"}, charge); err != nil {
		t.Fatalf("charge succeeded: %v", err)
	}

	var order orderdomain.Order
	if err := f.db.Raw("SELECT * FROM orders WHERE payment_reference_id = ?", "pi_1").Scan(&order).Error; err != nil {
		t.Fatalf("scan order: %v", err)
	}
	if order.ID == 0 {
		t.Fatalf("expected order to be created")
	}
	if order.Amount != 10000 || order.CreatorEarnings != 7000 || order.PlatformFee != 3000 {
		t.Fatalf("unexpected split: amount=%d earnings=%d fee=%d", order.Amount, order.CreatorEarnings, order.PlatformFee)
	}
	if order.Status != orderdomain.OrderStatusPending {
		t.Fatalf("expected status pending, got %s", order.Status)
	}

	if len(f.notifier.creatorNotifications) != 1 {
		t.Fatalf("expected one creator notification, got %d", len(f.notifier.creatorNotifications))
	}
	body := f.notifier.creatorNotifications[0].Body
	if !strings.Contains(body, "$100.00") || !strings.Contains(body, "$70.00") {
		t.Fatalf("expected notification body to carry formatted amounts, got %q", body)
	}
}

func TestHandleChargeSucceededSkipsForeignCharges(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 31)

	charge := chargePayload("ch_2", "pi_2", 5000)
	charge.Metadata["source"] = "another-app"

	err := f.svc.HandleChargeSucceeded(ctx, &webhookdomain.Event{ID: "evt_2"}, charge)
	if !errors.Is(err, orderdomain.ErrNotOurs) {
		t.Fatalf("expected ErrNotOurs, got %v", err)
	}

	var count int64
	if err := f.db.Raw("SELECT COUNT(1) FROM orders").Scan(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no orders, got %d", count)
	}
}

func TestHandleChargeSucceededIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 32)

	charge := chargePayload("ch_3", "pi_3", 10000)
	if err := f.svc.HandleChargeSucceeded(ctx, &webhookdomain.Event{ID: "evt_3"}, charge); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := f.svc.HandleChargeSucceeded(ctx, &webhookdomain.Event{ID: "evt_3"}, charge); err != nil {
		t.Fatalf("redelivery should be acknowledged: %v", err)
	}

	var count int64
	if err := f.db.Raw("SELECT COUNT(1) FROM orders").Scan(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one order after redelivery, got %d", count)
	}
	if len(f.notifier.creatorNotifications) != 1 {
		t.Fatalf("expected one creator notification, got %d", len(f.notifier.creatorNotifications))
	}
}

func TestHandleChargeRefundedUpdatesOrderAndCancelsRequest(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 33)

	charge := chargePayload("ch_4", "pi_4", 10000)
	if err := f.svc.HandleChargeSucceeded(ctx, &webhookdomain.Event{ID: "evt_4"}, charge); err != nil {
		t.Fatalf("charge succeeded: %v", err)
	}

	videoRequestID := f.node.Generate()
	now := f.clock.Now()
	if err := f.db.Exec(
		"INSERT INTO video_requests (id, creator_id, customer_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		videoRequestID, "creator_1", "customer_1", "pending", now, now,
	).Error; err != nil {
		t.Fatalf("seed video request: %v", err)
	}
	if err := f.db.Exec(
		"UPDATE orders SET video_request_id = ? WHERE payment_reference_id = ?",
		videoRequestID, "pi_4",
	).Error; err != nil {
		t.Fatalf("link video request: %v", err)
	}

	refunded := charge
	refunded.AmountRefunded = 10000
	refunded.Refunded = true
	refunded.Refunds = webhookdomain.RefundList{Data: []webhookdomain.Refund{{
		ID:     "re_4",
		Amount: 10000,
		Status: "succeeded",
		Reason: "requested_by_customer",
		Metadata: map[string]string{
			"source": "creator_rejection",
		},
	}}}

	if err := f.svc.HandleChargeRefunded(ctx, &webhookdomain.Event{ID: "evt_5"}, refunded); err != nil {
		t.Fatalf("charge refunded: %v", err)
	}

	var status string
	if err := f.db.Raw("SELECT status FROM orders WHERE payment_reference_id = ?", "pi_4").Scan(&status).Error; err != nil {
		t.Fatalf("scan order status: %v", err)
	}
	if status != string(orderdomain.OrderStatusRefunded) {
		t.Fatalf("expected refunded status, got %s", status)
	}

	var requestStatus string
	if err := f.db.Raw("SELECT status FROM video_requests WHERE id = ?", videoRequestID).Scan(&requestStatus).Error; err != nil {
		t.Fatalf("scan request status: %v", err)
	}
	if requestStatus != string(orderdomain.VideoRequestStatusCancelled) {
		t.Fatalf("expected cancelled request, got %s", requestStatus)
	}

	var ledgerCount int64
	if err := f.db.Raw("SELECT COUNT(1) FROM transactions WHERE provider_reference_id = ?", "pi_4").Scan(&ledgerCount).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if ledgerCount != 1 {
		t.Fatalf("expected refund tracked in ledger, got %d rows", ledgerCount)
	}

	if len(f.notifier.notifications) != 1 {
		t.Fatalf("expected one customer notification, got %d", len(f.notifier.notifications))
	}
	// The refund came from a creator rejection, so the creator hears back too.
	found := false
	for _, n := range f.notifier.creatorNotifications {
		if n.Type == "rejection_completed" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected rejection_completed creator notification")
	}
}

func TestHandleChargeRefundedRecordsMostRecentRefund(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 37)

	charge := chargePayload("ch_8", "pi_8", 10000)
	if err := f.svc.HandleChargeSucceeded(ctx, &webhookdomain.Event{ID: "evt_11"}, charge); err != nil {
		t.Fatalf("charge succeeded: %v", err)
	}

	// The provider returns refunds newest first.
	refunded := charge
	refunded.AmountRefunded = 10000
	refunded.Refunded = true
	refunded.Refunds = webhookdomain.RefundList{Data: []webhookdomain.Refund{
		{ID: "re_new", Amount: 6000, Status: "succeeded", Reason: "requested_by_customer"},
		{ID: "re_old", Amount: 4000, Status: "succeeded", Reason: "duplicate"},
	}}

	if err := f.svc.HandleChargeRefunded(ctx, &webhookdomain.Event{ID: "evt_12"}, refunded); err != nil {
		t.Fatalf("charge refunded: %v", err)
	}

	var metadata string
	if err := f.db.Raw("SELECT metadata FROM orders WHERE payment_reference_id = ?", "pi_8").Scan(&metadata).Error; err != nil {
		t.Fatalf("scan order metadata: %v", err)
	}
	if !strings.Contains(metadata, `"refund_id":"re_new"`) {
		t.Fatalf("expected order metadata to carry the newest refund, got %s", metadata)
	}

	var ledgerMetadata string
	if err := f.db.Raw("SELECT metadata FROM transactions WHERE provider_reference_id = ?", "pi_8").Scan(&ledgerMetadata).Error; err != nil {
		t.Fatalf("scan ledger metadata: %v", err)
	}
	if !strings.Contains(ledgerMetadata, "refund_re_new") || !strings.Contains(ledgerMetadata, "refund_re_old") {
		t.Fatalf("expected both refunds tracked in ledger, got %s", ledgerMetadata)
	}
}

func TestHandleChargeRefundedWithoutOrderSkips(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 34)

	charge := chargePayload("ch_5", "pi_missing", 10000)
	err := f.svc.HandleChargeRefunded(ctx, &webhookdomain.Event{ID: "evt_6"}, charge)
	if !errors.Is(err, orderdomain.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestHandleDisputeCreatedMarksOrderAndAlerts(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 35)

	charge := chargePayload("ch_6", "pi_6", 10000)
	if err := f.svc.HandleChargeSucceeded(ctx, &webhookdomain.Event{ID: "evt_7"}, charge); err != nil {
		t.Fatalf("charge succeeded: %v", err)
	}

	dispute := webhookdomain.Dispute{
		ID:            "dp_1",
		Charge:        "ch_6",
		PaymentIntent: "pi_6",
		Amount:        10000,
		Currency:      "usd",
		Reason:        "fraudulent",
		Status:        "needs_response",
		Created:       f.clock.Now().Unix(),
	}
	if err := f.svc.HandleDisputeCreated(ctx, &webhookdomain.Event{ID: "evt_8"}, dispute); err != nil {
		t.Fatalf("dispute created: %v", err)
	}

	var status string
	if err := f.db.Raw("SELECT status FROM orders WHERE payment_reference_id = ?", "pi_6").Scan(&status).Error; err != nil {
		t.Fatalf("scan order status: %v", err)
	}
	if status != string(orderdomain.OrderStatusDisputed) {
		t.Fatalf("expected disputed status, got %s", status)
	}

	if len(f.notifier.alerts) != 1 || f.notifier.alerts[0].Type != "charge_disputed" {
		t.Fatalf("expected charge_disputed alert, got %+v", f.notifier.alerts)
	}
}

func TestHandleDisputeCreatedResolvesChargeWhenIntentMissing(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 36)

	charge := chargePayload("ch_7", "pi_7", 10000)
	if err := f.svc.HandleChargeSucceeded(ctx, &webhookdomain.Event{ID: "evt_9"}, charge); err != nil {
		t.Fatalf("charge succeeded: %v", err)
	}

	f.stripe.charges["ch_7"] = &stripe.Charge{
		ID:              "ch_7",
		PaymentIntentID: "pi_7",
		Amount:          10000,
		Currency:        "usd",
	}

	dispute := webhookdomain.Dispute{
		ID:      "dp_2",
		Charge:  "ch_7",
		Amount:  10000,
		Reason:  "product_not_received",
		Status:  "needs_response",
		Created: f.clock.Now().Unix(),
	}
	if err := f.svc.HandleDisputeCreated(ctx, &webhookdomain.Event{ID: "evt_10"}, dispute); err != nil {
		t.Fatalf("dispute created: %v", err)
	}

	var status string
	if err := f.db.Raw("SELECT status FROM orders WHERE payment_reference_id = ?", "pi_7").Scan(&status).Error; err != nil {
		t.Fatalf("scan order status: %v", err)
	}
	if status != string(orderdomain.OrderStatusDisputed) {
		t.Fatalf("expected disputed status, got %s", status)
	}
}
