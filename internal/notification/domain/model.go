package domain

import "context"

// Severity levels for system alerts.
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityWarning  = "warning"
)

// CreatorNotification is the structured payload announcing marketplace
// activity to a creator (new order, new subscriber, rejection completed).
type CreatorNotification struct {
	CreatorID string
	Type      string
	Title     string
	Body      string
	Data      map[string]any
}

// SystemAlert escalates a reconciliation failure to operators.
type SystemAlert struct {
	Type     string
	Severity string
	Data     map[string]any
}

// Dispatcher fans notifications out to their delivery channels. Failures are
// the caller's to log; they never abort reconciliation.
type Dispatcher interface {
	SendCreatorNotification(ctx context.Context, n CreatorNotification) error
	SendNotification(ctx context.Context, recipientID, title, body string) error
	SendSystemAlert(ctx context.Context, alert SystemAlert) error
}
