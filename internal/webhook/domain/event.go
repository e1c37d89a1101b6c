package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType is the closed set of provider event families this service
// reconciles. Anything else parses as EventUnknown and is acknowledged
// without side effects.
type EventType string

const (
	EventChargeSucceeded     EventType = "charge.succeeded"
	EventChargeFailed        EventType = "charge.failed"
	EventChargeRefunded      EventType = "charge.refunded"
	EventCheckoutCompleted   EventType = "checkout.session.completed"
	EventSubscriptionCreated EventType = "customer.subscription.created"
	EventSubscriptionUpdated EventType = "customer.subscription.updated"
	EventSubscriptionDeleted EventType = "customer.subscription.deleted"
	EventInvoiceSucceeded    EventType = "invoice.payment_succeeded"
	EventInvoiceFailed       EventType = "invoice.payment_failed"
	EventAccountUpdated      EventType = "account.updated"
	EventAccountDeauthorized EventType = "account.application.deauthorized"
	EventTransferCreated     EventType = "transfer.created"
	EventTransferUpdated     EventType = "transfer.updated"
	EventTransferReversed    EventType = "transfer.reversed"
	EventFeeCreated          EventType = "application_fee.created"
	EventFeeRefunded         EventType = "application_fee.refunded"
	EventDisputeCreated      EventType = "charge.dispute.created"
	EventUnknown             EventType = "unknown"
)

var recognizedTypes = map[string]EventType{
	string(EventChargeSucceeded):     EventChargeSucceeded,
	string(EventChargeFailed):        EventChargeFailed,
	string(EventChargeRefunded):      EventChargeRefunded,
	string(EventCheckoutCompleted):   EventCheckoutCompleted,
	string(EventSubscriptionCreated): EventSubscriptionCreated,
	string(EventSubscriptionUpdated): EventSubscriptionUpdated,
	string(EventSubscriptionDeleted): EventSubscriptionDeleted,
	string(EventInvoiceSucceeded):    EventInvoiceSucceeded,
	string(EventInvoiceFailed):       EventInvoiceFailed,
	string(EventAccountUpdated):      EventAccountUpdated,
	string(EventAccountDeauthorized): EventAccountDeauthorized,
	string(EventTransferCreated):     EventTransferCreated,
	string(EventTransferUpdated):     EventTransferUpdated,
	string(EventTransferReversed):    EventTransferReversed,
	string(EventFeeCreated):          EventFeeCreated,
	string(EventFeeRefunded):         EventFeeRefunded,
	string(EventDisputeCreated):      EventDisputeCreated,
}

// ParseEventType maps a provider type tag onto the closed union.
func ParseEventType(raw string) EventType {
	if recognized, ok := recognizedTypes[strings.TrimSpace(raw)]; ok {
		return recognized
	}
	return EventUnknown
}

// Event is the verified, immutable provider envelope. Identity is ID; the
// provider delivers at least once, so the same ID can arrive repeatedly.
type Event struct {
	ID         string
	Type       EventType
	RawType    string
	APIVersion string
	LiveMode   bool
	CreatedAt  time.Time

	// Account is set on Connect events delivered on behalf of a sub-account.
	Account string

	// Object is the event's data.object, decoded per family by the router.
	Object json.RawMessage
}
