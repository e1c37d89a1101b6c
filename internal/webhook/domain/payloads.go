package domain

// Typed payload shapes for each recognized event family. Fields mirror the
// provider's wire format; minor-unit integers stay int64 until a reconciler
// converts them.

type Charge struct {
	ID             string            `json:"id"`
	PaymentIntent  string            `json:"payment_intent"`
	Amount         int64             `json:"amount"`
	AmountRefunded int64             `json:"amount_refunded"`
	Currency       string            `json:"currency"`
	Created        int64             `json:"created"`
	Refunded       bool              `json:"refunded"`
	FailureCode    string            `json:"failure_code"`
	FailureMessage string            `json:"failure_message"`
	Metadata       map[string]string `json:"metadata"`
	Refunds        RefundList        `json:"refunds"`
}

type RefundList struct {
	Data []Refund `json:"data"`
}

type Refund struct {
	ID            string            `json:"id"`
	Amount        int64             `json:"amount"`
	Status        string            `json:"status"`
	Reason        string            `json:"reason"`
	Created       int64             `json:"created"`
	FailureReason string            `json:"failure_reason"`
	Metadata      map[string]string `json:"metadata"`
}

type CheckoutSession struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	AmountTotal  int64             `json:"amount_total"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

type Subscription struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	Metadata           map[string]string `json:"metadata"`
}

type Invoice struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	AmountPaid   int64  `json:"amount_paid"`
	AmountDue    int64  `json:"amount_due"`
	Currency     string `json:"currency"`
	Created      int64  `json:"created"`
}

type Account struct {
	ID               string              `json:"id"`
	ChargesEnabled   bool                `json:"charges_enabled"`
	PayoutsEnabled   bool                `json:"payouts_enabled"`
	DetailsSubmitted bool                `json:"details_submitted"`
	Requirements     AccountRequirements `json:"requirements"`
}

type AccountRequirements struct {
	CurrentlyDue  []string `json:"currently_due"`
	EventuallyDue []string `json:"eventually_due"`
	PastDue       []string `json:"past_due"`
}

type Transfer struct {
	ID                string `json:"id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Destination       string `json:"destination"`
	SourceTransaction string `json:"source_transaction"`
	Reversed          bool   `json:"reversed"`
	Created           int64  `json:"created"`
}

type ApplicationFee struct {
	ID             string `json:"id"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
	Currency       string `json:"currency"`
	Charge         string `json:"charge"`
	Refunded       bool   `json:"refunded"`
	Created        int64  `json:"created"`
}

type Dispute struct {
	ID              string          `json:"id"`
	Charge          string          `json:"charge"`
	PaymentIntent   string          `json:"payment_intent"`
	Amount          int64           `json:"amount"`
	Currency        string          `json:"currency"`
	Reason          string          `json:"reason"`
	Status          string          `json:"status"`
	Created         int64           `json:"created"`
	EvidenceDetails EvidenceDetails `json:"evidence_details"`
}

type EvidenceDetails struct {
	DueBy int64 `json:"due_by"`
}
