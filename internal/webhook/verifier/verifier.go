package verifier

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/annpale/payments/internal/config"
	webhookdomain "github.com/annpale/payments/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const signatureHeader = "Stripe-Signature"

type Params struct {
	fx.In

	Log *zap.Logger
	Cfg config.Config
}

type Verifier struct {
	log    *zap.Logger
	secret string
}

func New(p Params) webhookdomain.Verifier {
	v := &Verifier{
		log:    p.Log.Named("webhook.verifier"),
		secret: strings.TrimSpace(p.Cfg.StripeWebhookSecret),
	}
	if v.secret == "" {
		v.log.Warn("webhook secret not configured, signature verification disabled; unsafe outside development")
	}
	return v
}

func (v *Verifier) VerifyAndParse(payload []byte, headers http.Header) (*webhookdomain.Event, error) {
	// The header is required even when verification is disabled.
	sigHeader := strings.TrimSpace(headers.Get(signatureHeader))
	if sigHeader == "" {
		return nil, webhookdomain.ErrMissingSignature
	}
	if v.secret != "" {
		if err := v.verify(payload, sigHeader); err != nil {
			return nil, err
		}
	}
	return parseEvent(payload)
}

func (v *Verifier) verify(payload []byte, sigHeader string) error {
	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return webhookdomain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(v.secret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return webhookdomain.ErrInvalidSignature
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

type wireEvent struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	APIVersion string        `json:"api_version"`
	LiveMode   bool          `json:"livemode"`
	Created    int64         `json:"created"`
	Account    string        `json:"account"`
	Data       wireEventData `json:"data"`
}

type wireEventData struct {
	Object json.RawMessage `json:"object"`
}

func parseEvent(payload []byte) (*webhookdomain.Event, error) {
	if !json.Valid(payload) {
		return nil, webhookdomain.ErrInvalidPayload
	}

	var event wireEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, webhookdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, webhookdomain.ErrInvalidEvent
	}

	createdAt := time.Now().UTC()
	if event.Created > 0 {
		createdAt = time.Unix(event.Created, 0).UTC()
	}

	rawType := strings.TrimSpace(event.Type)
	return &webhookdomain.Event{
		ID:         event.ID,
		Type:       webhookdomain.ParseEventType(rawType),
		RawType:    rawType,
		APIVersion: event.APIVersion,
		LiveMode:   event.LiveMode,
		CreatedAt:  createdAt,
		Account:    strings.TrimSpace(event.Account),
		Object:     event.Data.Object,
	}, nil
}
