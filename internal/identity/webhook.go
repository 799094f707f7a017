package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	svix "github.com/svix/svix-webhooks/go"
)

// Lifecycle event types the sync bridge acts on.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Signature headers set by the provider on every delivery.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

var (
	ErrMissingHeaders   = errors.New("identity: missing signature headers")
	ErrInvalidSignature = errors.New("identity: invalid signature")
	ErrMalformedEvent   = errors.New("identity: malformed event payload")
)

// Event is a verified lifecycle event. Data keeps the raw object so each
// event type can decode what it needs.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// User decodes Data as an account object.
func (e *Event) User() (*ProviderUser, error) {
	var u ProviderUser
	if len(e.Data) == 0 {
		return &u, nil
	}
	if err := json.Unmarshal(e.Data, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return &u, nil
}

// Verifier checks webhook signatures with the shared signing secret.
type Verifier struct {
	wh *svix.Webhook
}

// NewVerifier expects the secret in the provider's "whsec_<base64>" form.
func NewVerifier(secret string) (*Verifier, error) {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("identity: creating webhook verifier: %w", err)
	}
	return &Verifier{wh: wh}, nil
}

// Verify authenticates payload against the three signature headers and
// decodes it. The payload must be the raw request body, byte for byte.
func (v *Verifier) Verify(payload []byte, h http.Header) (*Event, error) {
	if h.Get(HeaderID) == "" || h.Get(HeaderTimestamp) == "" || h.Get(HeaderSignature) == "" {
		return nil, ErrMissingHeaders
	}
	if err := v.wh.Verify(payload, h); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return &evt, nil
}
