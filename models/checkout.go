package models

import (
	"encoding/json"
	"time"
)

// Metadata keys stored on the checkout session.
const (
	MetadataQuizToken = "quizToken"
	MetadataScore     = "score"
)

// PaymentStatusPaid is the provider status of a settled session.
const PaymentStatusPaid = "paid"

// CheckoutRequest is the body of POST /create-checkout-session. Score is kept
// raw so that a quoted number is rejected rather than coerced.
type CheckoutRequest struct {
	QuizToken string          `json:"quizToken" validate:"required"`
	Score     json.RawMessage `json:"score" validate:"required"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

// VerifyResponse is the body of a successful GET /verify. Score is null when
// the session metadata holds no numeric score.
type VerifyResponse struct {
	OK    bool         `json:"ok"`
	Score *json.Number `json:"score"`
}

// SessionRequest describes the one-time checkout session to open at the
// payment provider.
type SessionRequest struct {
	PriceID            string
	Quantity           int64
	PaymentMethodTypes []string
	SuccessURL         string
	CancelURL          string
	Metadata           map[string]string
}

// CheckoutSession is the provider-held session state we read back.
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	Metadata      map[string]string
}

// PaywallEvent is published to SNS when a session is opened or a score is
// released.
type PaywallEvent struct {
	Type      string       `json:"type"` // "checkout_session_created" or "score_unlocked"
	SessionID string       `json:"session_id"`
	QuizToken string       `json:"quiz_token"`
	Score     *json.Number `json:"score,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

const (
	EventCheckoutSessionCreated = "checkout_session_created"
	EventScoreUnlocked          = "score_unlocked"
)
