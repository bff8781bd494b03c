package services

import (
	"context"
	"errors"
	"testing"

	"github.com/nunocosta1921/quiz-paywall/models"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"go.uber.org/zap"
)

const stripeAPI = "https://api.stripe.com"

func newTestStripeService() *StripeService {
	return NewStripeService("sk_test_123", StripeOptions{}, zap.NewNop())
}

func TestStripeService_CreateSession(t *testing.T) {
	defer gock.Off()
	gock.New(stripeAPI).
		Post("/v1/checkout/sessions").
		MatchHeader("Authorization", "Bearer sk_test_123").
		Reply(200).
		JSON(map[string]interface{}{
			"id":             "cs_test_1",
			"object":         "checkout.session",
			"url":            "https://checkout.stripe.com/c/pay/cs_test_1",
			"payment_status": "unpaid",
			"metadata":       map[string]string{"quizToken": "abc123", "score": "7"},
		})

	sess, err := newTestStripeService().CreateSession(context.Background(), models.SessionRequest{
		PriceID:    "price_eur_1",
		Quantity:   1,
		SuccessURL: "http://localhost:4242/success.html?session_id={CHECKOUT_SESSION_ID}&token=abc123",
		CancelURL:  "http://localhost:4242/cancel.html",
		Metadata:   map[string]string{"quizToken": "abc123", "score": "7"},
	})

	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", sess.URL)
	assert.Equal(t, "unpaid", sess.PaymentStatus)
	assert.True(t, gock.IsDone())
}

func TestStripeService_CreateSessionError(t *testing.T) {
	defer gock.Off()
	gock.New(stripeAPI).
		Post("/v1/checkout/sessions").
		Reply(400).
		SetHeader("Request-Id", "req_123").
		JSON(map[string]interface{}{
			"error": map[string]string{
				"type":    "invalid_request_error",
				"code":    "resource_missing",
				"param":   "line_items[0][price]",
				"message": "No such price: 'price_missing'",
			},
		})

	_, err := newTestStripeService().CreateSession(context.Background(), models.SessionRequest{
		PriceID:  "price_missing",
		Quantity: 1,
	})

	require.Error(t, err)
	var stripeErr *stripe.Error
	require.True(t, errors.As(err, &stripeErr))
	assert.Equal(t, stripe.ErrorTypeInvalidRequest, stripeErr.Type)
	assert.Equal(t, 400, stripeErr.HTTPStatusCode)

	fields := ProviderErrorFields(err)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Contains(t, keys, "stripe_code")
	assert.Contains(t, keys, "stripe_param")
	assert.Contains(t, keys, "stripe_request_id")
}

func TestStripeService_RetrieveSession(t *testing.T) {
	defer gock.Off()
	gock.New(stripeAPI).
		Get("/v1/checkout/sessions/cs_test_1").
		MatchHeader("Authorization", "Bearer sk_test_123").
		Reply(200).
		JSON(map[string]interface{}{
			"id":             "cs_test_1",
			"object":         "checkout.session",
			"payment_status": "paid",
			"metadata":       map[string]string{"quizToken": "abc123", "score": "7"},
		})

	sess, err := newTestStripeService().RetrieveSession(context.Background(), "cs_test_1")

	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, sess.PaymentStatus)
	assert.Equal(t, "abc123", sess.Metadata[models.MetadataQuizToken])
	assert.Equal(t, "7", sess.Metadata[models.MetadataScore])
	assert.True(t, gock.IsDone())
}

func TestSessionParams(t *testing.T) {
	ctx := context.Background()
	params := sessionParams(ctx, models.SessionRequest{
		PriceID:            "price_eur_1",
		Quantity:           1,
		PaymentMethodTypes: []string{"card", "mbway"},
		SuccessURL:         "https://paywall.example.com/success.html",
		CancelURL:          "https://paywall.example.com/cancel.html",
		Metadata:           map[string]string{"quizToken": "abc123", "score": "7"},
	})

	assert.Equal(t, "payment", *params.Mode)
	require.Len(t, params.LineItems, 1)
	assert.Equal(t, "price_eur_1", *params.LineItems[0].Price)
	assert.Equal(t, int64(1), *params.LineItems[0].Quantity)
	assert.Equal(t, []string{"card", "mbway"}, stripe.StringValueSlice(params.PaymentMethodTypes))
	assert.Equal(t, "https://paywall.example.com/success.html", *params.SuccessURL)
	assert.Equal(t, "https://paywall.example.com/cancel.html", *params.CancelURL)
	assert.Equal(t, map[string]string{"quizToken": "abc123", "score": "7"}, params.Metadata)
	assert.Equal(t, ctx, params.Context)
}

func TestSessionParams_DefaultPaymentMethods(t *testing.T) {
	params := sessionParams(context.Background(), models.SessionRequest{PriceID: "price_eur_1", Quantity: 1})

	assert.Nil(t, params.PaymentMethodTypes)
	assert.Empty(t, params.Metadata)
}

func TestProviderErrorFields_PlainError(t *testing.T) {
	fields := ProviderErrorFields(errors.New("dial tcp: connection refused"))

	require.Len(t, fields, 1)
	assert.Equal(t, "error", fields[0].Key)
}
