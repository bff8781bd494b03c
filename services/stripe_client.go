package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nunocosta1921/quiz-paywall/metrics"
	"github.com/nunocosta1921/quiz-paywall/models"

	"github.com/stripe/stripe-go/v80"
	checkoutsession "github.com/stripe/stripe-go/v80/checkout/session"
	"go.uber.org/zap"
)

// CheckoutProvider is the payment provider surface the paywall relies on.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req models.SessionRequest) (*models.CheckoutSession, error)
	RetrieveSession(ctx context.Context, id string) (*models.CheckoutSession, error)
}

// StripeOptions tunes the Stripe backend. Zero values mean the live API, no
// client-side timeout and the stripe-go default transport.
type StripeOptions struct {
	APIURL     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// StripeService implements CheckoutProvider with Stripe Checkout Sessions.
type StripeService struct {
	sessions checkoutsession.Client
}

// NewStripeService builds a client bound to secretKey. It never touches the
// stripe.Key global, so several keys can coexist in one process.
func NewStripeService(secretKey string, opts StripeOptions, logger *zap.Logger) *StripeService {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     logger.Sugar(),
	}
	if opts.APIURL != "" {
		backendCfg.URL = stripe.String(opts.APIURL)
	}

	return &StripeService{
		sessions: checkoutsession.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: secretKey,
		},
	}
}

func (s *StripeService) CreateSession(ctx context.Context, req models.SessionRequest) (*models.CheckoutSession, error) {
	defer metrics.ProviderDuration("create_session").UpdateDuration(time.Now())

	sess, err := s.sessions.New(sessionParams(ctx, req))
	if err != nil {
		return nil, err
	}
	return toCheckoutSession(sess), nil
}

func (s *StripeService) RetrieveSession(ctx context.Context, id string) (*models.CheckoutSession, error) {
	defer metrics.ProviderDuration("retrieve_session").UpdateDuration(time.Now())

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.sessions.Get(id, params)
	if err != nil {
		return nil, err
	}
	return toCheckoutSession(sess), nil
}

func sessionParams(ctx context.Context, req models.SessionRequest) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(req.PriceID),
				Quantity: stripe.Int64(req.Quantity),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
	}
	if len(req.PaymentMethodTypes) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(req.PaymentMethodTypes)
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	return params
}

func toCheckoutSession(sess *stripe.CheckoutSession) *models.CheckoutSession {
	return &models.CheckoutSession{
		ID:            sess.ID,
		URL:           sess.URL,
		PaymentStatus: string(sess.PaymentStatus),
		Metadata:      sess.Metadata,
	}
}

// ProviderErrorFields extracts the Stripe diagnostics worth logging from err.
// Non-Stripe errors (network, context) yield only the error itself.
func ProviderErrorFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		fields = append(fields,
			zap.String("stripe_type", string(stripeErr.Type)),
			zap.String("stripe_code", string(stripeErr.Code)),
			zap.String("stripe_param", stripeErr.Param),
			zap.String("stripe_request_id", stripeErr.RequestID),
			zap.Int("stripe_http_status", stripeErr.HTTPStatusCode),
		)
	}
	return fields
}
