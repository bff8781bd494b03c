package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/nunocosta1921/quiz-paywall/config"
	apperrors "github.com/nunocosta1921/quiz-paywall/errors"
	"github.com/nunocosta1921/quiz-paywall/metrics"
	"github.com/nunocosta1921/quiz-paywall/models"
	aws_pkg "github.com/nunocosta1921/quiz-paywall/pkg/aws"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// PaywallService gates a quiz score behind a one-time checkout.
type PaywallService interface {
	CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error)
	VerifySession(ctx context.Context, sessionID, token string) (*models.VerifyResponse, error)
}

// CountRecorder is satisfied by aws.MetricsClient.
type CountRecorder interface {
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
}

type paywallServiceImpl struct {
	provider     CheckoutProvider
	cfg          *config.Config
	snsClient    aws_pkg.SNSPublisher
	cloudMetrics CountRecorder
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewPaywallService wires the paywall. snsClient and cloudMetrics may be nil.
func NewPaywallService(
	provider CheckoutProvider,
	cfg *config.Config,
	snsClient aws_pkg.SNSPublisher,
	cloudMetrics CountRecorder,
	logger *zap.Logger,
) PaywallService {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &paywallServiceImpl{
		provider:     provider,
		cfg:          cfg,
		snsClient:    snsClient,
		cloudMetrics: cloudMetrics,
		validate:     v,
		logger:       logger,
	}
}

// CreateCheckoutSession validates the quiz result and opens a checkout session
// for the configured price. Every accepted call opens a new session.
func (s *paywallServiceImpl) CreateCheckoutSession(ctx context.Context, req models.CheckoutRequest) (*models.CheckoutResponse, error) {
	score, err := s.validateCheckout(req)
	if err != nil {
		metrics.CheckoutInvalid.Inc()
		return nil, err
	}

	if s.cfg.PriceID == "" {
		metrics.CheckoutMisconfigured.Inc()
		return nil, apperrors.Configuration("PRICE_EUR_1")
	}
	if s.cfg.StripeSecretKey == "" {
		metrics.CheckoutMisconfigured.Inc()
		return nil, apperrors.Configuration("STRIPE_SECRET_KEY")
	}

	sess, err := s.provider.CreateSession(ctx, models.SessionRequest{
		PriceID:            s.cfg.PriceID,
		Quantity:           1,
		PaymentMethodTypes: s.cfg.PaymentMethodTypes,
		SuccessURL:         s.cfg.SuccessURL(req.QuizToken),
		CancelURL:          s.cfg.CancelURL(),
		Metadata: map[string]string{
			models.MetadataQuizToken: req.QuizToken,
			models.MetadataScore:     score.String(),
		},
	})
	if err != nil {
		metrics.CheckoutProviderError.Inc()
		s.recordCount(ctx, aws_pkg.MetricCheckoutSessionsFailed)
		s.logger.Error("Stripe checkout session creation failed",
			append(ProviderErrorFields(err), zap.String("price_id", s.cfg.PriceID))...)
		return nil, apperrors.Provider("failed to create checkout session", err)
	}

	metrics.CheckoutCreated.Inc()
	s.recordCount(ctx, aws_pkg.MetricCheckoutSessionsCreated)
	s.logger.Info("Checkout session created",
		zap.String("session_id", sess.ID),
		zap.String("score", score.String()),
	)
	s.publishEvent(ctx, models.PaywallEvent{
		Type:      models.EventCheckoutSessionCreated,
		SessionID: sess.ID,
		QuizToken: req.QuizToken,
		Score:     &score,
		Timestamp: time.Now().UTC(),
	})

	return &models.CheckoutResponse{URL: sess.URL}, nil
}

// VerifySession reports whether the session is paid and belongs to token.
// The stored score is echoed whenever it parses, even when ok is false.
func (s *paywallServiceImpl) VerifySession(ctx context.Context, sessionID, token string) (*models.VerifyResponse, error) {
	if sessionID == "" {
		metrics.VerifyInvalid.Inc()
		return nil, apperrors.Validation("missing session_id")
	}
	if token == "" {
		metrics.VerifyInvalid.Inc()
		return nil, apperrors.Validation("missing token")
	}
	if s.cfg.StripeSecretKey == "" {
		return nil, apperrors.Configuration("STRIPE_SECRET_KEY")
	}

	sess, err := s.provider.RetrieveSession(ctx, sessionID)
	if err != nil {
		metrics.VerifyProviderError.Inc()
		s.recordCount(ctx, aws_pkg.MetricProviderErrors)
		s.logger.Error("Stripe checkout session lookup failed",
			append(ProviderErrorFields(err), zap.String("session_id", sessionID))...)
		return nil, apperrors.Provider("failed to verify checkout session", err)
	}

	paid := sess.PaymentStatus == models.PaymentStatusPaid
	tokenMatches := sess.Metadata[models.MetadataQuizToken] == token
	resp := &models.VerifyResponse{
		OK:    paid && tokenMatches,
		Score: scoreFromMetadata(sess.Metadata),
	}

	switch {
	case resp.OK:
		metrics.VerifyUnlocked.Inc()
		s.recordCount(ctx, aws_pkg.MetricScoresUnlocked)
		s.logger.Info("Score unlocked", zap.String("session_id", sess.ID))
		s.publishEvent(ctx, models.PaywallEvent{
			Type:      models.EventScoreUnlocked,
			SessionID: sess.ID,
			QuizToken: token,
			Score:     resp.Score,
			Timestamp: time.Now().UTC(),
		})
	case !paid:
		metrics.VerifyUnpaid.Inc()
		s.recordCount(ctx, aws_pkg.MetricVerificationsRejected)
		s.logger.Info("Verification rejected: session not paid",
			zap.String("session_id", sessionID),
			zap.String("payment_status", sess.PaymentStatus),
			zap.Bool("token_matches", tokenMatches),
		)
	default:
		metrics.VerifyTokenMismatch.Inc()
		s.recordCount(ctx, aws_pkg.MetricVerificationsRejected)
		s.logger.Warn("Verification rejected: token mismatch", zap.String("session_id", sessionID))
	}

	return resp, nil
}

func (s *paywallServiceImpl) validateCheckout(req models.CheckoutRequest) (json.Number, error) {
	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return "", apperrors.Validation("missing " + verrs[0].Field())
		}
		return "", apperrors.Validation(err.Error())
	}

	score, ok := parseNumber(req.Score)
	if !ok {
		return "", apperrors.Validation("score must be a number")
	}
	return score, nil
}

// parseNumber accepts exactly one bare JSON number and returns its literal
// text. Quoted numbers, null and other JSON types are rejected.
func parseNumber(raw []byte) (json.Number, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	if dec.More() {
		return "", false
	}
	n, ok := v.(json.Number)
	return n, ok
}

// scoreFromMetadata returns the stored score as a JSON number, or nil when
// it is absent or not numeric.
func scoreFromMetadata(md map[string]string) *json.Number {
	raw := strings.TrimSpace(md[models.MetadataScore])
	if raw == "" {
		return nil
	}
	n, ok := parseNumber([]byte(raw))
	if !ok {
		return nil
	}
	return &n
}

func (s *paywallServiceImpl) recordCount(ctx context.Context, metric string) {
	if s.cloudMetrics == nil {
		return
	}
	if err := s.cloudMetrics.RecordCount(ctx, metric, map[string]string{"Service": s.cfg.ServiceName}); err != nil {
		s.logger.Warn("Failed to record CloudWatch metric", zap.String("metric", metric), zap.Error(err))
	}
}

func (s *paywallServiceImpl) publishEvent(ctx context.Context, event models.PaywallEvent) {
	if s.snsClient == nil || s.cfg.EventsTopicARN == "" {
		return
	}
	payload, _ := json.Marshal(event)
	if err := s.snsClient.Publish(ctx, s.cfg.EventsTopicARN, event.Type, payload); err != nil {
		s.logger.Error("Failed to publish paywall event to SNS",
			zap.String("event_type", event.Type),
			zap.String("session_id", event.SessionID),
			zap.Error(err),
		)
	}
}
