package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret names looked up in AWS Secrets Manager when AWS_USE_SECRETS=true.
const (
	SecretStripeKey = "quiz-paywall/STRIPE_SECRET_KEY"
	SecretPriceID   = "quiz-paywall/PRICE_EUR_1"
)

// Config holds all configuration for the paywall service. It is loaded once
// at startup and never mutated by request handlers.
type Config struct {
	Env                string
	ServiceName        string
	Port               string
	BaseURL            string
	PublicDir          string
	StripeSecretKey    string
	PriceID            string
	PaymentMethodTypes []string
	StripeAPIURL       string        // empty means the real Stripe API
	StripeTimeout      time.Duration // zero means no client-side timeout
	AllowedOrigins     []string
	EventsTopicARN     string
	UseSecrets         bool
	CloudWatchEnabled  bool
	MetricsPushURL     string
	RateLimitPerMinute int
	RateLimitBurst     int
}

// SecretGetter is satisfied by aws.SecretsClient.
type SecretGetter interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// LoadConfig reads configuration from environment variables. Missing Stripe
// settings are not an error here: see Warnings.
func LoadConfig() *Config {
	port := getEnv("PORT", "4242")
	cfg := &Config{
		Env:                getEnv("APP_ENV", "development"),
		ServiceName:        getEnv("SERVICE_NAME", "quiz-paywall"),
		Port:               port,
		BaseURL:            strings.TrimSuffix(getEnv("BASE_URL", "http://localhost:"+port), "/"),
		PublicDir:          getEnv("PUBLIC_DIR", "public"),
		StripeSecretKey:    os.Getenv("STRIPE_SECRET_KEY"),
		PriceID:            os.Getenv("PRICE_EUR_1"),
		PaymentMethodTypes: splitList(getEnv("PAYMENT_METHOD_TYPES", "card,mbway")),
		StripeAPIURL:       os.Getenv("STRIPE_API_URL"),
		StripeTimeout:      getDuration("STRIPE_TIMEOUT", 0),
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
		EventsTopicARN:     os.Getenv("PAYWALL_SNS_TOPIC_ARN"),
		UseSecrets:         os.Getenv("AWS_USE_SECRETS") == "true",
		CloudWatchEnabled:  os.Getenv("CLOUDWATCH_ENABLED") == "true",
		MetricsPushURL:     os.Getenv("METRICS_PUSH_URL"),
		RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 30),
		RateLimitBurst:     getInt("RATE_LIMIT_BURST", 10),
	}
	return cfg
}

// ApplySecrets overrides the Stripe settings with values from the secret
// store. Lookup failures keep the environment values and are returned joined
// so the caller can log them.
func (c *Config) ApplySecrets(ctx context.Context, sm SecretGetter) error {
	var failed []string
	if v, err := sm.GetSecret(ctx, SecretStripeKey); err != nil {
		failed = append(failed, err.Error())
	} else if v != "" {
		c.StripeSecretKey = v
	}
	if v, err := sm.GetSecret(ctx, SecretPriceID); err != nil {
		failed = append(failed, err.Error())
	} else if v != "" {
		c.PriceID = v
	}
	if len(failed) > 0 {
		return fmt.Errorf("secrets lookup: %s", strings.Join(failed, "; "))
	}
	return nil
}

// Warnings lists the required settings that are absent. The service still
// starts; the affected endpoints fail per request.
func (c *Config) Warnings() []string {
	var w []string
	if c.StripeSecretKey == "" {
		w = append(w, "STRIPE_SECRET_KEY is not set")
	}
	if c.PriceID == "" {
		w = append(w, "PRICE_EUR_1 is not set")
	}
	return w
}

// SuccessURL is the redirect after a completed payment. The session id
// placeholder is substituted by Stripe, not by us.
func (c *Config) SuccessURL(quizToken string) string {
	token := strings.ReplaceAll(url.QueryEscape(quizToken), "+", "%20")
	return c.BaseURL + "/success.html?session_id={CHECKOUT_SESSION_ID}&token=" + token
}

func (c *Config) CancelURL() string {
	return c.BaseURL + "/cancel.html"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d >= 0 {
		return d
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
