package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/nunocosta1921/quiz-paywall/config"
	"github.com/nunocosta1921/quiz-paywall/controllers"
	"github.com/nunocosta1921/quiz-paywall/models"
	"github.com/nunocosta1921/quiz-paywall/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type nopProvider struct{}

func (nopProvider) CreateSession(context.Context, models.SessionRequest) (*models.CheckoutSession, error) {
	return &models.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/c/pay/cs_test_1"}, nil
}

func (nopProvider) RetrieveSession(context.Context, string) (*models.CheckoutSession, error) {
	return &models.CheckoutSession{ID: "cs_test_1", PaymentStatus: "unpaid"}, nil
}

func setupRouter(t *testing.T, limiter gin.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{BaseURL: "http://localhost:4242", StripeSecretKey: "sk_test_123", PriceID: "price_eur_1"}
	pc := controllers.NewPaywallController(services.NewPaywallService(nopProvider{}, cfg, nil, nil, zap.NewNop()), zap.NewNop())

	RegisterOpsRoutes(r, "quiz-paywall")
	RegisterPaywallRoutes(r, pc, limiter)
	return r
}

func TestPaywallRoutes(t *testing.T) {
	limited := 0
	r := setupRouter(t, func(c *gin.Context) {
		limited++
		c.Next()
	})

	req := httptest.NewRequest(http.MethodGet, "/verify?session_id=cs_test_1&token=abc123", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
	assert.Zero(t, limited, "verify is not rate limited")

	req = httptest.NewRequest(http.MethodPost, "/create-checkout-session", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, limited)
}

func TestOpsRoutes(t *testing.T) {
	r := setupRouter(t, func(c *gin.Context) { c.Next() })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"quiz-paywall"}`, w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "paywall_verifications_total")
}

func TestStaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "success.html"), []byte("<h1>paid</h1>"), 0o644))
	r := setupRouter(t, func(c *gin.Context) { c.Next() })
	require.True(t, RegisterStaticFiles(r, dir))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/success.html?session_id=cs_test_1&token=abc123", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "paid")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/success.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStaticFiles_MissingDir(t *testing.T) {
	r := gin.New()
	assert.False(t, RegisterStaticFiles(r, filepath.Join(t.TempDir(), "nope")))
}
