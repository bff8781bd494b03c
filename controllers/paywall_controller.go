package controllers

import (
	"net/http"

	apperrors "github.com/nunocosta1921/quiz-paywall/errors"
	"github.com/nunocosta1921/quiz-paywall/logger"
	"github.com/nunocosta1921/quiz-paywall/models"
	"github.com/nunocosta1921/quiz-paywall/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaywallController struct {
	Service services.PaywallService
	Logger  *zap.Logger
}

func NewPaywallController(svc services.PaywallService, logger *zap.Logger) *PaywallController {
	return &PaywallController{Service: svc, Logger: logger}
}

// CreateCheckoutSession opens a checkout session for a quiz result and
// returns the hosted payment page URL.
func (pc *PaywallController) CreateCheckoutSession(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		pc.respondError(c, apperrors.Validation("invalid request body"), err)
		return
	}

	resp, err := pc.Service.CreateCheckoutSession(c.Request.Context(), req)
	if err != nil {
		pc.respondError(c, err, nil)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Verify reports whether a checkout session was paid by the holder of token.
func (pc *PaywallController) Verify(c *gin.Context) {
	resp, err := pc.Service.VerifySession(c.Request.Context(), c.Query("session_id"), c.Query("token"))
	if err != nil {
		appErr := apperrors.From(err)
		pc.log(c, appErr, nil)
		c.JSON(appErr.Code, gin.H{"ok": false, "error": appErr.Message})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// respondError writes {"error": msg} with the status carried by err.
func (pc *PaywallController) respondError(c *gin.Context, err error, cause error) {
	appErr := apperrors.From(err)
	pc.log(c, appErr, cause)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message})
}

func (pc *PaywallController) log(c *gin.Context, appErr *apperrors.Error, cause error) {
	if cause == nil {
		cause = appErr.Err
	}
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("kind", string(appErr.Kind)),
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}

	l := logger.ForRequest(c, pc.Logger)
	if appErr.Code >= http.StatusInternalServerError {
		l.Error(appErr.Message, fields...)
		return
	}
	l.Warn(appErr.Message, fields...)
}
