package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	apppolicy "github.com/tempcover/backend/internal/application/policy"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/domain/shared"
	"github.com/tempcover/backend/internal/infrastructure/billing"
	"github.com/tempcover/backend/internal/infrastructure/config"
	"github.com/tempcover/backend/internal/infrastructure/logger"
	"github.com/tempcover/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// MaxWebhookBodySize bounds the raw webhook payload
const MaxWebhookBodySize int64 = 64 << 10

// StripeSignatureHeader carries the webhook signature
const StripeSignatureHeader = "Stripe-Signature"

// CheckoutWebhookService processes verified checkout deliveries
type CheckoutWebhookService interface {
	HandleCheckout(ctx context.Context, payload []byte, signature string) (*apppolicy.WebhookResult, error)
}

// WebhookHandler receives payment provider webhooks
type WebhookHandler struct {
	BaseHandler
	service CheckoutWebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(service CheckoutWebhookService) *WebhookHandler {
	return &WebhookHandler{service: service}
}

// HandleStripe godoc
// @Summary      Stripe checkout webhook
// @Description  Verifies the Stripe-Signature header against the raw body, finalizes the paid quote as a policy and sends its documents.
// @Tags         webhooks
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature  header  string  true  "Stripe webhook signature"
// @Success      200  {object}  dto.Response{data=apppolicy.WebhookResult}
// @Failure      400  {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      409  {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      413  {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      500  {object}  dto.Response{error=dto.ErrorInfo}
// @Router       /api/webhooks/stripe [post]
//
// The raw body is read untouched because the signature covers its exact bytes.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Webhook payload too large")
			return
		}
		h.BadRequest(c, "Failed to read request body")
		return
	}

	result, err := h.service.HandleCheckout(c.Request.Context(), payload, c.GetHeader(StripeSignatureHeader))
	if err != nil {
		h.handleWebhookError(c, err)
		return
	}

	log := logger.GetGinLogger(c)
	switch {
	case result.Ignored, result.Duplicate:
		log.Debug("Webhook acknowledged without work",
			zap.String("event_id", result.EventID),
			zap.Bool("duplicate", result.Duplicate))
	case result.FulfillmentError != "":
		log.Warn("Webhook processed with fulfillment failure",
			zap.String("policy_number", result.PolicyNumber),
			zap.String("error", result.FulfillmentError))
	}
	h.Success(c, result)
}

func (h *WebhookHandler) handleWebhookError(c *gin.Context, err error) {
	var missingMeta *billing.MissingMetadataError
	switch {
	case config.IsMissingEnv(err):
		h.HandleError(c, err)
	case errors.Is(err, billing.ErrMissingSignature):
		h.BadRequest(c, err.Error())
	case errors.Is(err, billing.ErrInvalidSignature):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidSignature, "Invalid webhook signature")
	case errors.As(err, &missingMeta):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, err.Error())
	case errors.Is(err, shared.ErrValidation), errors.Is(err, policy.ErrDeliveryInProgress):
		h.HandleError(c, err)
	default:
		logger.GetGinLogger(c).Error("Webhook processing failed", zap.Error(err))
		h.InternalError(c, "Failed to process webhook")
	}
}

// RegisterRoutes registers webhook routes on the /api group
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.HandleStripe)
}
