package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/logger"
	"github.com/tempcover/backend/internal/infrastructure/printing"
	"github.com/tempcover/backend/internal/infrastructure/rendering"
	"github.com/tempcover/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// PDFRenderer renders document data into a PDF
type PDFRenderer interface {
	Render(ctx context.Context, kind policy.DocumentKind, data policy.DocumentData) ([]byte, error)
}

// InternalPDFHandler serves the internal render endpoints the fulfiller calls
type InternalPDFHandler struct {
	BaseHandler
	renderer PDFRenderer
	apiKey   string
}

// NewInternalPDFHandler creates a new InternalPDFHandler. An empty apiKey
// makes every request fail with ERR_CONFIG.
func NewInternalPDFHandler(renderer PDFRenderer, apiKey string) *InternalPDFHandler {
	return &InternalPDFHandler{renderer: renderer, apiKey: apiKey}
}

// RequireInternalKey rejects requests without the shared internal key
func (h *InternalPDFHandler) RequireInternalKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.apiKey == "" {
			h.Error(c, http.StatusInternalServerError, dto.ErrCodeConfig, "missing env var TEMPCOVER_INTERNAL_API_KEY")
			c.Abort()
			return
		}
		given := c.GetHeader(rendering.InternalKeyHeader)
		if subtle.ConstantTimeCompare([]byte(given), []byte(h.apiKey)) != 1 {
			h.Unauthorized(c, "Invalid internal key")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Render returns the handler for one document kind
//
// @Summary      Render a policy document
// @Description  Renders the certificate or proposal PDF from document data. Requires the internal API key.
// @Tags         internal
// @Accept       json
// @Produce      application/pdf
// @Param        kind              path    string               true  "Document kind"  Enums(certificate, proposal)
// @Param        X-Internal-Key    header  string               true  "Internal API key"
// @Param        request           body    policy.DocumentData  true  "Document data"
// @Success      200  {file}    binary
// @Failure      401  {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      404  {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      504  {object}  dto.Response{error=dto.ErrorInfo}
// @Router       /api/internal/pdf/{kind} [post]
func (h *InternalPDFHandler) Render(kind policy.DocumentKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var data policy.DocumentData
		if !h.BindJSON(c, &data) {
			return
		}

		pdf, err := h.renderer.Render(c.Request.Context(), kind, data)
		if err != nil {
			h.handleRenderError(c, err)
			return
		}
		c.Header("Content-Disposition", "inline; filename=\""+kind.FileName(data.PolicyNumber)+"\"")
		c.Data(http.StatusOK, "application/pdf", pdf)
	}
}

func (h *InternalPDFHandler) handleRenderError(c *gin.Context, err error) {
	logger.GetGinLogger(c).Error("PDF render failed", zap.Error(err))

	var re *printing.RenderError
	if !errors.As(err, &re) {
		h.InternalError(c, "Failed to render document")
		return
	}
	switch re.Code {
	case printing.ErrCodeUnknownKind:
		h.NotFound(c, re.Message)
	case printing.ErrCodeRenderTimeout:
		h.Error(c, http.StatusGatewayTimeout, dto.ErrCodeUpstreamTimeout, re.Message)
	default:
		h.InternalError(c, re.Message)
	}
}

// RegisterRoutes registers the render endpoints on the /api group
func (h *InternalPDFHandler) RegisterRoutes(rg *gin.RouterGroup) {
	internal := rg.Group("/internal/pdf", h.RequireInternalKey())
	for _, kind := range policy.DocumentKinds() {
		internal.POST("/"+kind.Slug(), h.Render(kind))
	}
}
