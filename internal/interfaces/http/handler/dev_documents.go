package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tempcover/backend/internal/interfaces/http/dto"
)

// DevDocumentsPath is where in-memory documents are served during local development
const DevDocumentsPath = "/dev/documents"

// DocumentReader returns stored objects by key
type DocumentReader interface {
	Get(key string) ([]byte, string, bool)
}

// DevDocumentHandler serves the links handed out by the in-memory document
// store so emails and the retrieval page work without object storage.
type DevDocumentHandler struct {
	BaseHandler
	reader DocumentReader
	now    func() time.Time
}

// NewDevDocumentHandler creates a new DevDocumentHandler
func NewDevDocumentHandler(reader DocumentReader) *DevDocumentHandler {
	return &DevDocumentHandler{reader: reader, now: time.Now}
}

// Download godoc
// @Summary      Download a development document
// @Description  Serves a document kept by the in-memory store. Mounted only when object storage is not configured.
// @Tags         development
// @Produce      application/pdf
// @Param        key      path   string  true  "Storage key"
// @Param        expires  query  string  true  "Link expiry (RFC 3339)"
// @Success      200  {file}    binary
// @Failure      403  {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      404  {object}  dto.Response{error=dto.ErrorInfo}
// @Router       /dev/documents/{key} [get]
func (h *DevDocumentHandler) Download(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")

	expiresAt, err := time.Parse(time.RFC3339, c.Query("expires"))
	if err != nil || !h.now().Before(expiresAt) {
		h.Error(c, http.StatusForbidden, dto.ErrCodeLinkExpired, "Link has expired")
		return
	}

	data, contentType, ok := h.reader.Get(key)
	if !ok {
		h.NotFound(c, "Document not found")
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

// RegisterRoutes registers the download route on the engine root
func (h *DevDocumentHandler) RegisterRoutes(r gin.IRouter) {
	r.GET(DevDocumentsPath+"/*key", h.Download)
}
