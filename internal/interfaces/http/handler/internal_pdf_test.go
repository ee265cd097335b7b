package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/infrastructure/printing"
	"github.com/tempcover/backend/internal/infrastructure/rendering"
	"github.com/tempcover/backend/internal/interfaces/http/dto"
)

const internalKey = "internal-test-key"

// MockPDFRenderer is a mock implementation of PDFRenderer
type MockPDFRenderer struct {
	mock.Mock
}

func (m *MockPDFRenderer) Render(ctx context.Context, kind policy.DocumentKind, data policy.DocumentData) ([]byte, error) {
	args := m.Called(ctx, kind, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func newPDFRouter(r PDFRenderer, key string) *gin.Engine {
	router := gin.New()
	NewInternalPDFHandler(r, key).RegisterRoutes(router.Group("/api"))
	return router
}

func renderBody(t *testing.T) string {
	t.Helper()
	b, err := json.Marshal(policy.DocumentData{
		PolicyNumber: "TC-ABCD2345",
		Registration: "AB12CDE",
		StartAt:      time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		EndAt:        time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		PricePence:   1299,
	})
	require.NoError(t, err)
	return string(b)
}

func postRender(router http.Handler, kind policy.DocumentKind, body, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, rendering.EndpointPath(kind), strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(rendering.InternalKeyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestInternalPDFHandler_Render(t *testing.T) {
	for _, kind := range policy.DocumentKinds() {
		t.Run(kind.Slug(), func(t *testing.T) {
			r := &MockPDFRenderer{}
			r.On("Render", mock.Anything, kind, mock.Anything).
				Return([]byte("%PDF-1.7"), nil)

			w := postRender(newPDFRouter(r, internalKey), kind, renderBody(t), internalKey)

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
			assert.Equal(t, "%PDF-1.7", w.Body.String())
			assert.Contains(t, w.Header().Get("Content-Disposition"), kind.FileName("TC-ABCD2345"))
		})
	}
}

func TestInternalPDFHandler_Auth(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		given      string
		wantStatus int
		wantCode   string
	}{
		{"missing key", internalKey, "", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"wrong key", internalKey, "not-the-key", http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"prefix of key", internalKey, internalKey[:4], http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"not configured", "", "anything", http.StatusInternalServerError, dto.ErrCodeConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MockPDFRenderer{}

			w := postRender(newPDFRouter(r, tt.configured), policy.DocumentKindCertificate, renderBody(t), tt.given)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeResponse(t, w).Error.Code)
			r.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestInternalPDFHandler_InvalidBody(t *testing.T) {
	r := &MockPDFRenderer{}

	w := postRender(newPDFRouter(r, internalKey), policy.DocumentKindProposal, `{"policyNumber":""}`, internalKey)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	r.AssertNotCalled(t, "Render", mock.Anything, mock.Anything, mock.Anything)
}

func TestInternalPDFHandler_RenderErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"timeout", printing.NewRenderError(printing.ErrCodeRenderTimeout, "render timed out", nil), http.StatusGatewayTimeout},
		{"printer failure", printing.NewRenderError(printing.ErrCodeRenderFailed, "print failed", nil), http.StatusInternalServerError},
		{"unexpected", assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MockPDFRenderer{}
			r.On("Render", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			w := postRender(newPDFRouter(r, internalKey), policy.DocumentKindCertificate, renderBody(t), internalKey)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
