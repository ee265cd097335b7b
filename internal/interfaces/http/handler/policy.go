package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/tempcover/backend/internal/application/policy"
	"github.com/tempcover/backend/internal/infrastructure/logger"
	"github.com/tempcover/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// PolicyRetriever serves customer self-service over a policy number and email
type PolicyRetriever interface {
	Retrieve(ctx context.Context, policyNumber, email string) (*policy.RetrievalResult, error)
	Resend(ctx context.Context, policyNumber, email string) error
}

// PolicyHandler handles customer policy retrieval
type PolicyHandler struct {
	BaseHandler
	retriever PolicyRetriever
}

// NewPolicyHandler creates a new PolicyHandler
func NewPolicyHandler(retriever PolicyRetriever) *PolicyHandler {
	return &PolicyHandler{retriever: retriever}
}

// Retrieve godoc
// @Summary      Retrieve a policy
// @Description  Returns the policy summary and signed document links. Unknown policies and wrong emails produce the same 404.
// @Tags         policies
// @Accept       json
// @Produce      json
// @Param        request  body      dto.RetrievePolicyRequest  true  "Policy number and email"
// @Success      200      {object}  dto.Response{data=policy.RetrievalResult}
// @Failure      400      {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      404      {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      429      {object}  dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/policies/retrieve [post]
func (h *PolicyHandler) Retrieve(c *gin.Context) {
	var req dto.RetrievePolicyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.retriever.Retrieve(c.Request.Context(), req.PolicyNumber, req.Email)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Resend godoc
// @Summary      Resend policy documents
// @Description  Emails the documents when the policy number and email match. Every well-formed request gets the same answer.
// @Tags         policies
// @Accept       json
// @Produce      json
// @Param        request  body      dto.RetrievePolicyRequest  true  "Policy number and email"
// @Success      200      {object}  dto.Response{data=dto.ResendDocumentsResponse}
// @Failure      400      {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      429      {object}  dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/policies/resend [post]
//
// The answer never depends on whether a policy matched, so the endpoint
// reveals nothing about which policy numbers exist.
func (h *PolicyHandler) Resend(c *gin.Context) {
	var req dto.RetrievePolicyRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.retriever.Resend(c.Request.Context(), req.PolicyNumber, req.Email); err != nil {
		logger.GetGinLogger(c).Error("Resend failed", zap.Error(err))
	}
	h.Success(c, dto.ResendDocumentsResponse{Message: dto.ResendDocumentsMessage})
}

// RegisterRoutes registers policy routes on the versioned API group.
// limit is applied to both routes; pass nil to disable it.
func (h *PolicyHandler) RegisterRoutes(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	policies := rg.Group("/policies")
	if limit != nil {
		policies.Use(limit)
	}
	policies.POST("/retrieve", h.Retrieve)
	policies.POST("/resend", h.Resend)
}
