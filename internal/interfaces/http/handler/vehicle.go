package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tempcover/backend/internal/domain/vehicle"
	"github.com/tempcover/backend/internal/infrastructure/config"
	"github.com/tempcover/backend/internal/infrastructure/logger"
	"github.com/tempcover/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// VehicleLookup resolves a registration mark to a vehicle summary
type VehicleLookup interface {
	Lookup(ctx context.Context, registration string) (*vehicle.Summary, error)
}

// VehicleHandler handles vehicle lookups for the quote flow
type VehicleHandler struct {
	BaseHandler
	lookup VehicleLookup
}

// NewVehicleHandler creates a new VehicleHandler
func NewVehicleHandler(lookup VehicleLookup) *VehicleHandler {
	return &VehicleHandler{lookup: lookup}
}

// Lookup godoc
// @Summary      Look up a vehicle
// @Description  Resolves a UK registration mark to make, model, year and colour
// @Tags         vehicles
// @Accept       json
// @Produce      json
// @Param        request  body      dto.VehicleLookupRequest  true  "Registration mark"
// @Success      200      {object}  dto.Response{data=vehicle.Summary}
// @Failure      400      {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      404      {object}  dto.Response{error=dto.ErrorInfo}
// @Failure      502      {object}  dto.Response{error=dto.ErrorInfo}
// @Router       /api/v1/vehicle/lookup [post]
func (h *VehicleHandler) Lookup(c *gin.Context) {
	var req dto.VehicleLookupRequest
	if !h.BindJSON(c, &req) {
		return
	}

	summary, err := h.lookup.Lookup(c.Request.Context(), req.Registration)
	switch {
	case err == nil:
		h.Success(c, summary)
	case errors.Is(err, vehicle.ErrUpstream) && !config.IsMissingEnv(err):
		logger.GetGinLogger(c).Warn("Vehicle registry failed", zap.Error(err))
		h.Error(c, http.StatusBadGateway, dto.ErrCodeUpstream, "Vehicle lookup is temporarily unavailable")
	case errors.Is(err, vehicle.ErrVehicleNotFound):
		h.NotFound(c, "Vehicle not found")
	default:
		h.HandleError(c, err)
	}
}

// RegisterRoutes registers vehicle routes on the versioned API group
func (h *VehicleHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/vehicle/lookup", h.Lookup)
}
