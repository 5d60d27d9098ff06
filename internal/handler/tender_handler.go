package handler

import (
	"net/http"

	"procurement-backend/internal/middleware"
	"procurement-backend/internal/model"
	"procurement-backend/internal/service"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type TenderHandler struct {
	service service.TenderService
}

func NewTenderHandler(service service.TenderService) *TenderHandler {
	return &TenderHandler{service: service}
}

func (h *TenderHandler) RegisterRoutes(router *gin.RouterGroup) {
	viewers := append(model.Stages(), model.RoleSupplier, model.RoleSuperAdmin)

	tenders := router.Group("/api/tenders")
	{
		tenders.POST("", middleware.RequireRole(model.StageProcurement), h.CreateTender)
		tenders.GET("", middleware.RequireRole(viewers...), h.ListTenders)
		tenders.GET("/count", middleware.RequireRole(viewers...), h.CountTenders)
		tenders.GET("/with-orders", middleware.RequireRole(model.StageProcurement, model.RoleSuperAdmin), h.ListTendersWithOrders)
		tenders.GET("/status/:status", middleware.RequireRole(viewers...), h.ListTendersByStatus)
		tenders.GET("/:id", middleware.RequireRole(viewers...), h.GetTender)
		tenders.PATCH("/:id", middleware.RequireRole(model.StageProcurement), h.UpdateTender)
		tenders.DELETE("/:id", middleware.RequireRole(model.StageProcurement, model.RoleSuperAdmin), h.DeleteTender)
	}
}

// CreateTender publishes a tender for a fully approved request
// @Summary      Create tender
// @Description  Opens a tender derived from a completed procurement request; one tender per request
// @Tags         tenders
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateTenderDTO  true  "Tender fields"
// @Success      201      {object}  response.Response{data=service.TenderResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/tenders [post]
func (h *TenderHandler) CreateTender(c *gin.Context) {
	var req service.CreateTenderDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid tender payload: "+err.Error()))
		return
	}
	if req.CreatedBy == "" {
		req.CreatedBy = actorID(c)
	}

	tender, err := h.service.CreateTender(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessMessage("Tender created successfully", tender))
}

// ListTenders returns all tenders with their source request
func (h *TenderHandler) ListTenders(c *gin.Context) {
	tenders, err := h.service.ListTenders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(tenders, len(tenders)))
}

// ListTendersByStatus filters tenders by their effective status (active|closed)
func (h *TenderHandler) ListTendersByStatus(c *gin.Context) {
	tenders, err := h.service.ListTendersByStatus(c.Request.Context(), c.Param("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(tenders, len(tenders)))
}

// ListTendersWithOrders returns tenders with their supplier orders preloaded
func (h *TenderHandler) ListTendersWithOrders(c *gin.Context) {
	tenders, err := h.service.ListTendersWithOrders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(tenders, len(tenders)))
}

// CountTenders returns the total number of tenders
func (h *TenderHandler) CountTenders(c *gin.Context) {
	count, err := h.service.CountTenders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(gin.H{"count": count}))
}

// GetTender returns a single tender by id
func (h *TenderHandler) GetTender(c *gin.Context) {
	tender, err := h.service.GetTender(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(tender))
}

// UpdateTender edits the editable tender fields
func (h *TenderHandler) UpdateTender(c *gin.Context) {
	var req service.UpdateTenderDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid tender payload: "+err.Error()))
		return
	}

	tender, err := h.service.UpdateTender(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessage("Tender updated successfully", tender))
}

// DeleteTender removes a tender
func (h *TenderHandler) DeleteTender(c *gin.Context) {
	if err := h.service.DeleteTender(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Tender deleted successfully", nil))
}
