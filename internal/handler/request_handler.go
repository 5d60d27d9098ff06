package handler

import (
	"net/http"

	"procurement-backend/internal/middleware"
	"procurement-backend/internal/model"
	"procurement-backend/internal/service"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type RequestHandler struct {
	workflow service.WorkflowService
	views    service.RequestViewService
}

func NewRequestHandler(workflow service.WorkflowService, views service.RequestViewService) *RequestHandler {
	return &RequestHandler{workflow: workflow, views: views}
}

// approverRoles are the stages that act on requests after creation.
var approverRoles = []string{model.StageLogistics, model.StageWarehouse, model.StageRector, model.StageProcurement}

func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	anyRole := model.ValidRoles()

	requests := router.Group("/api/requests")
	{
		requests.POST("", middleware.RequireRole(model.StageHOD), h.CreateRequest)
		requests.GET("", middleware.RequireRole(anyRole...), h.ListRequests)
		requests.GET("/:id", middleware.RequireRole(anyRole...), h.GetRequest)
		requests.GET("/user/:userId", middleware.RequireRole(anyRole...), h.ListByRequester)
		requests.PATCH("/:id/stage", middleware.RequireRole(model.RoleSuperAdmin), h.UpdateStage)
		requests.PATCH("/:id/approve", middleware.RequireRole(approverRoles...), h.ApproveStage)
		requests.PATCH("/:id/reject", middleware.RequireRole(approverRoles...), h.RejectStage)
		requests.GET("/role/:role/pending", middleware.RequireRole(anyRole...), h.PendingForRole)
		requests.GET("/role/:role/approved/:userId", middleware.RequireRole(anyRole...), h.ApprovedByRole)
		requests.GET("/role/:role/rejected/:userId", middleware.RequireRole(anyRole...), h.RejectedByRole)
		requests.DELETE("/:id", middleware.RequireRole(model.RoleSuperAdmin), h.DeleteRequest)
	}
}

// CreateRequest opens a new procurement request at the start of the chain
// @Summary      Create procurement request
// @Description  Creates a request with the creating HOD's self-approval recorded, pending at Logistics Officer
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "Request fields"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
		return
	}

	created, err := h.workflow.CreateRequest(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessMessage("Request created successfully", created))
}

// ListRequests returns every request with requester and approver profiles
func (h *RequestHandler) ListRequests(c *gin.Context) {
	requests, err := h.views.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(requests, len(requests)))
}

// GetRequest returns a single request by id
func (h *RequestHandler) GetRequest(c *gin.Context) {
	request, err := h.views.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(request))
}

// ListByRequester returns all requests created by a user
func (h *RequestHandler) ListByRequester(c *gin.Context) {
	requests, err := h.views.ListByRequester(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(requests, len(requests)))
}

type updateStageDTO struct {
	RequestStage string `json:"request_stage" binding:"required"`
}

// UpdateStage is the legacy manual stage override restricted to the five
// live stage names
func (h *RequestHandler) UpdateStage(c *gin.Context) {
	var req updateStageDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid request stage"))
		return
	}

	updated, err := h.workflow.SetStage(c.Request.Context(), c.Param("id"), req.RequestStage)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessage("Request stage updated successfully", updated))
}

// ApproveStage advances the request past the caller's stage
// @Summary      Approve at current stage
// @Description  Records the caller's approval and moves the request to the next stage; conflicts when the request already moved on
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true  "Request ID"
// @Param        payload  body      service.AdvanceDTO  true  "Approver"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/requests/{id}/approve [patch]
func (h *RequestHandler) ApproveStage(c *gin.Context) {
	h.advance(c, true)
}

// RejectStage terminates the request at the caller's stage with a reason
func (h *RequestHandler) RejectStage(c *gin.Context) {
	h.advance(c, false)
}

func (h *RequestHandler) advance(c *gin.Context, approved bool) {
	var req service.AdvanceDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		// Allow empty body; the approver falls back to the token subject
		req = service.AdvanceDTO{}
	}

	approver := req.ApproverID
	if approver == "" {
		approver = actorID(c)
	}

	// The acting stage is the caller's authenticated role.
	fromStage, _ := c.Get("userRole")
	stage, _ := fromStage.(string)

	updated, err := h.workflow.Advance(c.Request.Context(), c.Param("id"), stage, approver, approved, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Request approved successfully"
	if !approved {
		message = "Request rejected"
	}
	c.JSON(http.StatusOK, response.SuccessMessage(message, updated))
}

// PendingForRole lists requests waiting at the given stage
func (h *RequestHandler) PendingForRole(c *gin.Context) {
	requests, err := h.views.PendingFor(c.Request.Context(), c.Param("role"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(requests, len(requests)))
}

// ApprovedByRole lists requests a user approved while acting as the role
func (h *RequestHandler) ApprovedByRole(c *gin.Context) {
	requests, err := h.views.ApprovedBy(c.Request.Context(), c.Param("role"), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(requests, len(requests)))
}

// RejectedByRole lists requests a user rejected while acting as the role
func (h *RequestHandler) RejectedByRole(c *gin.Context) {
	requests, err := h.views.RejectedBy(c.Request.Context(), c.Param("role"), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(requests, len(requests)))
}

// DeleteRequest is the explicit administrative delete
func (h *RequestHandler) DeleteRequest(c *gin.Context) {
	if err := h.workflow.DeleteRequest(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessMessage("Request deleted successfully", nil))
}
