package handler

import (
	"net/http"

	"procurement-backend/internal/middleware"
	"procurement-backend/internal/model"
	"procurement-backend/internal/service"
	"procurement-backend/pkg/pagination"
	"procurement-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service service.UserService
}

func NewUserHandler(service service.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	auth := router.Group("/api/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", middleware.RequireRole(model.ValidRoles()...), h.Me)
		auth.GET("/pending-users", middleware.RequireRole(model.RoleSuperAdmin), h.ListPendingUsers)
		auth.POST("/approve-user", middleware.RequireRole(model.RoleSuperAdmin), h.ApproveUser)
	}

	users := router.Group("/api/users")
	{
		users.GET("", middleware.RequireRole(model.RoleSuperAdmin), h.ListUsers)
		users.GET("/:id", middleware.RequireRole(model.ValidRoles()...), h.GetUser)
	}
}

// Register creates a new inactive account awaiting admin approval
// @Summary      Register user
// @Description  Creates an account in the pending state; a Super Admin must approve it before login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterUserRequest  true  "Account fields"
// @Success      201      {object}  response.Response{data=service.UserDetailedResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/register [post]
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid registration payload: "+err.Error()))
		return
	}

	user, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.SuccessMessage("Registration successful, awaiting approval", user))
}

// Login authenticates an active user and issues a JWT
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginUserRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.TokenResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/auth/login [post]
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid login payload: "+err.Error()))
		return
	}

	token, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	middleware.SetTokenCookie(c, token.Token)
	c.JSON(http.StatusOK, response.SuccessMessage("Login successful", token))
}

// Logout clears the auth cookie
func (h *UserHandler) Logout(c *gin.Context) {
	middleware.ClearTokenCookie(c)
	c.JSON(http.StatusOK, response.SuccessMessage("Logged out successfully", nil))
}

// Me returns the authenticated user's profile
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.service.GetUserByID(c.Request.Context(), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(user))
}

// ListUsers returns a paginated list of all accounts
func (h *UserHandler) ListUsers(c *gin.Context) {
	params := pagination.Parse(c)

	users, total, err := h.service.ListUsers(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(gin.H{
		"users": users,
		"meta":  params.MetaFor(total),
	}))
}

// ListPendingUsers returns accounts waiting for activation
func (h *UserHandler) ListPendingUsers(c *gin.Context) {
	users, err := h.service.ListPendingUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.List(users, len(users)))
}

// ApproveUser activates a pending account
// @Summary      Approve pending user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.ApproveUserRequest  true  "User to activate"
// @Success      200      {object}  response.Response{data=service.UserDetailedResponse}
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/auth/approve-user [post]
func (h *UserHandler) ApproveUser(c *gin.Context) {
	var req service.ApproveUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error("Invalid approval payload: "+err.Error()))
		return
	}

	user, err := h.service.ApproveUser(c.Request.Context(), actorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessage("User approved successfully", user))
}

// GetUser returns a user profile by id
func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.service.GetUserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(user))
}
