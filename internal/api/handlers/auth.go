package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"chatroom-service/internal/api/middleware"
	"chatroom-service/internal/models"
	"chatroom-service/internal/services"
	"chatroom-service/pkg/logger"
	"chatroom-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type AuthHandler struct {
	userService *services.UserService
	log         *logger.Logger
}

func NewAuthHandler(userService *services.UserService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{userService: userService, log: log}
}

// Register godoc
// @Summary Register a new user
// @Description Register a new user with username, email, password and an optional color
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "User registration data"
// @Success 201 {object} models.AuthResponse "User created, token issued"
// @Failure 400 {object} response.ErrorResponse "Bad request - invalid input data"
// @Failure 409 {object} response.ErrorResponse "Username or email already exists"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Abort(c, response.CodeInvalidInput, "", validationDetails(err))
		return
	}

	auth, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUsernameTaken):
			response.Abort(c, response.CodeConflict, "Username already exists", "")
		case errors.Is(err, services.ErrEmailTaken):
			response.Abort(c, response.CodeConflict, "Email already exists", "")
		default:
			logger.FromContext(c.Request.Context(), h.log).Error("register failed", "error", err)
			response.Abort(c, response.CodeInternalError, "Register failed", "")
		}
		return
	}

	c.JSON(http.StatusCreated, auth)
}

// Login godoc
// @Summary User login
// @Description Authenticate with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "User login credentials"
// @Success 200 {object} models.AuthResponse "Login successful - returns JWT token and user data"
// @Failure 400 {object} response.ErrorResponse "Bad request - invalid input data"
// @Failure 401 {object} response.ErrorResponse "Invalid credentials"
// @Failure 500 {object} response.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Abort(c, response.CodeInvalidInput, "", validationDetails(err))
		return
	}

	auth, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			response.Abort(c, response.CodeUnauthorized, "Invalid credentials", "")
			return
		}
		logger.FromContext(c.Request.Context(), h.log).Error("login failed", "error", err)
		response.Abort(c, response.CodeInternalError, "Login failed", "")
		return
	}

	c.JSON(http.StatusOK, auth)
}

// UpdateProfile godoc
// @Summary Update profile
// @Description Change the authenticated user's display color
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.UpdateProfileRequest true "Profile fields to change"
// @Success 200 {object} models.ProfileResponse "Updated profile"
// @Failure 400 {object} response.ErrorResponse "Bad request - invalid input data"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 404 {object} response.ErrorResponse "User not found"
// @Router /auth/profile [put]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Abort(c, response.CodeUnauthorized, "", "")
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Abort(c, response.CodeInvalidInput, "", validationDetails(err))
		return
	}

	profile, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			response.Abort(c, response.CodeNotFound, "User not found", "")
			return
		}
		logger.FromContext(c.Request.Context(), h.log).Error("profile update failed", "userID", userID, "error", err)
		response.Abort(c, response.CodeInternalError, "Profile update failed", "")
		return
	}

	c.JSON(http.StatusOK, profile)
}

// validationDetails flattens binding errors into "field: rule" pairs.
func validationDetails(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
