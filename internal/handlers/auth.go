package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpilot/internal/constants"
	"github.com/yukikurage/taskpilot/internal/dto"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/middleware"
	"github.com/yukikurage/taskpilot/internal/models"
	"github.com/yukikurage/taskpilot/internal/services"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	identity  *services.IdentityService
	mockLogin bool
}

// NewAuthHandler creates a new AuthHandler. With mockLogin set, a login
// request may name an existing user instead of carrying credentials.
func NewAuthHandler(identity *services.IdentityService, mockLogin bool) *AuthHandler {
	return &AuthHandler{
		identity:  identity,
		mockLogin: mockLogin,
	}
}

// Signup registers a new user and signs them in.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	}
	if req.Role != "" {
		role, ok := models.ParseRole(req.Role)
		if !ok {
			role = models.Role(req.Role)
		}
		input.Role = role
	}

	user, err := h.identity.Signup(c.Request.Context(), input)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if err := startSession(c, user.ID); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusCreated, dto.ToUserDTO(*user))
}

// Login authenticates a user and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	var (
		user *models.User
		err  error
	)

	if req.UserID != "" {
		if !h.mockLogin {
			apierrors.BadRequest(c, "Email and password are required")
			return
		}
		user, err = h.identity.LoginAs(c.Request.Context(), req.UserID)
	} else {
		verr := &apierrors.ValidationError{}
		if strings.TrimSpace(req.Email) == "" {
			verr.Add("email", "Please enter a valid email address.")
		}
		if req.Password == "" {
			verr.Add("password", "Password is required.")
		}

		var requestedRole *models.Role
		if req.Role != "" {
			role, ok := models.ParseRole(req.Role)
			if !ok {
				verr.Add("role", "Role must be Project Manager or User.")
			}
			requestedRole = &role
		}

		if err := verr.OrNil(); err != nil {
			apierrors.Respond(c, err)
			return
		}
		user, err = h.identity.Login(c.Request.Context(), req.Email, req.Password, requestedRole)
	}
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	if err := startSession(c, user.ID); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(*user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	c.JSON(http.StatusOK, dto.ToUserDTO(actor))
}

func startSession(c *gin.Context, userID string) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(constants.ContextKeyUserID, userID)
	return session.Save()
}
