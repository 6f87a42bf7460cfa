package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskpilot/internal/dto"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/models"
	"github.com/yukikurage/taskpilot/internal/services"
)

// UserHandler serves the user directory.
type UserHandler struct {
	tasks *services.TaskService
}

func NewUserHandler(tasks *services.TaskService) *UserHandler {
	return &UserHandler{tasks: tasks}
}

// ListUsers returns every user, or only those holding ?role=.
func (h *UserHandler) ListUsers(c *gin.Context) {
	var (
		users []models.User
		err   error
	)

	roleParam := c.Query("role")
	role, ok := models.ParseRole(roleParam)
	switch {
	case roleParam == "":
		users, err = h.tasks.ListUsers(c.Request.Context())
	case !ok:
		apierrors.BadRequest(c, "Invalid role")
		return
	case role == models.RoleUser:
		users, err = h.tasks.ListAssignableUsers(c.Request.Context())
	default:
		users, err = h.tasks.ListUsers(c.Request.Context())
		users = withRole(users, role)
	}
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.UserListResponse{Users: dto.ToUserDTOs(users)})
}

func withRole(users []models.User, role models.Role) []models.User {
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}
