package dto

import (
	"time"

	"github.com/yukikurage/taskpilot/internal/models"
	"github.com/yukikurage/taskpilot/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email,omitempty"`
	Role   models.Role `json:"role"`
	Avatar string      `json:"avatar"`
}

// TaskDTO represents a task in API responses. Deadline is RFC 3339 in UTC.
type TaskDTO struct {
	ID             string            `json:"id"`
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Deadline       string            `json:"deadline"`
	AssignedUserID string            `json:"assignedUserId"`
	Status         models.TaskStatus `json:"status"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// UserListResponse represents a list of users
type UserListResponse struct {
	Users []UserDTO `json:"users"`
}

// SignupRequest is the body of POST /api/auth/signup
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// LoginRequest is the body of POST /api/auth/login. UserID selects a demo
// account when credentials are not used.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	UserID   string `json:"userId"`
}

// UpdateStatusRequest is the body of PATCH /api/tasks/:id/status
type UpdateStatusRequest struct {
	Status models.TaskStatus `json:"status"`
}

// SuggestDescriptionRequest is the body of POST /api/ai/suggest-description
type SuggestDescriptionRequest struct {
	Title string `json:"title"`
}

// SuggestDescriptionResponse carries a drafted task description
type SuggestDescriptionResponse struct {
	Description string `json:"description"`
}

// WeeklySummaryResponse is the body of POST /api/ai/weekly-summary
type WeeklySummaryResponse struct {
	Summary  string `json:"summary"`
	Progress string `json:"progress"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		Avatar: user.Avatar,
	}
}

// ToUserDTOs converts a slice of User models
func ToUserDTOs(users []models.User) []UserDTO {
	dtos := make([]UserDTO, len(users))
	for i, u := range users {
		dtos[i] = ToUserDTO(u)
	}
	return dtos
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Deadline:       task.Deadline.UTC().Format(time.RFC3339),
		AssignedUserID: task.AssignedUserID,
		Status:         task.Status,
	}
}

// ToTaskDTOs converts a slice of Task models
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	dtos := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		dtos[i] = ToTaskDTO(t)
	}
	return dtos
}

// NewTaskListResponse builds a page of tasks. A zero limit means the page
// holds every matching task.
func NewTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	limit := params.Limit
	if limit == 0 {
		limit = int(total)
	}

	return TaskListResponse{
		Tasks: ToTaskDTOs(tasks),
		Pagination: utils.PaginationResponse{
			Page:  params.Page,
			Limit: limit,
			Total: total,
		},
	}
}
