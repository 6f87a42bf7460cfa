// Package client talks to the TaskPilot API and keeps a reactive local
// view of the signed-in user and their tasks.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/yukikurage/taskpilot/internal/dto"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/models"
	"go.uber.org/zap"
)

const defaultTimeout = 30 * time.Second

// ResponseError is a non-2xx API response that does not map to a typed
// error kind.
type ResponseError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsStatus reports whether err is a ResponseError with the given status.
func IsStatus(err error, status int) bool {
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == status
}

// Client calls the HTTP API. Its cookie jar carries the session between
// calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a Client with its own cookie jar.
func New(baseURL string, logger *zap.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return NewWithHTTPClient(baseURL, &http.Client{Jar: jar, Timeout: defaultTimeout}, logger), nil
}

// NewWithHTTPClient creates a Client around hc. hc needs a cookie jar for
// the session to survive between calls.
func NewWithHTTPClient(baseURL string, hc *http.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: hc,
		logger:     logger.Named("client"),
	}
}

func (c *Client) Signup(ctx context.Context, req dto.SignupRequest) (*dto.UserDTO, error) {
	var user dto.UserDTO
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Login(ctx context.Context, req dto.LoginRequest) (*dto.UserDTO, error) {
	var user dto.UserDTO
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the session user.
func (c *Client) Me(ctx context.Context) (*dto.UserDTO, error) {
	var user dto.UserDTO
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListTasks returns every task visible to the session user.
func (c *Client) ListTasks(ctx context.Context) ([]dto.TaskDTO, error) {
	var page dto.TaskListResponse
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &page); err != nil {
		return nil, err
	}
	return page.Tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*dto.TaskDTO, error) {
	var task dto.TaskDTO
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) CreateTask(ctx context.Context, input models.TaskInput) (*dto.TaskDTO, error) {
	var task dto.TaskDTO
	if err := c.do(ctx, http.MethodPost, "/api/tasks", input, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, input models.TaskInput) (*dto.TaskDTO, error) {
	var task dto.TaskDTO
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id), input, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status models.TaskStatus) (*dto.TaskDTO, error) {
	var task dto.TaskDTO
	path := "/api/tasks/" + url.PathEscape(id) + "/status"
	if err := c.do(ctx, http.MethodPatch, path, dto.UpdateStatusRequest{Status: status}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListUsers returns the user directory, restricted to role when it is set.
func (c *Client) ListUsers(ctx context.Context, role string) ([]dto.UserDTO, error) {
	path := "/api/users"
	if role != "" {
		path += "?role=" + url.QueryEscape(role)
	}

	var resp dto.UserListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

func (c *Client) SuggestDescription(ctx context.Context, title string) (string, error) {
	var resp dto.SuggestDescriptionResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/suggest-description", dto.SuggestDescriptionRequest{Title: title}, &resp); err != nil {
		return "", err
	}
	return resp.Description, nil
}

func (c *Client) WeeklySummary(ctx context.Context) (*dto.WeeklySummaryResponse, error) {
	var resp dto.WeeklySummaryResponse
	if err := c.do(ctx, http.MethodPost, "/api/ai/weekly-summary", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		err := decodeError(resp, path)
		c.logger.Debug("API call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

// decodeError turns an error response back into the error kind the server
// reported.
func decodeError(resp *http.Response, path string) error {
	var body apierrors.APIError
	_ = json.NewDecoder(resp.Body).Decode(&body)

	respErr := &ResponseError{StatusCode: resp.StatusCode, Code: body.Code, Message: body.Message}

	service := apierrors.ServiceAuthenticator
	if strings.HasPrefix(path, "/api/ai/") {
		service = apierrors.ServiceTextSuggester
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest && body.Code == apierrors.ErrCodeValidation:
		return &apierrors.ValidationError{Violations: violations(body.Details)}
	case body.Code == apierrors.ErrCodeInvalidCredentials:
		return apierrors.NewUpstreamError(service, apierrors.UpstreamInvalidCredential, respErr)
	case resp.StatusCode == http.StatusConflict && path == "/api/auth/signup":
		return apierrors.NewUpstreamError(service, apierrors.UpstreamEmailInUse, respErr)
	case resp.StatusCode == http.StatusTooManyRequests:
		return apierrors.NewUpstreamError(service, apierrors.UpstreamRateLimited, respErr)
	case resp.StatusCode == http.StatusServiceUnavailable:
		return apierrors.NewUpstreamError(service, apierrors.UpstreamUnavailable, respErr)
	default:
		return respErr
	}
}

// violations recovers the field list from the generic details value.
func violations(details interface{}) []apierrors.Violation {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil
	}
	var out []apierrors.Violation
	_ = json.Unmarshal(raw, &out)
	return out
}
