package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/yukikurage/taskpilot/internal/constants"
	apierrors "github.com/yukikurage/taskpilot/internal/errors"
	"github.com/yukikurage/taskpilot/internal/metrics"
	"github.com/yukikurage/taskpilot/internal/models"
	"github.com/yukikurage/taskpilot/internal/policy"
	"github.com/yukikurage/taskpilot/internal/repository"
	"go.uber.org/zap"
)

// ProgressNote accompanies every generated weekly summary.
const ProgressNote = "Generated a summary of completed tasks for the week."

// NoCompletedWork is the summary returned when nothing is done yet.
const NoCompletedWork = "No tasks have been completed yet."

var ErrAIServiceNotConfigured = apierrors.NewUpstreamError(apierrors.ServiceTextSuggester, apierrors.UpstreamUnavailable, errors.New("AI service is not configured"))

// WeeklySummary is the result of summarizing completed work.
type WeeklySummary struct {
	Summary  string `json:"summary"`
	Progress string `json:"progress"`
}

// AIService exposes the text suggester to authenticated users. Its
// failures never touch the entity store.
type AIService struct {
	suggester TextSuggester
	store     repository.Store
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewAIService creates an AIService. suggester may be nil, in which case
// every call fails with ErrAIServiceNotConfigured.
func NewAIService(suggester TextSuggester, store repository.Store, m *metrics.Metrics, logger *zap.Logger) *AIService {
	return &AIService{
		suggester: suggester,
		store:     store,
		metrics:   m,
		logger:    logger.Named("ai"),
	}
}

// Enabled reports whether a suggester is configured.
func (s *AIService) Enabled() bool {
	return s.suggester != nil
}

// SuggestDescription drafts a description for a task title.
func (s *AIService) SuggestDescription(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if utf8.RuneCountInString(title) < constants.MinTitleLength {
		verr := &apierrors.ValidationError{}
		verr.Add("title", "Title must be at least 3 characters long.")
		return "", verr
	}
	if s.suggester == nil {
		return "", ErrAIServiceNotConfigured
	}

	start := time.Now()
	description, err := s.suggester.SuggestDescription(ctx, title)
	s.metrics.ObserveAICall("suggest_description", resultOf(err), time.Since(start))
	if err != nil {
		return "", err
	}
	return description, nil
}

// SummarizeWeek summarizes the Done tasks visible to actor. Only Project
// Managers may request it.
func (s *AIService) SummarizeWeek(ctx context.Context, actor models.User) (*WeeklySummary, error) {
	if !actor.IsProjectManager() {
		return nil, &apierrors.AuthorizationError{ActorID: actor.ID, Action: "summarize completed work"}
	}
	if s.suggester == nil {
		return nil, ErrAIServiceNotConfigured
	}

	done := models.TaskStatusDone
	tasks, err := s.store.Tasks.List(ctx, repository.TaskFilter{Status: &done})
	if err != nil {
		return nil, err
	}
	tasks = policy.VisibleTasks(actor, tasks)
	if len(tasks) == 0 {
		return &WeeklySummary{Summary: NoCompletedWork, Progress: ProgressNote}, nil
	}

	completed := make([]CompletedTask, 0, len(tasks))
	names := make(map[string]string)
	for _, t := range tasks {
		name, ok := names[t.AssignedUserID]
		if !ok {
			name = t.AssignedUserID
			if user, err := s.store.Users.FindByID(ctx, t.AssignedUserID); err == nil {
				name = user.Name
			}
			names[t.AssignedUserID] = name
		}
		completed = append(completed, CompletedTask{Title: t.Title, Description: t.Description, Assignee: name})
	}

	start := time.Now()
	summary, err := s.suggester.SummarizeCompletedWork(ctx, completed)
	s.metrics.ObserveAICall("summarize_week", resultOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	s.logger.Info("Weekly summary generated", zap.String("actor_id", actor.ID), zap.Int("tasks", len(completed)))
	return &WeeklySummary{Summary: summary, Progress: ProgressNote}, nil
}
