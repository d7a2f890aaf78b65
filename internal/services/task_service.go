package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/chorely/chorely/internal/models"
	"github.com/chorely/chorely/internal/observability"
	pkglogger "github.com/chorely/chorely/pkg/logger"
)

// TaskRepository defines the interface for task data access.
// Every call is scoped to owner; a task owned by someone else is ErrNotFound.
type TaskRepository interface {
	ListByOwner(ctx context.Context, owner string) ([]*models.Task, error)
	GetByID(ctx context.Context, owner, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) (*models.Task, error)
	Update(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.Task, error)
	Delete(ctx context.Context, owner, id string) (*models.Task, error)
}

// TaskService handles task business logic
type TaskService struct {
	repo        TaskRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewTaskService creates a new TaskService
func NewTaskService(repo TaskRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *TaskService {
	return &TaskService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// ListTasks returns the owner's tasks, oldest first
func (s *TaskService) ListTasks(ctx context.Context, owner string) ([]*models.Task, error) {
	tasks, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, s.fail(ctx, "list tasks", owner, "", err)
	}
	return tasks, nil
}

// GetTask returns one of the owner's tasks
func (s *TaskService) GetTask(ctx context.Context, owner, id string) (*models.Task, error) {
	task, err := s.repo.GetByID(ctx, owner, id)
	if err != nil {
		return nil, s.fail(ctx, "get task", owner, id, err)
	}
	return task, nil
}

// CreateTask validates and stores a new task for owner
func (s *TaskService) CreateTask(ctx context.Context, owner, title, description string, completed bool) (*models.Task, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if err := validateTaskFields(&title, &description); err != nil {
		return nil, err
	}

	task, err := s.repo.Create(ctx, &models.Task{
		Owner:       owner,
		Title:       title,
		Description: description,
		Completed:   completed,
	})
	if err != nil {
		return nil, s.fail(ctx, "create task", owner, "", err)
	}

	s.auditLogger.LogTaskAction(ctx, "task_created", owner, task.ID)
	return task, nil
}

// UpdateTask applies a partial update
func (s *TaskService) UpdateTask(ctx context.Context, owner, id string, patch models.TaskPatch) (*models.Task, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", models.ErrValidation)
	}

	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
	}
	if patch.Description != nil {
		trimmed := strings.TrimSpace(*patch.Description)
		patch.Description = &trimmed
	}
	if err := validateTaskFields(patch.Title, patch.Description); err != nil {
		return nil, err
	}

	task, err := s.repo.Update(ctx, owner, id, patch)
	if err != nil {
		return nil, s.fail(ctx, "update task", owner, id, err)
	}

	s.auditLogger.LogTaskAction(ctx, "task_updated", owner, task.ID)
	return task, nil
}

// DeleteTask removes one of the owner's tasks and returns it
func (s *TaskService) DeleteTask(ctx context.Context, owner, id string) (*models.Task, error) {
	task, err := s.repo.Delete(ctx, owner, id)
	if err != nil {
		return nil, s.fail(ctx, "delete task", owner, id, err)
	}

	s.auditLogger.LogTaskAction(ctx, "task_deleted", owner, task.ID)
	return task, nil
}

// validateTaskFields checks the fields that are set; nil means untouched
func validateTaskFields(title, description *string) error {
	if title != nil {
		if *title == "" {
			return fmt.Errorf("%w: title is required", models.ErrValidation)
		}
		if utf8.RuneCountInString(*title) > models.MaxTaskTitleLen {
			return fmt.Errorf("%w: title must be at most %d characters", models.ErrValidation, models.MaxTaskTitleLen)
		}
	}
	if description != nil && utf8.RuneCountInString(*description) > models.MaxTaskDescriptionLen {
		return fmt.Errorf("%w: description must be at most %d characters", models.ErrValidation, models.MaxTaskDescriptionLen)
	}
	return nil
}

func (s *TaskService) fail(ctx context.Context, op, owner, id string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		s.logger.Info("task not found", slog.String("user_id", owner), slog.String("task_id", id))
		return models.ErrNotFound
	}
	s.logger.Error("failed to "+op, slog.String("user_id", owner), slog.String("task_id", id), slog.Any("error", err))
	observability.CaptureError(ctx, op, err)
	return models.ErrInternalServer
}
