package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskshare/taskshare/internal/access"
	"github.com/taskshare/taskshare/internal/metrics"
	"github.com/taskshare/taskshare/internal/model"
	"github.com/taskshare/taskshare/internal/repository"
)

// TaskService manages tasks. Every permission comes from the task's list.
type TaskService struct {
	store   Store
	access  *access.Engine
	metrics metrics.Recorder
}

// NewTaskService creates a TaskService.
func NewTaskService(store Store, recorder metrics.Recorder) *TaskService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskService{
		store:   store,
		access:  access.NewEngine(store),
		metrics: recorder,
	}
}

// TaskUpdate is a full-form task edit. IsCompleted is left untouched when nil.
type TaskUpdate struct {
	Title       string
	IsCompleted *bool
}

// ListByTaskList returns the tasks of a list the user may view.
func (s *TaskService) ListByTaskList(ctx context.Context, user *model.User, listID string) ([]*model.Task, error) {
	if listID == "" {
		return nil, invalid("task_list_id", "The task list id field is required.")
	}

	list, err := s.loadList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.access.CanViewList(ctx, user, list)); err != nil {
		s.denied(err, "view")
		return nil, err
	}

	tasks, err := s.store.ListTasksByTaskList(ctx, list.ID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// Create adds a task to a list the user may edit.
func (s *TaskService) Create(ctx context.Context, user *model.User, listID, title string) (*model.Task, error) {
	if listID == "" {
		return nil, invalid("task_list_id", "The task list id field is required.")
	}

	list, err := s.loadList(ctx, listID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.access.CanEditList(ctx, user, list)); err != nil {
		s.denied(err, "edit")
		return nil, err
	}
	if err := ValidateTitle(title); err != nil {
		return nil, err
	}

	ts := now()
	task := &model.Task{
		ID:         newID(),
		Title:      strings.TrimSpace(title),
		TaskListID: list.ID,
		CreatedAt:  ts,
		UpdatedAt:  ts,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskListNotFound) {
			return nil, ErrTaskListNotFound
		}
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.metrics.IncTaskCreated()
	return task, nil
}

// Get returns a task whose list the user may view.
func (s *TaskService) Get(ctx context.Context, user *model.User, id string) (*model.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.access.CanViewTask(ctx, user, task)); err != nil {
		s.denied(err, "view")
		return nil, err
	}
	return task, nil
}

// Update sets the title and, when given, the completion flag.
func (s *TaskService) Update(ctx context.Context, user *model.User, id string, in TaskUpdate) (*model.Task, error) {
	task, err := s.loadEditable(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if err := ValidateTitle(in.Title); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	return s.patch(ctx, task.ID, repository.TaskPatch{
		Title:       &title,
		IsCompleted: in.IsCompleted,
	})
}

// UpdateStatus sets only the completion flag. A nil flag is rejected
// before anything is loaded.
func (s *TaskService) UpdateStatus(ctx context.Context, user *model.User, id string, completed *bool) (*model.Task, error) {
	if completed == nil {
		return nil, invalid("is_completed", "The is completed field is required.")
	}

	task, err := s.loadEditable(ctx, user, id)
	if err != nil {
		return nil, err
	}

	return s.patch(ctx, task.ID, repository.TaskPatch{IsCompleted: completed})
}

// Delete removes a task whose list the user may edit.
func (s *TaskService) Delete(ctx context.Context, user *model.User, id string) error {
	task, err := s.loadEditable(ctx, user, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteTask(ctx, task.ID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}

	s.metrics.IncTaskDeleted()
	return nil
}

func (s *TaskService) patch(ctx context.Context, id string, patch repository.TaskPatch) (*model.Task, error) {
	patch.UpdatedAt = now()
	task, err := s.store.PatchTask(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.metrics.IncTaskUpdated()
	return task, nil
}

func (s *TaskService) loadEditable(ctx context.Context, user *model.User, id string) (*model.Task, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.access.CanEditTask(ctx, user, task)); err != nil {
		s.denied(err, "edit")
		return nil, err
	}
	return task, nil
}

func (s *TaskService) load(ctx context.Context, id string) (*model.Task, error) {
	if id == "" {
		return nil, ErrTaskNotFound
	}
	task, err := s.store.GetTaskByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("load task: %w", err)
	}
	return task, nil
}

func (s *TaskService) loadList(ctx context.Context, id string) (*model.TaskList, error) {
	list, err := s.store.GetTaskListByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskListNotFound) {
			return nil, ErrTaskListNotFound
		}
		return nil, fmt.Errorf("load task list: %w", err)
	}
	return list, nil
}

func (s *TaskService) denied(err error, action string) {
	if errors.Is(err, ErrForbidden) {
		s.metrics.IncAccessDenied(action)
	}
}
