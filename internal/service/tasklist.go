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

// TaskListService manages task lists and who they are shared with.
type TaskListService struct {
	store   Store
	access  *access.Engine
	metrics metrics.Recorder
}

// NewTaskListService creates a TaskListService.
func NewTaskListService(store Store, recorder metrics.Recorder) *TaskListService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TaskListService{
		store:   store,
		access:  access.NewEngine(store),
		metrics: recorder,
	}
}

// Create makes a new list owned by user.
func (s *TaskListService) Create(ctx context.Context, user *model.User, name string) (*model.TaskList, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if err := ValidateListName(name); err != nil {
		return nil, err
	}

	ts := now()
	list := &model.TaskList{
		ID:        newID(),
		Name:      strings.TrimSpace(name),
		OwnerID:   user.ID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := s.store.CreateTaskList(ctx, list); err != nil {
		return nil, fmt.Errorf("create task list: %w", err)
	}

	s.metrics.IncTaskListCreated()
	return list, nil
}

// ListOwned returns the lists user owns. Shared lists are not included.
func (s *TaskListService) ListOwned(ctx context.Context, user *model.User) ([]*model.TaskList, error) {
	if user == nil {
		return nil, ErrUnauthenticated
	}
	lists, err := s.store.ListTaskListsByOwner(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list task lists: %w", err)
	}
	return lists, nil
}

// Get returns a list the user may view.
func (s *TaskListService) Get(ctx context.Context, user *model.User, id string) (*model.TaskList, error) {
	list, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.access.CanViewList(ctx, user, list)); err != nil {
		s.denied(err, "view")
		return nil, err
	}
	return list, nil
}

// Rename changes the name of a list the user may edit.
func (s *TaskListService) Rename(ctx context.Context, user *model.User, id, name string) (*model.TaskList, error) {
	if err := ValidateListName(name); err != nil {
		return nil, err
	}

	list, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.access.CanEditList(ctx, user, list)); err != nil {
		s.denied(err, "edit")
		return nil, err
	}

	list.Name = strings.TrimSpace(name)
	list.UpdatedAt = now()
	if err := s.store.UpdateTaskList(ctx, list); err != nil {
		if errors.Is(err, repository.ErrTaskListNotFound) {
			return nil, ErrTaskListNotFound
		}
		return nil, fmt.Errorf("update task list: %w", err)
	}

	s.metrics.IncTaskListUpdated()
	return list, nil
}

// Delete removes a list the user may edit, together with its tasks and
// shares.
func (s *TaskListService) Delete(ctx context.Context, user *model.User, id string) error {
	list, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(s.access.CanEditList(ctx, user, list)); err != nil {
		s.denied(err, "edit")
		return err
	}

	if err := s.store.DeleteTaskList(ctx, list.ID); err != nil {
		if errors.Is(err, repository.ErrTaskListNotFound) {
			return ErrTaskListNotFound
		}
		return fmt.Errorf("delete task list: %w", err)
	}

	s.metrics.IncTaskListDeleted()
	return nil
}

func (s *TaskListService) load(ctx context.Context, id string) (*model.TaskList, error) {
	if id == "" {
		return nil, ErrTaskListNotFound
	}
	list, err := s.store.GetTaskListByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskListNotFound) {
			return nil, ErrTaskListNotFound
		}
		return nil, fmt.Errorf("load task list: %w", err)
	}
	return list, nil
}

func (s *TaskListService) denied(err error, action string) {
	if errors.Is(err, ErrForbidden) {
		s.metrics.IncAccessDenied(action)
	}
}

// authorize turns an access decision into ErrForbidden, or into
// ErrTaskListNotFound when the list vanished.
func authorize(ok bool, err error) error {
	if err != nil {
		if errors.Is(err, access.ErrTaskListNotFound) {
			return ErrTaskListNotFound
		}
		return fmt.Errorf("check access: %w", err)
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}
