// Package access decides who may view or edit task lists and tasks.
//
// Permission is a property of the list: the owner may always view and edit,
// a grantee with a share may view, and a grantee whose share carries
// can_edit may also edit. Tasks inherit the grants of their list.
package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskshare/taskshare/internal/model"
	"github.com/taskshare/taskshare/internal/repository"
)

// ErrTaskListNotFound is returned when the list a decision depends on
// cannot be resolved. Callers must surface it as "not found", never as
// "forbidden".
var ErrTaskListNotFound = errors.New("task list not found")

// Level is the access a user holds on a list.
type Level int

const (
	LevelNone Level = iota
	LevelView
	LevelEdit
)

// String returns the level name used in logs.
func (l Level) String() string {
	switch l {
	case LevelView:
		return "view"
	case LevelEdit:
		return "edit"
	default:
		return "none"
	}
}

// Store is the read side the engine needs.
// FindShare returns repository.ErrShareNotFound when no row exists.
type Store interface {
	GetTaskListByID(ctx context.Context, id string) (*model.TaskList, error)
	FindShare(ctx context.Context, taskListID, userID string) (*model.Share, error)
}

// LevelFor computes the access level from already loaded records.
// share may be nil; a share for another list or user is ignored.
func LevelFor(user *model.User, list *model.TaskList, share *model.Share) Level {
	if user == nil || list == nil {
		return LevelNone
	}
	if list.IsOwnedBy(user.ID) {
		return LevelEdit
	}
	if share == nil || share.TaskListID != list.ID || share.UserID != user.ID {
		return LevelNone
	}
	if share.CanEdit {
		return LevelEdit
	}
	return LevelView
}

// Engine answers view/edit questions against a Store.
type Engine struct {
	store Store
}

// NewEngine creates an Engine.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// Level resolves the caller's access level on list.
func (e *Engine) Level(ctx context.Context, user *model.User, list *model.TaskList) (Level, error) {
	if user == nil || list == nil {
		return LevelNone, nil
	}
	// Owners never have share rows, skip the lookup.
	if list.IsOwnedBy(user.ID) {
		return LevelEdit, nil
	}

	share, err := e.store.FindShare(ctx, list.ID, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrShareNotFound) {
			return LevelNone, nil
		}
		return LevelNone, fmt.Errorf("find share: %w", err)
	}

	return LevelFor(user, list, share), nil
}

// CanViewList reports whether user may read list and its tasks.
func (e *Engine) CanViewList(ctx context.Context, user *model.User, list *model.TaskList) (bool, error) {
	level, err := e.Level(ctx, user, list)
	if err != nil {
		return false, err
	}
	return level >= LevelView, nil
}

// CanEditList reports whether user may rename or delete list and manage its tasks.
func (e *Engine) CanEditList(ctx context.Context, user *model.User, list *model.TaskList) (bool, error) {
	level, err := e.Level(ctx, user, list)
	if err != nil {
		return false, err
	}
	return level == LevelEdit, nil
}

// CanViewTask delegates to the task's list.
func (e *Engine) CanViewTask(ctx context.Context, user *model.User, task *model.Task) (bool, error) {
	list, err := e.listOf(ctx, task)
	if err != nil {
		return false, err
	}
	return e.CanViewList(ctx, user, list)
}

// CanEditTask delegates to the task's list.
func (e *Engine) CanEditTask(ctx context.Context, user *model.User, task *model.Task) (bool, error) {
	list, err := e.listOf(ctx, task)
	if err != nil {
		return false, err
	}
	return e.CanEditList(ctx, user, list)
}

func (e *Engine) listOf(ctx context.Context, task *model.Task) (*model.TaskList, error) {
	if task == nil {
		return nil, ErrTaskListNotFound
	}
	list, err := e.store.GetTaskListByID(ctx, task.TaskListID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskListNotFound) {
			return nil, ErrTaskListNotFound
		}
		return nil, fmt.Errorf("load task list: %w", err)
	}
	return list, nil
}
