package service

import (
	"context"
	"time"

	"github.com/taskshare/taskshare/internal/model"
	"github.com/taskshare/taskshare/internal/repository"
)

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
	ListUsersExcept(ctx context.Context, excludeID string) ([]*model.User, error)
	UpdateUserProfile(ctx context.Context, user *model.User) error
}

// TokenStore persists access tokens.
type TokenStore interface {
	CreateAccessToken(ctx context.Context, token *model.AccessToken) error
	GetAccessTokenByID(ctx context.Context, id string) (*model.AccessToken, error)
	GetAccessTokensByPrefix(ctx context.Context, prefix string) ([]*model.AccessToken, error)
	DeleteAccessTokensByUserID(ctx context.Context, userID string) (int64, error)
	UpdateAccessTokenLastUsed(ctx context.Context, id string, at time.Time) error
}

// TaskListStore persists lists.
type TaskListStore interface {
	CreateTaskList(ctx context.Context, list *model.TaskList) error
	GetTaskListByID(ctx context.Context, id string) (*model.TaskList, error)
	GetTaskListsByIDs(ctx context.Context, ids []string) (map[string]*model.TaskList, error)
	ListTaskListsByOwner(ctx context.Context, ownerID string) ([]*model.TaskList, error)
	UpdateTaskList(ctx context.Context, list *model.TaskList) error
	DeleteTaskList(ctx context.Context, id string) error
}

// ShareStore persists grants.
type ShareStore interface {
	UpsertShare(ctx context.Context, share *model.Share) error
	FindShare(ctx context.Context, taskListID, userID string) (*model.Share, error)
	ListSharesForUser(ctx context.Context, userID string) ([]*model.Share, error)
	ListSharesForTaskList(ctx context.Context, taskListID string) ([]*model.Share, error)
	DeleteShare(ctx context.Context, taskListID, userID string) error
}

// TaskStore persists tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTaskByID(ctx context.Context, id string) (*model.Task, error)
	ListTasksByTaskList(ctx context.Context, taskListID string) ([]*model.Task, error)
	PatchTask(ctx context.Context, id string, patch repository.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Store is everything the services need. *repository.Repository
// satisfies it, as does the in-memory test store.
type Store interface {
	UserStore
	TokenStore
	TaskListStore
	ShareStore
	TaskStore
}

// AuthCache caches token resolutions. Implemented by *cache.Cache.
// Writes are guarded by a per-user generation that logout bumps.
type AuthCache interface {
	GetAuthContext(ctx context.Context, cacheKey string) (*model.AuthContext, error)
	AuthGeneration(ctx context.Context, userID string) (int64, error)
	SetAuthContext(ctx context.Context, cacheKey string, auth *model.AuthContext, generation int64) (bool, error)
	InvalidateUserAuthContexts(ctx context.Context, userID string) error
}

// UsageRecorder accepts token use events without blocking the request.
// Implemented by *usage.Publisher.
type UsageRecorder interface {
	RecordTokenUse(tokenID string, at time.Time)
}

var _ Store = (*repository.Repository)(nil)
