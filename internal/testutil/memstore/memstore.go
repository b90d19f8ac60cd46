// Package memstore is an in-memory stand-in for the PostgreSQL repository.
// It mirrors the repository's sentinel errors, unique constraints, share
// upsert and cascade deletes so service and handler tests run without a
// database.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/taskshare/taskshare/internal/model"
	"github.com/taskshare/taskshare/internal/repository"
)

// Store implements every store interface the services consume.
type Store struct {
	mu     sync.RWMutex
	users  []*model.User
	tokens []*model.AccessToken
	lists  []*model.TaskList
	shares []*model.Share
	tasks  []*model.Task

	// Err, when set, is returned by every call. Used to simulate outages.
	Err error
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Ping implements the health checker.
func (s *Store) Ping(ctx context.Context) error {
	return s.Err
}

// ============================================================================
// Users
// ============================================================================

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if err := s.userConflict(user); err != nil {
		return err
	}
	u := *user
	s.users = append(s.users, &u)
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, u := range s.users {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, u := range s.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make(map[string]*model.User, len(ids))
	for _, id := range ids {
		for _, u := range s.users {
			if u.ID == id {
				c := *u
				out[id] = &c
			}
		}
	}
	return out, nil
}

func (s *Store) ListUsersExcept(ctx context.Context, excludeID string) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		if u.ID != excludeID {
			c := *u
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if err := s.userConflict(user); err != nil {
		return err
	}
	for _, u := range s.users {
		if u.ID == user.ID {
			u.Name = user.Name
			u.Email = user.Email
			u.Handle = user.Handle
			u.UpdatedAt = user.UpdatedAt
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (s *Store) userConflict(user *model.User) error {
	for _, u := range s.users {
		if u.ID == user.ID {
			continue
		}
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
		if u.Handle == user.Handle {
			return repository.ErrHandleExists
		}
	}
	return nil
}

// ============================================================================
// Access tokens
// ============================================================================

func (s *Store) CreateAccessToken(ctx context.Context, token *model.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if !s.hasUser(token.UserID) {
		return repository.ErrUserNotFound
	}
	t := *token
	s.tokens = append(s.tokens, &t)
	return nil
}

func (s *Store) GetAccessTokenByID(ctx context.Context, id string) (*model.AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, t := range s.tokens {
		if t.ID == id {
			c := *t
			return &c, nil
		}
	}
	return nil, repository.ErrAccessTokenNotFound
}

func (s *Store) GetAccessTokensByPrefix(ctx context.Context, prefix string) ([]*model.AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	var out []*model.AccessToken
	for _, t := range s.tokens {
		if t.TokenPrefix == prefix {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) DeleteAccessTokensByUserID(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}

	kept := s.tokens[:0]
	var deleted int64
	for _, t := range s.tokens {
		if t.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, t)
	}
	s.tokens = kept
	return deleted, nil
}

func (s *Store) UpdateAccessTokenLastUsed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	for _, t := range s.tokens {
		if t.ID == id && (t.LastUsedAt == nil || at.After(*t.LastUsedAt)) {
			used := at
			t.LastUsedAt = &used
		}
	}
	return nil
}

// TokenLastUsed returns last_used_at of token id.
func (s *Store) TokenLastUsed(id string) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tokens {
		if t.ID == id && t.LastUsedAt != nil {
			used := *t.LastUsedAt
			return &used
		}
	}
	return nil
}

// TokenCount returns how many tokens userID holds.
func (s *Store) TokenCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.tokens {
		if t.UserID == userID {
			n++
		}
	}
	return n
}

// ============================================================================
// Task lists
// ============================================================================

func (s *Store) CreateTaskList(ctx context.Context, list *model.TaskList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if !s.hasUser(list.OwnerID) {
		return repository.ErrUserNotFound
	}
	l := *list
	s.lists = append(s.lists, &l)
	return nil
}

func (s *Store) GetTaskListByID(ctx context.Context, id string) (*model.TaskList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	if l := s.findList(id); l != nil {
		c := *l
		return &c, nil
	}
	return nil, repository.ErrTaskListNotFound
}

func (s *Store) GetTaskListsByIDs(ctx context.Context, ids []string) (map[string]*model.TaskList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make(map[string]*model.TaskList, len(ids))
	for _, id := range ids {
		if l := s.findList(id); l != nil {
			c := *l
			out[id] = &c
		}
	}
	return out, nil
}

func (s *Store) ListTaskListsByOwner(ctx context.Context, ownerID string) ([]*model.TaskList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]*model.TaskList, 0)
	for _, l := range s.lists {
		if l.OwnerID == ownerID {
			c := *l
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) UpdateTaskList(ctx context.Context, list *model.TaskList) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	l := s.findList(list.ID)
	if l == nil {
		return repository.ErrTaskListNotFound
	}
	l.Name = list.Name
	l.UpdatedAt = list.UpdatedAt
	return nil
}

func (s *Store) DeleteTaskList(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if s.findList(id) == nil {
		return repository.ErrTaskListNotFound
	}

	lists := s.lists[:0]
	for _, l := range s.lists {
		if l.ID != id {
			lists = append(lists, l)
		}
	}
	s.lists = lists

	shares := s.shares[:0]
	for _, sh := range s.shares {
		if sh.TaskListID != id {
			shares = append(shares, sh)
		}
	}
	s.shares = shares

	tasks := s.tasks[:0]
	for _, t := range s.tasks {
		if t.TaskListID != id {
			tasks = append(tasks, t)
		}
	}
	s.tasks = tasks

	return nil
}

// ============================================================================
// Shares
// ============================================================================

func (s *Store) UpsertShare(ctx context.Context, share *model.Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if s.findList(share.TaskListID) == nil {
		return repository.ErrTaskListNotFound
	}
	if !s.hasUser(share.UserID) {
		return repository.ErrUserNotFound
	}

	for _, sh := range s.shares {
		if sh.TaskListID == share.TaskListID && sh.UserID == share.UserID {
			sh.CanEdit = share.CanEdit
			sh.UpdatedAt = share.UpdatedAt
			*share = *sh
			return nil
		}
	}

	sh := *share
	sh.CreatedAt = share.UpdatedAt
	s.shares = append(s.shares, &sh)
	*share = sh
	return nil
}

func (s *Store) FindShare(ctx context.Context, taskListID, userID string) (*model.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, sh := range s.shares {
		if sh.TaskListID == taskListID && sh.UserID == userID {
			c := *sh
			return &c, nil
		}
	}
	return nil, repository.ErrShareNotFound
}

func (s *Store) ListSharesForUser(ctx context.Context, userID string) ([]*model.Share, error) {
	return s.filterShares(func(sh *model.Share) bool { return sh.UserID == userID })
}

func (s *Store) ListSharesForTaskList(ctx context.Context, taskListID string) ([]*model.Share, error) {
	return s.filterShares(func(sh *model.Share) bool { return sh.TaskListID == taskListID })
}

func (s *Store) DeleteShare(ctx context.Context, taskListID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	for i, sh := range s.shares {
		if sh.TaskListID == taskListID && sh.UserID == userID {
			s.shares = append(s.shares[:i], s.shares[i+1:]...)
			return nil
		}
	}
	return repository.ErrShareNotFound
}

// ShareCount returns the number of share rows for a list.
func (s *Store) ShareCount(taskListID string) int {
	shares, _ := s.ListSharesForTaskList(context.Background(), taskListID)
	return len(shares)
}

func (s *Store) filterShares(keep func(*model.Share) bool) ([]*model.Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]*model.Share, 0)
	for _, sh := range s.shares {
		if keep(sh) {
			c := *sh
			out = append(out, &c)
		}
	}
	return out, nil
}

// ============================================================================
// Tasks
// ============================================================================

func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	if s.findList(task.TaskListID) == nil {
		return repository.ErrTaskListNotFound
	}
	t := *task
	s.tasks = append(s.tasks, &t)
	return nil
}

func (s *Store) GetTaskByID(ctx context.Context, id string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, t := range s.tasks {
		if t.ID == id {
			c := *t
			return &c, nil
		}
	}
	return nil, repository.ErrTaskNotFound
}

func (s *Store) ListTasksByTaskList(ctx context.Context, taskListID string) ([]*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}

	out := make([]*model.Task, 0)
	for _, t := range s.tasks {
		if t.TaskListID == taskListID {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *Store) PatchTask(ctx context.Context, id string, patch repository.TaskPatch) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}

	for _, t := range s.tasks {
		if t.ID != id {
			continue
		}
		if patch.Title != nil {
			t.Title = *patch.Title
		}
		if patch.IsCompleted != nil {
			t.IsCompleted = *patch.IsCompleted
		}
		t.UpdatedAt = patch.UpdatedAt
		c := *t
		return &c, nil
	}
	return nil, repository.ErrTaskNotFound
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}

	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return nil
		}
	}
	return repository.ErrTaskNotFound
}

// TaskCount returns the number of tasks in a list.
func (s *Store) TaskCount(taskListID string) int {
	tasks, _ := s.ListTasksByTaskList(context.Background(), taskListID)
	return len(tasks)
}

func (s *Store) findList(id string) *model.TaskList {
	for _, l := range s.lists {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (s *Store) hasUser(id string) bool {
	for _, u := range s.users {
		if u.ID == id {
			return true
		}
	}
	return false
}
