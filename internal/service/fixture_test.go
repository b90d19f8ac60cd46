package service

import (
	"context"
	"testing"

	"github.com/taskshare/taskshare/internal/auth"
	"github.com/taskshare/taskshare/internal/metrics"
	"github.com/taskshare/taskshare/internal/model"
	"github.com/taskshare/taskshare/internal/testutil/memstore"
)

var _ Store = (*memstore.Store)(nil)

var testHasherParams = auth.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type fixture struct {
	ctx     context.Context
	store   *memstore.Store
	metrics *metrics.InMemoryRecorder
	auth    *AuthService
	lists   *TaskListService
	tasks   *TaskService

	alice *model.User
	bob   *model.User
	carol *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memstore.New()
	rec := metrics.NewInMemory()
	f := &fixture{
		ctx:     context.Background(),
		store:   store,
		metrics: rec,
		auth: NewAuthService(AuthConfig{
			Store:   store,
			Hasher:  auth.NewHasher(testHasherParams),
			Metrics: rec,
		}),
		lists: NewTaskListService(store, rec),
		tasks: NewTaskService(store, rec),
	}
	f.alice = f.user(t, "Alice", "alice")
	f.bob = f.user(t, "Bob", "bob")
	f.carol = f.user(t, "Carol", "carol")
	return f
}

func (f *fixture) user(t *testing.T, name, handle string) *model.User {
	t.Helper()
	ts := now()
	u := &model.User{
		ID:        newID(),
		Name:      name,
		Handle:    handle,
		Email:     handle + "@example.com",
		CreatedAt: ts,
		UpdatedAt: ts,
	}
	if err := f.store.CreateUser(f.ctx, u); err != nil {
		t.Fatalf("create user %s: %v", handle, err)
	}
	return u
}

func (f *fixture) list(t *testing.T, owner *model.User, name string) *model.TaskList {
	t.Helper()
	l, err := f.lists.Create(f.ctx, owner, name)
	if err != nil {
		t.Fatalf("create list %q: %v", name, err)
	}
	return l
}

func (f *fixture) task(t *testing.T, actor *model.User, listID, title string) *model.Task {
	t.Helper()
	task, err := f.tasks.Create(f.ctx, actor, listID, title)
	if err != nil {
		t.Fatalf("create task %q: %v", title, err)
	}
	return task
}

func (f *fixture) grant(t *testing.T, owner *model.User, listID string, grantee *model.User, canEdit bool) {
	t.Helper()
	if _, err := f.lists.Grant(f.ctx, owner, listID, grantee.ID, canEdit); err != nil {
		t.Fatalf("grant %s on %s: %v", grantee.Handle, listID, err)
	}
}

func boolPtr(b bool) *bool { return &b }
