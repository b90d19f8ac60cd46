package access

import (
	"context"
	"errors"
	"testing"

	"github.com/taskshare/taskshare/internal/model"
	"github.com/taskshare/taskshare/internal/testutil"
	"github.com/taskshare/taskshare/internal/testutil/memstore"
)

type fixture struct {
	ctx    context.Context
	store  *memstore.Store
	engine *Engine
	owner  *model.User
	viewer *model.User
	editor *model.User
	other  *model.User
	list   *model.TaskList
	task   *model.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()

	f := &fixture{
		ctx:    ctx,
		store:  store,
		engine: NewEngine(store),
		owner:  testutil.NewTestUser(t, "owner"),
		viewer: testutil.NewTestUser(t, "viewer"),
		editor: testutil.NewTestUser(t, "editor"),
		other:  testutil.NewTestUser(t, "other"),
	}
	for _, u := range []*model.User{f.owner, f.viewer, f.editor, f.other} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}

	f.list = testutil.NewTestTaskList(t, f.owner.ID, "Groceries")
	if err := store.CreateTaskList(ctx, f.list); err != nil {
		t.Fatalf("create list: %v", err)
	}
	f.task = testutil.NewTestTask(t, f.list.ID, "Milk")
	if err := store.CreateTask(ctx, f.task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	for _, sh := range []*model.Share{
		testutil.NewTestShare(t, f.list.ID, f.viewer.ID, false),
		testutil.NewTestShare(t, f.list.ID, f.editor.ID, true),
	} {
		if err := store.UpsertShare(ctx, sh); err != nil {
			t.Fatalf("share: %v", err)
		}
	}

	return f
}

func TestEngine_ListPermissions(t *testing.T) {
	f := newFixture(t)

	testCases := []struct {
		name     string
		user     *model.User
		wantView bool
		wantEdit bool
	}{
		{name: "owner", user: f.owner, wantView: true, wantEdit: true},
		{name: "view-only grantee", user: f.viewer, wantView: true, wantEdit: false},
		{name: "edit grantee", user: f.editor, wantView: true, wantEdit: true},
		{name: "unrelated user", user: f.other, wantView: false, wantEdit: false},
		{name: "nil user", user: nil, wantView: false, wantEdit: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			view, err := f.engine.CanViewList(f.ctx, tc.user, f.list)
			if err != nil {
				t.Fatalf("CanViewList error: %v", err)
			}
			if view != tc.wantView {
				t.Errorf("CanViewList = %v, want %v", view, tc.wantView)
			}

			edit, err := f.engine.CanEditList(f.ctx, tc.user, f.list)
			if err != nil {
				t.Fatalf("CanEditList error: %v", err)
			}
			if edit != tc.wantEdit {
				t.Errorf("CanEditList = %v, want %v", edit, tc.wantEdit)
			}
		})
	}
}

func TestEngine_TaskPermissionsFollowList(t *testing.T) {
	f := newFixture(t)

	for _, user := range []*model.User{f.owner, f.viewer, f.editor, f.other} {
		listView, _ := f.engine.CanViewList(f.ctx, user, f.list)
		listEdit, _ := f.engine.CanEditList(f.ctx, user, f.list)

		taskView, err := f.engine.CanViewTask(f.ctx, user, f.task)
		if err != nil {
			t.Fatalf("CanViewTask error: %v", err)
		}
		taskEdit, err := f.engine.CanEditTask(f.ctx, user, f.task)
		if err != nil {
			t.Fatalf("CanEditTask error: %v", err)
		}

		if taskView != listView || taskEdit != listEdit {
			t.Errorf("user %s: task (view=%v edit=%v) differs from list (view=%v edit=%v)",
				user.Name, taskView, taskEdit, listView, listEdit)
		}
	}
}

func TestEngine_OwnerIgnoresShareRows(t *testing.T) {
	f := newFixture(t)

	// A stray view-only row naming the owner must not downgrade them.
	stray := &model.Share{ID: "stray", TaskListID: f.list.ID, UserID: f.owner.ID, CanEdit: false}
	if err := f.store.UpsertShare(f.ctx, stray); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	edit, err := f.engine.CanEditList(f.ctx, f.owner, f.list)
	if err != nil {
		t.Fatalf("CanEditList error: %v", err)
	}
	if !edit {
		t.Error("owner must always be able to edit")
	}
}

func TestEngine_UpgradeShare(t *testing.T) {
	f := newFixture(t)

	upgrade := testutil.NewTestShare(t, f.list.ID, f.viewer.ID, true)
	if err := f.store.UpsertShare(f.ctx, upgrade); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	edit, err := f.engine.CanEditTask(f.ctx, f.viewer, f.task)
	if err != nil {
		t.Fatalf("CanEditTask error: %v", err)
	}
	if !edit {
		t.Error("expected upgraded grantee to edit tasks")
	}
}

func TestEngine_MissingListIsNotFound(t *testing.T) {
	f := newFixture(t)

	orphan := &model.Task{ID: "orphan", TaskListID: "does-not-exist"}

	_, err := f.engine.CanViewTask(f.ctx, f.owner, orphan)
	if !errors.Is(err, ErrTaskListNotFound) {
		t.Errorf("expected ErrTaskListNotFound, got %v", err)
	}

	_, err = f.engine.CanEditTask(f.ctx, f.owner, orphan)
	if !errors.Is(err, ErrTaskListNotFound) {
		t.Errorf("expected ErrTaskListNotFound, got %v", err)
	}
}

func TestEngine_StoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection refused")
	f.store.Err = boom

	_, err := f.engine.CanViewList(f.ctx, f.viewer, f.list)
	if !errors.Is(err, boom) {
		t.Errorf("expected store error to propagate, got %v", err)
	}

	// Owners are decided without touching the store.
	ok, err := f.engine.CanEditList(f.ctx, f.owner, f.list)
	if err != nil || !ok {
		t.Errorf("owner decision should not need the store: ok=%v err=%v", ok, err)
	}
}

func TestLevelFor(t *testing.T) {
	owner := &model.User{ID: "o"}
	grantee := &model.User{ID: "g"}
	list := &model.TaskList{ID: "l", OwnerID: "o"}

	testCases := []struct {
		name  string
		user  *model.User
		share *model.Share
		want  Level
	}{
		{name: "owner without share", user: owner, want: LevelEdit},
		{name: "grantee without share", user: grantee, want: LevelNone},
		{name: "view share", user: grantee, share: &model.Share{TaskListID: "l", UserID: "g"}, want: LevelView},
		{name: "edit share", user: grantee, share: &model.Share{TaskListID: "l", UserID: "g", CanEdit: true}, want: LevelEdit},
		{name: "share for other list", user: grantee, share: &model.Share{TaskListID: "x", UserID: "g", CanEdit: true}, want: LevelNone},
		{name: "share for other user", user: grantee, share: &model.Share{TaskListID: "l", UserID: "z", CanEdit: true}, want: LevelNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := LevelFor(tc.user, list, tc.share); got != tc.want {
				t.Errorf("LevelFor() = %s, want %s", got, tc.want)
			}
		})
	}
}
