package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAccessToken_IsExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	testCases := []struct {
		name      string
		expiresAt *time.Time
		want      bool
	}{
		{name: "no expiry", expiresAt: nil, want: false},
		{name: "expired", expiresAt: &past, want: true},
		{name: "expires exactly now", expiresAt: &now, want: true},
		{name: "still valid", expiresAt: &future, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			token := &AccessToken{ExpiresAt: tc.expiresAt}
			if got := token.IsExpired(now); got != tc.want {
				t.Errorf("IsExpired() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTaskList_IsOwnedBy(t *testing.T) {
	list := &TaskList{ID: "l1", OwnerID: "alice"}

	if !list.IsOwnedBy("alice") {
		t.Error("expected alice to own the list")
	}
	if list.IsOwnedBy("bob") {
		t.Error("expected bob not to own the list")
	}
	if list.IsOwnedBy("") {
		t.Error("empty user id must never own a list")
	}

	var missing *TaskList
	if missing.IsOwnedBy("alice") {
		t.Error("nil list must not be owned")
	}
}

func TestUser_PasswordHashNotSerialized(t *testing.T) {
	user := &User{ID: "u1", Name: "Alice", Handle: "alice", Email: "a@example.com", PasswordHash: "$argon2id$secret"}

	data, err := json.Marshal(user)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}

	if strings.Contains(string(data), "argon2id") {
		t.Errorf("password hash leaked into JSON: %s", data)
	}
	if !strings.Contains(string(data), `"user_name":"alice"`) {
		t.Errorf("expected handle under user_name, got %s", data)
	}
}

func TestSharedTaskList_FlattensList(t *testing.T) {
	shared := SharedTaskList{
		TaskList: TaskList{ID: "l1", Name: "Groceries", OwnerID: "alice"},
		CanEdit:  true,
	}

	data, err := json.Marshal(shared)
	if err != nil {
		t.Fatalf("marshal shared list: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded["name"] != "Groceries" {
		t.Errorf("expected embedded list fields at top level, got %v", decoded)
	}
	if decoded["is_edit"] != true {
		t.Errorf("expected is_edit=true, got %v", decoded["is_edit"])
	}
}

func TestUser_PublicNil(t *testing.T) {
	var u *User
	if u.Public() != nil {
		t.Error("expected nil public user for nil user")
	}
}
