package migrations

import (
	"strings"
	"testing"
)

func TestAll_OrderedAndPaired(t *testing.T) {
	all, err := All()
	if err != nil {
		t.Fatalf("All() error: %v", err)
	}

	want := []string{"000001_users", "000002_access_tokens", "000003_task_lists", "000004_tasks"}
	if len(all) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(all))
	}

	for i, m := range all {
		if m.Name != want[i] {
			t.Errorf("migration %d: got %q, want %q", i, m.Name, want[i])
		}
		if strings.TrimSpace(m.Up) == "" || strings.TrimSpace(m.Down) == "" {
			t.Errorf("migration %s has an empty up or down script", m.Name)
		}
	}
}

func TestAll_SharesCascadeWithList(t *testing.T) {
	all, err := All()
	if err != nil {
		t.Fatalf("All() error: %v", err)
	}

	var lists string
	for _, m := range all {
		if m.Name == "000003_task_lists" {
			lists = m.Up
		}
	}

	if !strings.Contains(lists, "PRIMARY KEY (task_list_id, user_id)") {
		t.Error("task_list_shares must be keyed by (task_list_id, user_id)")
	}
	if !strings.Contains(lists, "REFERENCES task_lists (id) ON DELETE CASCADE") {
		t.Error("shares must cascade on list deletion")
	}
}
