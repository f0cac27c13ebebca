package pool

import (
	"errors"
	"testing"

	"github.com/battkit/ocvd/pkg/ocv"
)

func TestSaveAssignsIdentity(t *testing.T) {
	s := NewStore(t.TempDir())

	rec, err := s.Save(Record{
		PristineID:  "cell-a",
		Degradation: ocv.Parameters{LLI: 0.1, LAMPE: 0.02, LAMNE: 0.03},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID == "" || rec.CreatedAt == "" {
		t.Errorf("missing identity: %+v", rec)
	}
}

func TestSaveRequiresPristineID(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Save(Record{}); err == nil {
		t.Error("expected error for a record without pristine_id")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := NewStore(t.TempDir())

	saved, err := s.Save(Record{
		Label:       "after 500 cycles",
		PristineID:  "cell-a",
		Degradation: ocv.Parameters{LLI: 0.12, LAMPE: 0.04, LAMNE: 0.06},
		Solver:      map[string]any{"rmse_v": 1.2e-4},
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Load(saved.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Label != saved.Label || got.PristineID != saved.PristineID || got.Degradation != saved.Degradation {
		t.Errorf("got %+v, want %+v", got, saved)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := NewStore(t.TempDir())

	for i, ts := range []string{"2026-08-01T00:00:00Z", "2026-08-03T00:00:00Z", "2026-08-02T00:00:00Z"} {
		if _, err := s.Save(Record{
			ID:         string(rune('a' + i)),
			CreatedAt:  ts,
			PristineID: "cell-a",
		}); err != nil {
			t.Fatal(err)
		}
	}

	items, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].ID != "b" || items[1].ID != "c" || items[2].ID != "a" {
		t.Errorf("got order %s, %s, %s, want b, c, a", items[0].ID, items[1].ID, items[2].ID)
	}
}

func TestListEmptyStore(t *testing.T) {
	s := NewStore(t.TempDir() + "/never-created")
	items, err := s.List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}

func TestLoadUnknownID(t *testing.T) {
	s := NewStore(t.TempDir())
	if _, err := s.Load("does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestLoadRejectsTraversal(t *testing.T) {
	s := NewStore(t.TempDir())

	for _, id := range []string{"", "..", "../secret", "a/b", "nested/.."} {
		if _, err := s.Load(id); err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("Load(%q) = %v, want a validation error", id, err)
		}
	}
}
