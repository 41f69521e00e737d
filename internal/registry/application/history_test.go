package application

import (
	"fmt"
	"testing"
)

func TestRunHistoryNewestFirstWithCapacity(t *testing.T) {
	h := NewRunHistory(2)
	for i := 1; i <= 3; i++ {
		h.Add(RunSummary{RunID: fmt.Sprintf("run-%d", i)})
	}
	runs := h.List()
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-3" || runs[1].RunID != "run-2" {
		t.Fatalf("unexpected order %s, %s", runs[0].RunID, runs[1].RunID)
	}
	if _, ok := h.Get("run-1"); ok {
		t.Fatal("expected run-1 to be evicted")
	}
	if run, ok := h.Get("run-2"); !ok || run.RunID != "run-2" {
		t.Fatalf("expected run-2, got %+v", run)
	}
}

func TestRunHistoryReturnsCopies(t *testing.T) {
	h := NewRunHistory(0)
	h.Add(RunSummary{RunID: "r", Files: []string{"a"}})
	runs := h.List()
	runs[0].Files[0] = "mutated"
	again, _ := h.Get("r")
	if again.Files[0] != "a" {
		t.Fatalf("history was mutated through List: %v", again.Files)
	}
}

func TestNilRunHistory(t *testing.T) {
	var h *RunHistory
	h.Add(RunSummary{RunID: "x"})
	if h.List() != nil {
		t.Fatal("expected nil list")
	}
	if _, ok := h.Get("x"); ok {
		t.Fatal("expected miss")
	}
}
