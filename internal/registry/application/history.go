package application

import "sync"

const defaultHistoryCapacity = 50

// RunHistory keeps the most recent run summaries, newest first.
type RunHistory struct {
	mu       sync.RWMutex
	capacity int
	runs     []RunSummary
}

// NewRunHistory constructs a history; capacity <= 0 uses the default of 50.
func NewRunHistory(capacity int) *RunHistory {
	if capacity <= 0 {
		capacity = defaultHistoryCapacity
	}
	return &RunHistory{capacity: capacity}
}

// Add records a summary, evicting the oldest beyond capacity.
func (h *RunHistory) Add(summary RunSummary) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append([]RunSummary{summary.clone()}, h.runs...)
	if len(h.runs) > h.capacity {
		h.runs = h.runs[:h.capacity]
	}
}

// List returns the recorded summaries, newest first.
func (h *RunHistory) List() []RunSummary {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]RunSummary, len(h.runs))
	for i, run := range h.runs {
		out[i] = run.clone()
	}
	return out
}

// Get returns the summary with the given run id.
func (h *RunHistory) Get(runID string) (RunSummary, bool) {
	if h == nil {
		return RunSummary{}, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, run := range h.runs {
		if run.RunID == runID {
			return run.clone(), true
		}
	}
	return RunSummary{}, false
}
