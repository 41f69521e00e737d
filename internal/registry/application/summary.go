package application

import (
	"time"

	registry "utility-registry/internal/registry/domain"
)

// FailureReason classifies a per-subscriber failure.
type FailureReason string

const (
	ReasonNoData   FailureReason = "no_data"
	ReasonError    FailureReason = "error"
	ReasonCanceled FailureReason = "canceled"
)

// Failure records why a subscriber produced no registry.
type Failure struct {
	SubscriberID   int64         `json:"subscriber_id"`
	SubscriberName string        `json:"subscriber_name"`
	Reason         FailureReason `json:"reason"`
	Message        string        `json:"message"`
}

// RunSummary is the frozen result of one generation run.
type RunSummary struct {
	RunID      string          `json:"run_id"`
	Period     registry.Period `json:"period"`
	Total      int             `json:"total"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Failures   []Failure       `json:"failures"`
	Files      []string        `json:"files"`
	OutputDir  string          `json:"output_dir"`
	Canceled   bool            `json:"canceled"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Duration is the wall time of the run.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// FailuresByReason returns the failures with the given reason.
func (s RunSummary) FailuresByReason(reason FailureReason) []Failure {
	var out []Failure
	for _, f := range s.Failures {
		if f.Reason == reason {
			out = append(out, f)
		}
	}
	return out
}

func (s RunSummary) clone() RunSummary {
	failures := make([]Failure, len(s.Failures))
	copy(failures, s.Failures)
	files := make([]string, len(s.Files))
	copy(files, s.Files)
	s.Failures = failures
	s.Files = files
	return s
}

// runState accumulates counters while a run is in progress.
type runState struct {
	summary RunSummary
}

func newRunState(runID string, period registry.Period, total int, outputDir string, started time.Time) *runState {
	return &runState{summary: RunSummary{
		RunID:     runID,
		Period:    period,
		Total:     total,
		OutputDir: outputDir,
		StartedAt: started,
	}}
}

func (s *runState) succeed(path string) {
	s.summary.Succeeded++
	s.summary.Files = append(s.summary.Files, path)
}

func (s *runState) fail(sub registry.Subscriber, reason FailureReason, msg string) {
	s.summary.Failed++
	s.summary.Failures = append(s.summary.Failures, Failure{
		SubscriberID:   sub.ID,
		SubscriberName: sub.Name,
		Reason:         reason,
		Message:        msg,
	})
}

func (s *runState) freeze(finished time.Time, canceled bool) RunSummary {
	s.summary.FinishedAt = finished
	s.summary.Canceled = canceled
	return s.summary.clone()
}
