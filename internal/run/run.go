// Package run records pipeline run summaries: one entry per step with
// outcome counts, appended to a bounded JSON history for the status
// command and the ops API to read back.
package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/gamesync/internal/logger"
)

// historyLimit bounds how many run summaries the history file keeps.
const historyLimit = 20

// Run statuses.
const (
	StatusRunning             = "running"
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
)

// Step statuses.
const (
	StepCompleted = "completed"
	StepFailed    = "failed"
	StepSkipped   = "skipped"
)

// StepResult is the outcome of one pipeline step.
type StepResult struct {
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Counts     map[string]int `json:"counts,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Summary is the persisted record of one pipeline run.
type Summary struct {
	ID         string       `json:"id"`
	Status     string       `json:"status"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at,omitzero"`
	Steps      []StepResult `json:"steps"`
}

// Recorder accumulates step results for one run and persists the
// summary. Step failures are recorded, never propagated: a failed step
// must not stop the steps after it.
type Recorder struct {
	path string
	log  logger.Interface

	mu      sync.Mutex
	summary Summary

	now func() time.Time
}

// NewRecorder starts a new run with a fresh run ID.
func NewRecorder(path string, log logger.Interface) *Recorder {
	r := &Recorder{
		path: path,
		log:  log,
		now:  time.Now,
	}
	r.summary = Summary{
		ID:        uuid.NewString(),
		Status:    StatusRunning,
		StartedAt: r.now(),
	}
	return r
}

// ID returns the run ID.
func (r *Recorder) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary.ID
}

// RecordStep appends the outcome of a step that started at start.
func (r *Recorder) RecordStep(name string, start time.Time, counts map[string]int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	step := StepResult{
		Name:       name,
		Status:     StepCompleted,
		Counts:     counts,
		StartedAt:  start,
		FinishedAt: r.now(),
	}
	if err != nil {
		step.Status = StepFailed
		step.Error = err.Error()
	}
	r.summary.Steps = append(r.summary.Steps, step)
}

// RecordSkip appends a step that was not run.
func (r *Recorder) RecordSkip(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.summary.Steps = append(r.summary.Steps, StepResult{
		Name:       name,
		Status:     StepSkipped,
		Error:      reason,
		StartedAt:  now,
		FinishedAt: now,
	})
}

// Finish stamps the end of the run, derives the overall status from the
// recorded steps, and appends the summary to the run history.
func (r *Recorder) Finish() (Summary, error) {
	r.mu.Lock()
	r.summary.FinishedAt = r.now()
	r.summary.Status = StatusCompleted
	for _, step := range r.summary.Steps {
		if step.Status == StepFailed {
			r.summary.Status = StatusCompletedWithErrors
			break
		}
	}
	summary := r.summary
	r.mu.Unlock()

	history, err := LoadHistory(r.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.log.Warn("Run history unreadable, starting fresh", "path", r.path, "error", err)
	}
	history = append(history, summary)
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}

	if err := writeHistory(r.path, history); err != nil {
		return summary, err
	}

	r.log.Info("Run summary saved",
		"run_id", summary.ID,
		"status", summary.Status,
		"steps", len(summary.Steps),
	)
	return summary, nil
}

// writeHistory replaces the history file via a temp file so a crash
// mid-write never leaves a truncated history behind.
func writeHistory(path string, history []Summary) error {
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run history: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run history: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace run history: %w", err)
	}
	return nil
}

// LoadHistory reads the persisted run summaries, oldest first.
func LoadHistory(path string) ([]Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}
	var history []Summary
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to parse run history: %w", err)
	}
	return history, nil
}

// LoadLatest returns the most recent run summary in the history.
func LoadLatest(path string) (*Summary, error) {
	history, err := LoadHistory(path)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, errors.New("run history is empty")
	}
	return &history[len(history)-1], nil
}
