// Package progress implements the file-based status channel between the
// crawler child process and its supervisor. The file is written by exactly
// one process and read by exactly one other; atomic rename is the only
// synchronization required.
package progress

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// State is the progress snapshot exchanged through the channel file.
type State struct {
	Current     int `json:"current"`
	Total       int `json:"total"`
	ProgressPct int `json:"progress_pct"`
}

// Tracker reads and writes progress state at a well-known path.
type Tracker struct {
	path   string
	logger *slog.Logger
}

// NewTracker creates a Tracker bound to the given file path.
func NewTracker(path string, logger *slog.Logger) *Tracker {
	return &Tracker{
		path:   path,
		logger: logger.With("component", "progress"),
	}
}

// Path returns the canonical channel file path.
func (t *Tracker) Path() string { return t.path }

// Write atomically replaces the channel file with a new state. The state
// is fully serialized to a temp file first and renamed over the canonical
// path, so a concurrent reader observes either the prior state or the new
// one, never a truncated write.
func (t *Tracker) Write(current, total int) error {
	pct := 0
	if total > 0 {
		pct = current * 100 / total
	}
	state := State{Current: current, Total: total, ProgressPct: pct}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	tmpPath := t.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write progress temp file: %w", err)
	}
	if err := os.Rename(tmpPath, t.path); err != nil {
		return fmt.Errorf("replace progress file: %w", err)
	}
	return nil
}

// Read returns the current state, or nil when the file does not exist or
// does not parse. Both cases mean "not yet available", not an error: the
// child may not have written its first update, or a write from a previous
// run may have been cleaned up already.
func (t *Tracker) Read() (*State, error) {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read progress file: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		t.logger.Debug("progress file not parseable yet", "error", err)
		return nil, nil
	}
	return &state, nil
}

// Remove deletes the channel file so a stale state never leaks into the
// next run. Missing file is not an error.
func (t *Tracker) Remove() error {
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove progress file: %w", err)
	}
	return nil
}
