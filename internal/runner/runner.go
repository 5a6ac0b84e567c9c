// Package runner supervises a crawl running in a child process, isolating
// the browser so a wedged Chromium can never hang the main program.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"carscout/internal/config"
	"carscout/internal/listing"
	"carscout/internal/progress"
)

// previewLimit caps how much child output lands in error messages.
const previewLimit = 500

// RunError describes a failed crawl run, carrying a bounded preview of the
// child's output for diagnosis.
type RunError struct {
	Stage   string
	Err     error
	Preview string
}

func (e *RunError) Error() string {
	if e.Preview == "" {
		return fmt.Sprintf("crawl run failed at %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("crawl run failed at %s: %v (output: %s)", e.Stage, e.Err, e.Preview)
}

func (e *RunError) Unwrap() error { return e.Err }

// Runner launches the crawl as a child process of this same binary and
// polls its progress file. The child prints the raw record array to
// stdout; logs go to its stderr.
type Runner struct {
	cfg      *config.Config
	execPath string
	schema   *jsonschema.Schema
	logger   *slog.Logger
}

// NewRunner creates a Runner for the current executable.
func NewRunner(cfg *config.Config, logger *slog.Logger) (*Runner, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}
	schema, err := listing.CompileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return &Runner{
		cfg:      cfg,
		execPath: execPath,
		schema:   schema,
		logger:   logger.With("component", "runner"),
	}, nil
}

// Run executes one supervised crawl. A failed run returns an empty record
// set alongside the error, never a partial one: partial child output is
// untrustworthy.
func (r *Runner) Run(ctx context.Context, searchURL string, pages int) (listing.RecordSet, error) {
	runID := uuid.NewString()
	log := r.logger.With("run_id", runID)

	tracker := progress.NewTracker(r.cfg.Progress.Path, log)
	defer func() {
		if err := tracker.Remove(); err != nil {
			log.Warn("progress file cleanup failed", "error", err)
		}
	}()

	cmd := exec.CommandContext(ctx, r.execPath, "crawl",
		"--url", searchURL,
		"--pages", strconv.Itoa(pages),
		"--progress-file", r.cfg.Progress.Path,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Info("starting crawl child", "url", searchURL, "pages", pages)
	start := time.Now()
	if err := cmd.Start(); err != nil {
		return listing.RecordSet{}, &RunError{Stage: "start", Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	ticker := time.NewTicker(r.cfg.Progress.PollInterval)
	defer ticker.Stop()

	var waitErr error
poll:
	for {
		select {
		case waitErr = <-done:
			break poll
		case <-ticker.C:
			r.reportProgress(log, tracker, time.Since(start))
		}
	}

	if waitErr != nil {
		return listing.RecordSet{}, &RunError{
			Stage:   "crawl",
			Err:     waitErr,
			Preview: tail(stderr.Bytes(), previewLimit),
		}
	}

	records, err := r.decodeOutput(stdout.Bytes())
	if err != nil {
		return listing.RecordSet{}, err
	}

	log.Info("crawl child finished",
		"records", len(records),
		"duration", time.Since(start),
	)
	return records, nil
}

// reportProgress logs one snapshot of the child's progress file.
func (r *Runner) reportProgress(log *slog.Logger, tracker *progress.Tracker, elapsed time.Duration) {
	st, err := tracker.Read()
	if err != nil || st == nil {
		return
	}
	log.Info("crawl progress",
		"current", st.Current,
		"total", st.Total,
		"pct", st.ProgressPct,
		"eta", ETA(elapsed, st.Current, st.Total).Round(time.Second),
	)
}

// decodeOutput validates the child's stdout against the record schema
// before decoding it.
func (r *Runner) decodeOutput(data []byte) (listing.RecordSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return listing.RecordSet{}, &RunError{Stage: "decode", Err: fmt.Errorf("child produced no output")}
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return listing.RecordSet{}, &RunError{Stage: "decode", Err: err, Preview: tail(data, previewLimit)}
	}
	if err := r.schema.Validate(generic); err != nil {
		return listing.RecordSet{}, &RunError{Stage: "validate", Err: err, Preview: tail(data, previewLimit)}
	}

	var records listing.RecordSet
	if err := json.Unmarshal(data, &records); err != nil {
		return listing.RecordSet{}, &RunError{Stage: "decode", Err: err, Preview: tail(data, previewLimit)}
	}
	return records, nil
}

// ETA projects the remaining crawl time from the pace so far. Zero until
// the first listing completes.
func ETA(elapsed time.Duration, done, total int) time.Duration {
	if done <= 0 || total <= done {
		return 0
	}
	return time.Duration(int64(elapsed) / int64(done) * int64(total-done))
}

// tail returns the last n bytes of b as a string.
func tail(b []byte, n int) string {
	if len(b) <= n {
		return string(bytes.TrimSpace(b))
	}
	return string(bytes.TrimSpace(b[len(b)-n:]))
}
