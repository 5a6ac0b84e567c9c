package runner

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"carscout/internal/config"
	"carscout/internal/listing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	schema, err := listing.CompileSchema()
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	return &Runner{
		cfg:    config.DefaultConfig(),
		schema: schema,
		logger: testLogger,
	}
}

func TestETA(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		done    int
		total   int
		want    time.Duration
	}{
		{"halfway", 10 * time.Minute, 50, 100, 10 * time.Minute},
		{"one done of four", 30 * time.Second, 1, 4, 90 * time.Second},
		{"nothing done yet", 5 * time.Minute, 0, 100, 0},
		{"all done", 10 * time.Minute, 100, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ETA(tt.elapsed, tt.done, tt.total); got != tt.want {
				t.Errorf("ETA(%v, %d, %d) = %v, want %v", tt.elapsed, tt.done, tt.total, got, tt.want)
			}
		})
	}
}

func validChildOutput() string {
	rec := &listing.Record{
		ListingID: listing.Str("123"),
		Title:     listing.Str("Toyota Corolla 2019"),
		Price:     listing.Str("89000"),
		URL:       "https://www.yad2.co.il/item/123",
	}
	data, _ := listing.RecordSet{rec}.MarshalJSON()
	return string(data)
}

func TestDecodeOutputValid(t *testing.T) {
	r := newTestRunner(t)

	records, err := r.decodeOutput([]byte(validChildOutput()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Price == nil || *records[0].Price != "89000" {
		t.Errorf("price lost in decode: %v", records[0].Price)
	}
}

func TestDecodeOutputEmptyArray(t *testing.T) {
	r := newTestRunner(t)

	records, err := r.decodeOutput([]byte("[]"))
	if err != nil {
		t.Fatalf("empty array should validate: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected 0 records, got %d", len(records))
	}
}

func TestDecodeOutputFailures(t *testing.T) {
	r := newTestRunner(t)

	tests := []struct {
		name  string
		data  string
		stage string
	}{
		{"empty output", "", "decode"},
		{"not json", "panic: runtime error", "decode"},
		{"not an array", `{"url": "https://x"}`, "validate"},
		{"object missing keys", `[{"url": "https://x"}]`, "validate"},
		{"wrong value type", `[{"url": 42}]`, "validate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := r.decodeOutput([]byte(tt.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if len(records) != 0 {
				t.Errorf("failed decode must return an empty set, got %d records", len(records))
			}
			var runErr *RunError
			if !errors.As(err, &runErr) {
				t.Fatalf("expected *RunError, got %T", err)
			}
			if runErr.Stage != tt.stage {
				t.Errorf("stage = %q, want %q", runErr.Stage, tt.stage)
			}
		})
	}
}

func TestTailTruncates(t *testing.T) {
	long := strings.Repeat("x", 2000) + "END"
	got := tail([]byte(long), previewLimit)
	if len(got) > previewLimit {
		t.Errorf("tail length %d exceeds limit", len(got))
	}
	if !strings.HasSuffix(got, "END") {
		t.Error("tail should keep the end of the output")
	}

	if got := tail([]byte("  short  "), previewLimit); got != "short" {
		t.Errorf("short input should pass through trimmed, got %q", got)
	}
}

func TestRunErrorMessage(t *testing.T) {
	err := &RunError{Stage: "crawl", Err: errors.New("exit status 1"), Preview: "browser launch failed"}
	msg := err.Error()
	if !strings.Contains(msg, "crawl") || !strings.Contains(msg, "browser launch failed") {
		t.Errorf("unhelpful error message: %q", msg)
	}
}
