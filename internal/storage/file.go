package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"carscout/internal/valuation"
)

// JSONWriter buffers ranked listings and writes them as an indented JSON
// array on Close.
type JSONWriter struct {
	path   string
	docs   []map[string]any
	mu     sync.Mutex
	logger *slog.Logger
}

// NewJSONWriter creates a JSON file backend.
func NewJSONWriter(outputPath string, logger *slog.Logger) (*JSONWriter, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}
	return &JSONWriter{
		path:   outputPath,
		logger: logger.With("component", "json_writer"),
	}, nil
}

func (w *JSONWriter) Name() string { return "json" }

func (w *JSONWriter) Write(listings []*valuation.EvaluatedListing) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, ev := range listings {
		w.docs = append(w.docs, resultDoc(len(w.docs)+1, ev))
	}
	return nil
}

func (w *JSONWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer f.Close()

	docs := w.docs
	if docs == nil {
		docs = []map[string]any{}
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(docs); err != nil {
		return fmt.Errorf("encode JSON: %w", err)
	}

	w.logger.Info("results written", "path", w.path, "listings", len(w.docs))
	return nil
}

// CSVWriter streams ranked listings as CSV rows.
type CSVWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewCSVWriter creates a CSV file backend and writes the header row.
func NewCSVWriter(outputPath string, logger *slog.Logger) (*CSVWriter, error) {
	if err := ensureDir(outputPath); err != nil {
		return nil, err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	w := &CSVWriter{
		path:   outputPath,
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger.With("component", "csv_writer"),
	}
	if err := w.writer.Write(resultColumns); err != nil {
		f.Close()
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	return w, nil
}

func (w *CSVWriter) Name() string { return "csv" }

func (w *CSVWriter) Write(listings []*valuation.EvaluatedListing) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ev := range listings {
		w.count++
		if err := w.writer.Write(resultStrings(w.count, ev)); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	w.writer.Flush()
	return w.writer.Error()
}

func (w *CSVWriter) Close() error {
	w.logger.Info("results written", "path", w.path, "listings", w.count)
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

func ensureDir(outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
