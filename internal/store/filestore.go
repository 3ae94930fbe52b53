package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/chris-regnier/sharplint/internal/sarif"
)

var tracer = otel.Tracer("github.com/chris-regnier/sharplint/internal/store")

const (
	sarifFile   = "sarif.json"
	verdictFile = "verdict.json"
)

// FileStore keeps each run in its own directory named
// <UTC timestamp>-<random suffix>, so lexical order is chronological.
type FileStore struct {
	dir string
	now func() time.Time
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir, now: time.Now}
}

func (s *FileStore) newID() string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return s.now().UTC().Format("2006-01-02T15-04-05Z") + "-" + hex.EncodeToString(b)
}

func (s *FileStore) runDir(id string) string {
	return filepath.Join(s.dir, id)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *FileStore) WriteSARIF(ctx context.Context, doc *sarif.Log) (string, error) {
	_, span := tracer.Start(ctx, "store.write_sarif")
	defer span.End()

	id := s.newID()
	if err := os.MkdirAll(s.runDir(id), 0o755); err != nil {
		return "", fail(span, fmt.Errorf("creating run directory: %w", err))
	}
	if err := writeJSON(filepath.Join(s.runDir(id), sarifFile), doc); err != nil {
		return "", fail(span, err)
	}

	span.SetAttributes(
		attribute.String("sharplint.store.id", id),
		attribute.Int("sharplint.store.result_count", len(doc.Results())),
	)
	return id, nil
}

func (s *FileStore) WriteVerdict(ctx context.Context, runID string, verdict *Verdict) error {
	_, span := tracer.Start(ctx, "store.write_verdict")
	defer span.End()

	if _, err := os.Stat(s.runDir(runID)); err != nil {
		return fail(span, notFound(runID, err))
	}
	if err := writeJSON(filepath.Join(s.runDir(runID), verdictFile), verdict); err != nil {
		return fail(span, err)
	}

	span.SetAttributes(
		attribute.String("sharplint.store.id", runID),
		attribute.String("sharplint.gate.decision", verdict.Decision),
	)
	return nil
}

func (s *FileStore) ReadSARIF(_ context.Context, runID string) (*sarif.Log, error) {
	var log sarif.Log
	if err := readJSON(filepath.Join(s.runDir(runID), sarifFile), &log); err != nil {
		return nil, notFound(runID, err)
	}
	return &log, nil
}

func (s *FileStore) ReadVerdict(_ context.Context, runID string) (*Verdict, error) {
	var v Verdict
	if err := readJSON(filepath.Join(s.runDir(runID), verdictFile), &v); err != nil {
		return nil, notFound(runID, err)
	}
	return &v, nil
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() {
			ids = append(ids, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func notFound(id string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
