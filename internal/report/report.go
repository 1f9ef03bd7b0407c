// Package report writes and reads versioned, write-once run reports.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/thesis-scout/internal/model"
)

const (
	fileMode = 0o444
	dirMode  = 0o755

	timestampLayout = "20060102T150405Z"
)

// Artifact describes a written report file.
type Artifact struct {
	Path     string `json:"path"`
	Checksum string `json:"checksum"`
	Bytes    int    `json:"bytes"`
}

// Writer persists reports under a directory. Existing files are never
// overwritten.
type Writer struct {
	dir string
}

// NewWriter creates a Writer for dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// FileName returns the artifact file name for a report.
func FileName(r *model.Report) string {
	return fmt.Sprintf("report-%s-%s.json", r.Timestamp.UTC().Format(timestampLayout), r.RunID)
}

// Write encodes r and creates its artifact file read-only. It fails if a
// file with the same name already exists.
func (w *Writer) Write(ctx context.Context, r *model.Report) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, eris.Wrap(err, "report: write")
	}
	if r.RunID == "" {
		return Artifact{}, eris.New("report: missing run id")
	}
	if r.SchemaVersion == 0 {
		r.SchemaVersion = model.SchemaVersion
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	data, err := Encode(r)
	if err != nil {
		return Artifact{}, err
	}

	if err := os.MkdirAll(w.dir, dirMode); err != nil {
		return Artifact{}, eris.Wrapf(err, "report: create dir %s", w.dir)
	}
	path := filepath.Join(w.dir, FileName(r))

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return Artifact{}, eris.Wrapf(err, "report: create %s", path)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path) //nolint:errcheck
		return Artifact{}, eris.Wrapf(err, "report: write %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(path) //nolint:errcheck
		return Artifact{}, eris.Wrapf(err, "report: close %s", path)
	}

	art := Artifact{Path: path, Checksum: Checksum(data), Bytes: len(data)}
	zap.L().Info("report: written",
		zap.String("run_id", r.RunID),
		zap.String("path", art.Path),
		zap.String("checksum", art.Checksum),
	)
	return art, nil
}

// Encode renders r as indented JSON. Empty lists encode as [] rather than
// null.
func Encode(r *model.Report) ([]byte, error) {
	out := *r
	out.Providers = nonNil(out.Providers)
	out.Segments = make([]model.SegmentResult, len(r.Segments))
	for i, s := range r.Segments {
		companies := make([]model.Company, len(s.Companies))
		for j, c := range s.Companies {
			c.KPIAlignment = nonNil(c.KPIAlignment)
			c.Sources = nonNil(c.Sources)
			companies[j] = c
		}
		out.Segments[i] = model.SegmentResult{Name: s.Name, Companies: companies}
	}
	out.ValidationSummary.Reasons = nonNil(out.ValidationSummary.Reasons)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		return nil, eris.Wrap(err, "report: encode")
	}
	return buf.Bytes(), nil
}

// Checksum returns the hex xxhash64 of data.
func Checksum(data []byte) string {
	h := xxhash.New64()
	h.Write(data) //nolint:errcheck
	return fmt.Sprintf("%016x", h.Sum64())
}

// Load reads a report artifact.
func Load(path string) (*model.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read %s", path)
	}
	var r model.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrapf(err, "report: decode %s", path)
	}
	if r.SchemaVersion > model.SchemaVersion {
		return nil, eris.Errorf("report: %s has schema version %d, newest supported is %d", path, r.SchemaVersion, model.SchemaVersion)
	}
	return &r, nil
}

// Verify reports whether the file at path still matches checksum.
func Verify(path, checksum string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, eris.Wrapf(err, "report: read %s", path)
	}
	return Checksum(data) == checksum, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
