// Package report reads and writes run artifacts: the serialized
// score+row output of one scoring run. Artifacts are what the diff
// engine consumes, independent of the live resolver.
package report

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/baselinegate/baselinegate/internal/scoring"
)

// Artifact is the serialized output of one scoring run.
type Artifact struct {
	RunID     string        `json:"run_id"`
	CreatedAt time.Time     `json:"created_at"`
	Endpoint  string        `json:"endpoint,omitempty"`
	Score     float64       `json:"score"`
	Warnings  []string      `json:"warnings,omitempty"`
	Rows      []scoring.Row `json:"rows"`
}

// New wraps a scoring result into an artifact with a fresh run ID.
func New(result scoring.Result, endpoint string) Artifact {
	return Artifact{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Endpoint:  endpoint,
		Score:     result.Score,
		Warnings:  result.Warnings,
		Rows:      result.Rows,
	}
}

// Validate checks the structural invariants the diff engine relies on.
func (a Artifact) Validate() error {
	if a.Rows == nil {
		return fmt.Errorf("artifact missing rows")
	}
	if math.IsNaN(a.Score) || math.IsInf(a.Score, 0) || a.Score < 0 || a.Score > 1 {
		return fmt.Errorf("artifact score %v outside [0,1]", a.Score)
	}
	for i, row := range a.Rows {
		if row.FeatureID == "" {
			return fmt.Errorf("artifact row %d missing feature_id", i)
		}
	}
	return nil
}

// Write serializes an artifact to path, gzip-compressed when the path
// ends in .gz.
func Write(path string, a Artifact) error {
	data, err := sonic.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode artifact: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	defer f.Close()

	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return fmt.Errorf("failed to finish artifact: %w", err)
		}
	}
	return nil
}

// Read loads an artifact from path, transparently decompressing .gz
// files. The artifact is validated before being returned.
func Read(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to open artifact: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Artifact{}, fmt.Errorf("failed to decompress artifact: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to read artifact: %w", err)
	}

	var a Artifact
	if err := sonic.Unmarshal(data, &a); err != nil {
		return Artifact{}, fmt.Errorf("malformed artifact: %w", err)
	}
	if err := a.Validate(); err != nil {
		return Artifact{}, fmt.Errorf("invalid artifact %s: %w", path, err)
	}
	return a, nil
}
