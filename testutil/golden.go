// Package testutil provides golden-file comparison helpers shared across
// package test suites, for pinning down the exact shape of a resolved
// type or a lowered CompiledFunction rather than re-deriving it by hand
// in every test.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// UpdateGoldens controls whether to update golden files.
// Set via environment variable: UPDATE_GOLDENS=true go test ./...
var UpdateGoldens = os.Getenv("UPDATE_GOLDENS") == "true"

// GoldenMeta records the platform a golden file was last written on, for
// provenance. It is never part of the comparison itself — a golden file
// generated on one Go version/OS/arch must still compare equal when
// checked on another.
type GoldenMeta struct {
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GoldenFile is a golden file's on-disk shape: recorded metadata plus the
// actual comparison payload.
type GoldenFile struct {
	Meta GoldenMeta  `json:"meta"`
	Data interface{} `json:"data"`
}

// GetGoldenPath returns the path to a golden file.
func GetGoldenPath(feature, name string) string {
	return filepath.Join("testdata", feature, name+".golden.json")
}

// normalize round-trips v through JSON so a typed Go value (a struct, a
// named int opcode, ...) and a value decoded from a golden file on disk
// (plain maps, slices, float64) land in the same generic shape before
// being passed to cmp.Diff.
func normalize(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CompareWithGolden diffs actual's JSON-normalized structure against the
// recorded golden file for feature/name, using go-cmp for the comparison
// and diff rendering rather than a hand-rolled string comparison.
func CompareWithGolden(t *testing.T, feature, name string, actual interface{}) {
	t.Helper()

	goldenPath := GetGoldenPath(feature, name)
	normalized, err := normalize(actual)
	if err != nil {
		t.Fatalf("failed to normalize actual data: %v", err)
	}

	if UpdateGoldens {
		golden := GoldenFile{
			Meta: GoldenMeta{GoVersion: runtime.Version(), OS: runtime.GOOS, Arch: runtime.GOARCH},
			Data: normalized,
		}
		out, err := json.MarshalIndent(golden, "", "  ")
		if err != nil {
			t.Fatalf("failed to marshal golden file: %v", err)
		}
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			t.Fatalf("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(goldenPath, out, 0644); err != nil {
			t.Fatalf("failed to write golden file: %v", err)
		}
		t.Logf("updated golden file: %s", goldenPath)
		return
	}

	raw, err := os.ReadFile(goldenPath)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("golden file does not exist: %s\nrun with UPDATE_GOLDENS=true to create", goldenPath)
		}
		t.Fatalf("failed to read golden file: %v", err)
	}
	var golden GoldenFile
	if err := json.Unmarshal(raw, &golden); err != nil {
		t.Fatalf("failed to parse golden file %s: %v", goldenPath, err)
	}

	if diff := cmp.Diff(golden.Data, normalized); diff != "" {
		t.Errorf("golden file mismatch for %s/%s (-want +got):\n%s", feature, name, diff)
	}
}

// AssertGoldenJSON compares an already-serialized JSON payload (e.g. a
// diagnostics encoder's output) against a golden file.
func AssertGoldenJSON(t *testing.T, feature, name string, actualJSON []byte) {
	t.Helper()

	var actual interface{}
	if err := json.Unmarshal(actualJSON, &actual); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
	CompareWithGolden(t, feature, name, actual)
}

// CreateGoldenTest runs one subtest per case, each comparing Data against
// its own golden file named Name.
func CreateGoldenTest(t *testing.T, feature string, tests []struct {
	Name string
	Data interface{}
}) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			CompareWithGolden(t, feature, tt.Name, tt.Data)
		})
	}
}

// LoadGoldenFile loads and returns a golden file's recorded data.
func LoadGoldenFile(t *testing.T, feature, name string) interface{} {
	t.Helper()

	goldenPath := GetGoldenPath(feature, name)
	data, err := os.ReadFile(goldenPath)
	if err != nil {
		t.Fatalf("failed to load golden file %s: %v", goldenPath, err)
	}

	var golden GoldenFile
	if err := json.Unmarshal(data, &golden); err != nil {
		t.Fatalf("failed to unmarshal golden file: %v", err)
	}
	return golden.Data
}

// DiffJSON renders a structural diff between expected and actual via
// go-cmp, for callers that want the diff text without failing a test
// directly (e.g. a custom error message).
func DiffJSON(expected, actual interface{}) string {
	return cmp.Diff(expected, actual)
}
