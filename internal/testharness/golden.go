// Package testharness provides snapshot test utilities. Golden files
// pin down exported output formats, like the collated batch layout, so
// format regressions show up as diffs instead of broken consumers.
package testharness

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// UpdateGolden is set via the UPDATE_GOLDEN=1 env var to rewrite golden
// files instead of comparing against them.
var UpdateGolden = os.Getenv("UPDATE_GOLDEN") == "1"

// Golden compares actual output against stored golden files. When
// UpdateGolden is true it updates the files instead.
type Golden struct {
	t    *testing.T
	dir  string
	name string
}

// NewGolden creates a golden file helper for the test. Files are stored
// under testdata/golden/<test_name>.golden.
func NewGolden(t *testing.T) *Golden {
	t.Helper()
	return NewGoldenAt(t, filepath.Join("testdata", "golden"))
}

// NewGoldenAt creates a golden file helper rooted at a specific directory.
func NewGoldenAt(t *testing.T, dir string) *Golden {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create golden dir: %v", err)
	}
	return &Golden{
		t:    t,
		dir:  dir,
		name: sanitizeTestName(t.Name()),
	}
}

// Assert compares actual against the golden file.
func (g *Golden) Assert(actual string) {
	g.t.Helper()
	g.assertNamed("", actual)
}

// AssertNamed compares actual against a named golden file. Useful when a
// single test snapshots more than one output.
func (g *Golden) AssertNamed(name, actual string) {
	g.t.Helper()
	g.assertNamed(name, actual)
}

// AssertJSON compares JSON output, pretty-printed for readable diffs.
func (g *Golden) AssertJSON(actual any) {
	g.t.Helper()
	pretty, err := json.MarshalIndent(actual, "", "  ")
	if err != nil {
		g.t.Fatalf("failed to marshal JSON: %v", err)
	}
	g.assertNamed("json", string(pretty))
}

func (g *Golden) assertNamed(name, actual string) {
	g.t.Helper()

	filename := g.goldenPath(name)

	if UpdateGolden {
		if err := os.WriteFile(filename, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to update golden file %s: %v", filename, err)
		}
		g.t.Logf("updated golden file: %s", filename)
		return
	}

	expected, err := os.ReadFile(filename)
	if errors.Is(err, fs.ErrNotExist) {
		g.t.Fatalf("golden file %s does not exist. Run with UPDATE_GOLDEN=1 to create it.\n\nActual output:\n%s", filename, actual)
	}
	if err != nil {
		g.t.Fatalf("failed to read golden file %s: %v", filename, err)
	}

	if string(expected) != actual {
		g.t.Errorf("golden file mismatch %s\n\nExpected:\n%s\n\nActual:\n%s\n\nDiff:\n%s",
			filename, string(expected), actual, diff(string(expected), actual))
	}
}

func (g *Golden) goldenPath(name string) string {
	if name == "" {
		return filepath.Join(g.dir, g.name+".golden")
	}
	return filepath.Join(g.dir, g.name+"_"+name+".golden")
}

func sanitizeTestName(name string) string {
	replacer := strings.NewReplacer("/", "_", " ", "_", ":", "_")
	return replacer.Replace(name)
}

// diff returns a simple line-based diff of two strings.
func diff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var result strings.Builder

	maxLen := len(expectedLines)
	if len(actualLines) > maxLen {
		maxLen = len(actualLines)
	}

	for i := 0; i < maxLen; i++ {
		var exp, act string
		if i < len(expectedLines) {
			exp = expectedLines[i]
		}
		if i < len(actualLines) {
			act = actualLines[i]
		}

		if exp != act {
			result.WriteString("- ")
			result.WriteString(exp)
			result.WriteString("\n+ ")
			result.WriteString(act)
			result.WriteString("\n")
		}
	}

	return result.String()
}
