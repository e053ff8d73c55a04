package lines

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "split.source")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestOpenCountsLines(t *testing.T) {
	tests := []struct {
		name    string
		content string
		count   int
		lengths []int
	}{
		{"empty file", "", 0, nil},
		{"single line no newline", "hello", 1, []int{5}},
		{"single line with newline", "hello\n", 1, []int{5}},
		{"three lines", "a b\ncd\nefg hi\n", 3, []int{3, 2, 6}},
		{"empty middle line", "ab\n\ncd\n", 3, []int{2, 0, 2}},
		{"unicode counts runes", "héllo\n日本語\n", 2, []int{5, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := Open(writeFile(t, tt.content))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer ix.Close()

			if got := ix.Len(); got != tt.count {
				t.Errorf("Len() = %d, want %d", got, tt.count)
			}
			lengths := ix.Lengths()
			if len(lengths) != len(tt.lengths) {
				t.Fatalf("Lengths() has %d entries, want %d", len(lengths), len(tt.lengths))
			}
			for i, want := range tt.lengths {
				if lengths[i] != want {
					t.Errorf("Lengths()[%d] = %d, want %d", i, lengths[i], want)
				}
			}
		})
	}
}

func TestLineRandomAccess(t *testing.T) {
	ix, err := Open(writeFile(t, "first line\nsecond\nthird one here\n"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ix.Close()

	// Read out of order to exercise positioned reads.
	want := map[int]string{2: "third one here", 0: "first line", 1: "second"}
	for i, expect := range want {
		got, err := ix.Line(i)
		if err != nil {
			t.Fatalf("Line(%d) error = %v", i, err)
		}
		if got != expect {
			t.Errorf("Line(%d) = %q, want %q", i, got, expect)
		}
	}
}

func TestLineWithoutTrailingNewline(t *testing.T) {
	ix, err := Open(writeFile(t, "alpha\nomega"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ix.Close()

	got, err := ix.Line(1)
	if err != nil {
		t.Fatalf("Line(1) error = %v", err)
	}
	if got != "omega" {
		t.Errorf("Line(1) = %q, want %q", got, "omega")
	}
}

func TestLineOutOfRange(t *testing.T) {
	ix, err := Open(writeFile(t, "only\n"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ix.Close()

	for _, i := range []int{-1, 1, 50} {
		if _, err := ix.Line(i); err == nil {
			t.Errorf("Line(%d) expected out-of-range error, got nil", i)
		}
	}
}

func TestMinLength(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"empty file", "", 0},
		{"no empty lines", "abc\nde\n", 2},
		{"contains empty line", "abc\n\nde\n", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix, err := Open(writeFile(t, tt.content))
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			defer ix.Close()
			if got := ix.MinLength(); got != tt.want {
				t.Errorf("MinLength() = %d, want %d", got, tt.want)
			}
		})
	}
}

func BenchmarkLine(b *testing.B) {
	path := filepath.Join(b.TempDir(), "bench.source")
	content := ""
	for i := 0; i < 200; i++ {
		content += "some reasonably sized document line for benchmarking reads\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		b.Fatalf("write fixture: %v", err)
	}
	ix, err := Open(path)
	if err != nil {
		b.Fatalf("Open() error = %v", err)
	}
	defer ix.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ix.Line(i % 200); err != nil {
			b.Fatal(err)
		}
	}
}
