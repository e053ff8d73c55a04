package dataset

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/haasonsaas/distill/internal/tokenize"
)

func writeLines(t *testing.T, dir, name string, lns []string) {
	t.Helper()
	data := strings.Join(lns, "\n") + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestStandardExample(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train.source", []string{"alpha beta", "gamma delta echo"})
	writeLines(t, dir, "train.target", []string{"one", "two"})

	tok := tokenize.NewWhitespace(0)
	ds, err := Open(tok, Config{Dir: dir, MaxSourceLength: 6, MaxTargetLength: 4})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ds.Close()

	if ds.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ds.Len())
	}

	ex, err := ds.Example(0)
	if err != nil {
		t.Fatalf("Example(0) error = %v", err)
	}
	if ex.Index != 0 {
		t.Errorf("Index = %d, want 0", ex.Index)
	}
	if ex.SourceText != "alpha beta" {
		t.Errorf("SourceText = %q, want %q", ex.SourceText, "alpha beta")
	}
	if len(ex.SourceIDs) != 6 || len(ex.TargetIDs) != 4 {
		t.Errorf("widths = %d/%d, want 6/4", len(ex.SourceIDs), len(ex.TargetIDs))
	}
	wantMask := []int{1, 1, 1, 1, 0, 0} // BOS, alpha, beta, EOS, pad, pad
	if !reflect.DeepEqual(ex.AttentionMask, wantMask) {
		t.Errorf("AttentionMask = %v, want %v", ex.AttentionMask, wantMask)
	}
	if ex.HasRelevance() {
		t.Errorf("HasRelevance() = true, want false in standard mode")
	}
}

func TestStandardPrefix(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train.source", []string{"alpha"})
	writeLines(t, dir, "train.target", []string{"one"})

	ds, err := Open(tokenize.NewWhitespace(0), Config{
		Dir: dir, MaxSourceLength: 8, MaxTargetLength: 4, Prefix: "summarize: ",
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ds.Close()

	ex, err := ds.Example(0)
	if err != nil {
		t.Fatalf("Example(0) error = %v", err)
	}
	if ex.SourceText != "summarize: alpha" {
		t.Errorf("SourceText = %q, want prefixed source", ex.SourceText)
	}
}

func TestRelevanceExamples(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train_content", []string{"a b [SEP] q", "c d e [SEP] q2", "f [SEP] q3"})
	writeLines(t, dir, "train_summary", []string{"s1", "s2", "s3"})
	writeLines(t, dir, "train_relevance", []string{"0.1 0.2", "0.3 0.4 0.5", "0.9"})

	tok := tokenize.NewWhitespace(0)
	ds, err := Open(tok, Config{
		Dir: dir, Mode: ModeRelevance, MaxSourceLength: 10, MaxTargetLength: 4,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ds.Close()

	ex, err := ds.Example(0)
	if err != nil {
		t.Fatalf("Example(0) error = %v", err)
	}
	// "a b [SEP] q" encodes to 6 real positions (BOS + 4 tokens + EOS);
	// the relevance vector mirrors that layout and pads with the pad id.
	want := []float64{0, 0.1, 0, 0, 0, 0, 1, 1, 1, 1}
	if !reflect.DeepEqual(ex.Relevance, want) {
		t.Errorf("Relevance = %v, want %v", ex.Relevance, want)
	}
	if len(ex.Relevance) != len(ex.SourceIDs) {
		t.Errorf("relevance width %d != source width %d", len(ex.Relevance), len(ex.SourceIDs))
	}
	// Padding positions of the source carry exactly the pad value in the
	// relevance vector.
	padF := float64(tok.PadID())
	for i, m := range ex.AttentionMask {
		if m == 0 && ex.Relevance[i] != padF {
			t.Errorf("position %d: padding carries non-pad relevance %v", i, ex.Relevance[i])
		}
	}

	ex1, err := ds.Example(1)
	if err != nil {
		t.Fatalf("Example(1) error = %v", err)
	}
	want1 := []float64{0, 0.3, 0.4, 0, 0, 0, 0, 1, 1, 1}
	if !reflect.DeepEqual(ex1.Relevance, want1) {
		t.Errorf("Relevance = %v, want %v", ex1.Relevance, want1)
	}
}

func TestRelevanceCountMismatch(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train_content", []string{"a b c [SEP] q"})
	writeLines(t, dir, "train_summary", []string{"s"})
	writeLines(t, dir, "train_relevance", []string{"0.1 0.2"})

	ds, err := Open(tokenize.NewWhitespace(0), Config{
		Dir: dir, Mode: ModeRelevance, MaxSourceLength: 10, MaxTargetLength: 4,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ds.Close()

	_, err = ds.Example(0)
	if err == nil {
		t.Fatalf("Example(0) error = nil, want word/score mismatch")
	}
	if !strings.Contains(err.Error(), "3 words but relevance line has 2 scores") {
		t.Errorf("Example(0) error = %v, want word/score counts", err)
	}
}

func TestBaselineZeroesRelevance(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train_content", []string{"a b [SEP] q"})
	writeLines(t, dir, "train_summary", []string{"s"})
	writeLines(t, dir, "train_relevance", []string{"0.1 0.2"})

	ds, err := Open(tokenize.NewWhitespace(0), Config{
		Dir: dir, Mode: ModeRelevance, MaxSourceLength: 10, MaxTargetLength: 4,
		Baseline: true,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ds.Close()

	ex, err := ds.Example(0)
	if err != nil {
		t.Fatalf("Example(0) error = %v", err)
	}
	want := []float64{0, 0, 0, 0, 0, 0, 1, 1, 1, 1}
	if !reflect.DeepEqual(ex.Relevance, want) {
		t.Errorf("Relevance = %v, want all-zero content %v", ex.Relevance, want)
	}
}

func TestQueryExample(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train_content", []string{"the <s>document<eos> text"})
	writeLines(t, dir, "train_summary", []string{"<s>answer<eos>"})
	writeLines(t, dir, "train_query", []string{"<s>what happened<eos>"})

	tok := tokenize.NewWhitespace(0)
	ds, err := Open(tok, Config{
		Dir: dir, Mode: ModeQuery, MaxSourceLength: 10, MaxTargetLength: 4,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ds.Close()

	ex, err := ds.Example(0)
	if err != nil {
		t.Fatalf("Example(0) error = %v", err)
	}
	// <s> is dropped everywhere; <eos> becomes the tokenizer EOS form in
	// content but is dropped from query and summary.
	wantText := "the document</s> text what happened"
	if ex.SourceText != wantText {
		t.Errorf("SourceText = %q, want %q", ex.SourceText, wantText)
	}
	// Query mode has no relevance data: the placeholder is zero at every
	// content position and pad-valued past the end.
	want := []float64{0, 0, 0, 0, 0, 0, 0, 1, 1, 1}
	if !reflect.DeepEqual(ex.Relevance, want) {
		t.Errorf("Relevance = %v, want zero placeholder %v", ex.Relevance, want)
	}
}

func TestQueryKeepEOS(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train_content", []string{"the document text"})
	writeLines(t, dir, "train_summary", []string{"<s>answer<eos>"})
	writeLines(t, dir, "train_query", []string{"what happened"})

	tok := tokenize.NewWhitespace(0)
	open := func(keep bool) *Dataset {
		ds, err := Open(tok, Config{
			Dir: dir, Mode: ModeQuery, MaxSourceLength: 10, MaxTargetLength: 4,
			KeepEOS: keep,
		})
		if err != nil {
			t.Fatalf("Open(keepEOS=%t) error = %v", keep, err)
		}
		t.Cleanup(func() { ds.Close() })
		return ds
	}

	kept, err := open(true).Example(0)
	if err != nil {
		t.Fatalf("Example(0) error = %v", err)
	}
	wantEnc, err := tok.Encode("answer</s>", 4)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if !reflect.DeepEqual(kept.TargetIDs, wantEnc.IDs) {
		t.Errorf("TargetIDs = %v, want encoding of %q = %v", kept.TargetIDs, "answer</s>", wantEnc.IDs)
	}

	plain, err := open(false).Example(0)
	if err != nil {
		t.Fatalf("Example(0) error = %v", err)
	}
	if reflect.DeepEqual(plain.TargetIDs, kept.TargetIDs) {
		t.Error("KeepEOS should change the encoded target")
	}
}

func TestOpenRejectsEmptyLines(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		setup func(t *testing.T, dir string)
	}{
		{
			name: "empty source line",
			file: "train.source",
			setup: func(t *testing.T, dir string) {
				writeLines(t, dir, "train.source", []string{"a", "", "c"})
				writeLines(t, dir, "train.target", []string{"x", "y", "z"})
			},
		},
		{
			name: "empty relevance line",
			file: "train_relevance",
			setup: func(t *testing.T, dir string) {
				writeLines(t, dir, "train_content", []string{"a", "b"})
				writeLines(t, dir, "train_summary", []string{"x", "y"})
				writeLines(t, dir, "train_relevance", []string{"0.5", ""})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			tt.setup(t, dir)
			mode := ModeStandard
			if strings.Contains(tt.file, "relevance") {
				mode = ModeRelevance
			}
			_, err := Open(tokenize.NewWhitespace(0), Config{
				Dir: dir, Mode: mode, MaxSourceLength: 8, MaxTargetLength: 4,
			})
			if err == nil {
				t.Fatalf("Open() error = nil, want empty-line failure")
			}
			if !strings.Contains(err.Error(), "found empty line in") || !strings.Contains(err.Error(), tt.file) {
				t.Errorf("Open() error = %v, want empty-line failure naming %s", err, tt.file)
			}
		})
	}
}

func TestEmptyTargetLineCitesIndex(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train.source", []string{"a", "b", "c", "d", "e"})
	writeLines(t, dir, "train.target", []string{"v", "w", "x", "y", ""})

	ds, err := Open(tokenize.NewWhitespace(0), Config{
		Dir: dir, MaxSourceLength: 8, MaxTargetLength: 4,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ds.Close()

	_, err = ds.Example(4)
	if err == nil {
		t.Fatalf("Example(4) error = nil, want empty target failure")
	}
	if !strings.Contains(err.Error(), "empty target line for index 5") {
		t.Errorf("Example(4) error = %v, want 1-based line number 5", err)
	}
}

func TestTargetFileTooShort(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train.source", []string{"a", "b"})
	writeLines(t, dir, "train.target", []string{"x"})

	ds, err := Open(tokenize.NewWhitespace(0), Config{
		Dir: dir, MaxSourceLength: 8, MaxTargetLength: 4,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ds.Close()

	_, err = ds.Example(1)
	if err == nil {
		t.Fatalf("Example(1) error = nil, want out-of-range failure")
	}
	if !strings.Contains(err.Error(), "out of range") {
		t.Errorf("Example(1) error = %v, want out-of-range failure", err)
	}
}

func TestMaxExamplesCapsLength(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train.source", []string{"a", "b", "c", "d", "e"})
	writeLines(t, dir, "train.target", []string{"v", "w", "x", "y", "z"})

	ds, err := Open(tokenize.NewWhitespace(0), Config{
		Dir: dir, MaxSourceLength: 8, MaxTargetLength: 4, MaxExamples: 2,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ds.Close()

	if ds.Len() != 2 {
		t.Errorf("Len() = %d, want 2", ds.Len())
	}
	if len(ds.Lengths()) != 2 {
		t.Errorf("Lengths() size = %d, want 2", len(ds.Lengths()))
	}
	if _, err := ds.Example(2); err == nil {
		t.Errorf("Example(2) error = nil, want out-of-range failure")
	}
}

func TestOpenUnknownMode(t *testing.T) {
	_, err := Open(tokenize.NewWhitespace(0), Config{
		Dir: t.TempDir(), Mode: "mystery", MaxSourceLength: 8, MaxTargetLength: 4,
	})
	if err == nil {
		t.Fatalf("Open() error = nil, want unknown mode failure")
	}
	if !strings.Contains(err.Error(), "unknown dataset mode") {
		t.Errorf("Open() error = %v, want unknown mode failure", err)
	}
}

func TestLengthsAreCharacterCounts(t *testing.T) {
	dir := t.TempDir()
	writeLines(t, dir, "train.source", []string{"ab", "cdef"})
	writeLines(t, dir, "train.target", []string{"x", "y"})

	ds, err := Open(tokenize.NewWhitespace(0), Config{
		Dir: dir, MaxSourceLength: 8, MaxTargetLength: 4,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer ds.Close()

	if got, want := ds.Lengths(), []int{2, 4}; !reflect.DeepEqual(got, want) {
		t.Errorf("Lengths() = %v, want %v", got, want)
	}
}
