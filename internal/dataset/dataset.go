// Package dataset loads parallel-file seq2seq corpora: one example per
// line across a source file, a target file, and optionally relevance and
// query files sharing the same line numbering. Lines are fetched through
// a byte-offset index so loading example N never re-reads the file, and
// every example is encoded to fixed width at load time.
package dataset

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/haasonsaas/distill/internal/lines"
	"github.com/haasonsaas/distill/internal/relevance"
	"github.com/haasonsaas/distill/internal/tokenize"
	"github.com/haasonsaas/distill/pkg/models"
)

// Mode selects which parallel files a dataset reads and how source text
// is assembled.
type Mode string

const (
	// ModeStandard reads <split>.source / <split>.target and encodes them
	// independently. No relevance vector is produced.
	ModeStandard Mode = "standard"

	// ModeRelevance reads <split>_content / <split>_summary /
	// <split>_relevance and aligns the per-word scores onto the encoded
	// source tokens.
	ModeRelevance Mode = "relevance"

	// ModeQuery reads <split>_content / <split>_summary / <split>_query,
	// concatenates the query text onto the source after sentinel
	// stripping, and emits a zero placeholder relevance vector.
	ModeQuery Mode = "query"
)

// Sentinel substrings stripped from query-mode lines before encoding.
// A bare end-of-sequence marker in source text is rewritten to the
// tokenizer's own EOS form so segment boundaries survive encoding.
const (
	sentinelBOS  = "<s>"
	sentinelEOS  = "<eos>"
	tokenizerEOS = "</s>"
)

// Config describes where a dataset lives and how to encode it.
type Config struct {
	// Dir is the directory holding the parallel files.
	Dir string
	// Split names the file group, e.g. "train", "val", "test".
	// Defaults to "train".
	Split string
	// Mode selects the parallel-file layout. Defaults to ModeStandard.
	Mode Mode
	// MaxSourceLength / MaxTargetLength are the fixed encode widths.
	MaxSourceLength int
	MaxTargetLength int
	// Prefix is prepended to every source line before encoding (used for
	// task prefixes like "summarize: ").
	Prefix string
	// MaxExamples caps the dataset length; 0 means all lines.
	MaxExamples int
	// Baseline zeroes every relevance vector while keeping its shape, to
	// ablate the relevance signal.
	Baseline bool
	// KeepEOS rewrites an <eos> sentinel in query-mode targets to the
	// tokenizer's EOS form instead of dropping it, for models trained to
	// emit an explicit end marker.
	KeepEOS bool
	// Align tunes the relevance aligner's segment conventions.
	Align relevance.AlignerConfig
}

// Dataset is a line-indexed view over one split of a corpus. All methods
// are safe for concurrent use: loading an example mutates no dataset
// state.
type Dataset struct {
	tok     tokenize.Tokenizer
	aligner *relevance.Aligner
	cfg     Config

	src   *lines.Index
	tgt   *lines.Index
	rel   *lines.Index
	query *lines.Index

	lens []int
}

// Open builds the line indexes for the configured split and verifies the
// construction-time invariants: the source file (and relevance file, when
// required) must exist, be non-empty, and contain no empty lines.
func Open(tok tokenize.Tokenizer, cfg Config) (*Dataset, error) {
	if cfg.Split == "" {
		cfg.Split = "train"
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeStandard
	}
	if cfg.MaxSourceLength <= 0 || cfg.MaxTargetLength <= 0 {
		return nil, fmt.Errorf("max source/target lengths must be positive, got %d and %d", cfg.MaxSourceLength, cfg.MaxTargetLength)
	}

	var srcName, tgtName string
	switch cfg.Mode {
	case ModeStandard:
		srcName, tgtName = cfg.Split+".source", cfg.Split+".target"
	case ModeRelevance, ModeQuery:
		srcName, tgtName = cfg.Split+"_content", cfg.Split+"_summary"
	default:
		return nil, fmt.Errorf("unknown dataset mode %q", cfg.Mode)
	}

	d := &Dataset{tok: tok, aligner: relevance.NewAligner(tok, cfg.Align), cfg: cfg}

	var err error
	if d.src, err = openChecked(filepath.Join(cfg.Dir, srcName)); err != nil {
		return nil, err
	}
	if d.tgt, err = lines.Open(filepath.Join(cfg.Dir, tgtName)); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to open target file: %w", err)
	}
	switch cfg.Mode {
	case ModeRelevance:
		if d.rel, err = openChecked(filepath.Join(cfg.Dir, cfg.Split+"_relevance")); err != nil {
			d.Close()
			return nil, err
		}
	case ModeQuery:
		if d.query, err = lines.Open(filepath.Join(cfg.Dir, cfg.Split+"_query")); err != nil {
			d.Close()
			return nil, fmt.Errorf("failed to open query file: %w", err)
		}
	}

	d.lens = d.src.Lengths()
	if cfg.MaxExamples > 0 && cfg.MaxExamples < len(d.lens) {
		d.lens = d.lens[:cfg.MaxExamples]
	}
	return d, nil
}

// openChecked opens a line index and enforces the no-empty-lines
// invariant that load-time checks rely on.
func openChecked(path string) (*lines.Index, error) {
	ix, err := lines.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}
	if ix.Len() == 0 {
		ix.Close()
		return nil, fmt.Errorf("no lines in %s", path)
	}
	if ix.MinLength() == 0 {
		ix.Close()
		return nil, fmt.Errorf("found empty line in %s", path)
	}
	return ix, nil
}

// Len returns the number of loadable examples.
func (d *Dataset) Len() int { return len(d.lens) }

// Lengths returns per-example source character counts, index-aligned with
// Example indices. The slice is shared and must not be mutated.
func (d *Dataset) Lengths() []int { return d.lens }

// Mode returns the dataset's operating mode.
func (d *Dataset) Mode() Mode { return d.cfg.Mode }

// Example loads and encodes the example at the zero-based index i.
// Empty lines, word/score count mismatches, and shape violations all
// return errors naming the offending line: corrupt corpus data must
// surface to the operator, never load as garbage.
func (d *Dataset) Example(i int) (*models.Example, error) {
	if i < 0 || i >= len(d.lens) {
		return nil, fmt.Errorf("example index %d out of range [0,%d)", i, len(d.lens))
	}
	lineNo := i + 1 // error messages use 1-based line numbers

	srcLine, err := d.src.Line(i)
	if err != nil {
		return nil, fmt.Errorf("failed to read source line: %w", err)
	}
	tgtLine, err := d.tgt.Line(i)
	if err != nil {
		return nil, fmt.Errorf("failed to read target line: %w", err)
	}

	var source, target string
	var rel []float64
	switch d.cfg.Mode {
	case ModeQuery:
		queryLine, err := d.query.Line(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read query line: %w", err)
		}
		source, target, err = d.assembleQuery(srcLine, queryLine, tgtLine, lineNo)
		if err != nil {
			return nil, err
		}
		// No relevance data in query mode: emit a correctly shaped
		// zero placeholder.
		rel, err = d.aligner.Baseline(source, float64(d.tok.PadID()), d.cfg.MaxSourceLength)
		if err != nil {
			return nil, err
		}

	case ModeRelevance:
		source = d.cfg.Prefix + srcLine
		target = tgtLine
		relLine, err := d.rel.Line(i)
		if err != nil {
			return nil, fmt.Errorf("failed to read relevance line: %w", err)
		}
		if relLine == "" {
			return nil, fmt.Errorf("empty relevance line for index %d", lineNo)
		}
		if err := checkLoaded(source, target, lineNo); err != nil {
			return nil, err
		}
		pad := float64(d.tok.PadID())
		if d.cfg.Baseline {
			rel, err = d.aligner.Baseline(source, pad, d.cfg.MaxSourceLength)
		} else {
			rel, err = d.aligner.Align(source, relLine, pad, d.cfg.MaxSourceLength)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to align relevance for index %d: %w", lineNo, err)
		}

	default: // ModeStandard
		source = d.cfg.Prefix + srcLine
		target = tgtLine
		if err := checkLoaded(source, target, lineNo); err != nil {
			return nil, err
		}
	}

	src, err := d.tok.Encode(source, d.cfg.MaxSourceLength)
	if err != nil {
		return nil, fmt.Errorf("failed to encode source for index %d: %w", lineNo, err)
	}
	tgt, err := d.tok.Encode(target, d.cfg.MaxTargetLength)
	if err != nil {
		return nil, fmt.Errorf("failed to encode target for index %d: %w", lineNo, err)
	}
	if rel != nil && len(rel) != len(src.IDs) {
		return nil, fmt.Errorf("encoded source has %d positions but relevance vector has %d for index %d", len(src.IDs), len(rel), lineNo)
	}

	return &models.Example{
		Index:         i,
		SourceIDs:     src.IDs,
		AttentionMask: src.AttentionMask,
		TargetIDs:     tgt.IDs,
		Relevance:     rel,
		SourceText:    source,
	}, nil
}

// assembleQuery strips the begin/end-of-sequence sentinels from the
// content, query, and summary lines and joins content and query with a
// single space. A bare <eos> inside content marks a document boundary and
// is rewritten to the tokenizer's EOS form rather than dropped.
func (d *Dataset) assembleQuery(srcLine, queryLine, tgtLine string, lineNo int) (source, target string, err error) {
	content := strings.TrimSpace(strings.ReplaceAll(
		strings.ReplaceAll(srcLine, sentinelBOS, ""), sentinelEOS, tokenizerEOS))
	if content == "" {
		return "", "", fmt.Errorf("empty source line for index %d", lineNo)
	}
	query := strings.TrimSpace(stripSentinels(queryLine))
	target = strings.TrimSpace(d.stripTarget(tgtLine))
	if target == "" {
		return "", "", fmt.Errorf("empty target line for index %d", lineNo)
	}
	return d.cfg.Prefix + content + " " + query, target, nil
}

func stripSentinels(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, sentinelBOS, ""), sentinelEOS, "")
}

// stripTarget drops the sentinels from a target line, keeping the end
// marker in tokenizer form when KeepEOS is set.
func (d *Dataset) stripTarget(s string) string {
	s = strings.ReplaceAll(s, sentinelBOS, "")
	if d.cfg.KeepEOS {
		return strings.ReplaceAll(s, sentinelEOS, tokenizerEOS)
	}
	return strings.ReplaceAll(s, sentinelEOS, "")
}

func checkLoaded(source, target string, lineNo int) error {
	if source == "" {
		return fmt.Errorf("empty source line for index %d", lineNo)
	}
	if target == "" {
		return fmt.Errorf("empty target line for index %d", lineNo)
	}
	return nil
}

// Close releases all underlying file handles.
func (d *Dataset) Close() error {
	var errs []error
	for _, ix := range []*lines.Index{d.src, d.tgt, d.rel, d.query} {
		if ix != nil {
			if err := ix.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
