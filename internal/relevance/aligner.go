// Package relevance maps word-level relevance scores onto sub-word token
// positions. Scores arrive one per whitespace-delimited word of a source
// line's context segment; the aligner projects them onto the sub-word
// tokenization of the full line so each token position carries the score
// of the word it belongs to, producing a vector shaped exactly like the
// encoded source ids.
package relevance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/haasonsaas/distill/internal/tokenize"
)

const (
	// DefaultSeparator splits a source line into its context segment and
	// trailing question segment.
	DefaultSeparator = "[SEP]"

	// DefaultSeparatorSpan is how many sub-word positions after the
	// context are zeroed for the separator marker's own tokens before the
	// question-segment fill begins.
	DefaultSeparatorSpan = 4
)

// AlignerConfig tunes the segment conventions of an Aligner. Zero values
// select the defaults above.
type AlignerConfig struct {
	Separator     string
	SeparatorSpan int
}

// Aligner projects per-word relevance scores onto sub-word positions.
type Aligner struct {
	tok  tokenize.Tokenizer
	sep  string
	span int
}

// NewAligner builds an Aligner on top of a sub-word tokenizer.
func NewAligner(tok tokenize.Tokenizer, cfg AlignerConfig) *Aligner {
	sep := cfg.Separator
	if sep == "" {
		sep = DefaultSeparator
	}
	span := cfg.SeparatorSpan
	if span <= 0 {
		span = DefaultSeparatorSpan
	}
	return &Aligner{tok: tok, sep: sep, span: span}
}

// Align produces a relevance vector of exactly maxLength positions for
// srcLine. relevanceLine holds one score per whitespace-delimited word of
// the context segment (the part of srcLine before the separator). Each
// context sub-word token receives its word's score; positions past the
// context are zeroed for the separator span and then filled with the
// maximum context score, so the question segment attends as strongly as
// the most relevant context word. A zero is reserved at each end for the
// start and end tokens, and the right is padded with padValue.
//
// The word index advances exactly when a sub-word token carries the
// tokenizer's word-boundary marker and is non-empty once the marker is
// stripped; the first token never advances it. The last context token is
// ignored during the walk: splitting on the separator leaves a trailing
// space whose artifact token would otherwise shift every boundary.
func (a *Aligner) Align(srcLine, relevanceLine string, padValue float64, maxLength int) ([]float64, error) {
	context := a.contextSegment(srcLine)

	scores, err := parseScores(relevanceLine)
	if err != nil {
		return nil, err
	}
	words := strings.Fields(context)
	if len(words) != len(scores) {
		return nil, fmt.Errorf("context has %d words but relevance line has %d scores", len(words), len(scores))
	}
	if len(scores) == 0 {
		return nil, fmt.Errorf("relevance line has no scores")
	}

	queAtten := scores[0]
	for _, s := range scores[1:] {
		if s > queAtten {
			queAtten = s
		}
	}

	fill := func(wordIndex int) (float64, error) {
		if wordIndex >= len(scores) {
			return 0, fmt.Errorf("sub-word walk reached word %d but only %d relevance scores are present", wordIndex, len(scores))
		}
		return scores[wordIndex], nil
	}
	return a.build(srcLine, context, fill, queAtten, padValue, maxLength)
}

// Baseline produces a vector with the same shape as Align but every
// content position zeroed, ablating the relevance signal while keeping
// the tensor layout identical.
func (a *Aligner) Baseline(srcLine string, padValue float64, maxLength int) ([]float64, error) {
	context := a.contextSegment(srcLine)
	fill := func(int) (float64, error) { return 0, nil }
	return a.build(srcLine, context, fill, 0, padValue, maxLength)
}

func (a *Aligner) contextSegment(srcLine string) string {
	return strings.SplitN(srcLine, a.sep, 2)[0]
}

// build walks the context tokens assigning fill(wordIndex) per position,
// then lays out the separator span and question fill against the full
// line's tokenization.
func (a *Aligner) build(srcLine, context string, fill func(int) (float64, error), queAtten, padValue float64, maxLength int) ([]float64, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("max length must be positive, got %d", maxLength)
	}

	contextTokens, err := a.tok.Tokenize(context)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize context segment: %w", err)
	}
	if len(contextTokens) > 0 {
		contextTokens = contextTokens[:len(contextTokens)-1]
	}
	lineTokens, err := a.tok.Tokenize(srcLine)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize source line: %w", err)
	}

	out := make([]float64, 0, maxLength)
	out = append(out, 0) // start token

	wordIndex := 0
	for i, token := range contextTokens {
		if i > 0 && a.tok.StartsNewWord(token) && a.tok.StripWordMarker(token) != "" {
			wordIndex++
		}
		v, err := fill(wordIndex)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	// Positions for the separator's own tokens are zeroed; everything
	// after them up to the end token carries the question fill.
	sepStart := len(contextTokens)
	sepEnd := sepStart + a.span
	for i := sepStart; i < sepEnd && i < len(lineTokens); i++ {
		out = append(out, 0)
	}
	for i := sepEnd; i < len(lineTokens); i++ {
		out = append(out, queAtten)
	}
	out = append(out, 0) // end token

	for len(out) < maxLength {
		out = append(out, padValue)
	}
	return out[:maxLength], nil
}

func parseScores(line string) ([]float64, error) {
	fields := strings.Fields(line)
	scores := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse relevance score %q: %w", f, err)
		}
		scores = append(scores, v)
	}
	return scores, nil
}
