// Package models defines the shared data types that flow through the
// distill pipeline: encoded examples produced by the dataset loader and
// the rectangular batches assembled by the collator.
package models

// Example is one encoded dataset entry. The JSON field names match the
// batch dictionary consumed by seq2seq trainers, so encoded examples can
// be exported and fed to downstream tooling without renaming.
type Example struct {
	// Index is the zero-based dataset index this example was loaded from.
	Index int `json:"index"`

	// SourceIDs are the encoded source token ids, padded/truncated to the
	// configured maximum source length.
	SourceIDs []int `json:"input_ids"`

	// AttentionMask carries 1 for real source positions and 0 for padding.
	AttentionMask []int `json:"attention_mask"`

	// TargetIDs are the encoded target token ids, padded/truncated to the
	// configured maximum target length.
	TargetIDs []int `json:"labels"`

	// Relevance is the per-token relevance vector aligned with SourceIDs.
	// Nil when the dataset runs in standard mode. Invariant:
	// len(Relevance) == len(SourceIDs) whenever present.
	Relevance []float64 `json:"answer_relevance_atten,omitempty"`

	// SourceText is the raw source line after prefixing and sentinel
	// stripping, kept for inspection and debugging.
	SourceText string `json:"text,omitempty"`
}

// HasRelevance reports whether this example carries a relevance vector.
func (e *Example) HasRelevance() bool {
	return e.Relevance != nil
}

// SourceWidth returns the encoded source length (0 for a nil example).
func (e *Example) SourceWidth() int {
	if e == nil {
		return 0
	}
	return len(e.SourceIDs)
}

// TargetWidth returns the encoded target length (0 for a nil example).
func (e *Example) TargetWidth() int {
	if e == nil {
		return 0
	}
	return len(e.TargetIDs)
}
