// Package batch stacks encoded examples into rectangular batches and
// trims padding columns the whole batch shares, shrinking the sequence
// dimension to the true maximum width before tensors reach a trainer.
package batch

import (
	"fmt"

	"github.com/haasonsaas/distill/pkg/models"
)

// Collator assembles fixed-width examples into trimmed batches.
type Collator struct {
	padID int
}

// NewCollator builds a collator that treats padID as the padding value in
// both source and target id tensors.
func NewCollator(padID int) *Collator {
	return &Collator{padID: padID}
}

// Collate stacks the examples and drops every column that is padding in
// all rows. Labels are trimmed by their own columns; source ids and the
// attention mask share one column mask, and the relevance tensor is
// trimmed with that same source mask before being narrowed to float32,
// so the three source-shaped tensors always stay column-aligned. At
// least one column always survives.
func (c *Collator) Collate(examples []*models.Example) (*models.Batch, error) {
	if len(examples) == 0 {
		return nil, fmt.Errorf("cannot collate an empty batch")
	}

	srcWidth := len(examples[0].SourceIDs)
	tgtWidth := len(examples[0].TargetIDs)
	hasRel := examples[0].HasRelevance()
	for i, ex := range examples {
		if len(ex.SourceIDs) != srcWidth || len(ex.AttentionMask) != srcWidth {
			return nil, fmt.Errorf("example %d has source width %d, batch expects %d", i, len(ex.SourceIDs), srcWidth)
		}
		if len(ex.TargetIDs) != tgtWidth {
			return nil, fmt.Errorf("example %d has target width %d, batch expects %d", i, len(ex.TargetIDs), tgtWidth)
		}
		if ex.HasRelevance() != hasRel {
			return nil, fmt.Errorf("example %d mixes relevance-augmented and plain examples in one batch", i)
		}
		if hasRel && len(ex.Relevance) != srcWidth {
			return nil, fmt.Errorf("example %d has relevance width %d, batch expects %d", i, len(ex.Relevance), srcWidth)
		}
	}

	srcIDs := make([][]int, len(examples))
	masks := make([][]int, len(examples))
	labels := make([][]int, len(examples))
	for i, ex := range examples {
		srcIDs[i] = ex.SourceIDs
		masks[i] = ex.AttentionMask
		labels[i] = ex.TargetIDs
	}

	srcKeep := keepColumns(srcIDs, c.padID)
	lblKeep := keepColumns(labels, c.padID)

	b := &models.Batch{
		SourceIDs:     applyKeep(srcIDs, srcKeep),
		AttentionMask: applyKeep(masks, srcKeep),
		Labels:        applyKeep(labels, lblKeep),
	}
	if hasRel {
		b.Relevance = make([][]float32, len(examples))
		for i, ex := range examples {
			b.Relevance[i] = narrowKept(ex.Relevance, srcKeep)
		}
	}
	return b, nil
}

// keepColumns marks each column that holds a non-pad value in at least
// one row. A batch of pure padding keeps its first column so downstream
// shapes never collapse to zero width.
func keepColumns(rows [][]int, padID int) []bool {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	keep := make([]bool, len(rows[0]))
	any := false
	for _, row := range rows {
		for j, v := range row {
			if v != padID {
				keep[j] = true
				any = true
			}
		}
	}
	if !any {
		keep[0] = true
	}
	return keep
}

func applyKeep(rows [][]int, keep []bool) [][]int {
	out := make([][]int, len(rows))
	for i, row := range rows {
		kept := make([]int, 0, len(row))
		for j, v := range row {
			if keep[j] {
				kept = append(kept, v)
			}
		}
		out[i] = kept
	}
	return out
}

func narrowKept(row []float64, keep []bool) []float32 {
	kept := make([]float32, 0, len(row))
	for j, v := range row {
		if keep[j] {
			kept = append(kept, float32(v))
		}
	}
	return kept
}
