package models

import (
	"github.com/gomlx/gomlx/types/tensors"
)

// Batch is a collated, column-trimmed stack of examples. All rows share
// the same source width and the same label width; the relevance matrix,
// when present, shares the source width exactly.
type Batch struct {
	SourceIDs     [][]int     `json:"input_ids"`
	AttentionMask [][]int     `json:"attention_mask"`
	Labels        [][]int     `json:"labels"`
	Relevance     [][]float32 `json:"answer_relevance_atten,omitempty"`
}

// Size returns the number of rows in the batch.
func (b *Batch) Size() int {
	return len(b.SourceIDs)
}

// SourceWidth returns the trimmed source sequence length.
func (b *Batch) SourceWidth() int {
	if len(b.SourceIDs) == 0 {
		return 0
	}
	return len(b.SourceIDs[0])
}

// LabelWidth returns the trimmed label sequence length.
func (b *Batch) LabelWidth() int {
	if len(b.Labels) == 0 {
		return 0
	}
	return len(b.Labels[0])
}

// BatchTensors holds the gomlx tensor view of a batch for consumers that
// feed the batch straight into a training or inference graph.
type BatchTensors struct {
	SourceIDs     *tensors.Tensor
	AttentionMask *tensors.Tensor
	Labels        *tensors.Tensor

	// Relevance is nil for batches collated in standard mode.
	Relevance *tensors.Tensor
}

// Tensors converts the batch into gomlx tensors. Token ids and the mask
// are exported as int32, the relevance matrix as float32.
func (b *Batch) Tensors() *BatchTensors {
	out := &BatchTensors{
		SourceIDs:     tensors.FromAnyValue(toInt32Matrix(b.SourceIDs)),
		AttentionMask: tensors.FromAnyValue(toInt32Matrix(b.AttentionMask)),
		Labels:        tensors.FromAnyValue(toInt32Matrix(b.Labels)),
	}
	if b.Relevance != nil {
		out.Relevance = tensors.FromAnyValue(b.Relevance)
	}
	return out
}

func toInt32Matrix(rows [][]int) [][]int32 {
	out := make([][]int32, len(rows))
	for i, row := range rows {
		conv := make([]int32, len(row))
		for j, v := range row {
			conv[j] = int32(v)
		}
		out[i] = conv
	}
	return out
}
