package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestBatchDimensions(t *testing.T) {
	tests := []struct {
		name        string
		batch       *Batch
		size        int
		sourceWidth int
		labelWidth  int
	}{
		{"empty", &Batch{}, 0, 0, 0},
		{
			"two rows",
			&Batch{
				SourceIDs:     [][]int{{5, 6, 1}, {7, 1, 1}},
				AttentionMask: [][]int{{1, 1, 0}, {1, 0, 0}},
				Labels:        [][]int{{9, 1}, {8, 1}},
			},
			2, 3, 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.batch.Size(); got != tt.size {
				t.Errorf("Size() = %d, want %d", got, tt.size)
			}
			if got := tt.batch.SourceWidth(); got != tt.sourceWidth {
				t.Errorf("SourceWidth() = %d, want %d", got, tt.sourceWidth)
			}
			if got := tt.batch.LabelWidth(); got != tt.labelWidth {
				t.Errorf("LabelWidth() = %d, want %d", got, tt.labelWidth)
			}
		})
	}
}

func TestExampleWireNames(t *testing.T) {
	// Downstream trainers key batches by these exact field names; renaming
	// them silently breaks exported artifacts.
	ex := &Example{
		Index:         3,
		SourceIDs:     []int{0, 5, 2},
		AttentionMask: []int{1, 1, 1},
		TargetIDs:     []int{0, 9, 2},
		Relevance:     []float64{0, 0.4, 0},
	}
	raw, err := json.Marshal(ex)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for _, key := range []string{"input_ids", "attention_mask", "labels", "answer_relevance_atten"} {
		if !strings.Contains(string(raw), `"`+key+`"`) {
			t.Errorf("marshaled example missing field %q: %s", key, raw)
		}
	}
}

func TestExampleHasRelevance(t *testing.T) {
	plain := &Example{SourceIDs: []int{1}}
	if plain.HasRelevance() {
		t.Error("HasRelevance() = true for example without relevance")
	}
	scored := &Example{SourceIDs: []int{1}, Relevance: []float64{0}}
	if !scored.HasRelevance() {
		t.Error("HasRelevance() = false for example with relevance")
	}
}
