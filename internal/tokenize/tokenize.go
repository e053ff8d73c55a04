// Package tokenize defines the sub-word tokenizer contract the pipeline
// depends on, plus two implementations: a BPE adapter backed by a
// HuggingFace tokenizer.json (sugarme/tokenizer) and a minimal
// deterministic whitespace tokenizer for tests and dry runs.
//
// The word-boundary convention of byte-level BPE vocabularies (a marker
// rune on tokens that begin a new whitespace-delimited word) is abstracted
// behind StartsNewWord/StripWordMarker so the relevance aligner is not
// hardwired to one tokenizer family.
package tokenize

// DefaultWordMarker is the byte-level BPE word-boundary marker: the
// character such vocabularies substitute for a leading space.
const DefaultWordMarker = "Ġ" // 'Ġ'

// Encoding is the fixed-width output of Tokenizer.Encode: token ids plus
// an attention mask with 1 for real positions and 0 for padding.
type Encoding struct {
	IDs           []int
	AttentionMask []int
}

// Tokenizer is the capability set the dataset loader and relevance aligner
// require from a sub-word tokenizer.
type Tokenizer interface {
	// Tokenize splits text into sub-word tokens without special tokens.
	Tokenize(text string) ([]string, error)

	// Encode converts text into token ids with special tokens applied,
	// right-padded with the pad id and truncated to maxLength. The
	// returned ids and mask always have exactly maxLength entries.
	Encode(text string, maxLength int) (*Encoding, error)

	// PadID returns the padding token id.
	PadID() int

	// StartsNewWord reports whether token begins a new whitespace-delimited
	// word, per the vocabulary's word-boundary convention.
	StartsNewWord(token string) bool

	// StripWordMarker returns token with the word-boundary marker removed.
	StripWordMarker(token string) string
}

// padTruncate forces ids and mask to exactly maxLength entries: overlong
// sequences are cut on the right, short ones padded on the right with padID
// (mask 0). The inputs are copied, never mutated.
func padTruncate(ids, mask []int, maxLength, padID int) ([]int, []int) {
	outIDs := make([]int, 0, maxLength)
	outMask := make([]int, 0, maxLength)

	n := len(ids)
	if n > maxLength {
		n = maxLength
	}
	outIDs = append(outIDs, ids[:n]...)
	if len(mask) >= n {
		outMask = append(outMask, mask[:n]...)
	} else {
		outMask = append(outMask, mask...)
		for len(outMask) < n {
			outMask = append(outMask, 1)
		}
	}
	for len(outIDs) < maxLength {
		outIDs = append(outIDs, padID)
		outMask = append(outMask, 0)
	}
	return outIDs, outMask
}
