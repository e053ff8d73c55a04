package tokenize

import (
	"strings"
	"sync"
)

// Whitespace token ids follow the RoBERTa special-token layout.
const (
	whitespaceBOS = 0
	whitespacePad = 1
	whitespaceEOS = 2

	// Word ids start above the special-token range.
	whitespaceFirstID = 10
)

// Whitespace is a deterministic tokenizer for tests and dry runs. Every
// whitespace-delimited word becomes one token carrying the word-boundary
// marker; with a positive subwordLen, words longer than subwordLen runes
// split into fixed-size chunks and only the first chunk carries the
// marker, mimicking how a BPE vocabulary breaks rare words. Ids are
// assigned in first-seen order, so a fixed call sequence always produces
// the same ids.
type Whitespace struct {
	mu      sync.Mutex
	ids     map[string]int
	next    int
	subword int
	marker  string
}

// NewWhitespace returns a whitespace tokenizer. subwordLen <= 0 keeps
// words whole.
func NewWhitespace(subwordLen int) *Whitespace {
	return &Whitespace{
		ids:     make(map[string]int),
		next:    whitespaceFirstID,
		subword: subwordLen,
		marker:  DefaultWordMarker,
	}
}

// Tokenize splits text into marker-prefixed word chunks.
func (w *Whitespace) Tokenize(text string) ([]string, error) {
	var tokens []string
	for _, word := range strings.Fields(text) {
		runes := []rune(word)
		if w.subword <= 0 || len(runes) <= w.subword {
			tokens = append(tokens, w.marker+word)
			continue
		}
		for i := 0; i < len(runes); i += w.subword {
			end := i + w.subword
			if end > len(runes) {
				end = len(runes)
			}
			chunk := string(runes[i:end])
			if i == 0 {
				chunk = w.marker + chunk
			}
			tokens = append(tokens, chunk)
		}
	}
	return tokens, nil
}

// Encode surrounds the tokenized text with BOS/EOS and fits it to
// maxLength.
func (w *Whitespace) Encode(text string, maxLength int) (*Encoding, error) {
	tokens, err := w.Tokenize(text)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(tokens)+2)
	ids = append(ids, whitespaceBOS)
	for _, tok := range tokens {
		ids = append(ids, w.idFor(tok))
	}
	ids = append(ids, whitespaceEOS)

	mask := make([]int, len(ids))
	for i := range mask {
		mask[i] = 1
	}
	outIDs, outMask := padTruncate(ids, mask, maxLength, whitespacePad)
	return &Encoding{IDs: outIDs, AttentionMask: outMask}, nil
}

// PadID returns the padding token id.
func (w *Whitespace) PadID() int { return whitespacePad }

// BOSID returns the beginning-of-sequence token id.
func (w *Whitespace) BOSID() int { return whitespaceBOS }

// EOSID returns the end-of-sequence token id.
func (w *Whitespace) EOSID() int { return whitespaceEOS }

// StartsNewWord reports whether token carries the word-boundary marker.
func (w *Whitespace) StartsNewWord(token string) bool {
	return strings.HasPrefix(token, w.marker)
}

// StripWordMarker removes the word-boundary marker from token.
func (w *Whitespace) StripWordMarker(token string) string {
	return strings.ReplaceAll(token, w.marker, "")
}

func (w *Whitespace) idFor(token string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id, ok := w.ids[token]; ok {
		return id
	}
	id := w.next
	w.next++
	w.ids[token] = id
	return id
}
