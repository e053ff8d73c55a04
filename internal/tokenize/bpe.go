package tokenize

import (
	"fmt"
	"strings"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// BPEConfig configures a BPE tokenizer loaded from a HuggingFace
// tokenizer.json file.
type BPEConfig struct {
	// Path is the tokenizer.json file to load.
	Path string
	// PadToken is the padding token. Defaults to "<pad>".
	PadToken string
	// WordMarker is the word-boundary marker the vocabulary uses.
	// Defaults to DefaultWordMarker.
	WordMarker string
}

// BPE adapts a sugarme tokenizer to the Tokenizer interface. Padding and
// truncation are applied here rather than through the underlying
// tokenizer's own post-processing, so Encode output width is exact
// regardless of how the tokenizer.json was authored.
type BPE struct {
	tk     *tokenizer.Tokenizer
	padID  int
	marker string
}

// LoadBPE reads a tokenizer.json from cfg.Path and resolves the pad token id.
func LoadBPE(cfg BPEConfig) (*BPE, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("tokenizer path is required")
	}
	tk, err := pretrained.FromFile(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer from %s: %w", cfg.Path, err)
	}
	return NewBPE(tk, cfg)
}

// NewBPE wraps an already-constructed sugarme tokenizer.
func NewBPE(tk *tokenizer.Tokenizer, cfg BPEConfig) (*BPE, error) {
	padToken := cfg.PadToken
	if padToken == "" {
		padToken = "<pad>"
	}
	padID, ok := tk.TokenToId(padToken)
	if !ok {
		return nil, fmt.Errorf("pad token %q not found in vocabulary", padToken)
	}
	marker := cfg.WordMarker
	if marker == "" {
		marker = DefaultWordMarker
	}
	return &BPE{tk: tk, padID: padID, marker: marker}, nil
}

// Tokenize splits text into sub-word tokens without special tokens.
func (b *BPE) Tokenize(text string) ([]string, error) {
	en, err := b.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize text: %w", err)
	}
	return append([]string(nil), en.Tokens...), nil
}

// Encode converts text into exactly maxLength token ids with special
// tokens, right-padding and truncating as needed.
func (b *BPE) Encode(text string, maxLength int) (*Encoding, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("max length must be positive, got %d", maxLength)
	}
	en, err := b.tk.EncodeSingle(text, true)
	if err != nil {
		return nil, fmt.Errorf("failed to encode text: %w", err)
	}
	ids, mask := padTruncate(en.Ids, en.AttentionMask, maxLength, b.padID)
	return &Encoding{IDs: ids, AttentionMask: mask}, nil
}

// PadID returns the padding token id.
func (b *BPE) PadID() int { return b.padID }

// StartsNewWord reports whether token carries the word-boundary marker.
func (b *BPE) StartsNewWord(token string) bool {
	return strings.HasPrefix(token, b.marker)
}

// StripWordMarker removes the word-boundary marker from token.
func (b *BPE) StripWordMarker(token string) string {
	return strings.ReplaceAll(token, b.marker, "")
}
