package eval

import (
	"reflect"
	"strings"
	"testing"
)

func TestBleuTokenize(t *testing.T) {
	got := bleuTokenize(`He said, "hi there!"`)
	want := []string{"He", "said", ",", `"`, "hi", "there", "!", `"`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("bleuTokenize() = %v, want %v", got, want)
	}
}

func TestCalculateBLEUPerfectMatch(t *testing.T) {
	preds := []string{"the cat sat on the mat", "a quick brown fox jumps"}
	got, err := CalculateBLEU(preds, preds)
	if err != nil {
		t.Fatalf("CalculateBLEU() error = %v", err)
	}
	if got["bleu"] != 100 {
		t.Errorf("bleu = %v, want 100 for identical corpora", got["bleu"])
	}
}

func TestCalculateBLEUBrevityPenalty(t *testing.T) {
	// All n-gram precisions are 100 but the prediction is one token
	// short: score = 100 * exp(1 - 5/4).
	got, err := CalculateBLEU(
		[]string{"the cat sat on"},
		[]string{"the cat sat on it"},
	)
	if err != nil {
		t.Fatalf("CalculateBLEU() error = %v", err)
	}
	if got["bleu"] != 77.8801 {
		t.Errorf("bleu = %v, want 77.8801", got["bleu"])
	}
}

func TestCalculateBLEUNoOverlap(t *testing.T) {
	got, err := CalculateBLEU(
		[]string{"alpha beta gamma delta epsilon"},
		[]string{"one two three four five"},
	)
	if err != nil {
		t.Fatalf("CalculateBLEU() error = %v", err)
	}
	if got["bleu"] <= 0 || got["bleu"] >= 20 {
		t.Errorf("bleu = %v, want a small smoothed score in (0, 20)", got["bleu"])
	}
}

func TestCalculateBLEUShortCorpus(t *testing.T) {
	// Too short to form any 4-gram: the corpus scores zero rather than
	// dividing by nothing.
	got, err := CalculateBLEU([]string{"the cat"}, []string{"the cat"})
	if err != nil {
		t.Fatalf("CalculateBLEU() error = %v", err)
	}
	if got["bleu"] != 0 {
		t.Errorf("bleu = %v, want 0 for corpus without 4-grams", got["bleu"])
	}
}

func TestCalculateBLEUErrors(t *testing.T) {
	if _, err := CalculateBLEU([]string{"a"}, []string{"a", "b"}); err == nil || !strings.Contains(err.Error(), "predictions") {
		t.Errorf("CalculateBLEU() error = %v, want length mismatch", err)
	}
	if _, err := CalculateBLEU(nil, nil); err == nil {
		t.Errorf("CalculateBLEU() error = nil, want empty input failure")
	}
}
