package finetune

import (
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
)

func TestLabelSmoothedNLL(t *testing.T) {
	lprobs := [][]float64{
		{-1.0, -2.0},
		{-0.5, -3.0},
	}

	loss, nll, err := LabelSmoothedNLL(lprobs, []int{0, 1}, 0.1, DefaultIgnoreIndex)
	if err != nil {
		t.Fatalf("LabelSmoothedNLL() error = %v", err)
	}
	if nll != 4.0 {
		t.Errorf("nll = %v, want 4.0", nll)
	}
	// smooth = 3.0 + 3.5; loss = 0.9*4 + (0.1/2)*6.5.
	if want := 3.925; math.Abs(loss-want) > 1e-9 {
		t.Errorf("loss = %v, want %v", loss, want)
	}
}

func TestLabelSmoothedNLLIgnoresMaskedTargets(t *testing.T) {
	lprobs := [][]float64{
		{-1.0, -2.0},
		{-0.5, -3.0},
	}

	loss, nll, err := LabelSmoothedNLL(lprobs, []int{0, DefaultIgnoreIndex}, 0.1, DefaultIgnoreIndex)
	if err != nil {
		t.Fatalf("LabelSmoothedNLL() error = %v", err)
	}
	if nll != 1.0 {
		t.Errorf("nll = %v, want 1.0 with second position masked", nll)
	}
	if want := 0.9*1 + 0.05*3; math.Abs(loss-want) > 1e-9 {
		t.Errorf("loss = %v, want %v", loss, want)
	}
}

func TestLabelSmoothedNLLZeroEpsilon(t *testing.T) {
	lprobs := [][]float64{{-1.5, -0.7}}
	loss, nll, err := LabelSmoothedNLL(lprobs, []int{1}, 0, DefaultIgnoreIndex)
	if err != nil {
		t.Fatalf("LabelSmoothedNLL() error = %v", err)
	}
	if loss != nll {
		t.Errorf("loss = %v, nll = %v, want equal without smoothing", loss, nll)
	}
}

func TestLabelSmoothedNLLErrors(t *testing.T) {
	tests := []struct {
		name    string
		lprobs  [][]float64
		targets []int
		wantErr string
	}{
		{
			name:    "row and target counts differ",
			lprobs:  [][]float64{{-1}},
			targets: []int{0, 1},
			wantErr: "1 log-prob rows and 2 targets",
		},
		{
			name:    "target outside vocabulary",
			lprobs:  [][]float64{{-1, -2}},
			targets: []int{5},
			wantErr: "outside vocabulary",
		},
		{
			name:    "ragged rows",
			lprobs:  [][]float64{{-1, -2}, {-1}},
			targets: []int{0, 0},
			wantErr: "row 1 has 1 entries",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LabelSmoothedNLL(tt.lprobs, tt.targets, 0.1, DefaultIgnoreIndex)
			if err == nil {
				t.Fatalf("LabelSmoothedNLL() error = nil, want containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LabelSmoothedNLL() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

type fakeParam struct {
	name string
	grad bool
}

func (p *fakeParam) Name() string           { return p.name }
func (p *fakeParam) RequiresGrad() bool     { return p.grad }
func (p *fakeParam) SetRequiresGrad(v bool) { p.grad = v }

type fakeModel struct {
	params []Param
}

func (m *fakeModel) Parameters() []Param { return m.params }

func modelWithGrads(grads ...bool) *fakeModel {
	m := &fakeModel{}
	for i, g := range grads {
		m.params = append(m.params, &fakeParam{name: string(rune('a' + i)), grad: g})
	}
	return m
}

func TestFreezeParams(t *testing.T) {
	m := modelWithGrads(true, true, false)

	if !AnyRequiresGrad(m) {
		t.Fatalf("AnyRequiresGrad() = false before freezing, want true")
	}
	FreezeParams(m)
	if AnyRequiresGrad(m) {
		t.Errorf("AnyRequiresGrad() = true after freezing, want false")
	}
	if err := AssertAllFrozen(m); err != nil {
		t.Errorf("AssertAllFrozen() error = %v, want nil", err)
	}
	if err := AssertNotAllFrozen(m); err == nil || !strings.Contains(err.Error(), "none of 3 weights require grad") {
		t.Errorf("AssertNotAllFrozen() error = %v, want none-require-grad failure", err)
	}
}

func TestAssertAllFrozenReportsPercentage(t *testing.T) {
	m := modelWithGrads(true, false, false, false)

	err := AssertAllFrozen(m)
	if err == nil {
		t.Fatalf("AssertAllFrozen() error = nil, want percentage failure")
	}
	if !strings.Contains(err.Error(), "25.0% of 4 weights require grad") {
		t.Errorf("AssertAllFrozen() error = %v, want 25.0%% of 4 weights", err)
	}
}

func TestGradStatus(t *testing.T) {
	m := modelWithGrads(true, false)
	got := GradStatus(m)
	if len(got) != 2 || !got[0] || got[1] {
		t.Errorf("GradStatus() = %v, want [true false]", got)
	}
}

type fakeConfigurable struct {
	params  map[string]map[string]any
	applied map[string]any
}

func (c *fakeConfigurable) TaskParams(task string) map[string]any { return c.params[task] }
func (c *fakeConfigurable) ApplyParams(p map[string]any)          { c.applied = p }

func TestApplyTaskParams(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	m := &fakeConfigurable{params: map[string]map[string]any{
		"summarization": {"max_length": 142, "num_beams": 4},
	}}
	ApplyTaskParams(logger, m, "summarization")
	if m.applied == nil || m.applied["num_beams"] != 4 {
		t.Errorf("applied = %v, want summarization params applied", m.applied)
	}

	other := &fakeConfigurable{params: map[string]map[string]any{}}
	ApplyTaskParams(logger, other, "translation")
	if other.applied != nil {
		t.Errorf("applied = %v, want untouched config for unknown task", other.applied)
	}
}
