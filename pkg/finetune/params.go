package finetune

import (
	"fmt"
	"log/slog"
)

// Param is one trainable tensor's gradient-state view.
type Param interface {
	Name() string
	RequiresGrad() bool
	SetRequiresGrad(bool)
}

// Model exposes the parameter list of a model under fine-tuning.
type Model interface {
	Parameters() []Param
}

// FreezeParams disables gradients for every parameter of m.
func FreezeParams(m Model) {
	for _, p := range m.Parameters() {
		p.SetRequiresGrad(false)
	}
}

// GradStatus reports each parameter's requires-grad flag in declaration
// order.
func GradStatus(m Model) []bool {
	params := m.Parameters()
	status := make([]bool, len(params))
	for i, p := range params {
		status[i] = p.RequiresGrad()
	}
	return status
}

// AnyRequiresGrad reports whether at least one parameter is trainable.
func AnyRequiresGrad(m Model) bool {
	for _, p := range m.Parameters() {
		if p.RequiresGrad() {
			return true
		}
	}
	return false
}

// AssertAllFrozen returns an error summarizing the trainable fraction
// when any parameter still requires gradients.
func AssertAllFrozen(m Model) error {
	status := GradStatus(m)
	trainable := 0
	for _, s := range status {
		if s {
			trainable++
		}
	}
	if trainable > 0 {
		pct := 100 * float64(trainable) / float64(len(status))
		return fmt.Errorf("%.1f%% of %d weights require grad", pct, len(status))
	}
	return nil
}

// AssertNotAllFrozen returns an error when no parameter requires
// gradients, which would make a training run a no-op.
func AssertNotAllFrozen(m Model) error {
	status := GradStatus(m)
	if len(status) == 0 {
		return fmt.Errorf("model has no parameters")
	}
	for _, s := range status {
		if s {
			return nil
		}
	}
	return fmt.Errorf("none of %d weights require grad", len(status))
}

// TaskConfigurable is a model whose generation config carries named
// per-task overrides.
type TaskConfigurable interface {
	TaskParams(task string) map[string]any
	ApplyParams(params map[string]any)
}

// ApplyTaskParams looks up the overrides registered for task and applies
// them to the model config, logging what changed.
func ApplyTaskParams(logger *slog.Logger, m TaskConfigurable, task string) {
	params := m.TaskParams(task)
	if len(params) == 0 {
		return
	}
	logger.Info("using task specific params", "task", task, "params", params)
	m.ApplyParams(params)
}
