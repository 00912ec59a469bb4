// Package trigger runs edge-triggered actions for a single strategy instance.
//
// A Trigger fires its action only when its condition goes from false to true
// between two consecutive Run calls. Each Engine owns its triggers, so two
// strategies never share edge state.
package trigger

import (
	"github.com/rxtech-lab/feedback-trader/pkg/errors"
)

// Condition reports whether a trigger is currently active.
type Condition[C any] func(ctx C) (bool, error)

// Action is executed on a rising edge, or on every bar when registered with OnBar.
type Action[C any] func(ctx C) error

type Trigger[C any] struct {
	Name      string
	condition Condition[C]
	action    Action[C]
	lastState bool
}

// LastState returns the condition value observed by the last successful evaluation.
func (t *Trigger[C]) LastState() bool {
	return t.lastState
}

func (t *Trigger[C]) evaluate(ctx C) error {
	current, err := t.condition(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeTriggerConditionFailed, err, "condition failed for trigger %s", t.Name)
	}

	if current && !t.lastState {
		if err := t.action(ctx); err != nil {
			return errors.Wrapf(errors.ErrCodeTriggerActionFailed, err, "action failed for trigger %s", t.Name)
		}
	}

	t.lastState = current

	return nil
}

type Engine[C any] struct {
	triggers []*Trigger[C]
	onBar    []Action[C]
}

func NewEngine[C any]() *Engine[C] {
	return &Engine[C]{
		triggers: make([]*Trigger[C], 0),
		onBar:    make([]Action[C], 0),
	}
}

// Register adds an edge-triggered action. Triggers are evaluated in registration order.
func (e *Engine[C]) Register(name string, condition Condition[C], action Action[C]) *Trigger[C] {
	t := &Trigger[C]{
		Name:      name,
		condition: condition,
		action:    action,
	}
	e.triggers = append(e.triggers, t)

	return t
}

// OnBar adds an action that runs on every Run before any trigger is evaluated.
func (e *Engine[C]) OnBar(action Action[C]) {
	e.onBar = append(e.onBar, action)
}

// Run executes the on-bar actions, then evaluates every trigger. It stops at the first error.
func (e *Engine[C]) Run(ctx C) error {
	for _, action := range e.onBar {
		if err := action(ctx); err != nil {
			return errors.Wrap(errors.ErrCodeTriggerActionFailed, "on-bar action failed", err)
		}
	}

	for _, t := range e.triggers {
		if err := t.evaluate(ctx); err != nil {
			return err
		}
	}

	return nil
}

// Reset clears the edge state of every trigger.
func (e *Engine[C]) Reset() {
	for _, t := range e.triggers {
		t.lastState = false
	}
}

func (e *Engine[C]) Len() int {
	return len(e.triggers)
}
