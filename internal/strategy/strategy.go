// Package strategy defines the decision protocol used by the simulation and
// the built-in crossover strategies.
package strategy

import (
	"time"

	"github.com/rxtech-lab/feedback-trader/internal/types"
)

// Strategy turns market history into signed share orders.
//
// history only contains bars strictly before date. A returned error is
// treated by the simulation as "no decision" for that date.
type Strategy interface {
	Name() string
	Decide(date time.Time, history types.History) (types.Orders, error)
}

// crossContext is the per-bar state evaluated by a crossover strategy's triggers.
type crossContext struct {
	fast   []float64
	slow   []float64
	orders types.Orders
}
