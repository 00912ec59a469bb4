package types

import "sort"

type PurchaseType string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

// Orders maps a symbol to a net signed share quantity. Positive buys, negative sells.
type Orders map[string]int64

// Add accumulates qty into the order for symbol.
func (o Orders) Add(symbol string, qty int64) {
	o[symbol] += qty
}

// Merge sums other into o.
func (o Orders) Merge(other Orders) {
	for symbol, qty := range other {
		o.Add(symbol, qty)
	}
}

// Symbols returns the symbols with a non-zero quantity in ascending order.
func (o Orders) Symbols() []string {
	symbols := make([]string, 0, len(o))

	for symbol, qty := range o {
		if qty != 0 {
			symbols = append(symbols, symbol)
		}
	}

	sort.Strings(symbols)

	return symbols
}
