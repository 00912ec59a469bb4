// Package marker turns executed fills into chart marks.
package marker

import (
	"fmt"

	"github.com/rxtech-lab/feedback-trader/internal/types"
)

const (
	TitleBuy  = "Buy"
	TitleSell = "Sell"
)

// FromTransactions returns one mark per fill of symbol: green triangles for
// buys and red pins for sells.
func FromTransactions(symbol string, transactions []types.Transaction) []types.Mark {
	marks := make([]types.Mark, 0, len(transactions))

	for _, tx := range transactions {
		if tx.Symbol != symbol {
			continue
		}

		mark := types.Mark{
			Time:    tx.Timestamp,
			Price:   tx.Price,
			Message: fmt.Sprintf("%s %d @ %.2f", tx.Side, tx.Quantity, tx.Price),
		}

		if tx.Side == types.PurchaseTypeBuy {
			mark.Title = TitleBuy
			mark.Color = types.MarkColorGreen
			mark.Shape = types.MarkShapeTriangle
		} else {
			mark.Title = TitleSell
			mark.Color = types.MarkColorRed
			mark.Shape = types.MarkShapePin
		}

		marks = append(marks, mark)
	}

	return marks
}
