package engine

import "github.com/rxtech-lab/feedback-trader/internal/types"

func totalReturn(initial, final float64) float64 {
	if initial == 0 {
		return 0
	}

	return (final - initial) / initial
}

func tradeResult(transactions []types.Transaction, equity []types.EquityPoint) types.TradeResult {
	result := types.TradeResult{
		NumberOfTrades: len(transactions),
		MaxDrawdown:    maxDrawdown(equity),
	}

	for _, tx := range transactions {
		if tx.Side == types.PurchaseTypeBuy {
			result.NumberOfBuys++

			continue
		}

		result.NumberOfSells++

		switch {
		case tx.RealizedPnL > 0:
			result.NumberOfWinningTrades++
		case tx.RealizedPnL < 0:
			result.NumberOfLosingTrades++
		}
	}

	if result.NumberOfSells > 0 {
		result.WinRate = float64(result.NumberOfWinningTrades) / float64(result.NumberOfSells)
	}

	return result
}

// maxDrawdown is the largest peak-to-trough drop as a fraction of the peak.
func maxDrawdown(equity []types.EquityPoint) float64 {
	peak := 0.0
	drawdown := 0.0

	for _, point := range equity {
		if point.Equity > peak {
			peak = point.Equity
		}

		if peak > 0 {
			drawdown = max(drawdown, (peak-point.Equity)/peak)
		}
	}

	return drawdown
}
