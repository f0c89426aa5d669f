package trading

import (
	"options-engine/internal/config"
	"options-engine/internal/models"
)

// selectStockCandidate walks the configured candidate pool in order and
// returns the first symbol whose equity holding meets its minimum share
// threshold, along with the stock position and any existing call position
// on it.
func selectStockCandidate(positions []models.Position, candidates []config.StockCandidate) (*config.StockCandidate, *models.Position, *models.Position) {
	for i := range candidates {
		candidate := &candidates[i]
		minShares := candidate.MinShares
		if minShares == 0 {
			minShares = 100
		}

		var stockPos *models.Position
		for j := range positions {
			p := &positions[j]
			if p.Symbol == candidate.Symbol && p.SecType == models.SecurityStock {
				stockPos = p
				break
			}
		}
		if stockPos == nil || stockPos.Quantity < float64(minShares) {
			continue
		}

		var optPos *models.Position
		for j := range positions {
			p := &positions[j]
			if p.Symbol == candidate.Symbol && p.SecType == models.SecurityOption && p.Right == models.RightCall {
				optPos = p
				break
			}
		}
		return candidate, stockPos, optPos
	}
	return nil, nil, nil
}

// hasOptionPosition reports whether any option position exists on the
// symbol.
func hasOptionPosition(positions []models.Position, symbol string) bool {
	for _, p := range positions {
		if p.Symbol == symbol && p.SecType == models.SecurityOption {
			return true
		}
	}
	return false
}
