package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// BoardLot is the minimum tradable share increment.
const BoardLot = 100

// Position is an open holding. It is created by a buy and removed by the matching sell.
type Position struct {
	Symbol     string          `json:"symbol"`
	Shares     int64           `json:"shares"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	EntryDate  time.Time       `json:"entry_date"`
	// Allocation is the capital reserved for the instrument when the position was opened.
	Allocation decimal.Decimal `json:"allocation"`
	// CostBasis is amount plus buy commission. Open positions are valued at cost basis.
	CostBasis decimal.Decimal `json:"cost_basis"`
}

// AssetPoint is one entry of the asset value curve.
type AssetPoint struct {
	Date  time.Time       `json:"date"`
	Value decimal.Decimal `json:"value"`
}

// LedgerSnapshot is the serializable ledger state used for checkpointing.
type LedgerSnapshot struct {
	Version   string          `json:"version"`
	Cash      decimal.Decimal `json:"cash"`
	Positions []Position      `json:"positions"`
	// RejectedBuys lists "symbol|date" keys of buys the ledger refused.
	RejectedBuys []string     `json:"rejected_buys,omitempty"`
	AssetCurve   []AssetPoint `json:"asset_curve,omitempty"`
}

// Holdings returns the summed cost basis of the positions.
func (s LedgerSnapshot) Holdings() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.Positions {
		total = total.Add(p.CostBasis)
	}

	return total
}

// AssetValue returns cash plus holdings.
func (s LedgerSnapshot) AssetValue() decimal.Decimal {
	return s.Cash.Add(s.Holdings())
}
