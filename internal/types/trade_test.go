package types

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type TradeTestSuite struct {
	suite.Suite
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func (suite *TradeTestSuite) TestTradeItemValidate() {
	buy := optional.Some(Fill{Date: day(2), Price: 10})
	sell := optional.Some(Fill{Date: day(4), Price: 11})

	tests := []struct {
		name    string
		item    TradeItem
		wantErr bool
	}{
		{
			name: "pending",
			item: TradeItem{Outcome: TradeOutcomePending},
		},
		{
			name: "fail to buy",
			item: TradeItem{FailToBuy: optional.Some(Fill{Date: day(2), Price: 11}), Outcome: TradeOutcomeFailToBuy},
		},
		{
			name: "sold",
			item: TradeItem{Buy: buy, Sell: sell, ExitReason: ExitReasonProfit, Outcome: TradeOutcomeSold},
		},
		{
			name: "unresolved",
			item: TradeItem{Buy: buy, Outcome: TradeOutcomeUnresolved},
		},
		{
			name:    "buy and fail to buy",
			item:    TradeItem{Buy: buy, FailToBuy: buy, Outcome: TradeOutcomeFailToBuy},
			wantErr: true,
		},
		{
			name:    "sell without buy",
			item:    TradeItem{Sell: sell, Outcome: TradeOutcomeSold, ExitReason: ExitReasonProfit},
			wantErr: true,
		},
		{
			name: "fail to sell without buy",
			item: TradeItem{
				FailToSells: []FailToSell{{Date: day(3), AttemptedPrice: 9, PriorClose: 10}},
				Outcome:     TradeOutcomePending,
			},
			wantErr: true,
		},
		{
			name:    "sold without reason",
			item:    TradeItem{Buy: buy, Sell: sell, Outcome: TradeOutcomeSold},
			wantErr: true,
		},
		{
			name:    "unknown outcome",
			item:    TradeItem{Outcome: "lost"},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			err := tc.item.Validate()
			if tc.wantErr {
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidTradeItem))
			} else {
				suite.NoError(err)
			}
		})
	}
}

func (suite *TradeTestSuite) TestKeyIgnoresClock() {
	a := ExecutedTrade{Symbol: "600000", Date: day(2).Add(9 * time.Hour), Type: TradeTypeBuy}
	b := ExecutedTrade{Symbol: "600000", Date: day(2), Type: TradeTypeBuy}
	suite.Equal(a.Key(), b.Key())
}

func (suite *TradeTestSuite) TestMessage() {
	tests := []struct {
		name     string
		trade    ExecutedTrade
		expected string
	}{
		{
			name:     "indicating",
			trade:    ExecutedTrade{Symbol: "600000", Type: TradeTypeIndicating, Price: decimal.RequireFromString("10.5")},
			expected: "Stock 600000 is indicating with close price 10.50!",
		},
		{
			name: "buy",
			trade: ExecutedTrade{
				Symbol: "600000",
				Type:   TradeTypeBuy,
				Price:  decimal.RequireFromString("50"),
				Amount: decimal.RequireFromString("15000"),
			},
			expected: "Buying 15000.00 for 600000 with price 50.00!",
		},
		{
			name: "not sufficient",
			trade: ExecutedTrade{
				Symbol:     "600000",
				Type:       TradeTypeNotSufficientToBuy,
				Price:      decimal.RequireFromString("50"),
				CashBefore: decimal.RequireFromString("1200"),
			},
			expected: "Cash: 1200.00, less than allocation or not sufficient to buy 600000 with price 50.00!",
		},
		{
			name: "fail to sell",
			trade: ExecutedTrade{
				Symbol:     "600000",
				Type:       TradeTypeFailToSell,
				Price:      decimal.RequireFromString("9"),
				PriorClose: optional.Some(10.0),
			},
			expected: "Failed to sell 600000 with price 9.00 and last close price 10.00!",
		},
		{
			name: "sell",
			trade: ExecutedTrade{
				Symbol:     "600000",
				Type:       TradeTypeSell,
				Price:      decimal.RequireFromString("55"),
				Amount:     decimal.RequireFromString("16500"),
				BoughtDate: optional.Some(day(2)),
				Return:     optional.Some(9.8567),
			},
			expected: "Selling 16500.00 for 600000 bought at 2024-01-02 with price 55.00! Earned: 9.86%!",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, tc.trade.Message())
		})
	}
}

func (suite *TradeTestSuite) TestSnapshotAssetValue() {
	snapshot := LedgerSnapshot{
		Cash: decimal.RequireFromString("1000"),
		Positions: []Position{
			{Symbol: "600000", Shares: 100, CostBasis: decimal.RequireFromString("505")},
			{Symbol: "600036", Shares: 200, CostBasis: decimal.RequireFromString("2005.5")},
		},
	}

	suite.True(decimal.RequireFromString("2510.5").Equal(snapshot.Holdings()))
	suite.True(decimal.RequireFromString("3510.5").Equal(snapshot.AssetValue()))
}
