package log

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type LogTestSuite struct {
	suite.Suite
}

func TestLogTestSuite(t *testing.T) {
	suite.Run(t, new(LogTestSuite))
}

func (suite *LogTestSuite) TestFromTrade() {
	date := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		trade  types.ExecutedTrade
		level  Level
		fields map[string]string
	}{
		{
			name: "buy",
			trade: types.ExecutedTrade{
				Symbol: "600000", Date: date, Type: types.TradeTypeBuy,
				Price: decimal.RequireFromString("50"), Shares: 300, Amount: decimal.RequireFromString("15000"),
			},
			level:  LevelInfo,
			fields: map[string]string{"shares": "300", "amount": "15000.00"},
		},
		{
			name: "rejected buy",
			trade: types.ExecutedTrade{
				Symbol: "600000", Date: date, Type: types.TradeTypeNotSufficientToBuy,
				Price: decimal.RequireFromString("50"), Reason: types.ReasonInsufficientCash,
			},
			level:  LevelWarn,
			fields: map[string]string{"reason": "insufficient_cash"},
		},
		{
			name:   "indicating",
			trade:  types.ExecutedTrade{Symbol: "600000", Date: date, Type: types.TradeTypeIndicating, Price: decimal.RequireFromString("10")},
			level:  LevelInfo,
			fields: map[string]string{},
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			entry := FromTrade("run-1", tc.trade)

			suite.Equal("run-1", entry.RunID)
			suite.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), entry.Timestamp)
			suite.Equal(tc.trade.Type, entry.Type)
			suite.Equal(tc.level, entry.Level)
			suite.Equal(tc.trade.Message(), entry.Message)
			suite.Equal(tc.fields, entry.Fields)
		})
	}
}
