package performance

import (
	"testing"

	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ComboTestSuite struct {
	suite.Suite
}

func TestComboTestSuite(t *testing.T) {
	suite.Run(t, new(ComboTestSuite))
}

func (suite *ComboTestSuite) TestGateByName() {
	gate, err := GateByName(GateAbove20, 0)
	suite.NoError(err)
	suite.Equal(ThresholdGate{MinCumulative: 20, MinWinRate: 70}, gate)
	suite.Equal(GateAbove20, gate.Name())

	gate, err = GateByName(GateBestK, 2)
	suite.NoError(err)
	suite.Equal(BestKGate{K: 2}, gate)

	_, err = GateByName(GateBestK, 0)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = GateByName("nope", 1)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *ComboTestSuite) TestThresholdGateIsStrict() {
	gate := ThresholdGate{MinCumulative: 20, MinWinRate: 70}
	states := []TrailingState{
		{ID: "a", Record: types.PerformanceRecord{CumulativeReturn: 25, WinRate: 80, TradeCount: 3}},
		{ID: "b", Record: types.PerformanceRecord{CumulativeReturn: 20, WinRate: 80, TradeCount: 3}},
		{ID: "c", Record: types.PerformanceRecord{CumulativeReturn: 25, WinRate: 70, TradeCount: 3}},
	}

	suite.Equal(map[string]bool{"a": true}, gate.Admit(states))
}

func (suite *ComboTestSuite) TestBestKGate() {
	states := []TrailingState{
		{ID: "a", Record: types.PerformanceRecord{CumulativeReturn: 5, TradeCount: 1}},
		{ID: "b", Record: types.PerformanceRecord{CumulativeReturn: 15, TradeCount: 2}},
		{ID: "c", Record: types.PerformanceRecord{CumulativeReturn: 10, TradeCount: 2}},
		{ID: "d", Record: types.PerformanceRecord{CumulativeReturn: -1, TradeCount: 2}},
		{ID: "e", Record: types.PerformanceRecord{}},
	}

	suite.Equal(map[string]bool{"b": true, "c": true}, BestKGate{K: 2}.Admit(states))
	suite.Equal(map[string]bool{"a": true, "b": true, "c": true}, BestKGate{K: 10}.Admit(states))
}

func (suite *ComboTestSuite) TestSelectComboNoLookAhead() {
	// "winner" closes a 30% trade on day 10. Its trade bought on day 10 must not
	// see that return, the one bought on day 11 must.
	contributors := []Contributor{
		{
			ID:        "winner",
			Returns:   []float64{30, 5, 7},
			BuyDates:  days(1, 10, 11),
			SellDates: days(10, 12, 14),
		},
		{
			ID:        "loser",
			Returns:   []float64{-3, 2},
			BuyDates:  days(2, 11),
			SellDates: days(5, 13),
		},
	}

	result := SelectCombo(contributors, ThresholdGate{MinCumulative: 20, MinWinRate: 70}, 50000, DefaultOptions())

	suite.Equal(GateAbove20, result.Gate)
	suite.Require().Len(result.Trades, 1)
	suite.Equal("winner", result.Trades[0].ContributorID)
	suite.Equal(day(11), result.Trades[0].BuyDate)
	suite.Equal(7.0, result.Record.CumulativeReturn)
	suite.Equal(1, result.Record.TradeCount)
	suite.Equal(3500.0, result.Money)
}

func (suite *ComboTestSuite) TestSelectComboBestK() {
	contributors := []Contributor{
		{ID: "a", Returns: []float64{10, 4}, BuyDates: days(1, 6), SellDates: days(3, 8)},
		{ID: "b", Returns: []float64{2, 6}, BuyDates: days(1, 6), SellDates: days(4, 9)},
	}

	result := SelectCombo(contributors, BestKGate{K: 1}, 10000, DefaultOptions())

	suite.Require().Len(result.Trades, 1)
	suite.Equal("a", result.Trades[0].ContributorID)
	suite.Equal(4.0, result.Record.CumulativeReturn)
	suite.Equal(400.0, result.Money)
}

func (suite *ComboTestSuite) TestSelectComboOrdersBySellDate() {
	contributors := []Contributor{
		{ID: "a", Returns: []float64{50, 1}, BuyDates: days(0, 5), SellDates: days(2, 20)},
		{ID: "b", Returns: []float64{50, 3}, BuyDates: days(0, 6), SellDates: days(3, 10)},
	}

	result := SelectCombo(contributors, BestKGate{K: 2}, 1000, DefaultOptions())

	suite.Require().Len(result.Trades, 2)
	suite.Equal("b", result.Trades[0].ContributorID)
	suite.Equal("a", result.Trades[1].ContributorID)
	suite.Equal(4.0, result.Record.CumulativeReturn)
	suite.InDelta((3*1+1*2)/3.0, result.Record.AverageReturn, 0.01)
}

func (suite *ComboTestSuite) TestSelectComboEmpty() {
	result := SelectCombo(nil, BestKGate{K: 1}, 1000, DefaultOptions())

	suite.Empty(result.Trades)
	suite.False(result.Record.HasTrades())
	suite.Equal(0.0, result.Money)
}

func (suite *ComboTestSuite) TestContributorFromEarningInfo() {
	info := BuildEarningInfo([]float64{1}, days(2), days(1), nil)
	c := ContributorFromEarningInfo("run", info)

	suite.Equal("run", c.ID)
	suite.Equal([]float64{1}, c.Returns)
}
