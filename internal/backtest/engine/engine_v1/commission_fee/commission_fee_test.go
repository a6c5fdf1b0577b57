package commission_fee

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type CommissionFeeTestSuite struct {
	suite.Suite
}

func TestCommissionFeeSuite(t *testing.T) {
	suite.Run(t, new(CommissionFeeTestSuite))
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func (suite *CommissionFeeTestSuite) TestZeroCommissionFee() {
	fee := NewZeroCommissionFee()
	suite.NotNil(fee)

	tests := []struct {
		name   string
		amount string
	}{
		{"zero amount", "0"},
		{"small amount", "10"},
		{"large amount", "100000"},
		{"negative amount", "-100"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.True(fee.Calculate(d(tc.amount)).IsZero())
		})
	}
}

func (suite *CommissionFeeTestSuite) TestAShareCommissionFee() {
	fee := NewAShareCommissionFee(d("0.01"), d("5"))

	tests := []struct {
		name     string
		amount   string
		expected string
	}{
		{"zero amount is free", "0", "0"},
		{"negative amount is free", "-15000", "0"},
		{"minimum applies on buy", "15000", "5"},
		{"minimum applies on sell", "16500", "5"},
		{"exactly at minimum", "50000", "5"},
		{"rate above minimum", "100000", "10"},
		{"rounded to cents", "123456.78", "12.35"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			result := fee.Calculate(d(tc.amount))
			suite.True(d(tc.expected).Equal(result), "expected %s, got %s", tc.expected, result)
		})
	}
}

func (suite *CommissionFeeTestSuite) TestMinimumCommissionHolds() {
	fee := NewAShareCommissionFee(d("0.01"), d("5"))
	for _, amount := range []string{"0.01", "1", "999", "49999.99", "50000.01", "1000000"} {
		suite.True(fee.Calculate(d(amount)).GreaterThanOrEqual(d("5")), amount)
	}
}

func (suite *CommissionFeeTestSuite) TestSellSideStampTax() {
	tax := NewSellSideStampTax(d("0.1"))
	suite.True(tax.OnBuy(d("15000")).IsZero())
	suite.True(d("16.5").Equal(tax.OnSell(d("16500"))))
	suite.True(d("0.01").Equal(tax.OnSell(d("12.34"))))
	suite.True(tax.OnSell(d("0")).IsZero())
}

func (suite *CommissionFeeTestSuite) TestGetCommissionFeeHandler() {
	tests := []struct {
		name     string
		broker   Broker
		amount   string
		expected string
	}{
		{
			name:     "a share",
			broker:   BrokerAShare,
			amount:   "100000",
			expected: "10",
		},
		{
			name:     "zero commission",
			broker:   BrokerZero,
			amount:   "100000",
			expected: "0",
		},
		{
			name:     "unknown broker defaults to zero",
			broker:   Broker("unknown"),
			amount:   "100000",
			expected: "0",
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			handler := GetCommissionFeeHandler(tc.broker, d("0.01"), d("5"))
			suite.NotNil(handler)
			suite.True(d(tc.expected).Equal(handler.Calculate(d(tc.amount))))
		})
	}
}

func (suite *CommissionFeeTestSuite) TestAllBrokers() {
	suite.Len(AllBrokers, 2)
	suite.Contains(AllBrokers, BrokerAShare)
	suite.Contains(AllBrokers, BrokerZero)
}
