package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ProviderTestSuite struct {
	suite.Suite
}

func (suite *ProviderTestSuite) TestMarketProviderConstants() {
	suite.Equal(MarketProvider("synthetic"), MarketProviderSynthetic)
	suite.Equal(MarketWriter("duckdb"), MarketWriterDuckDB)
}

func (suite *ProviderTestSuite) TestNewWritersDuckDB() {
	dir := suite.T().TempDir()
	bars := filepath.Join(dir, "bars.parquet")
	signals := filepath.Join(dir, "signals.parquet")

	barWriter, signalWriter, err := newWriters(MarketWriterDuckDB, bars, signals)
	suite.Require().NoError(err)
	suite.Equal(bars, barWriter.GetOutputPath())
	suite.Equal(signals, signalWriter.GetOutputPath())
}

func (suite *ProviderTestSuite) TestNewWritersUnsupported() {
	_, _, err := newWriters("csv", "bars.csv", "signals.csv")
	suite.Error(err)
	suite.Contains(err.Error(), "unsupported writer")
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderTestSuite))
}
