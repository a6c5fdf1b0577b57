package metrics

import (
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	dto "github.com/prometheus/client_model/go"
	"github.com/rxtech-lab/argo-settlement/internal/logger"
	"github.com/rxtech-lab/argo-settlement/internal/types"
	argoErrors "github.com/rxtech-lab/argo-settlement/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type MetricsTestSuite struct {
	suite.Suite
	metrics *Metrics
}

func TestMetricsTestSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func (suite *MetricsTestSuite) SetupTest() {
	suite.metrics = New()
}

func (suite *MetricsTestSuite) family(name string) *dto.MetricFamily {
	families, err := suite.metrics.Registry().Gather()
	suite.Require().NoError(err)

	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}

	return nil
}

func (suite *MetricsTestSuite) counterValue(name string, labels map[string]string) float64 {
	family := suite.family(name)
	suite.Require().NotNil(family, name)

	for _, metric := range family.GetMetric() {
		matched := 0
		for _, pair := range metric.GetLabel() {
			if labels[pair.GetName()] == pair.GetValue() {
				matched++
			}
		}

		if matched == len(labels) {
			return metric.GetCounter().GetValue()
		}
	}

	return 0
}

func (suite *MetricsTestSuite) TestObserveTrades() {
	suite.metrics.ObserveTrades("breakout", []types.ExecutedTrade{
		{Type: types.TradeTypeBuy},
		{Type: types.TradeTypeBuy},
		{Type: types.TradeTypeSell, Return: optional.Some(3.5)},
	})

	suite.Equal(2.0, suite.counterValue("settlement_trades_total", map[string]string{"rule": "breakout", "type": "buy"}))
	suite.Equal(1.0, suite.counterValue("settlement_trades_total", map[string]string{"rule": "breakout", "type": "sell"}))

	returns := suite.family("settlement_realized_return_pct")
	suite.Require().NotNil(returns)
	suite.Equal(uint64(1), returns.GetMetric()[0].GetHistogram().GetSampleCount())
}

func (suite *MetricsTestSuite) TestObserveRunAndReplay() {
	suite.metrics.ObserveRun(nil)
	suite.metrics.ObserveRun(errors.New("boom"))
	suite.metrics.ObserveReplay(20 * time.Millisecond)

	suite.Equal(1.0, suite.counterValue("settlement_runs_total", map[string]string{"result": "ok"}))
	suite.Equal(1.0, suite.counterValue("settlement_runs_total", map[string]string{"result": "error"}))

	replay := suite.family("settlement_replay_duration_seconds")
	suite.Require().NotNil(replay)
	suite.Equal(uint64(1), replay.GetMetric()[0].GetHistogram().GetSampleCount())
}

func (suite *MetricsTestSuite) TestNilMetricsIsNoop() {
	var m *Metrics

	suite.NotPanics(func() {
		m.ObserveTrades("rule", []types.ExecutedTrade{{Type: types.TradeTypeBuy}})
		m.ObserveReplay(time.Second)
		m.ObserveRun(nil)
	})
}

func (suite *MetricsTestSuite) TestServeExposesMetrics() {
	core, logs := observer.New(zap.InfoLevel)
	suite.metrics.ObserveRun(nil)

	srv, err := suite.metrics.Serve("127.0.0.1:0", &logger.Logger{Logger: zap.New(core)})
	suite.Require().NoError(err)
	defer srv.Close()

	resp, err := http.Get("http://" + srv.Addr + "/metrics")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Contains(string(body), "settlement_runs_total")
	suite.Equal(1, logs.FilterMessage("Serving metrics").Len())
}

func (suite *MetricsTestSuite) TestServeReportsBindFailure() {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	suite.Require().NoError(err)
	defer listener.Close()

	srv, err := suite.metrics.Serve(listener.Addr().String(), logger.NewNopLogger())
	suite.Require().Error(err)
	suite.Nil(srv)
	suite.True(argoErrors.HasCode(err, argoErrors.ErrCodeInvalidParameter))
}
