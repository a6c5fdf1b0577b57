package mocks

//go:generate mockgen -destination=./mock_event_sink.go -package=mocks github.com/rxtech-lab/argo-settlement/internal/backtest/engine EventSink
//go:generate mockgen -destination=./mock_datasource.go -package=mocks github.com/rxtech-lab/argo-settlement/internal/backtest/engine/engine_v1/datasource DataSource
