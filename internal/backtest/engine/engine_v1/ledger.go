package engine

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-settlement/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-settlement/internal/logger"
	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/internal/utils"
	"github.com/rxtech-lab/argo-settlement/internal/version"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// LedgerResult is what a replay produced.
type LedgerResult struct {
	Trades []types.ExecutedTrade
	// Realized returns in percent, in sell order.
	Returns    []float64
	SellDates  []time.Time
	BuyDates   []time.Time
	AssetCurve []types.AssetPoint
	Snapshot   types.LedgerSnapshot
	Cash       decimal.Decimal
}

// ledgerState is the mutable part of the ledger. A replay works on a copy.
type ledgerState struct {
	cash      decimal.Decimal
	assets    decimal.Decimal
	positions map[string]types.Position
	// rejected holds symbol|buy date keys of buys that were refused.
	rejected map[string]struct{}
	curve    []types.AssetPoint
	lastDate time.Time
}

func (s *ledgerState) clone() *ledgerState {
	c := &ledgerState{
		cash:      s.cash,
		assets:    s.assets,
		positions: make(map[string]types.Position, len(s.positions)),
		rejected:  make(map[string]struct{}, len(s.rejected)),
		curve:     append([]types.AssetPoint(nil), s.curve...),
		lastDate:  s.lastDate,
	}

	for k, v := range s.positions {
		c.positions[k] = v
	}

	for k := range s.rejected {
		c.rejected[k] = struct{}{}
	}

	return c
}

func (s *ledgerState) holdings() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s.positions {
		total = total.Add(p.CostBasis)
	}

	return total
}

func rejectionKey(symbol string, buyDate time.Time) string {
	return symbol + "|" + buyDate.Format(types.DateLayout)
}

// Ledger is the shared cash portfolio of one simulation run. It is owned by a
// single goroutine; independent runs use independent ledgers.
type Ledger struct {
	runID      string
	logger     *logger.Logger
	fee        commission_fee.CommissionFee
	tax        commission_fee.StampTax
	allocation decimal.Decimal
	buySlip    decimal.Decimal
	sellSlip   decimal.Decimal
	slipCap    decimal.Decimal
	lot        int64

	state *ledgerState
}

// NewLedger creates a ledger holding the initial capital of config in cash.
func NewLedger(runID string, config SimulationEngineV1Config, log *logger.Logger) *Ledger {
	cash := config.InitialCash()

	return &Ledger{
		runID:      runID,
		logger:     log,
		fee:        config.CommissionFee(),
		tax:        config.StampTax(),
		allocation: config.Allocation(),
		buySlip:    decimal.NewFromFloat(config.BuySlippagePct),
		sellSlip:   decimal.NewFromFloat(config.SellSlippagePct),
		slipCap:    decimal.NewFromFloat(config.SlippageCap),
		lot:        int64(config.BoardLot),
		state: &ledgerState{
			cash:      cash,
			assets:    cash,
			positions: make(map[string]types.Position),
			rejected:  make(map[string]struct{}),
		},
	}
}

// RestoreLedger creates a ledger from a checkpoint.
func RestoreLedger(runID string, snapshot types.LedgerSnapshot, config SimulationEngineV1Config, log *logger.Logger) (*Ledger, error) {
	if err := version.CheckSnapshotCompatibility(version.LedgerSnapshotVersion, snapshot.Version); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSnapshotMismatch, "incompatible ledger snapshot", err)
	}

	ledger := NewLedger(runID, config, log)
	state := &ledgerState{
		cash:      snapshot.Cash,
		positions: make(map[string]types.Position, len(snapshot.Positions)),
		rejected:  make(map[string]struct{}, len(snapshot.RejectedBuys)),
		curve:     append([]types.AssetPoint(nil), snapshot.AssetCurve...),
	}

	for _, p := range snapshot.Positions {
		if p.Shares <= 0 || p.Shares%ledger.lot != 0 {
			return nil, errors.Newf(errors.ErrCodeSnapshotMismatch, "position %s holds %d shares, not a multiple of %d", p.Symbol, p.Shares, ledger.lot)
		}

		if _, ok := state.positions[p.Symbol]; ok {
			return nil, errors.Newf(errors.ErrCodeSnapshotMismatch, "snapshot holds two positions in %s", p.Symbol)
		}

		state.positions[p.Symbol] = p
	}

	for _, key := range snapshot.RejectedBuys {
		state.rejected[key] = struct{}{}
	}

	if n := len(state.curve); n > 0 {
		state.lastDate = state.curve[n-1].Date
	}

	state.assets = state.cash.Add(state.holdings())
	ledger.state = state

	return ledger, nil
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal {
	return l.state.cash
}

// AssetValue returns cash plus the cost basis of open positions.
func (l *Ledger) AssetValue() decimal.Decimal {
	return l.state.cash.Add(l.state.holdings())
}

// OpenPositions returns the open positions ordered by symbol.
func (l *Ledger) OpenPositions() []types.Position {
	return sortedPositions(l.state.positions)
}

// Snapshot returns the checkpointable state of the ledger.
func (l *Ledger) Snapshot() types.LedgerSnapshot {
	return snapshotOf(l.state)
}

// Apply replays date sorted events. Either all events are applied or, on error,
// the ledger is left exactly as it was before the call.
func (l *Ledger) Apply(events []TradeEvent) (LedgerResult, error) {
	working := l.state.clone()
	result := LedgerResult{}

	for _, event := range events {
		if event.Date.Before(working.lastDate) {
			return LedgerResult{}, errors.Newf(errors.ErrCodeLedgerDesync,
				"event %s %s on %s arrives after %s", event.Symbol, event.Type,
				event.Date.Format(types.DateLayout), working.lastDate.Format(types.DateLayout))
		}

		working.lastDate = event.Date

		var err error

		switch event.Type {
		case types.TradeTypeIndicating, types.TradeTypeFailToBuy:
			l.record(&result, l.newTrade(working, event, decimal.NewFromFloat(event.Price)))
		case types.TradeTypeBuy:
			err = l.buy(working, &result, event)
		case types.TradeTypeFailToSell:
			err = l.failToSell(working, &result, event)
		case types.TradeTypeSell:
			err = l.sell(working, &result, event)
		default:
			err = errors.Newf(errors.ErrCodeLedgerDesync, "unknown event type %q", event.Type)
		}

		if err != nil {
			return LedgerResult{}, err
		}
	}

	l.state = working
	result.AssetCurve = append([]types.AssetPoint(nil), working.curve...)
	result.Snapshot = snapshotOf(working)
	result.Cash = working.cash

	return result, nil
}

func (l *Ledger) buy(s *ledgerState, result *LedgerResult, event TradeEvent) error {
	price := decimal.NewFromFloat(event.Price)
	price = price.Add(utils.CalculateSlippage(price, l.buySlip, l.slipCap))

	reason := ""
	shares := int64(0)

	switch {
	case hasPosition(s, event.Symbol):
		reason = types.ReasonPositionOpen
	case s.cash.LessThan(l.allocation):
		reason = types.ReasonInsufficientCash
	default:
		shares = utils.CalculateMaxLotShares(l.allocation, price, l.lot, l.fee)
		if shares < l.lot {
			reason = types.ReasonLotTooSmall
		}
	}

	if reason != "" {
		s.rejected[rejectionKey(event.Symbol, event.Date)] = struct{}{}

		trade := l.newTrade(s, event, price)
		trade.Type = types.TradeTypeNotSufficientToBuy
		trade.Reason = reason
		l.record(result, trade)

		return nil
	}

	amount := price.Mul(decimal.NewFromInt(shares)).Round(2)
	commission := l.fee.Calculate(amount)
	tax := l.tax.OnBuy(amount)
	cost := amount.Add(commission).Add(tax)

	trade := l.newTrade(s, event, price)
	trade.Shares = shares
	trade.Amount = amount
	trade.Commission = commission
	trade.StampTax = tax

	s.cash = s.cash.Sub(cost)
	s.positions[event.Symbol] = types.Position{
		Symbol:     event.Symbol,
		Shares:     shares,
		EntryPrice: price,
		EntryDate:  event.Date,
		Allocation: l.allocation,
		CostBasis:  cost,
	}

	trade.CashAfter = s.cash
	l.record(result, trade)

	return l.recordAssetPoint(s, event.Date)
}

func (l *Ledger) failToSell(s *ledgerState, result *LedgerResult, event TradeEvent) error {
	position, err := l.matchPosition(s, event)
	if err != nil || position.IsNone() {
		return err
	}

	trade := l.newTrade(s, event, decimal.NewFromFloat(event.Price))
	trade.Shares = position.Unwrap().Shares
	trade.BoughtDate = optional.Some(event.BuyDate)
	trade.PriorClose = optional.Some(event.PriorClose)
	l.record(result, trade)

	return nil
}

func (l *Ledger) sell(s *ledgerState, result *LedgerResult, event TradeEvent) error {
	matched, err := l.matchPosition(s, event)
	if err != nil || matched.IsNone() {
		return err
	}

	position := matched.Unwrap()
	assetsBefore := s.cash.Add(s.holdings())

	price := decimal.NewFromFloat(event.Price)
	price = price.Sub(utils.CalculateSlippage(price, l.sellSlip, l.slipCap))

	amount := price.Mul(decimal.NewFromInt(position.Shares)).Round(2)
	tax := l.tax.OnSell(amount)
	commission := l.fee.Calculate(amount)
	net := amount.Sub(tax).Sub(commission)

	trade := l.newTrade(s, event, price)

	s.cash = s.cash.Add(net)
	delete(s.positions, event.Symbol)
	s.assets = s.assets.Add(net).Sub(position.CostBasis)

	assetsAfter := s.cash.Add(s.holdings())
	realized := assetsAfter.Sub(assetsBefore).Mul(hundred).Div(position.CostBasis).Round(4).InexactFloat64()

	trade.Shares = position.Shares
	trade.Amount = amount
	trade.Commission = commission
	trade.StampTax = tax
	trade.CashAfter = s.cash
	trade.Return = optional.Some(realized)
	trade.BoughtDate = optional.Some(position.EntryDate)
	trade.Reason = string(event.ExitReason)
	l.record(result, trade)

	result.Returns = append(result.Returns, realized)
	result.SellDates = append(result.SellDates, event.Date)
	result.BuyDates = append(result.BuyDates, position.EntryDate)

	return l.recordAssetPoint(s, event.Date)
}

// matchPosition returns the open position an exit event refers to. None means the
// buy was rejected and the event is skipped.
func (l *Ledger) matchPosition(s *ledgerState, event TradeEvent) (optional.Option[types.Position], error) {
	if position, ok := s.positions[event.Symbol]; ok && position.EntryDate.Equal(event.BuyDate) {
		return optional.Some(position), nil
	}

	if _, ok := s.rejected[rejectionKey(event.Symbol, event.BuyDate)]; ok {
		l.logger.Debug("Skipping exit of a rejected buy",
			zap.String("symbol", event.Symbol),
			zap.String("type", string(event.Type)),
			zap.String("buy_date", event.BuyDate.Format(types.DateLayout)))

		return optional.None[types.Position](), nil
	}

	desync := errors.NewDesyncError(event.Symbol, event.Date.Format(types.DateLayout), string(event.Type),
		"no open position bought on "+event.BuyDate.Format(types.DateLayout))

	return optional.None[types.Position](), errors.Wrap(errors.ErrCodePositionNotFound, "exit without an open position", desync)
}

// recordAssetPoint appends to the asset curve after checking the accounting invariants.
func (l *Ledger) recordAssetPoint(s *ledgerState, date time.Time) error {
	value := s.cash.Add(s.holdings())

	if !value.Equal(s.assets) {
		return errors.Newf(errors.ErrCodeInvariantViolation,
			"asset value %s does not match cash %s plus holdings %s on %s",
			s.assets.StringFixed(2), s.cash.StringFixed(2), s.holdings().StringFixed(2), date.Format(types.DateLayout))
	}

	if s.cash.IsNegative() {
		return errors.Newf(errors.ErrCodeInvariantViolation, "cash is negative on %s: %s", date.Format(types.DateLayout), s.cash.StringFixed(2))
	}

	for _, p := range s.positions {
		if p.Shares%l.lot != 0 {
			return errors.Newf(errors.ErrCodeInvariantViolation, "position %s holds %d shares, not a multiple of %d", p.Symbol, p.Shares, l.lot)
		}
	}

	s.curve = append(s.curve, types.AssetPoint{Date: date, Value: value})

	return nil
}

func (l *Ledger) newTrade(s *ledgerState, event TradeEvent, price decimal.Decimal) types.ExecutedTrade {
	return types.ExecutedTrade{
		RunID:      l.runID,
		Symbol:     event.Symbol,
		Date:       event.Date,
		Type:       event.Type,
		Price:      price.Round(2),
		Amount:     decimal.Zero,
		Commission: decimal.Zero,
		StampTax:   decimal.Zero,
		CashBefore: s.cash,
		CashAfter:  s.cash,
	}
}

func (l *Ledger) record(result *LedgerResult, trade types.ExecutedTrade) {
	l.logger.Debug(trade.Message(),
		zap.String("run_id", l.runID),
		zap.String("symbol", trade.Symbol),
		zap.String("date", trade.Date.Format(types.DateLayout)),
		zap.String("type", string(trade.Type)))

	result.Trades = append(result.Trades, trade)
}

func hasPosition(s *ledgerState, symbol string) bool {
	_, ok := s.positions[symbol]

	return ok
}

func sortedPositions(positions map[string]types.Position) []types.Position {
	result := make([]types.Position, 0, len(positions))
	for _, p := range positions {
		result = append(result, p)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })

	return result
}

func snapshotOf(s *ledgerState) types.LedgerSnapshot {
	rejected := make([]string, 0, len(s.rejected))
	for key := range s.rejected {
		rejected = append(rejected, key)
	}

	sort.Strings(rejected)

	return types.LedgerSnapshot{
		Version:      version.LedgerSnapshotVersion,
		Cash:         s.cash,
		Positions:    sortedPositions(s.positions),
		RejectedBuys: rejected,
		AssetCurve:   append([]types.AssetPoint(nil), s.curve...),
	}
}
