package performance

import (
	"fmt"
	"sort"
	"time"

	"github.com/rxtech-lab/argo-settlement/internal/types"
	"github.com/rxtech-lab/argo-settlement/pkg/errors"
)

// Gate names.
const (
	GateAbove20 = "above_20"
	GateBestK   = "best_k"
)

// Contributor is one independent run taking part in a combo selection.
// Returns, BuyDates and SellDates are parallel and ordered by sell date.
type Contributor struct {
	ID        string
	Returns   []float64
	BuyDates  []time.Time
	SellDates []time.Time
}

// ContributorFromEarningInfo builds a contributor from the earning info of a run.
func ContributorFromEarningInfo(id string, info types.EarningInfo) Contributor {
	return Contributor{
		ID:        id,
		Returns:   info.Returns,
		BuyDates:  info.BuyDates,
		SellDates: info.SellDates,
	}
}

// trailing returns the returns of c that closed strictly before date.
func (c Contributor) trailing(date time.Time) ([]float64, []time.Time) {
	n := sort.Search(len(c.SellDates), func(i int) bool {
		return !c.SellDates[i].Before(date)
	})

	return c.Returns[:n], c.SellDates[:n]
}

// TrailingState is a contributor's record as known before an evaluation date.
type TrailingState struct {
	ID     string
	Record types.PerformanceRecord
}

// Gate decides which contributors may trade on an evaluation date, looking only at
// their trailing states.
type Gate interface {
	Name() string
	Admit(states []TrailingState) map[string]bool
}

// ThresholdGate admits contributors whose cumulative return and win rate both
// exceed the thresholds.
type ThresholdGate struct {
	MinCumulative float64
	MinWinRate    float64
}

func (g ThresholdGate) Name() string {
	if g.MinCumulative == 20 && g.MinWinRate == 70 {
		return GateAbove20
	}

	return fmt.Sprintf("above_%g_%g", g.MinCumulative, g.MinWinRate)
}

func (g ThresholdGate) Admit(states []TrailingState) map[string]bool {
	admitted := make(map[string]bool, len(states))
	for _, s := range states {
		if s.Record.CumulativeReturn > g.MinCumulative && s.Record.WinRate > g.MinWinRate {
			admitted[s.ID] = true
		}
	}

	return admitted
}

// BestKGate admits the K contributors with the highest positive cumulative return.
// Ties are broken by ID.
type BestKGate struct {
	K int
}

func (g BestKGate) Name() string {
	return GateBestK
}

func (g BestKGate) Admit(states []TrailingState) map[string]bool {
	candidates := make([]TrailingState, 0, len(states))
	for _, s := range states {
		if s.Record.HasTrades() && s.Record.CumulativeReturn > 0 {
			candidates = append(candidates, s)
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Record.CumulativeReturn != candidates[j].Record.CumulativeReturn {
			return candidates[i].Record.CumulativeReturn > candidates[j].Record.CumulativeReturn
		}

		return candidates[i].ID < candidates[j].ID
	})

	admitted := make(map[string]bool, g.K)
	for i := 0; i < len(candidates) && i < g.K; i++ {
		admitted[candidates[i].ID] = true
	}

	return admitted
}

// GateByName returns a gate by its name. k is used by best_k only.
func GateByName(name string, k int) (Gate, error) {
	switch name {
	case GateAbove20:
		return ThresholdGate{MinCumulative: 20, MinWinRate: 70}, nil
	case GateBestK:
		if k <= 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "best_k needs a positive k, got %d", k)
		}

		return BestKGate{K: k}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unknown combo gate %q", name)
	}
}

// ComboTrade is a trade picked by a combo selection.
type ComboTrade struct {
	ContributorID string    `yaml:"contributor_id" json:"contributor_id"`
	BuyDate       time.Time `yaml:"buy_date" json:"buy_date"`
	SellDate      time.Time `yaml:"sell_date" json:"sell_date"`
	Return        float64   `yaml:"return" json:"return"`
}

// ComboResult is the outcome of a combo selection.
type ComboResult struct {
	Gate   string                  `yaml:"gate" json:"gate"`
	Record types.PerformanceRecord `yaml:"record" json:"record"`
	// Money is the profit the combined returns make on the initial capital.
	Money  float64      `yaml:"money" json:"money"`
	Trades []ComboTrade `yaml:"trades" json:"trades"`
}

// SelectCombo keeps every trade whose contributor passes gate on the trade's buy
// date. A gate only ever sees returns that closed before that date.
func SelectCombo(contributors []Contributor, gate Gate, initialCapital float64, opts Options) ComboResult {
	type candidate struct {
		contributor int
		index       int
	}

	candidates := make([]candidate, 0)
	for ci, c := range contributors {
		for i := range c.Returns {
			candidates = append(candidates, candidate{contributor: ci, index: i})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a := contributors[candidates[i].contributor].BuyDates[candidates[i].index]
		b := contributors[candidates[j].contributor].BuyDates[candidates[j].index]

		return a.Before(b)
	})

	admittedOn := make(map[time.Time]map[string]bool)
	chosen := make([]ComboTrade, 0)

	for _, cand := range candidates {
		c := contributors[cand.contributor]
		buyDate := c.BuyDates[cand.index]

		admitted, ok := admittedOn[buyDate]
		if !ok {
			admitted = gate.Admit(trailingStates(contributors, buyDate, opts))
			admittedOn[buyDate] = admitted
		}

		if !admitted[c.ID] {
			continue
		}

		chosen = append(chosen, ComboTrade{
			ContributorID: c.ID,
			BuyDate:       buyDate,
			SellDate:      c.SellDates[cand.index],
			Return:        c.Returns[cand.index],
		})
	}

	sort.SliceStable(chosen, func(i, j int) bool {
		return chosen[i].SellDate.Before(chosen[j].SellDate)
	})

	returns := make([]float64, len(chosen))
	sellDates := make([]time.Time, len(chosen))
	for i, t := range chosen {
		returns[i] = t.Return
		sellDates[i] = t.SellDate
	}

	record := Summarize(returns, sellDates, opts)

	return ComboResult{
		Gate:   gate.Name(),
		Record: record,
		Money:  round2(initialCapital * CumulativeReturn(returns) / 100),
		Trades: chosen,
	}
}

func trailingStates(contributors []Contributor, date time.Time, opts Options) []TrailingState {
	states := make([]TrailingState, len(contributors))
	for i, c := range contributors {
		returns, sellDates := c.trailing(date)
		states[i] = TrailingState{ID: c.ID, Record: Summarize(returns, sellDates, opts)}
	}

	return states
}
