package economy

import (
	"github.com/talgya/housemarket/internal/agents"
	"github.com/talgya/housemarket/internal/config"
	"github.com/talgya/housemarket/internal/entropy"
	"github.com/talgya/housemarket/internal/world"
)

// Space is the part of the grid the market needs.
type Space interface {
	Distance(a, b world.Pos) float64
	Place(id agents.ID, p world.Pos)
	Remove(id agents.ID)
}

var _ Space = (*world.Grid[agents.ID])(nil)

// Ledger holds the per-tick counters the market updates. The orchestrator
// resets it at the start of the phase that owns each counter.
type Ledger struct {
	Moves          int     `json:"moves"`
	StampDuty      float64 `json:"stamp_duty"`
	CyclesDetected int     `json:"cycles_detected"`
}

// Market runs valuation, search and settlement over a population.
type Market struct {
	pop   *agents.Population
	space Space
	rng   *entropy.Source
	spawn *agents.Spawner
	cfg   *config.Config

	interestPerTick float64

	Ledger Ledger
}

// NewMarket wires a market to the world it trades in. cfg is read on every
// call, so interventions that change it take effect immediately.
func NewMarket(pop *agents.Population, space Space, rng *entropy.Source, spawn *agents.Spawner, cfg *config.Config) *Market {
	return &Market{
		pop:             pop,
		space:           space,
		rng:             rng,
		spawn:           spawn,
		cfg:             cfg,
		interestPerTick: cfg.InterestPerTick(),
	}
}

// InterestPerTick returns the rate in force this tick.
func (m *Market) InterestPerTick() float64 {
	return m.interestPerTick
}

// SetInterestPerTick sets the rate in force this tick.
func (m *Market) SetInterestPerTick(r float64) {
	m.interestPerTick = r
}

// MaxMortgage is the largest loan income supports at the current rate.
func (m *Market) MaxMortgage(income float64) float64 {
	return MaxMortgage(income, m.cfg.Affordability, m.interestPerTick, m.cfg.TicksPerYear)
}

// Repayment is the per-tick annuity on principal at the current rate.
func (m *Market) Repayment(principal float64) float64 {
	return Repayment(principal, m.interestPerTick, m.cfg.MortgageDuration, m.cfg.TicksPerYear)
}

// StampDuty is the duty on cost under the current configuration.
func (m *Market) StampDuty(cost float64) float64 {
	return StampDuty(cost, m.cfg.StampDuty)
}

// local reports whether b lies within the locality radius of a. Distances
// are truncated to whole cells before comparison.
func (m *Market) local(a, b world.Pos) bool {
	return float64(int(m.space.Distance(a, b))) < m.cfg.Locality
}
