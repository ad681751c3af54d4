// Owner dynamics: macro updates, income shocks, moving decisions, exit,
// entry, homelessness and forced exits.
package engine

import (
	"math"

	"github.com/talgya/housemarket/internal/agents"
)

// Income shock multipliers.
const (
	upShock   = 1.2
	downShock = 0.8
)

// updateInterest sets this tick's rate: the nominal rate, optionally
// modulated by a sine cycle with a ten-year period.
func (s *Simulation) updateInterest() {
	cfg := s.Config
	rate := cfg.InterestPerTick()
	if cfg.CycleStrength > 0 {
		phase := 2 * math.Pi * float64(s.Tick) / float64(10*cfg.TicksPerYear)
		rate *= 1 + cfg.CycleStrength/100*math.Sin(phase)
	}
	s.Market.SetInterestPerTick(rate)
}

func (s *Simulation) applyInflation() {
	if s.Config.Inflation == 0 {
		return
	}
	factor := 1 + s.Config.Inflation/(float64(s.Config.TicksPerYear)*100)
	for _, o := range s.Pop.Owners() {
		o.Income *= factor
	}
}

// applyShocks picks Shocked percent of owner-occupiers; half get a 20%
// raise, the rest a 20% cut.
func (s *Simulation) applyShocks(occupiers []*agents.Owner) {
	n := int(s.Config.Shocked * float64(len(occupiers)) / 100)
	shocked := s.rng.Sample(len(occupiers), n)
	up := len(shocked) / 2
	for k, i := range shocked {
		if k < up {
			occupiers[i].Income *= upShock
			s.Stats.UpShocked++
		} else {
			occupiers[i].Income *= downShock
			s.Stats.DownShocked++
		}
	}
}

// decideMoves lists the house of every occupier whose repayments are now
// below half the affordability ratio (moving up) or above twice it (moving
// down).
func (s *Simulation) decideMoves(occupiers []*agents.Owner) {
	cfg := s.Config
	for _, o := range occupiers {
		h := s.Pop.House(o.House)
		if h == nil || h.ForSale {
			continue
		}
		ratio := o.Repayment * float64(cfg.TicksPerYear) / o.Income
		switch {
		case ratio < cfg.Affordability/200:
			h.PutOnMarket(s.Tick)
			s.Stats.MovingUp++
		case ratio > cfg.Affordability/50:
			h.PutOnMarket(s.Tick)
			s.Stats.MovingDown++
		}
	}
}

// exitOwners removes ExitRate percent of nOwners, chosen among
// owner-occupiers. Their houses go on the market empty.
func (s *Simulation) exitOwners(nOwners int) {
	occupiers := s.Pop.OwnerOccupiers()
	n := int(s.Config.ExitRate * float64(nOwners) / 100)
	for _, i := range s.rng.Sample(len(occupiers), n) {
		o := occupiers[i]
		if h := s.Pop.House(o.House); h != nil {
			h.PutOnMarket(s.Tick)
		}
		s.removeOwner(o)
		s.Stats.Exited++
	}
}

// enterOwners adds EntryRate percent of nOwners as houseless newcomers.
func (s *Simulation) enterOwners(nOwners int) {
	n := int(s.Config.EntryRate * float64(nOwners) / 100)
	for i := 0; i < n; i++ {
		s.Pop.AddOwner(s.Spawner.NewOwner(s.incomeParams(), s.Tick))
		s.Stats.Entered++
	}
}

// processHomeless ages every houseless owner by a tick and removes those
// homeless for longer than MaxHomelessPeriod. A period of zero disables it.
func (s *Simulation) processHomeless() {
	limit := s.Config.MaxHomelessPeriod
	if limit <= 0 {
		return
	}
	for _, o := range s.Pop.Owners() {
		if o.HasHouse() {
			continue
		}
		o.Homeless++
		if o.Homeless > limit {
			s.removeOwner(o)
			s.Stats.Emigrated++
		}
	}
}

// forceExits removes occupiers whose house is listed and whose repayments
// exceed their income. occupiers is the snapshot taken before churn, so
// owners that already left are skipped.
func (s *Simulation) forceExits(occupiers []*agents.Owner) {
	tpy := float64(s.Config.TicksPerYear)
	for _, o := range occupiers {
		if s.Pop.Owner(o.ID) == nil {
			continue
		}
		h := s.Pop.House(o.House)
		if h == nil || !h.ForSale {
			continue
		}
		if o.Repayment*tpy > o.Income {
			s.removeOwner(o)
			s.Stats.Evicted++
		}
	}
}
