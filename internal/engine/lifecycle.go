// House lifecycle: construction, quality of new builds, demolition.
package engine

import (
	"log/slog"

	"github.com/talgya/housemarket/internal/agents"
	"github.com/talgya/housemarket/internal/stat"
)

// buildHouse puts a new house on a random empty cell, listed for sale and
// covered by every realtor within RealtorTerritory (or the nearest realtor
// when none is that close). It returns nil when the grid is full.
func (s *Simulation) buildHouse() *agents.House {
	pos, ok := s.Grid.RandomEmpty(s.rng)
	if !ok {
		return nil
	}
	lifetime := s.Config.HouseMeanLifetime * float64(s.Config.TicksPerYear)
	h := s.Spawner.NewHouse(pos, s.Tick, lifetime)

	for _, r := range s.Pop.Realtors() {
		if s.Grid.Distance(pos, r.Pos) <= s.Config.RealtorTerritory {
			h.LocalRealtors = append(h.LocalRealtors, r.ID)
		}
	}
	if len(h.LocalRealtors) == 0 {
		if r := s.Market.NearestRealtor(pos); r != nil {
			h.LocalRealtors = append(h.LocalRealtors, r.ID)
		}
	}
	for _, id := range h.LocalRealtors {
		s.Pop.Realtor(id).Cover(h.ID)
	}

	s.Pop.AddHouse(h)
	s.Grid.Place(h.ID, pos)
	return h
}

// construct builds HouseConstructionRate percent of the current stock,
// stopping early if the grid fills up.
func (s *Simulation) construct() []*agents.House {
	n := int(float64(s.Pop.Count(agents.KindHouse)) * s.Config.HouseConstructionRate / 100)
	built := make([]*agents.House, 0, n)
	for i := 0; i < n; i++ {
		h := s.buildHouse()
		if h == nil {
			break
		}
		built = append(built, h)
	}
	s.Stats.Built = len(built)
	return built
}

// assignQuality gives each new house the mean quality of the houses within
// Locality cells of it, or 1 if there are none. Houses are done in order,
// so a build not yet assigned counts towards its neighbours at quality 0.
func (s *Simulation) assignQuality(built []*agents.House) {
	radius := int(s.Config.Locality)
	for _, h := range built {
		var qualities []float64
		for _, id := range s.Grid.Neighbors(h.Pos, radius) {
			if n := s.Pop.House(id); n != nil {
				qualities = append(qualities, n.Quality)
			}
		}
		q := 1.0
		if len(qualities) > 0 {
			q = stat.Mean(qualities)
		}
		h.Quality = stat.Clamp(q, agents.MinQuality, agents.MaxQuality)
	}
}

// demolish removes houses past their end of life and listed houses priced
// below MinPriceFraction of the median listed price. Their owners become
// homeless and lose their mortgage.
func (s *Simulation) demolish() {
	floor := s.Config.MinPriceFraction * s.MedianPriceForSale
	for _, h := range s.Pop.Houses() {
		expired := s.Tick > h.EndOfLife
		worthless := h.ForSale && s.MedianPriceForSale > 0 && h.SalePrice < floor
		if !expired && !worthless {
			continue
		}
		if evicted := s.Pop.RemoveHouse(h.ID); evicted != agents.NoID {
			s.Grid.Remove(evicted)
		}
		s.Grid.Remove(h.ID)
		s.Stats.Demolished++
		slog.Debug("house demolished", "tick", s.Tick, "house", h.ID, "expired", expired, "price", h.SalePrice)
	}
}
