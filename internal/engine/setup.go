package engine

import (
	"github.com/talgya/housemarket/internal/agents"
	"github.com/talgya/housemarket/internal/config"
	"github.com/talgya/housemarket/internal/stat"
	"github.com/talgya/housemarket/internal/world"
)

// setup populates an empty world: realtors at random cells, houses on
// Density percent of the grid, owners in all but InitialVacancyRate of
// them, then prices, quality indices, realtor averages and one seed sale
// record per house so realtors have something to value against.
func (s *Simulation) setup() {
	cfg := s.Config
	s.Market.SetInterestPerTick(cfg.InterestPerTick())

	for i := 0; i < cfg.Realtors; i++ {
		pos := world.Pos{X: s.rng.Intn(cfg.GridWidth), Y: s.rng.Intn(cfg.GridHeight)}
		r := s.Spawner.NewRealtor(pos)
		s.Pop.AddRealtor(r)
		s.Grid.Place(r.ID, pos)
	}

	nHouses := int(float64(cfg.GridWidth*cfg.GridHeight) * cfg.Density / 100)
	for i := 0; i < nHouses; i++ {
		if s.buildHouse() == nil {
			break
		}
	}

	s.settleInitialOwners()
	s.priceVacantHouses()

	s.MedianPriceForSale = stat.Median(pricedHouses(s.Pop.Houses()))
	for _, h := range s.Pop.Houses() {
		h.Quality = 1
		if s.MedianPriceForSale > 0 {
			h.Quality = stat.Clamp(h.SalePrice/s.MedianPriceForSale, agents.MinQuality, agents.MaxQuality)
		}
	}

	for _, r := range s.Pop.Realtors() {
		var prices []float64
		for _, id := range r.Territory {
			prices = append(prices, s.Pop.House(id).SalePrice)
		}
		r.AveragePrice = stat.Median(prices)
	}

	s.seedRecords()
	s.checkCollapse()
}

// settleInitialOwners moves an owner into each occupied house with the
// largest mortgage its income supports. The house is worth that mortgage
// plus the deposit the loan-to-value limit requires.
func (s *Simulation) settleInitialOwners() {
	cfg := s.Config
	houses := s.Pop.Houses()
	occupied := int((1 - cfg.InitialVacancyRate) * float64(len(houses)))

	var field *world.IncomeField
	if cfg.InitialGeography == config.GeographyClustered {
		field = world.NewIncomeField(cfg.Seed)
	}

	for _, i := range s.rng.Sample(len(houses), occupied) {
		h := houses[i]
		o := s.Spawner.NewOwner(s.incomeParams(), s.Tick)
		s.Pop.AddOwner(o)
		s.Grid.Place(o.ID, h.Pos)
		h.ForSale = false
		h.Owner = o.ID
		o.House = h.ID

		switch cfg.InitialGeography {
		case config.GeographyGradient:
			o.Income *= world.GradientFactor(h.Pos)
		case config.GeographyClustered:
			o.Income *= field.At(h.Pos)
		}

		o.Mortgage = s.Market.MaxMortgage(o.Income)
		deposit := o.Mortgage * (100/cfg.MaxLoanToValue - 1)
		h.SalePrice = o.Mortgage + deposit
		o.Repayment = s.Market.Repayment(o.Mortgage)
	}
}

// priceVacantHouses values each unpriced house at the median price of the
// priced houses in its locality, or at the overall median if there are
// none nearby.
func (s *Simulation) priceVacantHouses() {
	var priced, unpriced []*agents.House
	for _, h := range s.Pop.Houses() {
		if h.SalePrice > 0 {
			priced = append(priced, h)
		} else {
			unpriced = append(unpriced, h)
		}
	}
	overall := stat.Median(pricedHouses(priced))

	for _, h := range unpriced {
		var local []float64
		for _, other := range priced {
			if float64(int(s.Grid.Distance(h.Pos, other.Pos))) < s.Config.Locality {
				local = append(local, other.SalePrice)
			}
		}
		if len(local) > 0 {
			h.SalePrice = stat.Median(local)
		} else {
			h.SalePrice = overall
		}
	}
}

// seedRecords files one sale record per house, at its current price, with
// a random one of its local realtors.
func (s *Simulation) seedRecords() {
	for _, h := range s.Pop.Houses() {
		if len(h.LocalRealtors) == 0 {
			continue
		}
		r := s.Pop.Realtor(h.LocalRealtors[s.rng.Intn(len(h.LocalRealtors))])
		h.Realtor = r.ID
		rec := s.Spawner.NewRecord(h.ID, h.SalePrice, s.Tick)
		s.Pop.AddRecord(rec)
		r.FileRecord(rec.ID)
	}
}

func (s *Simulation) incomeParams() agents.IncomeParams {
	return agents.IncomeParams{
		MeanIncome:   s.Config.MeanIncome,
		Inflation:    s.Config.Inflation,
		TicksPerYear: s.Config.TicksPerYear,
		Savings:      s.Config.Savings,
	}
}

// pricedHouses returns the positive sale prices among houses.
func pricedHouses(houses []*agents.House) []float64 {
	var prices []float64
	for _, h := range houses {
		if h.SalePrice > 0 {
			prices = append(prices, h.SalePrice)
		}
	}
	return prices
}
