package economy

import (
	"github.com/talgya/housemarket/internal/agents"
	"github.com/talgya/housemarket/internal/stat"
	"github.com/talgya/housemarket/internal/world"
)

// NewListingThreshold is the previous price below which a valuation is
// taken as-is, without smoothing against the old price.
const NewListingThreshold = 5000

// maxPriceSwing bounds the ratio between a new and an old base price.
const maxPriceSwing = 2.0

// Smooth applies the valuation multiplier to a raw base price. For houses
// with an established price the base may move by at most a factor of two
// in either direction.
func Smooth(oldPrice, raw, multiplier float64) float64 {
	if oldPrice < NewListingThreshold {
		return multiplier * raw
	}
	ratio := stat.Clamp(raw/oldPrice, 1/maxPriceSwing, maxPriceSwing)
	return multiplier * ratio * oldPrice
}

// Valuate is realtor r's price for property. The base price is the median
// of r's own local sales; failing that, the median listed price of other
// houses for sale in the locality; failing that, r's average price. houses
// supplies the listed comparables.
func (m *Market) Valuate(r *agents.Realtor, property *agents.House, houses []*agents.House) float64 {
	multiplier := property.Quality * (1 + m.cfg.RealtorOptimism/100)

	var sales []float64
	for _, id := range r.Sales {
		rec := m.pop.Record(id)
		if rec == nil {
			continue
		}
		sold := m.pop.House(rec.House)
		if sold == nil {
			continue
		}
		if m.local(property.Pos, sold.Pos) {
			sales = append(sales, rec.Price)
		}
	}

	var base float64
	if len(sales) > 0 {
		base = stat.Median(sales)
	} else {
		var listed []float64
		for _, h := range houses {
			if h.ID == property.ID || !h.ForSale || h.SalePrice <= 0 {
				continue
			}
			if m.local(property.Pos, h.Pos) {
				listed = append(listed, h.SalePrice)
			}
		}
		if len(listed) > 0 {
			base = stat.Median(listed)
		} else {
			base = r.AveragePrice
		}
	}

	return Smooth(property.SalePrice, base, multiplier)
}

// AssignRealtor lists h with whichever covering realtor values it highest,
// breaking ties at random, and prices it at that valuation.
func (m *Market) AssignRealtor(h *agents.House, houses []*agents.House) float64 {
	candidates := make([]*agents.Realtor, 0, len(h.LocalRealtors))
	for _, id := range h.LocalRealtors {
		if r := m.pop.Realtor(id); r != nil {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		if r := m.NearestRealtor(h.Pos); r != nil {
			candidates = append(candidates, r)
		} else {
			return h.SalePrice
		}
	}

	var best []*agents.Realtor
	bestPrice := 0.0
	for _, r := range candidates {
		v := m.Valuate(r, h, houses)
		switch {
		case len(best) == 0 || v > bestPrice:
			best = append(best[:0], r)
			bestPrice = v
		case v == bestPrice:
			best = append(best, r)
		}
	}

	chosen := best[0]
	if len(best) > 1 {
		chosen = best[m.rng.Intn(len(best))]
	}
	h.Realtor = chosen.ID
	h.SalePrice = bestPrice
	return bestPrice
}

// NearestRealtor returns the realtor closest to p, preferring the earliest
// in activation order on ties. It is nil when there are no realtors.
func (m *Market) NearestRealtor(p world.Pos) *agents.Realtor {
	var nearest *agents.Realtor
	best := 0
	for _, r := range m.pop.Realtors() {
		d := int(m.space.Distance(p, r.Pos))
		if nearest == nil || d < best {
			nearest, best = r, d
		}
	}
	return nearest
}

// RefreshAveragePrices sets each realtor's average price to the median
// listed price of the houses it covers. Realtors covering no listed house
// keep their previous average.
func (m *Market) RefreshAveragePrices(forSale []*agents.House) {
	for _, r := range m.pop.Realtors() {
		var prices []float64
		for _, h := range forSale {
			if h.CoveredBy(r.ID) {
				prices = append(prices, h.SalePrice)
			}
		}
		if len(prices) > 0 {
			r.AveragePrice = stat.Median(prices)
		}
	}
}
