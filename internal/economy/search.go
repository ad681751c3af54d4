package economy

import (
	"github.com/talgya/housemarket/internal/agents"
)

// lowerBoundFraction of the budget below which a buyer ignores a house.
const lowerBoundFraction = 0.7

// Budget returns the most owner o can pay for a house: the mortgage its
// income supports net of duty, plus its deposit, capped by the
// loan-to-value limit. A negative budget means negative equity.
func (m *Market) Budget(o *agents.Owner) float64 {
	loan := m.MaxMortgage(o.Income)
	budget := loan - m.StampDuty(loan)

	deposit := o.Capital
	if h := m.pop.House(o.House); h != nil {
		deposit += h.SalePrice - o.Mortgage
	}

	upper := budget + deposit
	if ltv := m.cfg.MaxLoanToValue; ltv < 100 {
		upper = min(upper, deposit/(1-ltv/100))
	}
	return upper
}

// MakeOffer lets o search forSale and place an offer on the most expensive
// affordable house among a random sample of at most BuyerSearchLength
// candidates. An owner in negative equity withdraws its own house instead.
// It returns the house offered on, or nil.
func (m *Market) MakeOffer(o *agents.Owner, forSale []*agents.House, tick int) *agents.House {
	if o.MadeOfferOn != agents.NoID {
		return nil
	}

	upper := m.Budget(o)
	if upper < 0 {
		if h := m.pop.House(o.House); h != nil {
			m.withdraw(h)
		}
		return nil
	}
	lower := upper * lowerBoundFraction

	var candidates []*agents.House
	for _, h := range forSale {
		if !h.ForSale || h.HasOffer() || h.ID == o.House {
			continue
		}
		if h.SalePrice <= upper && h.SalePrice > lower {
			candidates = append(candidates, h)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	if limit := m.cfg.BuyerSearchLength; len(candidates) > limit {
		sampled := make([]*agents.House, 0, limit)
		for _, i := range m.rng.Sample(len(candidates), limit) {
			sampled = append(sampled, candidates[i])
		}
		candidates = sampled
	}

	best := candidates[0]
	for _, h := range candidates[1:] {
		if h.SalePrice > best.SalePrice {
			best = h
		}
	}

	best.OfferedTo = o.ID
	best.OfferDate = tick
	o.MadeOfferOn = best.ID
	return best
}

// withdraw takes h off the market, cancelling any offer made on it.
func (m *Market) withdraw(h *agents.House) {
	if bidder := m.pop.Owner(h.OfferedTo); bidder != nil && bidder.MadeOfferOn == h.ID {
		bidder.MadeOfferOn = agents.NoID
	}
	h.Withdraw()
}

// CancelOffers clears every pending offer and the bidders' references to
// them. It returns how many offers were cancelled.
func (m *Market) CancelOffers() int {
	n := 0
	for _, h := range m.pop.Houses() {
		if !h.HasOffer() {
			continue
		}
		if bidder := m.pop.Owner(h.OfferedTo); bidder != nil {
			bidder.MadeOfferOn = agents.NoID
		}
		h.OfferedTo = agents.NoID
		h.OfferDate = 0
		n++
	}
	for _, o := range m.pop.Owners() {
		o.MadeOfferOn = agents.NoID
	}
	return n
}
