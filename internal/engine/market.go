// Market phases: valuation, offers, chain settlement, record aging, price
// decay and amortization.
package engine

import (
	"github.com/talgya/housemarket/internal/agents"
	"github.com/talgya/housemarket/internal/economy"
	"github.com/talgya/housemarket/internal/stat"
)

// valuate prices every house listed this tick with its best-bidding
// realtor, refreshes realtor averages and the median listed price. It
// returns the houses for sale.
func (s *Simulation) valuate() []*agents.House {
	forSale := s.Pop.HousesForSale()
	if len(forSale) == 0 {
		return nil
	}
	for _, h := range forSale {
		if h.DateForSale == s.Tick {
			s.Market.AssignRealtor(h, forSale)
		}
	}
	s.Market.RefreshAveragePrices(forSale)

	prices := make([]float64, len(forSale))
	for i, h := range forSale {
		prices[i] = h.SalePrice
	}
	s.MedianPriceForSale = stat.Median(prices)
	return forSale
}

// buyers returns the owners looking for a house: the houseless and those
// whose own house is listed.
func (s *Simulation) buyers() []*agents.Owner {
	var out []*agents.Owner
	for _, o := range s.Pop.Owners() {
		if h := s.Pop.House(o.House); h == nil || h.ForSale {
			out = append(out, o)
		}
	}
	return out
}

// makeOffers lets houseless owners search first, then owners selling
// their house.
func (s *Simulation) makeOffers(forSale []*agents.House) {
	owners := s.Pop.Owners()
	for _, o := range owners {
		if !o.HasHouse() {
			s.Market.MakeOffer(o, forSale, s.Tick)
		}
	}
	for _, o := range owners {
		if h := s.Pop.House(o.House); h != nil && h.ForSale {
			s.Market.MakeOffer(o, forSale, s.Tick)
		}
	}
}

// resolveChains settles every chain headed by a houseless buyer, in
// activation order. Each chain completes before the next is examined.
func (s *Simulation) resolveChains(buyers []*agents.Owner) {
	s.Market.Ledger = economy.Ledger{}
	for _, b := range buyers {
		if s.Pop.Owner(b.ID) == nil || b.HasHouse() || b.MadeOfferOn == agents.NoID {
			continue
		}
		if s.Market.FollowChain(b) {
			s.Market.Settle(b, s.Tick)
		}
	}
}

// forgetRecords drops sale records older than RealtorMemory ticks.
func (s *Simulation) forgetRecords() {
	cutoff := s.Tick - s.Config.RealtorMemory
	for _, rec := range s.Pop.Records() {
		if rec.Date < cutoff {
			s.Pop.RemoveRecord(rec.ID)
			s.Stats.Expired++
		}
	}
}

// decayPrices cuts the price of every unsold listing by PriceDropRate
// percent.
func (s *Simulation) decayPrices() {
	factor := 1 - s.Config.PriceDropRate/100
	for _, h := range s.Pop.Houses() {
		if h.ForSale {
			h.SalePrice *= factor
		}
	}
}

// amortize applies a tick of repayments to every mortgaged owner-occupier.
func (s *Simulation) amortize() {
	r := s.Market.InterestPerTick()
	for _, o := range s.Pop.Owners() {
		if o.HasHouse() && o.Mortgage > 0 {
			o.Mortgage, o.Repayment = economy.Amortize(o.Mortgage, o.Repayment, r)
		}
	}
}
