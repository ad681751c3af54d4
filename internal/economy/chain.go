package economy

import (
	"log/slog"

	"github.com/talgya/housemarket/internal/agents"
)

// FollowChain walks the offers starting at o: o's offered-on house, that
// house's owner, the house they offered on, and so on. The chain completes
// when it reaches a vacant house or a seller who is also the buyer of their
// own house. It is dead when a link has no offer. A chain that revisits an
// owner without completing is a cycle; it is logged, counted and treated
// as dead.
func (m *Market) FollowChain(o *agents.Owner) bool {
	visited := map[agents.ID]bool{o.ID: true}
	cur := o
	for {
		h := m.pop.House(cur.MadeOfferOn)
		if h == nil {
			return false
		}
		seller := m.pop.Owner(h.Owner)
		if seller == nil || seller.ID == cur.ID {
			return true
		}
		if visited[seller.ID] {
			m.Ledger.CyclesDetected++
			slog.Warn("offer cycle detected", "buyer", o.ID, "owner", seller.ID, "house", h.ID, "links", len(visited))
			return false
		}
		visited[seller.ID] = true
		cur = seller
	}
}

// Settle completes the chain starting at buyer: each link buys the house
// it offered on and the seller it displaces moves next. Callers should
// check FollowChain first. It returns the number of sales made.
func (m *Market) Settle(buyer *agents.Owner, tick int) int {
	sales := 0
	for buyer != nil {
		h := m.pop.House(buyer.MadeOfferOn)
		if h == nil {
			// A seller with nowhere to go leaves the grid.
			if !buyer.HasHouse() {
				m.space.Remove(buyer.ID)
			}
			break
		}

		seller := m.pop.Owner(h.Owner)
		if seller != nil {
			if profit := h.SalePrice - seller.Mortgage; profit > 0 {
				seller.Capital += profit
			}
			seller.ClearMortgage()
			seller.House = agents.NoID
		}

		m.transfer(buyer, h, tick)
		sales++

		if seller == nil || seller.ID == buyer.ID {
			break
		}
		buyer = seller
	}
	return sales
}

// transfer moves buyer into h, financing the purchase and filing the sale.
func (m *Market) transfer(buyer *agents.Owner, h *agents.House, tick int) {
	price := h.SalePrice
	duty := m.StampDuty(price)
	m.Ledger.StampDuty += duty

	if price > buyer.Capital {
		buyer.Mortgage = min(m.MaxMortgage(buyer.Income), price*m.cfg.MaxLoanToValue/100)
		buyer.Capital -= price - buyer.Mortgage + duty
		buyer.Repayment = m.Repayment(buyer.Mortgage)
	} else {
		buyer.ClearMortgage()
		buyer.Capital -= price + duty
	}
	if buyer.Capital < 0 {
		buyer.Capital = 0
	}

	m.space.Place(buyer.ID, h.Pos)
	buyer.Homeless = 0
	buyer.House = h.ID
	buyer.DateOfPurchase = tick
	buyer.MadeOfferOn = agents.NoID

	h.Owner = buyer.ID
	h.ForSale = false
	h.OfferedTo = agents.NoID

	rec := m.spawn.NewRecord(h.ID, price, tick)
	m.pop.AddRecord(rec)
	realtor := m.pop.Realtor(h.Realtor)
	if realtor == nil {
		realtor = m.NearestRealtor(h.Pos)
	}
	if realtor != nil {
		realtor.FileRecord(rec.ID)
	}

	m.Ledger.Moves++
}
