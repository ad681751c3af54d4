package agents

import (
	"github.com/talgya/housemarket/internal/sched"
)

// Population is the arena holding every live entity. Lookups by ID return
// nil for NoID or a removed entity. Iteration follows the schedule's
// activation order, so it is stable for a given seed.
type Population struct {
	houses   map[ID]*House
	owners   map[ID]*Owner
	realtors map[ID]*Realtor
	records  map[ID]*SaleRecord

	order *sched.Schedule[ID, Kind]
}

// NewPopulation creates an empty arena.
func NewPopulation() *Population {
	return &Population{
		houses:   make(map[ID]*House),
		owners:   make(map[ID]*Owner),
		realtors: make(map[ID]*Realtor),
		records:  make(map[ID]*SaleRecord),
		order:    sched.New[ID, Kind](),
	}
}

// House looks up a house.
func (p *Population) House(id ID) *House { return p.houses[id] }

// Owner looks up an owner.
func (p *Population) Owner(id ID) *Owner { return p.owners[id] }

// Realtor looks up a realtor.
func (p *Population) Realtor(id ID) *Realtor { return p.realtors[id] }

// Record looks up a sale record.
func (p *Population) Record(id ID) *SaleRecord { return p.records[id] }

// Count returns the number of live entities of kind.
func (p *Population) Count(kind Kind) int { return p.order.Count(kind) }

// Advance marks the end of a tick on the schedule.
func (p *Population) Advance() { p.order.Advance() }

// Steps returns how many ticks the schedule has seen.
func (p *Population) Steps() int { return p.order.Steps() }

// AddHouse registers h.
func (p *Population) AddHouse(h *House) {
	p.houses[h.ID] = h
	p.order.Add(h.ID, KindHouse)
}

// AddOwner registers o.
func (p *Population) AddOwner(o *Owner) {
	p.owners[o.ID] = o
	p.order.Add(o.ID, KindOwner)
}

// AddRealtor registers r.
func (p *Population) AddRealtor(r *Realtor) {
	p.realtors[r.ID] = r
	p.order.Add(r.ID, KindRealtor)
}

// AddRecord registers rec. Filing it with a realtor is the caller's job.
func (p *Population) AddRecord(rec *SaleRecord) {
	p.records[rec.ID] = rec
	p.order.Add(rec.ID, KindRecord)
}

// Houses returns every house in activation order.
func (p *Population) Houses() []*House {
	ids := p.order.OfKind(KindHouse)
	out := make([]*House, len(ids))
	for i, id := range ids {
		out[i] = p.houses[id]
	}
	return out
}

// Owners returns every owner in activation order.
func (p *Population) Owners() []*Owner {
	ids := p.order.OfKind(KindOwner)
	out := make([]*Owner, len(ids))
	for i, id := range ids {
		out[i] = p.owners[id]
	}
	return out
}

// Realtors returns every realtor in activation order.
func (p *Population) Realtors() []*Realtor {
	ids := p.order.OfKind(KindRealtor)
	out := make([]*Realtor, len(ids))
	for i, id := range ids {
		out[i] = p.realtors[id]
	}
	return out
}

// Records returns every sale record in activation order.
func (p *Population) Records() []*SaleRecord {
	ids := p.order.OfKind(KindRecord)
	out := make([]*SaleRecord, len(ids))
	for i, id := range ids {
		out[i] = p.records[id]
	}
	return out
}

// HousesForSale returns the listed houses in activation order.
func (p *Population) HousesForSale() []*House {
	var out []*House
	for _, h := range p.Houses() {
		if h.ForSale {
			out = append(out, h)
		}
	}
	return out
}

// OwnerOccupiers returns the owners that own a house, in activation order.
func (p *Population) OwnerOccupiers() []*Owner {
	var out []*Owner
	for _, o := range p.Owners() {
		if o.HasHouse() {
			out = append(out, o)
		}
	}
	return out
}

// RemoveOwner deletes an owner. Its house, if any, is orphaned (left
// without an owner) and any offer it made is withdrawn. Taking the owner
// off the grid is the caller's job.
func (p *Population) RemoveOwner(id ID) {
	o := p.owners[id]
	if o == nil {
		return
	}
	if h := p.houses[o.House]; h != nil && h.Owner == id {
		h.Owner = NoID
	}
	if h := p.houses[o.MadeOfferOn]; h != nil && h.OfferedTo == id {
		h.OfferedTo = NoID
	}
	delete(p.owners, id)
	p.order.Remove(id)
}

// RemoveHouse deletes a house and every reference to it: the owner loses
// the house and its mortgage, a bidding owner loses its offer, realtors
// drop it from their territory, and its sale records are purged from the
// population and from every realtor's history. It returns the owner that
// lived there, or NoID.
func (p *Population) RemoveHouse(id ID) ID {
	h := p.houses[id]
	if h == nil {
		return NoID
	}
	evicted := NoID
	if o := p.owners[h.Owner]; o != nil && o.House == id {
		o.House = NoID
		o.ClearMortgage()
		evicted = o.ID
	}
	if o := p.owners[h.OfferedTo]; o != nil && o.MadeOfferOn == id {
		o.MadeOfferOn = NoID
	}
	for _, r := range p.realtors {
		r.Uncover(id)
	}
	for _, rec := range p.Records() {
		if rec.House == id {
			p.RemoveRecord(rec.ID)
		}
	}
	delete(p.houses, id)
	p.order.Remove(id)
	return evicted
}

// RemoveRecord deletes a sale record from the population and from every
// realtor that filed it.
func (p *Population) RemoveRecord(id ID) {
	if _, ok := p.records[id]; !ok {
		return
	}
	for _, r := range p.realtors {
		r.UnfileRecord(id)
	}
	delete(p.records, id)
	p.order.Remove(id)
}
