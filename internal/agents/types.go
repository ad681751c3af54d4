// Package agents provides the entity model of the housing market: houses,
// owners, realtors and sale records, the arena that holds them, and the
// spawner that creates them.
//
// Entities refer to each other by ID. NoID is the null reference; every
// lookup goes through the Population.
package agents

import (
	"slices"

	"github.com/talgya/housemarket/internal/world"
)

// ID identifies any entity. IDs are unique across kinds.
type ID uint64

// NoID is the null reference.
const NoID ID = 0

// Kind tags the variant an ID belongs to.
type Kind uint8

const (
	KindNone Kind = iota
	KindHouse
	KindOwner
	KindRealtor
	KindRecord
)

func (k Kind) String() string {
	switch k {
	case KindHouse:
		return "house"
	case KindOwner:
		return "owner"
	case KindRealtor:
		return "realtor"
	case KindRecord:
		return "record"
	default:
		return "none"
	}
}

// Quality bounds.
const (
	MinQuality = 0.3
	MaxQuality = 3.0
)

// House is a dwelling on the grid.
type House struct {
	ID  ID        `json:"id"`
	Pos world.Pos `json:"pos"`

	Owner         ID   `json:"owner,omitempty"`
	LocalRealtors []ID `json:"local_realtors"` // fixed at construction

	Quality     float64 `json:"quality"`
	ForSale     bool    `json:"for_sale"`
	SalePrice   float64 `json:"sale_price"`
	DateForSale int     `json:"date_for_sale"`
	Realtor     ID      `json:"realtor,omitempty"`

	OfferedTo ID  `json:"offered_to,omitempty"`
	OfferDate int `json:"offer_date"`

	EndOfLife int `json:"end_of_life"`
}

// PutOnMarket lists the house as of tick.
func (h *House) PutOnMarket(tick int) {
	h.ForSale = true
	h.DateForSale = tick
}

// Withdraw takes the house off the market and drops any pending offer.
func (h *House) Withdraw() {
	h.ForSale = false
	h.OfferedTo = NoID
}

// IsVacant reports whether nobody owns the house.
func (h *House) IsVacant() bool {
	return h.Owner == NoID
}

// HasOffer reports whether an offer is pending.
func (h *House) HasOffer() bool {
	return h.OfferedTo != NoID
}

// CoveredBy reports whether realtor r is one of the house's local realtors.
func (h *House) CoveredBy(r ID) bool {
	return slices.Contains(h.LocalRealtors, r)
}

// Owner is a household that may own one house and make one offer.
type Owner struct {
	ID ID `json:"id"`

	House          ID      `json:"house,omitempty"`
	Income         float64 `json:"income"`
	Capital        float64 `json:"capital"`
	Mortgage       float64 `json:"mortgage"`
	Repayment      float64 `json:"repayment"`
	DateOfPurchase int     `json:"date_of_purchase"`
	MadeOfferOn    ID      `json:"made_offer_on,omitempty"`
	Homeless       int     `json:"homeless"` // consecutive ticks without a house
}

// HasHouse reports whether the owner currently owns a house.
func (o *Owner) HasHouse() bool {
	return o.House != NoID
}

// ClearMortgage zeroes the loan and its repayment.
func (o *Owner) ClearMortgage() {
	o.Mortgage = 0
	o.Repayment = 0
}

// Realtor values and sells the houses in its territory and remembers the
// sales it has made.
type Realtor struct {
	ID      ID        `json:"id"`
	Company string    `json:"company"`
	Pos     world.Pos `json:"pos"`

	Territory    []ID    `json:"-"` // houses listing this realtor, in construction order
	Sales        []ID    `json:"-"` // sale records, oldest first
	AveragePrice float64 `json:"average_price"`
}

// FileRecord appends a sale record to the realtor's history.
func (r *Realtor) FileRecord(rec ID) {
	r.Sales = append(r.Sales, rec)
}

// UnfileRecord drops rec from the history. It reports whether it was there.
func (r *Realtor) UnfileRecord(rec ID) bool {
	i := slices.Index(r.Sales, rec)
	if i < 0 {
		return false
	}
	r.Sales = slices.Delete(r.Sales, i, i+1)
	return true
}

// Cover adds a house to the territory.
func (r *Realtor) Cover(house ID) {
	if !slices.Contains(r.Territory, house) {
		r.Territory = append(r.Territory, house)
	}
}

// Uncover removes a house from the territory.
func (r *Realtor) Uncover(house ID) {
	if i := slices.Index(r.Territory, house); i >= 0 {
		r.Territory = slices.Delete(r.Territory, i, i+1)
	}
}

// SaleRecord is an immutable note of one completed sale.
type SaleRecord struct {
	ID    ID      `json:"id"`
	House ID      `json:"house"`
	Price float64 `json:"price"`
	Date  int     `json:"date"`
}
