package agents

import (
	"math"

	"github.com/talgya/housemarket/internal/entropy"
	"github.com/talgya/housemarket/internal/world"
)

// Companies a realtor can work for. The choice has no effect on behaviour.
var Companies = []string{"Linley&Simpson", "Hunters", "Purplebricks"}

// Income distribution shape. Incomes follow MeanIncome·λ/α·Gamma(α, 1/λ).
const (
	incomeShape = 1.3
	incomeRate  = 1.0 / 20000

	maxIncomeDraws = 1000
)

// IncomeParams are the model parameters an income draw depends on.
type IncomeParams struct {
	MeanIncome   float64
	Inflation    float64 // percent per year
	TicksPerYear int
	Savings      float64 // percent of income held as capital
}

// Spawner creates entities and issues their IDs.
type Spawner struct {
	rng    *entropy.Source
	nextID ID
}

// NewSpawner creates a spawner drawing from rng.
func NewSpawner(rng *entropy.Source) *Spawner {
	return &Spawner{
		rng:    rng,
		nextID: 1,
	}
}

// NextID issues a fresh ID.
func (s *Spawner) NextID() ID {
	id := s.nextID
	s.nextID++
	return id
}

// NewRealtor creates a realtor at pos working for a random company.
func (s *Spawner) NewRealtor(pos world.Pos) *Realtor {
	return &Realtor{
		ID:      s.NextID(),
		Company: Companies[s.rng.Intn(len(Companies))],
		Pos:     pos,
	}
}

// NewHouse creates a house at pos, listed for sale as of tick. Its end of
// life is drawn from an exponential distribution with a mean of
// lifetimeTicks.
func (s *Spawner) NewHouse(pos world.Pos, tick int, lifetimeTicks float64) *House {
	h := &House{
		ID:        s.NextID(),
		Pos:       pos,
		EndOfLife: tick + int(s.rng.Exponential(lifetimeTicks)),
	}
	h.PutOnMarket(tick)
	return h
}

// NewOwner creates a houseless owner with a freshly drawn income.
func (s *Spawner) NewOwner(p IncomeParams, tick int) *Owner {
	o := &Owner{ID: s.NextID()}
	o.Income, o.Capital = s.DrawIncome(p, tick)
	return o
}

// NewRecord creates a sale record.
func (s *Spawner) NewRecord(house ID, price float64, tick int) *SaleRecord {
	return &SaleRecord{
		ID:    s.NextID(),
		House: house,
		Price: price,
		Date:  tick,
	}
}

// DrawIncome draws an income, inflated to tick, and the capital saved from
// it. Draws below half the mean income are rejected; after maxIncomeDraws
// rejections the floor itself is used.
func (s *Spawner) DrawIncome(p IncomeParams, tick int) (income, capital float64) {
	inflation := math.Pow(1+p.Inflation/(float64(p.TicksPerYear)*100), float64(tick))
	floor := p.MeanIncome / 2
	for i := 0; income < floor; i++ {
		if i == maxIncomeDraws {
			income = floor
			break
		}
		income = p.MeanIncome * incomeRate / incomeShape * s.rng.Gamma(incomeShape, 1/incomeRate) * inflation
	}
	return income, income * p.Savings / 100
}
