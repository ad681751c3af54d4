// Simulation ties the market together and runs its phases each tick.
package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/talgya/housemarket/internal/agents"
	"github.com/talgya/housemarket/internal/config"
	"github.com/talgya/housemarket/internal/economy"
	"github.com/talgya/housemarket/internal/entropy"
	"github.com/talgya/housemarket/internal/world"
)

// Simulation holds the complete market state. Step takes the write lock;
// readers such as the API use View or Metrics.
type Simulation struct {
	mu sync.RWMutex

	Config  *config.Config
	Pop     *agents.Population
	Grid    *world.Grid[agents.ID]
	Market  *economy.Market
	Spawner *agents.Spawner

	rng *entropy.Source

	Tick               int
	MedianPriceForSale float64

	// Counters for the tick just processed, reset as each tick starts.
	Stats TickStats

	Halted     bool
	HaltReason string
}

// TickStats counts what happened during one tick.
type TickStats struct {
	UpShocked   int `json:"up_shocked"`
	DownShocked int `json:"down_shocked"`
	MovingUp    int `json:"moving_up"`
	MovingDown  int `json:"moving_down"`
	Exited      int `json:"exited"`
	Entered     int `json:"entered"`
	Emigrated   int `json:"emigrated"` // homeless for too long
	Evicted     int `json:"evicted"`   // repayments above income
	Built       int `json:"built"`
	Demolished  int `json:"demolished"`
	Expired     int `json:"expired"` // sale records forgotten
}

// NewSimulation builds a fresh market from cfg.
func NewSimulation(cfg *config.Config) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := newSimulation(cfg)
	s.setup()

	slog.Info("market created",
		"seed", cfg.Seed,
		"houses", s.Pop.Count(agents.KindHouse),
		"owners", s.Pop.Count(agents.KindOwner),
		"realtors", s.Pop.Count(agents.KindRealtor),
		"median_price", fmt.Sprintf("%.0f", s.MedianPriceForSale),
	)
	return s, nil
}

// newSimulation wires an empty market.
func newSimulation(cfg *config.Config) *Simulation {
	rng := entropy.New(cfg.Seed)
	pop := agents.NewPopulation()
	grid := world.NewGrid[agents.ID](cfg.GridWidth, cfg.GridHeight)
	spawner := agents.NewSpawner(rng)
	return &Simulation{
		Config:  cfg,
		Pop:     pop,
		Grid:    grid,
		Market:  economy.NewMarket(pop, grid, rng, spawner, cfg),
		Spawner: spawner,
		rng:     rng,
	}
}

// View runs fn with the read lock held.
func (s *Simulation) View(fn func(s *Simulation)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s)
}

// CurrentTick returns the number of ticks processed.
func (s *Simulation) CurrentTick() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Tick
}

// IsHalted reports whether the run has stopped and why.
func (s *Simulation) IsHalted() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Halted, s.HaltReason
}

// Step runs one tick. A halted simulation does nothing.
func (s *Simulation) Step() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Halted {
		return
	}

	s.Stats = TickStats{}
	nOwners := s.Pop.Count(agents.KindOwner)
	s.updateInterest()
	s.applyInflation()

	occupiers := s.Pop.OwnerOccupiers()
	s.applyShocks(occupiers)
	s.decideMoves(occupiers)
	s.exitOwners(nOwners)
	s.enterOwners(nOwners)
	s.processHomeless()
	s.forceExits(occupiers)

	built := s.construct()
	s.assignQuality(built)
	forSale := s.valuate()

	buyers := s.buyers()
	s.makeOffers(forSale)
	s.resolveChains(buyers)

	s.forgetRecords()
	s.Market.CancelOffers()
	s.demolish()
	s.decayPrices()
	s.amortize()

	s.Tick++
	s.Pop.Advance()
	s.applyIntervention()
	s.checkCollapse()
}

// checkCollapse halts the run once nobody or nothing is left.
func (s *Simulation) checkCollapse() {
	switch {
	case s.Pop.Count(agents.KindOwner) == 0:
		s.halt("no remaining owners")
	case s.Pop.Count(agents.KindHouse) == 0:
		s.halt("no remaining houses")
	}
}

func (s *Simulation) halt(reason string) {
	s.Halted = true
	s.HaltReason = reason
	slog.Warn("market collapsed", "tick", s.Tick, "reason", reason)
}

// removeOwner deletes an owner from the population and the grid.
func (s *Simulation) removeOwner(o *agents.Owner) {
	s.Grid.Remove(o.ID)
	s.Pop.RemoveOwner(o.ID)
}
