package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/talgya/housemarket/internal/agents"
	"github.com/talgya/housemarket/internal/config"
	"github.com/talgya/housemarket/internal/world"
)

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.GridWidth = 21
	cfg.GridHeight = 21
	cfg.Realtors = 3
	cfg.RealtorTerritory = 8
	return cfg
}

// quietConfig turns off every source of churn.
func quietConfig() *config.Config {
	cfg := smallConfig()
	cfg.Shocked = 0
	cfg.EntryRate = 0
	cfg.ExitRate = 0
	cfg.HouseConstructionRate = 0
	return cfg
}

// handBuilt is a market with one realtor, one house and one owner.
type handBuilt struct {
	sim   *Simulation
	house *agents.House
	owner *agents.Owner
}

func newHandBuilt(t *testing.T, price, mortgage, income float64) handBuilt {
	t.Helper()
	s := newSimulation(quietConfig())
	s.Market.SetInterestPerTick(s.Config.InterestPerTick())

	r := s.Spawner.NewRealtor(world.Pos{X: 0, Y: 0})
	s.Pop.AddRealtor(r)
	s.Grid.Place(r.ID, r.Pos)

	h := s.Spawner.NewHouse(world.Pos{X: 5, Y: 5}, 0, 1e9)
	h.EndOfLife = 1000
	h.ForSale = false
	h.SalePrice = price
	h.Quality = 1
	h.LocalRealtors = []agents.ID{r.ID}
	h.Realtor = r.ID
	r.Cover(h.ID)
	s.Pop.AddHouse(h)
	s.Grid.Place(h.ID, h.Pos)

	o := &agents.Owner{ID: s.Spawner.NextID(), Income: income, Mortgage: mortgage, House: h.ID}
	o.Repayment = s.Market.Repayment(mortgage)
	h.Owner = o.ID
	s.Pop.AddOwner(o)
	s.Grid.Place(o.ID, h.Pos)

	return handBuilt{sim: s, house: h, owner: o}
}

func TestStep_AmortizesMortgage(t *testing.T) {
	m := newHandBuilt(t, 200000, 150000, 40000)
	r := m.sim.Config.InterestPerTick()
	repayment := m.owner.Repayment
	ratio := repayment * 4 / 40000
	require.Greater(t, ratio, 25.0/200)
	require.Less(t, ratio, 25.0/50)

	m.sim.Step()

	assert.InDelta(t, 150000-(repayment-r*150000), m.owner.Mortgage, 1e-6)
	assert.Equal(t, repayment, m.owner.Repayment)
	assert.Equal(t, m.house.ID, m.owner.House)
	assert.Equal(t, m.owner.ID, m.house.Owner)
	assert.False(t, m.house.ForSale)
	assert.Equal(t, 1, m.sim.Tick)
	assert.False(t, m.sim.Halted)
}

func TestStep_DemolishesExpiredHouse(t *testing.T) {
	m := newHandBuilt(t, 200000, 150000, 40000)
	m.sim.Tick = 5
	m.house.EndOfLife = 4

	m.sim.Step()

	assert.Nil(t, m.sim.Pop.House(m.house.ID))
	assert.Equal(t, agents.NoID, m.owner.House)
	assert.Zero(t, m.owner.Mortgage)
	assert.Zero(t, m.owner.Repayment)
	assert.Equal(t, 1, m.sim.Stats.Demolished)
	assert.Equal(t, 1, m.sim.Metrics().Demolished)
	_, onGrid := m.sim.Grid.PosOf(m.owner.ID)
	assert.False(t, onGrid)

	// That was the only house.
	assert.True(t, m.sim.Halted)
	assert.Equal(t, "no remaining houses", m.sim.HaltReason)
}

func TestStep_DemolishesWorthlessListing(t *testing.T) {
	m := newHandBuilt(t, 200000, 0, 40000)
	s := m.sim
	cheap := s.Spawner.NewHouse(world.Pos{X: 15, Y: 15}, 0, 1e9)
	cheap.EndOfLife = 1000
	cheap.SalePrice = 100
	cheap.Quality = 1
	s.Pop.AddHouse(cheap)
	s.Grid.Place(cheap.ID, cheap.Pos)
	m.house.PutOnMarket(0)
	m.house.Realtor = agents.NoID

	s.Step()

	assert.Nil(t, s.Pop.House(cheap.ID))
	assert.NotNil(t, s.Pop.House(m.house.ID))
}

func TestApplyShocks_SplitsUpAndDown(t *testing.T) {
	for _, tc := range []struct {
		shocked  float64
		up, down int
	}{
		{shocked: 40, up: 2, down: 2},
		{shocked: 30, up: 1, down: 2},
		{shocked: 0, up: 0, down: 0},
	} {
		cfg := quietConfig()
		cfg.Shocked = tc.shocked
		s := newSimulation(cfg)

		var occupiers []*agents.Owner
		for i := 0; i < 10; i++ {
			o := &agents.Owner{ID: s.Spawner.NextID(), Income: 1000}
			s.Pop.AddOwner(o)
			occupiers = append(occupiers, o)
		}

		s.applyShocks(occupiers)

		var up, down, same int
		for _, o := range occupiers {
			switch o.Income {
			case 1200:
				up++
			case 800:
				down++
			case 1000:
				same++
			default:
				t.Fatalf("unexpected income %v", o.Income)
			}
		}
		assert.Equal(t, tc.up, up, "shocked %v", tc.shocked)
		assert.Equal(t, tc.down, down, "shocked %v", tc.shocked)
		assert.Equal(t, 10-tc.up-tc.down, same)
		assert.Equal(t, tc.up, s.Stats.UpShocked)
		assert.Equal(t, tc.down, s.Stats.DownShocked)
	}
}

func TestExitOwners_ListsHouseAndLeaves(t *testing.T) {
	m := newHandBuilt(t, 200000, 150000, 40000)
	s := m.sim
	s.Tick = 7
	s.Config.ExitRate = 50
	houseless := &agents.Owner{ID: s.Spawner.NextID(), Income: 30000}
	s.Pop.AddOwner(houseless)

	s.exitOwners(s.Pop.Count(agents.KindOwner))

	assert.Nil(t, s.Pop.Owner(m.owner.ID))
	assert.NotNil(t, s.Pop.Owner(houseless.ID), "only owner-occupiers exit")
	assert.True(t, m.house.ForSale)
	assert.Equal(t, 7, m.house.DateForSale)
	assert.Equal(t, agents.NoID, m.house.Owner)
	assert.True(t, m.house.IsVacant())
	_, onGrid := s.Grid.PosOf(m.owner.ID)
	assert.False(t, onGrid)
	assert.Equal(t, 1, s.Stats.Exited)
}

func TestForceExits_EvictsUnaffordableListedOwner(t *testing.T) {
	// 150k at 7% over 25 years costs about 12.7k a year.
	for _, tc := range []struct {
		name    string
		income  float64
		listed  bool
		evicted bool
	}{
		{name: "listed and unaffordable", income: 10000, listed: true, evicted: true},
		{name: "unaffordable but not listed", income: 10000, listed: false, evicted: false},
		{name: "listed but affordable", income: 40000, listed: true, evicted: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := newHandBuilt(t, 200000, 150000, tc.income)
			s := m.sim
			require.Equal(t, tc.income < 12000, m.owner.Repayment*4 > tc.income)
			if tc.listed {
				m.house.PutOnMarket(s.Tick)
			}

			s.forceExits(s.Pop.OwnerOccupiers())

			if tc.evicted {
				assert.Nil(t, s.Pop.Owner(m.owner.ID))
				assert.Equal(t, agents.NoID, m.house.Owner)
				assert.True(t, m.house.ForSale)
				_, onGrid := s.Grid.PosOf(m.owner.ID)
				assert.False(t, onGrid)
				assert.Equal(t, 1, s.Stats.Evicted)
			} else {
				assert.NotNil(t, s.Pop.Owner(m.owner.ID))
				assert.Equal(t, m.owner.ID, m.house.Owner)
				assert.Zero(t, s.Stats.Evicted)
			}
		})
	}
}

func TestStep_HomelessEmigrate(t *testing.T) {
	m := newHandBuilt(t, 200000, 150000, 40000)
	s := m.sim
	drifter := &agents.Owner{ID: s.Spawner.NextID(), Income: 10, Homeless: s.Config.MaxHomelessPeriod}
	s.Pop.AddOwner(drifter)

	s.Step()

	assert.Nil(t, s.Pop.Owner(drifter.ID))
	assert.Equal(t, 1, s.Stats.Emigrated)
}

func TestStep_NewEntrantBuysVacantHouse(t *testing.T) {
	m := newHandBuilt(t, 200000, 150000, 40000)
	s := m.sim
	vacant := s.Spawner.NewHouse(world.Pos{X: 6, Y: 5}, 0, 1e9)
	vacant.EndOfLife = 1000
	vacant.Quality = 1
	vacant.LocalRealtors = []agents.ID{m.house.Realtor}
	s.Pop.Realtor(m.house.Realtor).Cover(vacant.ID)
	s.Pop.AddHouse(vacant)
	s.Grid.Place(vacant.ID, vacant.Pos)
	// The realtor remembers selling the neighbour for 100000.
	rec := s.Spawner.NewRecord(m.house.ID, 100000, 0)
	s.Pop.AddRecord(rec)
	s.Pop.Realtor(m.house.Realtor).FileRecord(rec.ID)

	buyer := &agents.Owner{ID: s.Spawner.NextID(), Income: 30000, Capital: 20000}
	s.Pop.AddOwner(buyer)

	s.Step()

	assert.Equal(t, vacant.ID, buyer.House)
	assert.Equal(t, buyer.ID, vacant.Owner)
	assert.False(t, vacant.ForSale)
	assert.Zero(t, buyer.Homeless)
	assert.Equal(t, 1, s.Market.Ledger.Moves)
	assert.Equal(t, 1, s.Metrics().Transactions)
	pos, ok := s.Grid.PosOf(buyer.ID)
	require.True(t, ok)
	assert.Equal(t, vacant.Pos, pos)
}

func TestNewSimulation_Setup(t *testing.T) {
	cfg := smallConfig()
	s, err := NewSimulation(cfg)
	require.NoError(t, err)

	houses := int(21 * 21 * cfg.Density / 100)
	assert.Equal(t, houses, s.Pop.Count(agents.KindHouse))
	assert.Equal(t, int(0.95*float64(houses)), s.Pop.Count(agents.KindOwner))
	assert.Equal(t, houses, s.Pop.Count(agents.KindRecord))
	assert.Equal(t, 3, s.Pop.Count(agents.KindRealtor))
	assert.Greater(t, s.MedianPriceForSale, 0.0)

	for _, h := range s.Pop.Houses() {
		assert.NotEmpty(t, h.LocalRealtors)
		assert.Greater(t, h.SalePrice, 0.0)
		assert.GreaterOrEqual(t, h.Quality, agents.MinQuality)
		assert.LessOrEqual(t, h.Quality, agents.MaxQuality)
		assert.Equal(t, h.IsVacant(), h.ForSale)
		assert.True(t, h.CoveredBy(h.Realtor))
	}
	for _, o := range s.Pop.Owners() {
		assert.GreaterOrEqual(t, o.Income, cfg.MeanIncome/2)
		assert.Greater(t, o.Repayment, 0.0)
	}
}

func TestNewSimulation_InvalidConfig(t *testing.T) {
	cfg := smallConfig()
	cfg.Scenario = "meltdown"
	_, err := NewSimulation(cfg)
	assert.ErrorIs(t, err, config.ErrUnknownScenario)
}

func TestNewSimulation_Geographies(t *testing.T) {
	for _, g := range []config.Geography{config.GeographyRandom, config.GeographyGradient, config.GeographyClustered} {
		t.Run(string(g), func(t *testing.T) {
			cfg := smallConfig()
			cfg.InitialGeography = g
			s, err := NewSimulation(cfg)
			require.NoError(t, err)
			assert.Positive(t, s.Pop.Count(agents.KindOwner))
		})
	}
}

func TestSimulation_SameSeedSameMarket(t *testing.T) {
	run := func() []Metrics {
		s, err := NewSimulation(smallConfig())
		require.NoError(t, err)
		var out []Metrics
		for i := 0; i < 12; i++ {
			s.Step()
			out = append(out, s.Metrics())
		}
		return out
	}
	assert.Equal(t, run(), run())
}

func TestSimulation_Invariants(t *testing.T) {
	cfg := smallConfig()
	cfg.Seed = 7
	s, err := NewSimulation(cfg)
	require.NoError(t, err)

	for i := 0; i < 30 && !s.Halted; i++ {
		s.Step()

		owned := map[agents.ID]agents.ID{}
		for _, o := range s.Pop.Owners() {
			assert.GreaterOrEqual(t, o.Capital, 0.0)
			assert.GreaterOrEqual(t, o.Mortgage, 0.0)
			assert.Equal(t, agents.NoID, o.MadeOfferOn)
			if !o.HasHouse() {
				continue
			}
			h := s.Pop.House(o.House)
			require.NotNil(t, h, "owner %d holds a missing house", o.ID)
			assert.Equal(t, o.ID, h.Owner)
			_, dup := owned[h.ID]
			assert.False(t, dup, "house %d has two owners", h.ID)
			owned[h.ID] = o.ID
		}
		for _, h := range s.Pop.Houses() {
			assert.False(t, h.HasOffer())
			assert.GreaterOrEqual(t, h.Quality, agents.MinQuality)
			assert.LessOrEqual(t, h.Quality, agents.MaxQuality)
			if h.Owner != agents.NoID {
				assert.Equal(t, h.Owner, owned[h.ID])
			}
		}
		for _, r := range s.Pop.Realtors() {
			for _, id := range r.Sales {
				rec := s.Pop.Record(id)
				require.NotNil(t, rec)
				assert.GreaterOrEqual(t, rec.Date, s.Tick-1-cfg.RealtorMemory)
			}
		}
	}
}

func TestSimulation_Intervention(t *testing.T) {
	cfg := quietConfig()
	cfg.Scenario = config.ScenarioRateFall
	cfg.InterventionTick = 2
	s, err := NewSimulation(cfg)
	require.NoError(t, err)

	s.Step()
	assert.Equal(t, 7.0, cfg.InterestRate)
	s.Step()
	assert.Equal(t, 10.0, cfg.InterestRate)
	s.Step()
	assert.InDelta(t, 10.0, s.Metrics().InterestRate, 1e-9)
}

func TestApplyScenario(t *testing.T) {
	s := newSimulation(quietConfig())
	cases := []struct {
		sc    config.Scenario
		check func() bool
	}{
		{config.ScenarioLTV, func() bool { return s.Config.MaxLoanToValue == 60 }},
		{config.ScenarioInflux, func() bool { return s.Config.EntryRate == 10 }},
		{config.ScenarioPoorEntrants, func() bool { return s.Config.MeanIncome == 24000 }},
	}
	for _, c := range cases {
		desc, err := s.ApplyScenario(c.sc)
		require.NoError(t, err)
		assert.NotEmpty(t, desc)
		assert.True(t, c.check(), string(c.sc))
	}
	_, err := s.ApplyScenario("crash")
	assert.ErrorIs(t, err, config.ErrUnknownScenario)
}

func TestUpdateInterest_Cycle(t *testing.T) {
	s := newSimulation(quietConfig())
	s.Config.CycleStrength = 50
	base := s.Config.InterestPerTick()

	s.Tick = 10 // a quarter of the ten-year cycle at four ticks a year
	s.updateInterest()
	assert.InDelta(t, base*1.5, s.Market.InterestPerTick(), 1e-12)

	s.Tick = 40
	s.updateInterest()
	assert.InDelta(t, base, s.Market.InterestPerTick(), 1e-12)
}

func TestAssignQuality_Clamped(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := newSimulation(quietConfig())
		n := rapid.IntRange(0, 8).Draw(t, "neighbours")
		for i := 0; i < n; i++ {
			h := s.Spawner.NewHouse(world.Pos{X: 10 + i%3 - 1, Y: 9 + i/3}, 0, 100)
			h.Quality = rapid.Float64Range(0, 10).Draw(t, "quality")
			s.Pop.AddHouse(h)
			s.Grid.Place(h.ID, h.Pos)
		}
		built := s.Spawner.NewHouse(world.Pos{X: 10, Y: 12}, 0, 100)
		s.Pop.AddHouse(built)
		s.Grid.Place(built.ID, built.Pos)

		s.assignQuality([]*agents.House{built})
		assert.GreaterOrEqual(t, built.Quality, agents.MinQuality)
		assert.LessOrEqual(t, built.Quality, agents.MaxQuality)
		if n == 0 {
			assert.Equal(t, 1.0, built.Quality)
		}
	})
}

func TestAssignQuality_SameTickBuildsCountInOrder(t *testing.T) {
	s := newSimulation(quietConfig())
	place := func(p world.Pos, q float64) *agents.House {
		h := s.Spawner.NewHouse(p, 0, 100)
		h.Quality = q
		s.Pop.AddHouse(h)
		s.Grid.Place(h.ID, p)
		return h
	}
	place(world.Pos{X: 10, Y: 10}, 2)
	first := place(world.Pos{X: 11, Y: 10}, 0)
	second := place(world.Pos{X: 12, Y: 10}, 0)

	s.assignQuality([]*agents.House{first, second})

	// first sees the old house and the unassigned second build.
	assert.InDelta(t, 1.0, first.Quality, 1e-12)
	// second sees the old house and first's new quality.
	assert.InDelta(t, 1.5, second.Quality, 1e-12)
}

func TestAssignQuality_OnlyUnassignedNeighboursClampsLow(t *testing.T) {
	s := newSimulation(quietConfig())
	var built []*agents.House
	for _, p := range []world.Pos{{X: 3, Y: 3}, {X: 4, Y: 3}} {
		h := s.Spawner.NewHouse(p, 0, 100)
		h.Quality = 0
		s.Pop.AddHouse(h)
		s.Grid.Place(h.ID, p)
		built = append(built, h)
	}

	s.assignQuality(built)

	assert.Equal(t, agents.MinQuality, built[0].Quality)
	assert.Equal(t, agents.MinQuality, built[1].Quality)
}

func TestEngine_RunStopsAtTickLimit(t *testing.T) {
	s, err := NewSimulation(quietConfig())
	require.NoError(t, err)
	e := NewEngine(s, 5)
	ticks, years := 0, 0
	e.OnTick = func(Metrics) { ticks++ }
	e.OnYear = func(m Metrics) {
		years++
		assert.Equal(t, 4, m.Tick)
	}

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, 5, s.CurrentTick())
	assert.Equal(t, 5, ticks)
	assert.Equal(t, 1, years)
}

func TestEngine_RunCancelled(t *testing.T) {
	s, err := NewSimulation(quietConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewEngine(s, 0).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.CurrentTick())
}

func TestEngine_RunStopsOnCollapse(t *testing.T) {
	m := newHandBuilt(t, 200000, 150000, 40000)
	m.house.EndOfLife = -1

	require.NoError(t, NewEngine(m.sim, 100).Run(context.Background()))
	halted, reason := m.sim.IsHalted()
	assert.True(t, halted)
	assert.Equal(t, "no remaining houses", reason)
	assert.Equal(t, 1, m.sim.CurrentTick())
}

func TestMetrics_HandBuilt(t *testing.T) {
	m := newHandBuilt(t, 100000, 150000, 40000)
	got := m.sim.Metrics()
	assert.Equal(t, 1, got.Houses)
	assert.Equal(t, 1, got.Owners)
	assert.Equal(t, 1, got.NegativeEquity)
	assert.Zero(t, got.EmptyHouses)
	assert.Zero(t, got.SeekingHome)
	assert.InDelta(t, 4*m.owner.Repayment/40000, got.RepaymentIncome, 1e-12)
	assert.InDelta(t, 7.0, got.InterestRate, 1e-9)
	assert.Zero(t, got.MedianForSale)
}
