package engine

import (
	"log/slog"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/talgya/housemarket/internal/agents"
	"github.com/talgya/housemarket/internal/stat"
)

// Metrics is a read-only summary of the market after a tick. It is
// computed from current state on every call.
type Metrics struct {
	Tick int `json:"tick" db:"tick"`

	Houses   int `json:"houses" db:"houses"`
	Owners   int `json:"owners" db:"owners"`
	Realtors int `json:"realtors" db:"realtors"`
	Records  int `json:"records" db:"records"`

	SeekingHome    int `json:"seeking_home" db:"seeking_home"`
	EmptyHouses    int `json:"empty_houses" db:"empty_houses"`
	NegativeEquity int `json:"negative_equity" db:"negative_equity"`
	Demolished     int `json:"demolished" db:"demolished"`
	MovingUp       int `json:"moving_up" db:"moving_up"`
	MovingDown     int `json:"moving_down" db:"moving_down"`

	MedianForSale      float64 `json:"median_for_sale" db:"median_for_sale"`
	MedianSold         float64 `json:"median_sold" db:"median_sold"`
	GiniPrices         float64 `json:"gini_prices" db:"gini_prices"`
	GiniIncomes        float64 `json:"gini_incomes" db:"gini_incomes"`
	RepaymentIncome    float64 `json:"repayment_income" db:"repayment_income"`
	PriceIncome        float64 `json:"price_income" db:"price_income"`
	MedianTimeOnMarket float64 `json:"median_time_on_market" db:"median_time_on_market"`

	Transactions   int     `json:"transactions" db:"transactions"`
	InterestRate   float64 `json:"interest_rate" db:"interest_rate"`
	InflationRate  float64 `json:"inflation_rate" db:"inflation_rate"`
	StampDuty      float64 `json:"stamp_duty" db:"stamp_duty"`
	CyclesDetected int     `json:"cycles_detected" db:"cycles_detected"`
}

// Metrics computes the current metrics under the read lock.
func (s *Simulation) Metrics() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics()
}

func (s *Simulation) metrics() Metrics {
	m := Metrics{
		Tick:           s.Tick,
		Houses:         s.Pop.Count(agents.KindHouse),
		Owners:         s.Pop.Count(agents.KindOwner),
		Realtors:       s.Pop.Count(agents.KindRealtor),
		Records:        s.Pop.Count(agents.KindRecord),
		Demolished:     s.Stats.Demolished,
		MovingUp:       s.Stats.MovingUp,
		MovingDown:     s.Stats.MovingDown,
		Transactions:   s.Market.Ledger.Moves,
		InterestRate:   s.Market.InterestPerTick() * float64(s.Config.TicksPerYear) * 100,
		InflationRate:  s.Config.Inflation,
		StampDuty:      s.Market.Ledger.StampDuty,
		CyclesDetected: s.Market.Ledger.CyclesDetected,
	}

	var incomes, repayments, repayingIncomes []float64
	for _, o := range s.Pop.Owners() {
		incomes = append(incomes, o.Income)
		if !o.HasHouse() {
			m.SeekingHome++
		}
		if o.Repayment > 0 {
			repayments = append(repayments, o.Repayment)
			repayingIncomes = append(repayingIncomes, o.Income)
		}
	}

	var listedSince []int
	for _, h := range s.Pop.Houses() {
		owner := s.Pop.Owner(h.Owner)
		if owner == nil {
			m.EmptyHouses++
		} else if h.SalePrice < owner.Mortgage {
			m.NegativeEquity++
		}
		if h.ForSale && h.SalePrice > 0 {
			listedSince = append(listedSince, h.DateForSale)
		}
	}

	var sold []float64
	for _, rec := range s.Pop.Records() {
		sold = append(sold, rec.Price)
	}

	if len(listedSince) > 0 {
		m.MedianForSale = s.MedianPriceForSale
		m.MedianTimeOnMarket = float64(s.Tick) - stat.Median(listedSince)
	}
	m.MedianSold = stat.Median(sold)
	m.GiniPrices = stat.Gini(sold)
	m.GiniIncomes = stat.Gini(incomes)
	if len(repayments) > 0 {
		m.RepaymentIncome = float64(s.Config.TicksPerYear) * stat.Mean(repayments) / stat.Mean(repayingIncomes)
	}
	if len(sold) > 0 && len(incomes) > 0 {
		if med := stat.Median(incomes); med > 0 {
			m.PriceIncome = m.MedianSold / med
		}
	}
	return m
}

// logYear writes the yearly market report.
func logYear(m Metrics, ticksPerYear int) {
	slog.Info("yearly report",
		"year", m.Tick/ticksPerYear,
		"tick", m.Tick,
		"houses", humanize.Comma(int64(m.Houses)),
		"owners", humanize.Comma(int64(m.Owners)),
		"seeking_home", m.SeekingHome,
		"median_for_sale", humanize.Commaf(math.Round(m.MedianForSale)),
		"median_sold", humanize.Commaf(math.Round(m.MedianSold)),
		"price_income", humanize.FormatFloat("#.##", m.PriceIncome),
		"transactions", m.Transactions,
		"interest_rate", humanize.FormatFloat("#.##", m.InterestRate),
	)
}
