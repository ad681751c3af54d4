package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/housemarket/internal/config"
)

// Scenario parameter values.
const (
	rateFallInterestRate  = 10.0
	ltvMaxLoanToValue     = 60.0
	influxEntryRate       = 10.0
	poorEntrantMeanIncome = 24000.0
)

// applyIntervention fires the configured scenario once, on the tick it is
// scheduled for.
func (s *Simulation) applyIntervention() {
	if s.Tick != s.Config.InterventionTick || s.Config.Scenario == config.ScenarioNone {
		return
	}
	if _, err := s.applyScenario(s.Config.Scenario); err != nil {
		slog.Error("intervention failed", "tick", s.Tick, "error", err)
	}
}

// ApplyScenario changes the market parameters as scenario prescribes,
// effective from the next tick. It returns a description of the change.
func (s *Simulation) ApplyScenario(sc config.Scenario) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyScenario(sc)
}

func (s *Simulation) applyScenario(sc config.Scenario) (string, error) {
	cfg := s.Config
	var desc string
	switch sc {
	case config.ScenarioNone:
		return "no intervention", nil
	case config.ScenarioRateFall:
		cfg.InterestRate = rateFallInterestRate
		desc = fmt.Sprintf("interest rate set to %.1f%%", cfg.InterestRate)
	case config.ScenarioLTV:
		cfg.MaxLoanToValue = ltvMaxLoanToValue
		desc = fmt.Sprintf("maximum loan to value set to %.0f%%", cfg.MaxLoanToValue)
	case config.ScenarioInflux:
		cfg.EntryRate = influxEntryRate
		desc = fmt.Sprintf("entry rate set to %.0f%%", cfg.EntryRate)
	case config.ScenarioPoorEntrants:
		cfg.MeanIncome = poorEntrantMeanIncome
		desc = fmt.Sprintf("mean income of entrants set to %.0f", cfg.MeanIncome)
	default:
		return "", fmt.Errorf("%w: %q", config.ErrUnknownScenario, sc)
	}

	slog.Info("intervention", "tick", s.Tick, "scenario", string(sc), "change", desc)
	return desc, nil
}
