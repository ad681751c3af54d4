// Package config holds the model parameters of a housing market run.
// Values come from HOUSESIM_* environment variables (optionally loaded from a
// .env file) and are read once at setup; only scenario interventions mutate
// them afterwards.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

var (
	ErrUnknownScenario  = errors.New("unknown scenario")
	ErrUnknownGeography = errors.New("unknown initial geography")
)

// Geography selects how initial owner incomes vary across the grid.
type Geography string

const (
	GeographyRandom    Geography = "Random"
	GeographyGradient  Geography = "Gradient"
	GeographyClustered Geography = "Clustered"
)

// Scenario names a one-off intervention applied at InterventionTick.
type Scenario string

const (
	ScenarioNone         Scenario = "none"
	ScenarioRateFall     Scenario = "ratefall"
	ScenarioLTV          Scenario = "ltv"
	ScenarioInflux       Scenario = "influx"
	ScenarioPoorEntrants Scenario = "poorentrants"
)

// Scenarios lists every known intervention, in display order.
func Scenarios() []Scenario {
	return []Scenario{ScenarioNone, ScenarioRateFall, ScenarioLTV, ScenarioInflux, ScenarioPoorEntrants}
}

// Config is the full parameter surface of the model. Percentages are
// expressed in percent (7 means 7%) as on the model controls.
type Config struct {
	// Run
	Seed  int64 `env:"SEED" envDefault:"42"`
	Ticks int   `env:"TICKS" envDefault:"200"`

	// World
	GridWidth          int       `env:"GRID_WIDTH" envDefault:"61"`
	GridHeight         int       `env:"GRID_HEIGHT" envDefault:"61"`
	Realtors           int       `env:"REALTORS" envDefault:"6"`
	InitialVacancyRate float64   `env:"INITIAL_VACANCY_RATE" envDefault:"0.05"` // fraction
	InitialGeography   Geography `env:"INITIAL_GEOGRAPHY" envDefault:"Random"`
	Density            float64   `env:"DENSITY" envDefault:"70"`

	// Macro
	InterestRate  float64 `env:"INTEREST_RATE" envDefault:"7"`
	TicksPerYear  int     `env:"TICKS_PER_YEAR" envDefault:"4"`
	Inflation     float64 `env:"INFLATION" envDefault:"0"`
	CycleStrength float64 `env:"CYCLE_STRENGTH" envDefault:"0"`

	// Owners
	Affordability     float64 `env:"AFFORDABILITY" envDefault:"25"`
	Savings           float64 `env:"SAVINGS" envDefault:"50"`
	ExitRate          float64 `env:"EXIT_RATE" envDefault:"2"`
	EntryRate         float64 `env:"ENTRY_RATE" envDefault:"5"`
	MeanIncome        float64 `env:"MEAN_INCOME" envDefault:"30000"`
	Shocked           float64 `env:"SHOCKED" envDefault:"23"`
	MaxHomelessPeriod int     `env:"MAX_HOMELESS_PERIOD" envDefault:"5"`
	BuyerSearchLength int     `env:"BUYER_SEARCH_LENGTH" envDefault:"12"`

	// Realtors
	RealtorTerritory float64 `env:"REALTOR_TERRITORY" envDefault:"30"`
	Locality         float64 `env:"LOCALITY" envDefault:"3"`
	RealtorMemory    int     `env:"REALTOR_MEMORY" envDefault:"10"`
	PriceDropRate    float64 `env:"PRICE_DROP_RATE" envDefault:"3"`
	RealtorOptimism  float64 `env:"REALTOR_OPTIMISM" envDefault:"3"`

	// Houses
	HouseConstructionRate float64 `env:"HOUSE_CONSTRUCTION_RATE" envDefault:"0.30"`
	HouseMeanLifetime     float64 `env:"HOUSE_MEAN_LIFETIME" envDefault:"101"` // years
	MinPriceFraction      float64 `env:"MIN_PRICE_FRACTION" envDefault:"0.1"`

	// Lending
	MaxLoanToValue   float64 `env:"MAX_LOAN_TO_VALUE" envDefault:"97"`
	MortgageDuration float64 `env:"MORTGAGE_DURATION" envDefault:"25"` // years
	StampDuty        bool    `env:"STAMP_DUTY" envDefault:"true"`

	// Intervention
	Scenario         Scenario `env:"SCENARIO" envDefault:"none"`
	InterventionTick int      `env:"INTERVENTION_TICK" envDefault:"100"`
}

// EnvPrefix is prepended to every variable name in Config.
const EnvPrefix = "HOUSESIM_"

// Default returns the configuration with every field at its default value.
func Default() *Config {
	cfg := &Config{}
	// Parsing an empty environment only applies envDefault tags.
	_ = env.Parse(cfg, env.Options{Prefix: EnvPrefix, Environment: map[string]string{}})
	return cfg
}

// Load reads the configuration from the environment. When envFile is set,
// that file is loaded first; a missing default .env is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every parameter that would make the model ill-defined.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Ticks >= 0, "ticks must be non-negative, got %d", c.Ticks)
	check(c.GridWidth > 0 && c.GridHeight > 0, "grid must be non-empty, got %dx%d", c.GridWidth, c.GridHeight)
	check(c.Realtors > 0, "at least one realtor is required, got %d", c.Realtors)
	check(c.InitialVacancyRate >= 0 && c.InitialVacancyRate <= 1, "initial vacancy rate must be in [0, 1], got %g", c.InitialVacancyRate)
	check(c.Density >= 0 && c.Density <= 100, "density must be in [0, 100], got %g", c.Density)
	check(c.InterestRate > 0, "interest rate must be positive, got %g", c.InterestRate)
	check(c.TicksPerYear > 0, "ticks per year must be positive, got %d", c.TicksPerYear)
	check(c.CycleStrength >= 0 && c.CycleStrength < 100, "cycle strength must be in [0, 100), got %g", c.CycleStrength)
	check(c.Affordability > 0, "affordability must be positive, got %g", c.Affordability)
	check(c.MeanIncome > 0, "mean income must be positive, got %g", c.MeanIncome)
	check(c.Shocked >= 0 && c.Shocked <= 100, "shocked must be in [0, 100], got %g", c.Shocked)
	check(c.ExitRate >= 0 && c.EntryRate >= 0, "entry and exit rates must be non-negative")
	check(c.BuyerSearchLength > 0, "buyer search length must be positive, got %d", c.BuyerSearchLength)
	check(c.Locality > 0, "locality must be positive, got %g", c.Locality)
	check(c.RealtorMemory >= 0, "realtor memory must be non-negative, got %d", c.RealtorMemory)
	check(c.PriceDropRate >= 0 && c.PriceDropRate < 100, "price drop rate must be in [0, 100), got %g", c.PriceDropRate)
	check(c.HouseMeanLifetime > 0, "house mean lifetime must be positive, got %g", c.HouseMeanLifetime)
	check(c.MaxLoanToValue > 0 && c.MaxLoanToValue <= 100, "max loan to value must be in (0, 100], got %g", c.MaxLoanToValue)
	check(c.MortgageDuration > 0, "mortgage duration must be positive, got %g", c.MortgageDuration)

	switch c.InitialGeography {
	case GeographyRandom, GeographyGradient, GeographyClustered:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownGeography, c.InitialGeography))
	}
	if _, err := ParseScenario(string(c.Scenario)); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ParseScenario maps a scenario name to a Scenario.
func ParseScenario(name string) (Scenario, error) {
	for _, s := range Scenarios() {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScenario, name)
}

// InterestPerTick is the nominal per-tick rate before any cycle adjustment.
func (c *Config) InterestPerTick() float64 {
	return c.InterestRate / (float64(c.TicksPerYear) * 100)
}
