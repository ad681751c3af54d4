// Package engine provides the market simulation and the loop that drives
// it tick by tick.
package engine

import (
	"context"
	"log/slog"
	"time"
)

// Engine drives a Simulation forward.
type Engine struct {
	Sim      *Simulation
	Ticks    int           // stop after this many ticks; 0 runs until halted or cancelled
	Interval time.Duration // pause between ticks; 0 runs flat out

	// Callbacks, populated during setup.
	OnTick func(m Metrics) // every tick
	OnYear func(m Metrics) // every TicksPerYear ticks
}

// NewEngine creates an engine that runs sim for ticks ticks.
func NewEngine(sim *Simulation, ticks int) *Engine {
	return &Engine{
		Sim:   sim,
		Ticks: ticks,
	}
}

// Run steps the simulation until the tick limit, a market collapse, or ctx
// is cancelled. It returns ctx.Err() when cancelled and nil otherwise.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("simulation engine started", "tick", e.Sim.CurrentTick(), "ticks", e.Ticks)

	var ticker *time.Ticker
	if e.Interval > 0 {
		ticker = time.NewTicker(e.Interval)
		defer ticker.Stop()
	}

	for e.Ticks <= 0 || e.Sim.CurrentTick() < e.Ticks {
		if err := ctx.Err(); err != nil {
			slog.Info("simulation engine stopped", "tick", e.Sim.CurrentTick(), "reason", err)
			return err
		}

		e.step()

		if halted, reason := e.Sim.IsHalted(); halted {
			slog.Info("simulation engine stopped", "tick", e.Sim.CurrentTick(), "reason", reason)
			return nil
		}

		if ticker != nil {
			select {
			case <-ctx.Done():
				slog.Info("simulation engine stopped", "tick", e.Sim.CurrentTick(), "reason", ctx.Err())
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}

	slog.Info("simulation engine finished", "tick", e.Sim.CurrentTick())
	return nil
}

// step advances the simulation by one tick and fires the callbacks.
func (e *Engine) step() {
	e.Sim.Step()
	m := e.Sim.Metrics()

	if e.OnTick != nil {
		e.OnTick(m)
	}

	tpy := e.Sim.Config.TicksPerYear
	if m.Tick%tpy == 0 {
		logYear(m, tpy)
		if e.OnYear != nil {
			e.OnYear(m)
		}
	}
}
