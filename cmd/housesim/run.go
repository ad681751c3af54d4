package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/talgya/housemarket/internal/api"
	"github.com/talgya/housemarket/internal/config"
	"github.com/talgya/housemarket/internal/engine"
	"github.com/talgya/housemarket/internal/persistence"
)

type runOptions struct {
	seed     int64
	ticks    int
	scenario string
	dbPath   string
	apiAddr  string
	adminKey string
	origins  []string
	interval time.Duration
	hold     bool
	quiet    bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(envFile)
			if err != nil {
				return err
			}
			if err := opts.apply(cmd, cfg); err != nil {
				return err
			}
			return runSimulation(cmd.Context(), cfg, opts)
		},
	}

	f := cmd.Flags()
	f.Int64Var(&opts.seed, "seed", 0, "Random seed (overrides HOUSESIM_SEED)")
	f.IntVarP(&opts.ticks, "ticks", "t", 0, "Ticks to run (overrides HOUSESIM_TICKS)")
	f.StringVarP(&opts.scenario, "scenario", "s", "", "Intervention: "+scenarioNames())
	f.StringVar(&opts.dbPath, "db", "", "Record the run in this SQLite database")
	f.StringVar(&opts.apiAddr, "api", "", "Serve the HTTP API on this address (e.g. :8080)")
	f.StringVar(&opts.adminKey, "admin-key", os.Getenv("HOUSESIM_ADMIN_KEY"), "Bearer token for API interventions")
	f.StringSliceVar(&opts.origins, "cors-origin", nil, "Extra CORS origins for the API")
	f.DurationVar(&opts.interval, "interval", 0, "Pause between ticks")
	f.BoolVar(&opts.hold, "hold", false, "Keep serving the API after the run ends, until interrupted")
	f.BoolVarP(&opts.quiet, "quiet", "q", false, "Skip the yearly summary table")
	return cmd
}

func scenarioNames() string {
	var names []string
	for _, s := range config.Scenarios() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// apply copies explicitly set flags over the loaded configuration.
func (o *runOptions) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = o.seed
	}
	if flags.Changed("ticks") {
		cfg.Ticks = o.ticks
	}
	if flags.Changed("scenario") {
		sc, err := config.ParseScenario(o.scenario)
		if err != nil {
			return err
		}
		cfg.Scenario = sc
	}
	return cfg.Validate()
}

func runSimulation(parent context.Context, cfg *config.Config, opts *runOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim, err := engine.NewSimulation(cfg)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}

	// ── Recorder ──────────────────────────────────────────────────────
	var (
		db    *persistence.DB
		runID string
	)
	if opts.dbPath != "" {
		if dir := filepath.Dir(opts.dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err = persistence.Open(opts.dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		runID, err = db.StartRun(cfg)
		if err != nil {
			return err
		}
		if err := db.RecordTick(runID, sim.Metrics()); err != nil {
			return err
		}
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(sim, cfg.Ticks)
	eng.Interval = opts.interval

	var yearly []engine.Metrics
	eng.OnYear = func(m engine.Metrics) { yearly = append(yearly, m) }
	if db != nil {
		eng.OnTick = func(m engine.Metrics) {
			if err := db.RecordTick(runID, m); err != nil {
				slog.Error("record tick failed", "tick", m.Tick, "error", err)
			}
		}
	}

	// ── API ───────────────────────────────────────────────────────────
	if opts.apiAddr != "" {
		srv := (&api.Server{
			Sim:      sim,
			DB:       db,
			RunID:    runID,
			Addr:     opts.apiAddr,
			AdminKey: opts.adminKey,
			Origins:  opts.origins,
		}).Start()
		defer api.Shutdown(srv)
	}

	start := time.Now()
	runErr := eng.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	if db != nil {
		if err := db.SaveSnapshot(runID, sim); err != nil {
			slog.Error("save snapshot failed", "error", err)
		}
	}

	if !opts.quiet {
		printYearly(yearly, cfg.TicksPerYear)
	}
	printOutcome(sim, runID, time.Since(start), runErr)

	if opts.hold && opts.apiAddr != "" && runErr == nil {
		color.New(color.FgCyan).Printf("Serving API on %s; press Ctrl-C to exit\n", opts.apiAddr)
		<-ctx.Done()
	}
	return nil
}

func printYearly(rows []engine.Metrics, ticksPerYear int) {
	if len(rows) == 0 {
		return
	}
	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeader([]string{"Year", "Tick", "Houses", "Owners", "Seeking", "Empty", "Median ask", "Median sold", "Price/income", "Sales", "Rate %"}),
	)
	for _, m := range rows {
		table.Append([]string{
			fmt.Sprint(m.Tick / ticksPerYear),
			fmt.Sprint(m.Tick),
			humanize.Comma(int64(m.Houses)),
			humanize.Comma(int64(m.Owners)),
			fmt.Sprint(m.SeekingHome),
			fmt.Sprint(m.EmptyHouses),
			humanize.Comma(int64(m.MedianForSale)),
			humanize.Comma(int64(m.MedianSold)),
			fmt.Sprintf("%.2f", m.PriceIncome),
			fmt.Sprint(m.Transactions),
			fmt.Sprintf("%.2f", m.InterestRate),
		})
	}
	table.Render()
}

func printOutcome(sim *engine.Simulation, runID string, elapsed time.Duration, runErr error) {
	m := sim.Metrics()
	halted, reason := sim.IsHalted()

	fmt.Println()
	switch {
	case halted:
		color.New(color.FgRed, color.Bold).Printf("Market collapsed at tick %d: %s\n", m.Tick, reason)
	case runErr != nil:
		color.New(color.FgYellow).Printf("Interrupted at tick %d\n", m.Tick)
	default:
		color.New(color.FgGreen, color.Bold).Printf("Finished %d ticks in %s\n", m.Tick, elapsed.Round(time.Millisecond))
	}

	info := color.New(color.FgCyan)
	info.Printf("  houses %s, owners %s, realtors %d, sale records %s\n",
		humanize.Comma(int64(m.Houses)), humanize.Comma(int64(m.Owners)), m.Realtors, humanize.Comma(int64(m.Records)))
	info.Printf("  median sold %s, gini (prices) %.3f, gini (incomes) %.3f\n",
		humanize.Commaf(float64(int64(m.MedianSold))), m.GiniPrices, m.GiniIncomes)
	if runID != "" {
		info.Printf("  run recorded as %s\n", runID)
	}
}
