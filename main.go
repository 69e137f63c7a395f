package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"

	"github.com/pthm-cable/succession/config"
	"github.com/pthm-cable/succession/sim"
)

// Version is the program version.
const Version = "0.3.0"

var (
	configPath string
	verbose    bool

	years     int
	seed      uint64
	workers   int
	outputDir string
	heatmap   bool
	progress  bool

	reportPath string
)

// root is the main command.
var root = &cobra.Command{
	Use:   "succession",
	Short: "Biomass succession for forest landscapes.",
	Long: `succession grows the tree species cohorts of every active site of a
landscape raster: annual net primary productivity, age and growth mortality,
litter and woody debris decay, and site shade for establishment.

Inputs are CSV tables and rasters named in a YAML or TOML configuration file
passed with --config. Unset keys keep their built-in defaults.`,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		// JSON to stderr so progress bars on stdout stay readable.
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		return config.Init(configPath)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("succession v%s\n", Version)
	},
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	DisableAutoGenTag: true,
}

// runCmd runs a simulation for the configured duration.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a succession simulation.",
	Long: `run initializes every active site from its initial community and
advances the landscape one succession timestep at a time, writing the
summary log and AG-NPP maps to the output directory after each step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Cfg()
		applyRunFlags(cmd, cfg)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		start := time.Now()
		s, err := sim.New(cfg)
		if err != nil {
			return err
		}
		if err := s.OpenOutput(outputDir); err != nil {
			return err
		}
		defer s.Close()

		slog.Info("starting simulation",
			"seed", cfg.Run.Seed,
			"duration", cfg.Run.Duration,
			"timestep", cfg.Succession.Timestep,
			"workers", cfg.Derived.Workers,
			"sites", s.Landscape().ActiveCount(),
		)

		var onStep func(int)
		if progress && cfg.Derived.Steps > 0 {
			uiprogress.Start()
			bar := uiprogress.AddBar(cfg.Derived.Steps).AppendCompleted().PrependElapsed()
			bar.PrependFunc(func(b *uiprogress.Bar) string {
				return fmt.Sprintf("year %4d", s.Time())
			})
			onStep = func(int) { bar.Incr() }
			defer uiprogress.Stop()
		}

		if err := s.Run(ctx, cfg.Run.Duration, onStep); err != nil {
			if sim.IsFatal(err) {
				slog.Error("simulation stopped", "year", s.Time(), "error", err)
			}
			return err
		}
		slog.Info("simulation complete", "year", s.Time(), "elapsed", time.Since(start).Round(time.Millisecond))
		return s.Close()
	},
	DisableAutoGenTag: true,
}

// spinupCmd reports the initialized biomass of each initial community.
var spinupCmd = &cobra.Command{
	Use:   "spinup",
	Short: "Initialize the landscape and report initial community biomass.",
	Long: `spinup builds every active site from its initial community, by
spin-up when spinup_cohorts is set, and writes one CSV row per community and
ecoregion pair to stdout or to --report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Cfg()
		applyRunFlags(cmd, cfg)

		s, err := sim.New(cfg)
		if err != nil {
			return err
		}
		rows := s.InitialBiomass()

		out := cmd.OutOrStdout()
		if reportPath != "" {
			f, err := os.Create(reportPath)
			if err != nil {
				return fmt.Errorf("creating report: %w", err)
			}
			defer f.Close()
			out = f
		}
		return gocsv.Marshal(rows, out)
	},
	DisableAutoGenTag: true,
}

// applyRunFlags overrides config values with the flags the user set.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("years") {
		cfg.Run.Duration = years
	}
	if flags.Changed("seed") {
		cfg.Run.Seed = seed
	}
	if flags.Changed("workers") && workers > 0 {
		cfg.Run.Workers = workers
		cfg.Derived.Workers = workers
	}
	if flags.Changed("heatmap") {
		cfg.Output.Heatmap = heatmap
	}
	if cfg.Succession.Timestep > 0 {
		cfg.Derived.Steps = cfg.Run.Duration / cfg.Succession.Timestep
	}
}

func init() {
	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML or TOML config file (empty = use defaults)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log per-cohort debug output")

	for _, cmd := range []*cobra.Command{runCmd, spinupCmd} {
		cmd.Flags().Uint64Var(&seed, "seed", 0, "RNG seed (default from config)")
		cmd.Flags().IntVar(&workers, "workers", 0, "Sites grown in parallel (default from config)")
	}
	runCmd.Flags().IntVar(&years, "years", 0, "Years to simulate (default from config)")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "", "Output directory for the summary log and maps (default from config)")
	runCmd.Flags().BoolVar(&heatmap, "heatmap", false, "Also write a plotted heatmap of each AG-NPP map")
	runCmd.Flags().BoolVar(&progress, "progress", false, "Show a progress bar")
	spinupCmd.Flags().StringVar(&reportPath, "report", "", "Write the report to this file instead of stdout")

	root.AddCommand(versionCmd, runCmd, spinupCmd)
}

func main() {
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
