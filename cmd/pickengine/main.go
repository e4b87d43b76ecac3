package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/sawpanic/pickengine/internal/cache"
	"github.com/sawpanic/pickengine/internal/config"
	"github.com/sawpanic/pickengine/internal/grader"
	"github.com/sawpanic/pickengine/internal/market"
	"github.com/sawpanic/pickengine/internal/pickstore"
	"github.com/sawpanic/pickengine/internal/scheduler"
	"github.com/sawpanic/pickengine/internal/service"
	"github.com/sawpanic/pickengine/internal/slate"
	"github.com/sawpanic/pickengine/internal/telemetry"
	"github.com/sawpanic/pickengine/internal/types"
	"github.com/sawpanic/pickengine/internal/weights"
)

const (
	appName = "pickengine"
	version = "v0.1.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Pick Scoring & Lifecycle Pipeline",
		Version: version,
		Long: `pickengine scores, stores, and grades sports picks on an explicit
ET calendar: a Slate Builder gathers today's candidates, the Scoring
Pipeline runs four engines plus additive boosts, the Pick Store persists
every surviving pick, and the Auto-Grader closes the loop once games
finish.`,
		Run: runDefaultEntry,
	}

	// Accept snake_case flag spellings alongside the canonical kebab-case,
	// so --metrics_addr and --metrics-addr both resolve.
	rootCmd.SetGlobalNormalizationFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.AddCommand(
		newServeCmd(),
		newBestBetsCmd(),
		newStorageHealthCmd(),
		newGraderCmd(),
		newSchedulerCmd(),
		newDebugTimeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("pickengine: command failed")
		os.Exit(1)
	}
}

// runDefaultEntry routes bare invocations by TTY detection: an interactive
// terminal gets guidance to --help, a script gets the same
// guidance on stderr and a non-zero exit rather than silently doing nothing.
func runDefaultEntry(cmd *cobra.Command, args []string) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintln(os.Stderr, "pickengine: no subcommand given. Try `pickengine --help`, or `pickengine serve` to run the scheduler.")
		return
	}
	fmt.Fprintln(os.Stderr, "pickengine: no subcommand given; this is a non-interactive shell. See `pickengine --help`.")
	os.Exit(2)
}

// buildService wires every collaborator from the environment: resolve
// config, fail fast on a bad storage mount, construct every component
// once.
func buildService() (*service.Service, error) {
	storageCfg, err := config.LoadStorageConfig()
	if err != nil {
		return nil, fmt.Errorf("pickengine: %w", err)
	}
	store, err := pickstore.Open(storageCfg.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("pickengine: %w", err)
	}
	log.Info().Str("base_dir", storageCfg.BaseDir).Msg("pickengine: storage resolved")

	thresholds, err := config.LoadThresholdsConfig(os.Getenv("PICKENGINE_THRESHOLDS_CONFIG"))
	if err != nil {
		return nil, fmt.Errorf("pickengine: %w", err)
	}

	wm, err := weights.Load(store)
	if err != nil {
		return nil, fmt.Errorf("pickengine: %w", err)
	}

	integrations := config.NewRegistry()
	if degraded, reasons := integrations.Degraded(); degraded {
		log.Warn().Strs("reasons", reasons).Msg("pickengine: starting in degraded mode")
	}

	// Upstream sources are wrapped twice: a circuit breaker + rate limiter
	// so a flapping provider degrades to UNREACHABLE instead of stalling
	// requests, then the shared TTL cache so one slate warming serves every
	// request in the window. The Noop sources are the unconfigured defaults;
	// an operator swaps in real vendor adapters here.
	sharedCache := cache.NewAuto()
	marketData := market.NewCachedMarketData(
		market.NewResilientMarketData(
			service.NoopMarketDataSource{},
			market.NewCircuit("market_data", 5, 30*time.Second, 10, 5),
		),
		sharedCache,
	)
	splitsSource := market.NewCachedSplits(
		market.NewResilientSplits(
			service.NoopSplitsSource{},
			market.NewCircuit("splits", 5, 30*time.Second, 10, 5),
		),
		sharedCache,
	)

	serpShadow := true
	if v, err := strconv.ParseBool(os.Getenv("PICKENGINE_SERP_SHADOW_MODE")); err == nil {
		serpShadow = v
	}

	sched := scheduler.New()
	reg := telemetry.NewRegistry()
	g := grader.New(store, service.NoopResultsSource{}, wm).WithMarketData(marketData)
	g.Observer = reg
	slateBuilder := slate.NewBuilder(marketData)
	ctxBuilder := service.NewSnapshotBuilder(marketData, splitsSource, serpShadow)

	svc := service.New(store, slateBuilder, wm, g, sched, reg, thresholds, integrations, ctxBuilder, service.DefaultConfig())
	if err := svc.RegisterDefaultJobs(os.Getenv("PICKENGINE_SCHEDULER_REGISTRY")); err != nil {
		return nil, fmt.Errorf("pickengine: %w", err)
	}
	return svc, nil
}

func newServeCmd() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduler and Prometheus metrics endpoint until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			mux := http.NewServeMux()
			mux.Handle("/metrics", svc.Telemetry.Handler())
			srv := &http.Server{Addr: metricsAddr, Handler: mux}
			go func() {
				log.Info().Str("addr", metricsAddr).Msg("pickengine: metrics endpoint listening")
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error().Err(err).Msg("pickengine: metrics server failed")
				}
			}()

			go func() {
				if err := svc.Scheduler.Start(ctx); err != nil && err != context.Canceled {
					log.Error().Err(err).Msg("pickengine: scheduler stopped")
				}
			}()

			<-ctx.Done()
			log.Info().Msg("pickengine: shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Prometheus /metrics listen address")
	return cmd
}

func newBestBetsCmd() *cobra.Command {
	var sport string
	cmd := &cobra.Command{
		Use:   "best-bets",
		Short: "Run GenerateBestBets for a sport and print the response as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			s := types.Sport(sport)
			if !s.Valid() {
				return fmt.Errorf("pickengine: invalid sport %q", sport)
			}
			result := svc.GenerateBestBets(cmd.Context(), s)
			return printJSON(result)
		},
	}
	cmd.Flags().StringVar(&sport, "sport", "", "Sport code (NBA, NFL, MLB, NHL, NCAAB)")
	_ = cmd.MarkFlagRequired("sport")
	return cmd
}

func newStorageHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "storage-health",
		Short: "Print the Pick Store health report",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			return printJSON(svc.StorageHealth())
		},
	}
}

func newGraderCmd() *cobra.Command {
	graderCmd := &cobra.Command{
		Use:   "grader",
		Short: "Auto-Grader operations",
	}

	var date, mode string
	dryRunCmd := &cobra.Command{
		Use:   "dry-run",
		Short: "Run the grading pipeline without writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			report, err := svc.GraderDryRun(cmd.Context(), date, grader.Mode(mode))
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	dryRunCmd.Flags().StringVar(&date, "date", "", "ET date (YYYY-MM-DD)")
	dryRunCmd.Flags().StringVar(&mode, "mode", string(grader.ModePre), "pre|post")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print Auto-Grader status",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			status, err := svc.GraderStatus()
			if err != nil {
				return err
			}
			return printJSON(status)
		},
	}

	graderCmd.AddCommand(dryRunCmd, statusCmd)
	return graderCmd
}

func newSchedulerCmd() *cobra.Command {
	schedulerCmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Scheduler operations",
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print every registered job's next run time",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			return printJSON(svc.SchedulerStatus())
		},
	}

	var jobName string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single named job immediately",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			return svc.Scheduler.RunNow(cmd.Context(), jobName)
		},
	}
	runCmd.Flags().StringVar(&jobName, "job", "", "Job name, e.g. grade_and_tune")
	_ = runCmd.MarkFlagRequired("job")

	schedulerCmd.AddCommand(statusCmd, runCmd)
	return schedulerCmd
}

func newDebugTimeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "debug-time",
		Short: "Print the current ET calendar state",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := buildService()
			if err != nil {
				return err
			}
			snapshot, err := svc.DebugTime()
			if err != nil {
				return err
			}
			return printJSON(snapshot)
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
