package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"smc-lab/internal/cli"
	"smc-lab/internal/domain"
	"smc-lab/internal/idhash"
	"smc-lab/internal/reporting"
	"smc-lab/internal/simulation"
	"smc-lab/internal/storage/backend"
	"smc-lab/internal/storage/csvfile"
	"smc-lab/internal/strategy"
	"smc-lab/internal/verification"
)

type RunArgs struct {
	ConfigPath  string
	Selector    cli.Selector
	RunID       string
	ReportPath  string
	CSVPath     string
	Verify      bool
	MetricsAddr string
}

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run single-strategy backtests over stored candle series",
	Run: func(cmd *cobra.Command, args []string) {
		runArgs := RunArgs{}
		runArgs.ConfigPath, _ = cmd.Flags().GetString("config")
		runArgs.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		runArgs.Selector.Keys, _ = cmd.Flags().GetStringSlice("keys")
		runArgs.Selector.Symbol, _ = cmd.Flags().GetString("symbol")
		runArgs.Selector.Timeframe, _ = cmd.Flags().GetString("timeframe")
		runArgs.Selector.UseParams, _ = cmd.Flags().GetBool("use-params")
		runArgs.RunID, _ = cmd.Flags().GetString("run-id")
		runArgs.ReportPath, _ = cmd.Flags().GetString("report")
		runArgs.CSVPath, _ = cmd.Flags().GetString("csv")
		runArgs.Verify, _ = cmd.Flags().GetBool("verify")

		if err := Run(runArgs); err != nil {
			log.Fatalf("backtest failed: %v", err)
		}
	},
}

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Copy CSV candle files into the configured candle store",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		dir, _ := cmd.Flags().GetString("dir")

		cfg, err := cli.Setup(configPath)
		if err != nil {
			log.Fatalf("error loading config: %v", err)
		}

		ctx, cancel := cli.SignalContext()
		defer cancel()

		b, err := backend.Open(ctx, cfg, log.StandardLogger())
		if err != nil {
			log.Fatalf("error opening stores: %v", err)
		}
		defer b.Close()

		src, err := csvfile.NewCandleStore(dir)
		if err != nil {
			log.Fatalf("error opening %s: %v", dir, err)
		}
		loaded, err := b.LoadSeries(ctx, src)
		if err != nil {
			log.Fatalf("error loading series: %v", err)
		}
		log.Infof("Loaded %d series: %v", len(loaded), loaded)
	},
}

func Run(args RunArgs) error {
	cfg, err := cli.Setup(args.ConfigPath)
	if err != nil {
		return err
	}
	cli.ServeMetrics(args.MetricsAddr)

	ctx, cancel := cli.SignalContext()
	defer cancel()

	cfgs, err := args.Selector.Resolve(cfg)
	if err != nil {
		return err
	}

	b, err := backend.Open(ctx, cfg, log.StandardLogger())
	if err != nil {
		return err
	}
	defer b.Close()

	runID := args.RunID
	if runID == "" {
		runID = idhash.NewRunID()
	}

	runner := simulation.NewRunner(simulation.RunnerOptions{
		CandleStore: b.Candles,
		BiasCache:   strategy.NewBiasCache(time.Hour, 10*time.Minute),
		TradeStore:  b.Trades,
		ResultStore: b.Results,
		Logger:      log.StandardLogger(),
	})

	log.Infof("Running %d backtests: run=%s", len(cfgs), runID)
	for _, c := range cfgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := runOne(ctx, runner, b, runID, c); err != nil {
			return err
		}
	}

	rep, err := reporting.NewGenerator(b.Results, b.Trades).Generate(ctx, runID)
	if err != nil {
		return err
	}
	reporting.RenderTable(os.Stdout, rep.Strategies)

	if args.ReportPath != "" {
		if err := os.WriteFile(args.ReportPath, []byte(reporting.RenderMarkdown(rep)), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Infof("Report written to %s", args.ReportPath)
	}
	if args.CSVPath != "" {
		out, err := reporting.RenderCSV(rep.Strategies)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args.CSVPath, []byte(out), 0o644); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}

	if args.Verify {
		return verify(ctx, b, runID, cfgs)
	}
	return nil
}

// runOne runs one config. A rejected series is recorded as a BAD_INPUT
// result and does not stop the batch.
func runOne(ctx context.Context, runner *simulation.Runner, b *backend.Backend, runID string, c domain.StrategyConfig) error {
	res, err := runner.Run(ctx, runID, c)
	if err == nil {
		return nil
	}
	if res == nil || res.Status != domain.StatusBadInput {
		return err
	}

	log.WithField("strategy_key", c.Key()).Warnf("skipping: %v", err)
	return b.Results.Insert(ctx, runID, res)
}

func verify(ctx context.Context, b *backend.Backend, runID string, cfgs []domain.StrategyConfig) error {
	byKey := make(map[string]domain.StrategyConfig, len(cfgs))
	for _, c := range cfgs {
		byKey[c.Key()] = c
	}

	verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		TradeStore: b.Trades,
		Runner:     simulation.NewRunner(simulation.RunnerOptions{CandleStore: b.Candles, Logger: log.StandardLogger()}),
		Configs:    byKey,
	})

	report, err := verifier.VerifyRun(ctx, runID)
	if err != nil {
		return err
	}
	log.Infof("Verified %d trades: %d matched, %d divergent",
		report.TotalTrades, report.MatchedTrades, report.DivergentTrades)
	if report.DivergentTrades > 0 {
		return errors.New("replay diverged from stored trades")
	}
	return nil
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file.")

	rootCmd.Flags().String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable).")
	rootCmd.Flags().StringSlice("keys", []string{}, "Strategy keys to run, e.g. BTCUSDT_1h,ETHUSDT_4h.")
	rootCmd.Flags().String("symbol", "", "Symbol to run; defaults to every configured symbol.")
	rootCmd.Flags().String("timeframe", "", "Timeframe to run with --symbol; defaults to every configured timeframe.")
	rootCmd.Flags().Bool("use-params", false, "Take parameters from the strategy parameter file.")
	rootCmd.Flags().String("run-id", "", "Run ID for persisted trades and results; generated when empty.")
	rootCmd.Flags().String("report", "", "Write a markdown report to this path.")
	rootCmd.Flags().String("csv", "", "Write strategy rows as CSV to this path.")
	rootCmd.Flags().Bool("verify", false, "Replay the run and compare with stored trades.")

	loadCmd.Flags().String("dir", "", "Directory of SYMBOL_TIMEFRAME.csv files.")
	loadCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(loadCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
