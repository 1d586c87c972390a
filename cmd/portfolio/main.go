package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"smc-lab/internal/artifacts"
	"smc-lab/internal/cli"
	"smc-lab/internal/domain"
	"smc-lab/internal/idhash"
	"smc-lab/internal/observability"
	"smc-lab/internal/portfolio"
	"smc-lab/internal/reporting"
	"smc-lab/internal/simulation"
	"smc-lab/internal/storage/backend"
	"smc-lab/internal/strategy"
	"smc-lab/internal/verification"
)

type RunArgs struct {
	ConfigPath    string
	Selector      cli.Selector
	FromSelection bool
	Capital       float64
	EquityCSV     string
	Persist       bool
	MetricsAddr   string
}

var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Simulate a fixed set of strategies on one shared equity pool",
	Run: func(cmd *cobra.Command, args []string) {
		runArgs := RunArgs{}
		runArgs.ConfigPath, _ = cmd.Flags().GetString("config")
		runArgs.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		runArgs.Selector.Keys, _ = cmd.Flags().GetStringSlice("keys")
		runArgs.Selector.UseParams, _ = cmd.Flags().GetBool("use-params")
		runArgs.FromSelection, _ = cmd.Flags().GetBool("from-selection")
		runArgs.Capital, _ = cmd.Flags().GetFloat64("capital")
		runArgs.EquityCSV, _ = cmd.Flags().GetString("equity-csv")
		runArgs.Persist, _ = cmd.Flags().GetBool("persist")

		if err := Run(runArgs); err != nil {
			log.Fatalf("portfolio failed: %v", err)
		}
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

	if args.FromSelection {
		sel, err := artifacts.LoadSelection(cfg.Data.SelectionFile)
		if err != nil {
			return err
		}
		args.Selector.Keys = sel.Keys
		log.Infof("Using selection %s: %v", sel.RunID, sel.Keys)
	}

	cfgs, err := args.Selector.Resolve(cfg)
	if err != nil {
		return err
	}

	b, err := backend.Open(ctx, cfg, log.StandardLogger())
	if err != nil {
		return err
	}
	defer b.Close()

	runner := simulation.NewRunner(simulation.RunnerOptions{
		CandleStore: b.Candles,
		BiasCache:   strategy.NewBiasCache(time.Hour, 10*time.Minute),
		Logger:      log.StandardLogger(),
	})
	inputs, err := runner.PortfolioInputs(ctx, cfgs)
	if err != nil {
		return err
	}

	started := time.Now()
	res, err := portfolio.Simulate(inputs, portfolio.Params{InitialCapital: args.Capital})
	if err != nil {
		return err
	}
	observability.RecordPortfolioRun(res.Liquidated, time.Since(started).Seconds())

	if err := verification.VerifyPortfolio(res); err != nil {
		log.Warnf("portfolio invariant violated: %v", err)
	}

	keys := make([]string, len(inputs))
	for i, in := range inputs {
		keys[i] = in.Key()
	}
	runID := idhash.NewRunID()
	log.WithFields(log.Fields{
		"run_id":      runID,
		"keys":        keys,
		"trades":      res.TradeCount,
		"end_capital": fmt.Sprintf("%.2f", res.EndCapital),
		"max_dd_pct":  fmt.Sprintf("%.2f", res.MaxDrawdownPct),
		"liquidated":  res.Liquidated,
	}).Info("portfolio complete")

	section := reporting.NewPortfolioSection(&domain.Selection{RunID: runID, Keys: keys, Result: res}, nil)
	reporting.RenderPortfolioTable(os.Stdout, section)

	if args.EquityCSV != "" {
		out, err := reporting.RenderEquityCSV(res.EquityCurve)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args.EquityCSV, []byte(out), 0o644); err != nil {
			return fmt.Errorf("write equity csv: %w", err)
		}
	}

	if args.Persist && len(res.Trades) > 0 {
		if err := b.Trades.InsertBulk(ctx, runID, res.Trades); err != nil {
			return fmt.Errorf("store trades: %w", err)
		}
		log.Infof("Stored %d trades under run %s", len(res.Trades), runID)
	}
	return nil
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file.")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable).")
	rootCmd.PersistentFlags().StringSlice("keys", []string{}, "Strategy keys, e.g. BTCUSDT_1h,ETHUSDT_4h; defaults to every configured series.")
	rootCmd.PersistentFlags().Bool("use-params", false, "Take parameters from the strategy parameter file.")
	rootCmd.PersistentFlags().Bool("from-selection", false, "Take the keys from the optimizer selection file.")
	rootCmd.PersistentFlags().Float64("capital", 0, "Shared starting capital; 0 takes the first strategy's initial capital.")
	rootCmd.PersistentFlags().String("equity-csv", "", "Write the equity curve as CSV to this path.")
	rootCmd.PersistentFlags().Bool("persist", false, "Store the portfolio trades.")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
