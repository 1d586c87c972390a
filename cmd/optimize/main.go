package main

import (
	"errors"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"smc-lab/internal/artifacts"
	"smc-lab/internal/cli"
	"smc-lab/internal/decision"
	"smc-lab/internal/domain"
	"smc-lab/internal/optimizer"
	"smc-lab/internal/reporting"
	"smc-lab/internal/simulation"
	"smc-lab/internal/storage/backend"
	"smc-lab/internal/strategy"
	"smc-lab/internal/verification"
)

type RunArgs struct {
	ConfigPath  string
	Selector    cli.Selector
	DryRun      bool
	MetricsAddr string
	PruningPath string
}

var rootCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Greedily select strategies that maximize final capital under a drawdown target",
	Run: func(cmd *cobra.Command, args []string) {
		runArgs := RunArgs{}
		runArgs.ConfigPath, _ = cmd.Flags().GetString("config")
		runArgs.MetricsAddr, _ = cmd.Flags().GetString("metrics-addr")
		runArgs.Selector.Keys, _ = cmd.Flags().GetStringSlice("keys")
		runArgs.Selector.UseParams, _ = cmd.Flags().GetBool("use-params")
		runArgs.DryRun, _ = cmd.Flags().GetBool("dry-run")
		runArgs.PruningPath, _ = cmd.Flags().GetString("pruning-report")

		if err := Run(runArgs); err != nil {
			log.Fatalf("optimize failed: %v", err)
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

	opts := optimizer.Options{
		Params: cfg.OptimizerParams(),
		Logger: log.StandardLogger(),
	}
	if cfg.PruningEnabled() {
		opts.Decision, err = decision.NewEvaluator(cfg.DecisionThresholds())
		if err != nil {
			return err
		}
	}
	opt, err := optimizer.New(opts)
	if err != nil {
		return err
	}

	rep, err := opt.Run(ctx, inputs)
	if rep != nil {
		section := reporting.NewPortfolioSection(rep.Selection, rep.Candidates)
		reporting.RenderCandidateTable(os.Stdout, section.Candidates)
		if rep.Selection != nil {
			reporting.RenderPortfolioTable(os.Stdout, section)
		}
		if err := writePruningReport(args.PruningPath, rep.Candidates); err != nil {
			return err
		}
	}
	if errors.Is(err, optimizer.ErrNoSurvivors) {
		log.Warn("No strategy satisfies the drawdown target; nothing saved")
		return nil
	}
	if err != nil {
		return err
	}

	sel := rep.Selection
	if err := verification.VerifySelection(sel); err != nil {
		return err
	}
	if args.DryRun {
		return nil
	}

	if err := b.Selections.Insert(ctx, sel); err != nil {
		return err
	}
	if err := artifacts.SaveSelection(cfg.Data.SelectionFile, sel); err != nil {
		return err
	}

	selected := make([]domain.StrategyConfig, 0, len(sel.Keys))
	for _, in := range inputs {
		for _, k := range sel.Keys {
			if in.Key() == k {
				selected = append(selected, in.Config)
			}
		}
	}
	if err := artifacts.SaveParams(cfg.Data.ParamsFile, artifacts.NewParamsFile(selected, time.UnixMilli(sel.CreatedAt))); err != nil {
		return err
	}

	log.Infof("Saved selection %s to %s and parameters to %s", sel.RunID, cfg.Data.SelectionFile, cfg.Data.ParamsFile)
	return nil
}

// writePruningReport saves the per-candidate decision verdicts as Markdown.
// Nothing is written without a path or when pruning was disabled.
func writePruningReport(path string, candidates []optimizer.Candidate) error {
	if path == "" {
		return nil
	}
	verdicts := make([]*decision.Result, 0, len(candidates))
	for _, c := range candidates {
		if c.Verdict != nil {
			verdicts = append(verdicts, c.Verdict)
		}
	}
	if len(verdicts) == 0 {
		log.Warn("Pruning is disabled; no pruning report written")
		return nil
	}
	if err := os.WriteFile(path, []byte(decision.RenderMarkdown(verdicts)), 0o644); err != nil {
		return err
	}
	log.Infof("Pruning report written to %s", path)
	return nil
}

func main() {
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file.")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Prometheus metrics HTTP address (empty to disable).")
	rootCmd.PersistentFlags().StringSlice("keys", []string{}, "Candidate strategy keys; defaults to every configured series.")
	rootCmd.PersistentFlags().Bool("use-params", false, "Take candidate parameters from the strategy parameter file.")
	rootCmd.PersistentFlags().Bool("dry-run", false, "Print the selection without persisting it.")
	rootCmd.PersistentFlags().String("pruning-report", "", "Write per-candidate pruning verdicts to this Markdown file.")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
