// Package cli holds the setup shared by the command binaries.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"smc-lab/internal/artifacts"
	"smc-lab/internal/config"
	"smc-lab/internal/domain"
	"smc-lab/internal/observability"
)

// ErrNoStrategies is returned when a selector resolves to nothing.
var ErrNoStrategies = errors.New("no strategies selected")

// Setup loads configuration and applies its logging section to the
// standard logger. An explicit path must exist.
func Setup(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, fmt.Errorf("config %s: %w", path, statErr)
		}
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if err := cfg.Logging.Apply(log.StandardLogger()); err != nil {
		return nil, err
	}
	if cfg.Source != "" {
		log.WithField("file", cfg.Source).Debug("config loaded")
	}
	return cfg, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ServeMetrics exposes /metrics and /health on addr in the background.
// An empty addr disables it.
func ServeMetrics(addr string) {
	if addr == "" {
		return
	}
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.Handler())
		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		log.Infof("Starting metrics server on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()
}

// Selector picks strategy configs from flags.
type Selector struct {
	Keys      []string // SYMBOL_TIMEFRAME keys, win over Symbol
	Symbol    string
	Timeframe string // with Symbol; empty means every configured timeframe
	UseParams bool   // take parameters from the data.paramsFile artifact
}

// Resolve returns the configs chosen by s. Without keys or symbol it
// returns every parameter-file entry (UseParams) or every configured
// symbol and timeframe. Keys missing from the parameter file fall back to
// cfg.
func (s Selector) Resolve(cfg *config.Config) ([]domain.StrategyConfig, error) {
	var params *artifacts.ParamsFile
	if s.UseParams {
		var err error
		params, err = artifacts.LoadParams(cfg.Data.ParamsFile)
		if err != nil {
			return nil, err
		}
	}

	lookup := func(symbol, timeframe string) domain.StrategyConfig {
		if params != nil {
			if c, ok := params.Config(domain.SeriesKey(symbol, timeframe)); ok {
				return c
			}
		}
		return cfg.StrategyConfig(symbol, timeframe)
	}

	var out []domain.StrategyConfig
	switch {
	case len(s.Keys) > 0:
		for _, key := range s.Keys {
			symbol, timeframe, ok := domain.ParseSeriesKey(key)
			if !ok {
				return nil, fmt.Errorf("invalid strategy key %q", key)
			}
			out = append(out, lookup(symbol, timeframe))
		}
	case s.Symbol != "":
		timeframes := cfg.Data.Timeframes
		if s.Timeframe != "" {
			timeframes = []string{s.Timeframe}
		}
		for _, tf := range timeframes {
			out = append(out, lookup(s.Symbol, tf))
		}
	case params != nil:
		out = params.Configs()
	default:
		out = cfg.StrategyConfigs()
	}

	if len(out) == 0 {
		return nil, ErrNoStrategies
	}
	for _, c := range out {
		if _, err := domain.ParseTimeframe(c.Timeframe); err != nil {
			return nil, fmt.Errorf("%s: %w", c.Key(), err)
		}
	}
	return out, nil
}
