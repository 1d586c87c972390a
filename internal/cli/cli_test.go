package cli

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc-lab/internal/artifacts"
	"smc-lab/internal/config"
	"smc-lab/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Data.Symbols = []string{"BTCUSDT", "ETHUSDT"}
	cfg.Data.Timeframes = []string{"1h", "4h"}
	cfg.Data.ParamsFile = filepath.Join(t.TempDir(), "params.json")
	return &cfg
}

func keys(cfgs []domain.StrategyConfig) []string {
	out := make([]string, len(cfgs))
	for i, c := range cfgs {
		out[i] = c.Key()
	}
	return out
}

func TestSelector_Resolve(t *testing.T) {
	cfg := testConfig(t)

	all, err := Selector{}.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT_1h", "BTCUSDT_4h", "ETHUSDT_1h", "ETHUSDT_4h"}, keys(all))

	bySymbol, err := Selector{Symbol: "ethusdt"}.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHUSDT_1h", "ETHUSDT_4h"}, keys(bySymbol))

	one, err := Selector{Symbol: "BTCUSDT", Timeframe: "15m"}.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSDT_15m"}, keys(one))

	byKey, err := Selector{Keys: []string{"SOLUSDT_4h", "BTCUSDT_1h"}}.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"SOLUSDT_4h", "BTCUSDT_1h"}, keys(byKey))

	_, err = Selector{Keys: []string{"BTCUSDT"}}.Resolve(cfg)
	assert.Error(t, err)

	_, err = Selector{Symbol: "BTCUSDT", Timeframe: "7m"}.Resolve(cfg)
	assert.ErrorIs(t, err, domain.ErrUnknownTimeframe)

	cfg.Data.Symbols = nil
	_, err = Selector{}.Resolve(cfg)
	assert.ErrorIs(t, err, ErrNoStrategies)
}

func TestSelector_ResolveParams(t *testing.T) {
	cfg := testConfig(t)

	tuned := cfg.StrategyConfig("ETHUSDT", "4h")
	tuned.Risk.Leverage = 3
	require.NoError(t, artifacts.SaveParams(cfg.Data.ParamsFile,
		artifacts.NewParamsFile([]domain.StrategyConfig{tuned}, time.Unix(0, 0))))

	fromFile, err := Selector{UseParams: true}.Resolve(cfg)
	require.NoError(t, err)
	require.Len(t, fromFile, 1)
	assert.Equal(t, 3.0, fromFile[0].Risk.Leverage)

	mixed, err := Selector{UseParams: true, Keys: []string{"ETHUSDT_4h", "BTCUSDT_1h"}}.Resolve(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3.0, mixed[0].Risk.Leverage)
	assert.Equal(t, cfg.RiskParams().Leverage, mixed[1].Risk.Leverage)

	cfg.Data.ParamsFile = filepath.Join(t.TempDir(), "missing.json")
	_, err = Selector{UseParams: true}.Resolve(cfg)
	assert.Error(t, err)
}

func TestSetup_MissingExplicitFile(t *testing.T) {
	_, err := Setup(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
