package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smc-lab/internal/domain"
	"smc-lab/internal/portfolio"
	"smc-lab/internal/storage"
	"smc-lab/internal/strategy"
)

func TestRunner_PortfolioInputs(t *testing.T) {
	ctx := context.Background()
	r, _, _, _ := newTestRunner(t, rallyThenCrash(60))

	cfg := testConfig(domain.SignalModeTrend)
	cfg.Signal.HTFTimeframe = "4h"

	inputs, err := r.PortfolioInputs(ctx, []domain.StrategyConfig{cfg})
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, "BTCUSDT_1h", inputs[0].Key())
	assert.Equal(t, 61, inputs[0].Series.Len())
	_, ok := inputs[0].Bias.(*strategy.BiasSeries)
	assert.True(t, ok)

	res, err := portfolio.Simulate(inputs, portfolio.Params{})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, res.StartCapital)

	missing := cfg
	missing.Symbol = "ETHUSDT"
	_, err = r.PortfolioInputs(ctx, []domain.StrategyConfig{cfg, missing})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
