package replay

import (
	"context"

	"smc-lab/internal/domain"
)

// Replay merges the series and feeds every step to the engine.
func Replay(ctx context.Context, engine ReplayEngine, series ...[]domain.Candle) error {
	steps, err := Merge(series...)
	if err != nil {
		return err
	}
	for _, step := range steps {
		if err := engine.OnStep(ctx, step); err != nil {
			return err
		}
	}
	return nil
}
