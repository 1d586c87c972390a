package strategy

import (
	"errors"
	"fmt"

	"smc-lab/internal/domain"
	"smc-lab/internal/features"
	"smc-lab/internal/structure"
)

// ErrFeatureLength is returned when features are not aligned with candles.
var ErrFeatureLength = errors.New("features length does not match candles")

// Pipeline drives one strategy key bar by bar: it feeds the structure
// engine and evaluates the filtered signal. Each run owns its pipeline;
// candles, features and bias are shared read-only.
type Pipeline struct {
	cfg      domain.StrategyConfig
	candles  []domain.Candle
	features []domain.Features
	engine   *structure.Engine
	eval     Evaluator
	bias     BiasLookup
	tfMs     int64
	next     int
}

// NewPipeline creates a pipeline. Nil feats are computed with the standard
// provider; a nil bias means neutral everywhere.
func NewPipeline(cfg domain.StrategyConfig, candles []domain.Candle, feats []domain.Features, bias BiasLookup) (*Pipeline, error) {
	tfMs, err := domain.TimeframeMs(cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	if feats == nil {
		feats = features.NewStandard(cfg.Features).Annotate(candles)
	}
	if len(feats) != len(candles) {
		return nil, fmt.Errorf("%w: %d features, %d candles", ErrFeatureLength, len(feats), len(candles))
	}
	engine, err := structure.NewEngine(cfg.Structure)
	if err != nil {
		return nil, err
	}
	eval, err := FromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if bias == nil {
		bias = FixedBias(domain.BiasNeutral)
	}

	return &Pipeline{
		cfg:      cfg,
		candles:  candles,
		features: feats,
		engine:   engine,
		eval:     eval,
		bias:     bias,
		tfMs:     tfMs,
	}, nil
}

// Config returns the strategy config.
func (p *Pipeline) Config() domain.StrategyConfig {
	return p.cfg
}

// Candles returns the candle series.
func (p *Pipeline) Candles() []domain.Candle {
	return p.candles
}

// Features returns the aligned features.
func (p *Pipeline) Features() []domain.Features {
	return p.features
}

// Engine returns the structure engine.
func (p *Pipeline) Engine() *structure.Engine {
	return p.engine
}

// Advance feeds bars up to and including i into the structure engine.
// Bars already processed are not pushed again.
func (p *Pipeline) Advance(i int) {
	for p.next <= i && p.next < len(p.candles) {
		p.engine.Push(p.candles[p.next])
		p.next++
	}
}

// Signal advances to bar i and evaluates it.
func (p *Pipeline) Signal(i int) (domain.Intent, bool) {
	if i < 0 || i >= len(p.candles) {
		return domain.Intent{}, false
	}
	p.Advance(i)

	ctx := &Context{
		Index:     i,
		Candles:   p.candles,
		Features:  p.features,
		Structure: p.engine,
		Bias:      p.bias.At(p.candles[i].Timestamp + p.tfMs),
	}
	return p.eval.Evaluate(ctx)
}
