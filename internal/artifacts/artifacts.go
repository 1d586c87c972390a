// Package artifacts persists the files handed to the live executor: the
// strategy parameter file keyed SYMBOL_TIMEFRAME and the optimizer selection.
package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"smc-lab/internal/domain"
)

// FormatVersion is the version written to every artifact.
const FormatVersion = 1

// Artifact errors
var (
	ErrUnsupportedVersion = errors.New("unsupported artifact version")
	ErrKeyMismatch        = errors.New("strategy key does not match its config")
	ErrEmptySelection     = errors.New("selection has no strategies")
)

// ParamsFile maps strategy keys to their full parameter set.
type ParamsFile struct {
	Version    int                              `json:"version"`
	UpdatedAt  int64                            `json:"updated_at"` // ms
	Strategies map[string]domain.StrategyConfig `json:"strategies"`
}

// NewParamsFile builds a parameter file from configs. Later configs replace
// earlier ones with the same key.
func NewParamsFile(cfgs []domain.StrategyConfig, now time.Time) *ParamsFile {
	f := &ParamsFile{
		Version:    FormatVersion,
		UpdatedAt:  now.UnixMilli(),
		Strategies: make(map[string]domain.StrategyConfig, len(cfgs)),
	}
	for _, c := range cfgs {
		f.Strategies[c.Key()] = c
	}
	return f
}

// Config returns the parameters of key.
func (f *ParamsFile) Config(key string) (domain.StrategyConfig, bool) {
	c, ok := f.Strategies[key]
	return c, ok
}

// Configs returns all parameter sets ordered by key.
func (f *ParamsFile) Configs() []domain.StrategyConfig {
	keys := make([]string, 0, len(f.Strategies))
	for k := range f.Strategies {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.StrategyConfig, len(keys))
	for i, k := range keys {
		out[i] = f.Strategies[k]
	}
	return out
}

// Validate checks the version and that every key matches its config.
func (f *ParamsFile) Validate() error {
	if f.Version != FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, f.Version)
	}
	for k, c := range f.Strategies {
		if c.Key() != k {
			return fmt.Errorf("%w: %s holds %s", ErrKeyMismatch, k, c.Key())
		}
	}
	return nil
}

// SaveParams writes f to path.
func SaveParams(path string, f *ParamsFile) error {
	if err := f.Validate(); err != nil {
		return err
	}
	return writeJSON(path, f)
}

// LoadParams reads a parameter file.
func LoadParams(path string) (*ParamsFile, error) {
	var f ParamsFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	if f.Strategies == nil {
		f.Strategies = make(map[string]domain.StrategyConfig)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// SelectionFile is the persisted optimizer selection.
type SelectionFile struct {
	Version   int               `json:"version"`
	Selection *domain.Selection `json:"selection"`
}

// SaveSelection writes sel to path.
func SaveSelection(path string, sel *domain.Selection) error {
	if sel == nil || len(sel.Keys) == 0 {
		return ErrEmptySelection
	}
	return writeJSON(path, SelectionFile{Version: FormatVersion, Selection: sel})
}

// LoadSelection reads a selection file.
func LoadSelection(path string) (*domain.Selection, error) {
	var f SelectionFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("%s: %w: %d", path, ErrUnsupportedVersion, f.Version)
	}
	if f.Selection == nil || len(f.Selection.Keys) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrEmptySelection)
	}
	return f.Selection, nil
}

// writeJSON replaces path atomically with the indented encoding of v.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
