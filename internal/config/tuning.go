package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
	"github.com/VishnuVamsi7/DocReporter/internal/budget"
	"github.com/VishnuVamsi7/DocReporter/internal/compress"
	"github.com/VishnuVamsi7/DocReporter/internal/digest"
	"github.com/VishnuVamsi7/DocReporter/internal/doctree"
	"github.com/VishnuVamsi7/DocReporter/internal/salience"
	"github.com/VishnuVamsi7/DocReporter/internal/segment"
)

// Tuning gathers every pipeline threshold in one place so deployments
// can adjust behavior without a rebuild. Zero values fall back to the
// built-in defaults.
type Tuning struct {
	Normalize struct {
		MergeGap          float64 `yaml:"merge_gap"`
		MinPrintableRatio float64 `yaml:"min_printable_ratio"`
	} `yaml:"normalize"`

	Structure struct {
		CaptionProximity float64 `yaml:"caption_proximity"`
	} `yaml:"structure"`

	Segment struct {
		MaxUnitSize int `yaml:"max_unit_size"`
	} `yaml:"segment"`

	Salience struct {
		Weights  salience.Weights `yaml:"weights"`
		Keywords []string         `yaml:"keywords"`
	} `yaml:"salience"`

	Budget struct {
		Global          int     `yaml:"global"`
		Floor           int     `yaml:"floor"`
		DropThreshold   float64 `yaml:"drop_threshold"`
		MaxShare        float64 `yaml:"max_share"`
		ReserveFraction float64 `yaml:"reserve_fraction"`
	} `yaml:"budget"`

	Compress struct {
		MaxAttempts           int           `yaml:"max_attempts"`
		PreservationTolerance float64       `yaml:"preservation_tolerance"`
		EntityWeightThreshold float64       `yaml:"entity_weight_threshold"`
		ExpandFactor          float64       `yaml:"expand_factor"`
		CallTimeout           time.Duration `yaml:"call_timeout"`
	} `yaml:"compress"`

	Digest struct {
		MaxRows                 int `yaml:"max_rows"`
		ChartMinNumericRows     int `yaml:"chart_min_numeric_rows"`
		ChartMaxCategoricalDims int `yaml:"chart_max_categorical_dims"`
	} `yaml:"digest"`
}

// LoadTuning reads a YAML tuning file. An empty path returns zero Tuning,
// which resolves to all defaults.
func LoadTuning(path string) (Tuning, error) {
	var t Tuning
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parse tuning file %s: %w", path, err)
	}
	return t, nil
}

// ResolveTuning loads the optional YAML tuning file and seeds the
// env-level report defaults into slots the file leaves unset. The file
// wins over the environment; the environment wins over the built-ins.
func (c Config) ResolveTuning() (Tuning, error) {
	t, err := LoadTuning(c.TuningPath)
	if err != nil {
		return t, err
	}
	if t.Budget.Global == 0 && c.GlobalBudget > 0 {
		t.Budget.Global = c.GlobalBudget
	}
	if t.Segment.MaxUnitSize == 0 && c.MaxUnitSize > 0 {
		t.Segment.MaxUnitSize = c.MaxUnitSize
	}
	return t, nil
}

// NormalizeConfig resolves the block normalizer settings.
func (t Tuning) NormalizeConfig() block.NormalizeConfig {
	cfg := block.DefaultNormalizeConfig()
	if t.Normalize.MergeGap > 0 {
		cfg.MergeGap = t.Normalize.MergeGap
	}
	if t.Normalize.MinPrintableRatio > 0 {
		cfg.MinPrintableRatio = t.Normalize.MinPrintableRatio
	}
	return cfg
}

// BuilderConfig resolves the structure builder settings.
func (t Tuning) BuilderConfig() doctree.BuilderConfig {
	cfg := doctree.DefaultBuilderConfig()
	if t.Structure.CaptionProximity > 0 {
		cfg.CaptionProximity = t.Structure.CaptionProximity
	}
	return cfg
}

// SegmentConfig resolves the unit segmenter settings.
func (t Tuning) SegmentConfig() segment.Config {
	cfg := segment.DefaultConfig()
	if t.Segment.MaxUnitSize > 0 {
		cfg.MaxUnitSize = t.Segment.MaxUnitSize
	}
	return cfg
}

// SalienceConfig resolves the ranker settings.
func (t Tuning) SalienceConfig() salience.Config {
	cfg := salience.DefaultConfig()
	w := t.Salience.Weights
	if w.Structural > 0 || w.Lexical > 0 || w.Uniqueness > 0 {
		cfg.Weights = w
	}
	cfg.Keywords = append(cfg.Keywords, t.Salience.Keywords...)
	return cfg
}

// BudgetConfig resolves the allocator settings.
func (t Tuning) BudgetConfig() budget.Config {
	cfg := budget.DefaultConfig()
	if t.Budget.Global > 0 {
		cfg.Global = t.Budget.Global
	}
	if t.Budget.Floor > 0 {
		cfg.Floor = t.Budget.Floor
	}
	if t.Budget.DropThreshold > 0 {
		cfg.DropThreshold = t.Budget.DropThreshold
	}
	if t.Budget.MaxShare > 0 {
		cfg.MaxShare = t.Budget.MaxShare
	}
	if t.Budget.ReserveFraction > 0 {
		cfg.ReserveFraction = t.Budget.ReserveFraction
	}
	return cfg
}

// EngineConfig resolves the compression engine settings.
func (t Tuning) EngineConfig() compress.EngineConfig {
	cfg := compress.DefaultEngineConfig()
	if t.Compress.MaxAttempts > 0 {
		cfg.MaxAttempts = t.Compress.MaxAttempts
	}
	if t.Compress.PreservationTolerance > 0 {
		cfg.PreservationTolerance = t.Compress.PreservationTolerance
	}
	if t.Compress.EntityWeightThreshold > 0 {
		cfg.EntityWeightThreshold = t.Compress.EntityWeightThreshold
	}
	if t.Compress.ExpandFactor > 0 {
		cfg.ExpandFactor = t.Compress.ExpandFactor
	}
	if t.Compress.CallTimeout > 0 {
		cfg.CallTimeout = t.Compress.CallTimeout
	}
	return cfg
}

// DigestConfig resolves the table/figure digest settings.
func (t Tuning) DigestConfig() digest.Config {
	cfg := digest.DefaultConfig()
	if t.Digest.MaxRows > 0 {
		cfg.MaxRows = t.Digest.MaxRows
	}
	if t.Digest.ChartMinNumericRows > 0 {
		cfg.ChartMinNumericRows = t.Digest.ChartMinNumericRows
	}
	if t.Digest.ChartMaxCategoricalDims > 0 {
		cfg.ChartMaxCategoricalDims = t.Digest.ChartMaxCategoricalDims
	}
	return cfg
}
