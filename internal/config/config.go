// Package config loads glyphrec settings through viper.
//
// Values come from, in increasing precedence: Default(), the config file,
// GLYPHREC_* environment variables (dots become underscores, so
// GLYPHREC_BAYES_ALPHA sets bayes.alpha) and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/ironsheep/glyphrec/internal/cascade"
	"github.com/ironsheep/glyphrec/internal/hog"
	"github.com/ironsheep/glyphrec/internal/selection"
)

// EnvPrefix is the environment variable prefix.
const EnvPrefix = "GLYPHREC"

// ErrInvalidConfig is returned when loaded values fail validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full set of glyphrec settings.
type Config struct {
	Data      DataConfig      `mapstructure:"data"`
	HOG       hog.Params      `mapstructure:"hog"`
	Bayes     BayesConfig     `mapstructure:"bayes"`
	Selection SelectionConfig `mapstructure:"selection"`
	Cascade   CascadeConfig   `mapstructure:"cascade"`
	Classes   ClassesConfig   `mapstructure:"classes"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Workers   int             `mapstructure:"workers"`
}

// DataConfig locates the IDX training and test files.
type DataConfig struct {
	TrainImages string `mapstructure:"train_images"`
	TrainLabels string `mapstructure:"train_labels"`
	TestImages  string `mapstructure:"test_images"`
	TestLabels  string `mapstructure:"test_labels"`
	// LabelOffset is subtracted from every stored label (1 for EMNIST letters).
	LabelOffset int `mapstructure:"label_offset"`
	// Transpose flips stored glyphs about the diagonal (EMNIST orientation).
	Transpose bool `mapstructure:"transpose"`
}

// BayesConfig shapes the general classifier.
type BayesConfig struct {
	NumBins int     `mapstructure:"num_bins"`
	Alpha   float64 `mapstructure:"alpha"`
}

// SelectionConfig controls feature selection. A zero Count disables it.
type SelectionConfig struct {
	Method string `mapstructure:"method"`
	Count  int    `mapstructure:"count"`
	// Targets and ClassSpecificCount add Fisher-selected features for the
	// listed classes ahead of the general selection.
	Targets            []int  `mapstructure:"targets"`
	ClassSpecificCount int    `mapstructure:"class_specific_count"`
	IndexFile          string `mapstructure:"index_file"`
}

// Enabled reports whether any selection is configured.
func (s SelectionConfig) Enabled() bool {
	return s.Count > 0 || s.IndexFile != ""
}

// CascadeConfig holds the cascade policy and its pairs.
type CascadeConfig struct {
	cascade.Policy `mapstructure:",squash"`
	Pairs          []PairConfig `mapstructure:"pairs"`
	// AutoPairs registers that many extra pairs from the training-set
	// confusions, each with PairThreshold.
	AutoPairs     int     `mapstructure:"auto_pairs"`
	PairThreshold float64 `mapstructure:"pair_threshold"`
}

// PairConfig registers one specialized classifier.
type PairConfig struct {
	A         int     `mapstructure:"a"`
	B         int     `mapstructure:"b"`
	Threshold float64 `mapstructure:"threshold"`
}

// ClassesConfig names the label space.
type ClassesConfig struct {
	Count int `mapstructure:"count"`
	// Alphabet is digits, letters or a literal symbol string.
	Alphabet string `mapstructure:"alphabet"`
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		HOG:       hog.DefaultParams(),
		Bayes:     BayesConfig{NumBins: 32, Alpha: 1.0},
		Selection: SelectionConfig{Method: selection.MutualInformation.String()},
		Cascade: CascadeConfig{
			Policy:        cascade.DefaultPolicy(),
			PairThreshold: 0.7,
		},
		Classes: ClassesConfig{Count: 10, Alphabet: "digits"},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// SetDefaults registers Default() with v and enables GLYPHREC_ environment
// overrides.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data.train_images", d.Data.TrainImages)
	v.SetDefault("data.train_labels", d.Data.TrainLabels)
	v.SetDefault("data.test_images", d.Data.TestImages)
	v.SetDefault("data.test_labels", d.Data.TestLabels)
	v.SetDefault("data.label_offset", d.Data.LabelOffset)
	v.SetDefault("data.transpose", d.Data.Transpose)
	v.SetDefault("hog.cell_size", d.HOG.CellSize)
	v.SetDefault("hog.num_bins", d.HOG.NumBins)
	v.SetDefault("bayes.num_bins", d.Bayes.NumBins)
	v.SetDefault("bayes.alpha", d.Bayes.Alpha)
	v.SetDefault("selection.method", d.Selection.Method)
	v.SetDefault("selection.count", d.Selection.Count)
	v.SetDefault("selection.targets", []int{})
	v.SetDefault("selection.class_specific_count", d.Selection.ClassSpecificCount)
	v.SetDefault("selection.index_file", d.Selection.IndexFile)
	v.SetDefault("cascade.high_confidence", d.Cascade.HighConfidence)
	v.SetDefault("cascade.specialized_confidence", d.Cascade.SpecializedConfidence)
	v.SetDefault("cascade.auto_pairs", d.Cascade.AutoPairs)
	v.SetDefault("cascade.pair_threshold", d.Cascade.PairThreshold)
	v.SetDefault("classes.count", d.Classes.Count)
	v.SetDefault("classes.alphabet", d.Classes.Alphabet)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("workers", d.Workers)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals v into a Config, expands file paths and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Data.TrainImages = ExpandPath(cfg.Data.TrainImages)
	cfg.Data.TrainLabels = ExpandPath(cfg.Data.TrainLabels)
	cfg.Data.TestImages = ExpandPath(cfg.Data.TestImages)
	cfg.Data.TestLabels = ExpandPath(cfg.Data.TestLabels)
	cfg.Selection.IndexFile = ExpandPath(cfg.Selection.IndexFile)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that can be checked without data.
func (c Config) Validate() error {
	var errs []error
	if c.HOG.CellSize <= 0 || c.HOG.NumBins <= 0 {
		errs = append(errs, fmt.Errorf("hog: cell_size and num_bins must be positive"))
	}
	if c.Bayes.NumBins <= 0 {
		errs = append(errs, fmt.Errorf("bayes: num_bins must be positive"))
	}
	if c.Bayes.Alpha < 0 {
		errs = append(errs, fmt.Errorf("bayes: alpha must not be negative"))
	}
	if c.Classes.Count <= 0 || c.Classes.Count > 256 {
		errs = append(errs, fmt.Errorf("classes: count %d outside 1..256", c.Classes.Count))
	}
	if c.Selection.Count < 0 || c.Selection.ClassSpecificCount < 0 {
		errs = append(errs, fmt.Errorf("selection: counts must not be negative"))
	}
	if m, err := selection.ParseMethod(c.Selection.Method); err != nil {
		errs = append(errs, fmt.Errorf("selection: %w", err))
	} else if m == selection.Fisher && c.Selection.Count > 0 {
		errs = append(errs, fmt.Errorf("selection: fisher needs target classes; set selection.targets and class_specific_count instead of method"))
	}
	if c.Data.LabelOffset < 0 || c.Data.LabelOffset > 255 {
		errs = append(errs, fmt.Errorf("data: label_offset %d outside 0..255", c.Data.LabelOffset))
	} else if c.Data.LabelOffset > 0 && c.Classes.Count > 256-c.Data.LabelOffset {
		errs = append(errs, fmt.Errorf("classes: count %d unreachable with label_offset %d", c.Classes.Count, c.Data.LabelOffset))
	}
	for _, t := range c.Selection.Targets {
		if t < 0 || t >= c.Classes.Count {
			errs = append(errs, fmt.Errorf("selection: target %d outside the class range", t))
		}
	}
	if err := c.Cascade.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cascade: %w", err))
	}
	for _, p := range c.Cascade.Pairs {
		if p.A < 0 || p.B < 0 || p.A >= c.Classes.Count || p.B >= c.Classes.Count {
			errs = append(errs, fmt.Errorf("cascade: pair (%d, %d) outside the class range", p.A, p.B))
		}
	}
	if c.Cascade.AutoPairs < 0 {
		errs = append(errs, fmt.Errorf("cascade: auto_pairs must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
