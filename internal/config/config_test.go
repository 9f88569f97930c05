package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadYAML(t *testing.T, yaml string) (Config, error) {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))
	return Load(v)
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 4, cfg.HOG.CellSize)
	assert.Equal(t, 9, cfg.HOG.NumBins)
	assert.Equal(t, 0.8, cfg.Cascade.HighConfidence)
	assert.Equal(t, 0.7, cfg.Cascade.SpecializedConfidence)
	assert.False(t, cfg.Selection.Enabled())
}

func TestLoadDefaultsOnly(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), withEmptyTargets(cfg))
}

// withEmptyTargets normalises the empty targets slice viper hands back.
func withEmptyTargets(c Config) Config {
	if len(c.Selection.Targets) == 0 {
		c.Selection.Targets = nil
	}
	return c
}

func TestLoadFromYAML(t *testing.T) {
	cfg, err := loadYAML(t, `
data:
  train_images: /data/emnist-letters-train-images-idx3-ubyte
  train_labels: /data/emnist-letters-train-labels-idx1-ubyte
  label_offset: 1
  transpose: true
bayes:
  num_bins: 16
  alpha: 0.5
selection:
  method: chi-square
  count: 200
  targets: [8, 11]
  class_specific_count: 40
cascade:
  high_confidence: 0.85
  pairs:
    - {a: 8, b: 11, threshold: 0.65}
    - {a: 14, b: 16, threshold: 0.7}
classes:
  count: 26
  alphabet: letters
workers: 3
`)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Data.LabelOffset)
	assert.True(t, cfg.Data.Transpose)
	assert.Equal(t, BayesConfig{NumBins: 16, Alpha: 0.5}, cfg.Bayes)
	assert.Equal(t, "chi-square", cfg.Selection.Method)
	assert.Equal(t, []int{8, 11}, cfg.Selection.Targets)
	assert.True(t, cfg.Selection.Enabled())
	assert.Equal(t, 0.85, cfg.Cascade.HighConfidence)
	assert.Equal(t, 0.7, cfg.Cascade.SpecializedConfidence, "unset keys keep defaults")
	assert.Equal(t, []PairConfig{{A: 8, B: 11, Threshold: 0.65}, {A: 14, B: 16, Threshold: 0.7}}, cfg.Cascade.Pairs)
	assert.Equal(t, 26, cfg.Classes.Count)
	assert.Equal(t, 3, cfg.Workers)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("GLYPHREC_BAYES_ALPHA", "2.5")
	t.Setenv("GLYPHREC_LOGGING_LEVEL", "debug")

	cfg, err := loadYAML(t, "bayes:\n  alpha: 0.5\n")
	require.NoError(t, err)
	assert.Equal(t, 2.5, cfg.Bayes.Alpha)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"negative alpha", "bayes:\n  alpha: -1\n", "alpha"},
		{"unknown method", "selection:\n  method: entropy\n", "unknown method"},
		{"pair out of range", "cascade:\n  pairs:\n    - {a: 3, b: 12}\n", "pair (3, 12)"},
		{"policy out of range", "cascade:\n  high_confidence: 1.5\n", "high confidence"},
		{"too many classes", "classes:\n  count: 300\n", "classes"},
		{"target out of range", "selection:\n  targets: [10]\n", "target 10"},
		{"fisher as general method", "selection:\n  method: fisher\n  count: 50\n", "fisher needs target classes"},
		{"negative label offset", "data:\n  label_offset: -1\n", "label_offset -1"},
		{"class beyond the offset range", "classes:\n  count: 256\ndata:\n  label_offset: 1\n", "count 256 unreachable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadYAML(t, tt.yaml)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("GLYPHREC_TEST_DIR", "/srv/glyphs")

	assert.Equal(t, "", ExpandPath(""))
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "data", "train.idx"), ExpandPath("~/data/train.idx"))
	assert.Equal(t, "/srv/glyphs/train.idx", ExpandPath("$GLYPHREC_TEST_DIR/train.idx"))
	assert.Equal(t, "/abs/path", ExpandPath("/abs/path"))
}

func TestLoadExpandsPaths(t *testing.T) {
	t.Setenv("GLYPHREC_TEST_DIR", "/srv/glyphs")
	cfg, err := loadYAML(t, "data:\n  test_images: $GLYPHREC_TEST_DIR/t10k-images\nselection:\n  index_file: $GLYPHREC_TEST_DIR/selected.idx\n")
	require.NoError(t, err)
	assert.Equal(t, "/srv/glyphs/t10k-images", cfg.Data.TestImages)
	assert.Equal(t, "/srv/glyphs/selected.idx", cfg.Selection.IndexFile)
}
