// Package main contains the glyphrec CLI commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ironsheep/glyphrec/internal/config"
	"github.com/ironsheep/glyphrec/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	cfgFile    string
	noProgress bool
	cfg        config.Config
	logger     = zerolog.Nop()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "glyphrec",
		Short: "Handwritten glyph recognition with HOG features and Naive Bayes",
		Long: `glyphrec trains a discretized Naive Bayes classifier on HOG descriptors of
IDX glyph datasets (MNIST digits, EMNIST letters), optionally with feature
selection and specialized pair classifiers for commonly confused symbols.

Models are trained at start-up from the configured data; only the selected
feature indices are ever written to disk.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}

	// Global flags
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/glyphrec/config.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "console", "log format (console, json)")
	root.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "disable progress bars")
	root.PersistentFlags().Int("workers", 0, "parallel workers (0 = all CPUs)")
	root.PersistentFlags().String("train-images", "", "IDX training image file")
	root.PersistentFlags().String("train-labels", "", "IDX training label file")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", root.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("workers", root.PersistentFlags().Lookup("workers"))
	_ = viper.BindPFlag("data.train_images", root.PersistentFlags().Lookup("train-images"))
	_ = viper.BindPFlag("data.train_labels", root.PersistentFlags().Lookup("train-labels"))

	// Add commands
	root.AddCommand(trainCmd())
	root.AddCommand(selectCmd())
	root.AddCommand(evaluateCmd())
	root.AddCommand(recognizeCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	return root
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info().Msg("received interrupt signal, shutting down")
		cancel()
	}()

	err := newRootCmd().ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandFlags maps flags declared by subcommands onto config keys. Several
// commands declare the same flag, so binding happens for the command being
// run only.
var commandFlags = map[string]string{
	"select-count":         "selection.count",
	"method":               "selection.method",
	"index-file":           "selection.index_file",
	"class-specific-count": "selection.class_specific_count",
	"auto-pairs":           "cascade.auto_pairs",
	"test-images":          "data.test_images",
	"test-labels":          "data.test_labels",
}

func initConfig(cmd *cobra.Command, _ []string) error {
	v := viper.GetViper()
	config.SetDefaults(v)
	for name, key := range commandFlags {
		if f := cmd.Flags().Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}

	// Set up config file
	if cfgFile != "" {
		v.SetConfigFile(config.ExpandPath(cfgFile))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		v.AddConfigPath(fmt.Sprintf("%s/.config/glyphrec", home))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	var err error
	if cfg, err = config.Load(v); err != nil {
		return err
	}

	// Logs always go to stderr; stdout carries reports and the MCP stream.
	if logger, err = logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if f := v.ConfigFileUsed(); f != "" {
		logger.Debug().Str("file", f).Msg("config loaded")
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "glyphrec %s\n", Version)
			fmt.Fprintf(out, "  Build time: %s\n", BuildTime)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
		},
	}
}
