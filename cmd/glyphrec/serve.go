package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/glyphrec/internal/logging"
	"github.com/ironsheep/glyphrec/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Train, then serve recognition tools over MCP on stdio",
		Long: `Serve trains the recognizer and then answers Model Context Protocol
requests on stdin/stdout, exposing glyph_recognize, glyph_features,
glyph_preview and model_info. Logs and progress go to stderr.

Configure it in an MCP client as a stdio server:

  {"command": "glyphrec", "args": ["serve", "--config", "/path/to/config.yaml"]}`,
		RunE: runServe,
	}

	addModelFlags(cmd)
	cmd.Flags().String("invert", "auto", "default polarity correction (auto, always, never)")
	cmd.Flags().Int("margin", -1, "blank border around the fitted symbol (-1 = default)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	invert, _ := cmd.Flags().GetString("invert")
	margin, _ := cmd.Flags().GetInt("margin")

	progress := newStageProgress(os.Stderr, progressEnabled())
	rec, _, err := trainRecognizer(ctx, cfg, progress)
	if err != nil {
		return err
	}
	glyph, err := glyphOptions(rec, invert, margin)
	if err != nil {
		return err
	}

	srv := server.New(rec, glyph,
		server.WithLogger(logging.Component(logger, "server")),
		server.WithVersion(Version))
	return srv.Run(ctx, os.Stdin, os.Stdout)
}
