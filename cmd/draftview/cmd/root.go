// Package cmd implements the draftview command line.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/inamate/draftview/internal/config"
	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/raster"
)

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	profile string
	font    string
	verbose bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "draftview",
		Short: "Render and inspect CAD drawings",
		Long: `Render CAD drawing documents to PNG, inspect their extents, pick
entities at screen positions and browse them in the terminal.

Examples:
  draftview sample -o plan.json                       # Write the sample drawing
  draftview render plan.json -o plan.png --lod        # Render to PNG
  draftview render plan.json --hide walls --space paper
  draftview pick plan.json --x 400 --y 300            # Which entity is under a pixel
  draftview watch plan.json -o plan.png               # Re-render on every save
  draftview view plan.json                            # Interactive terminal viewer`,
		Version:       "0.3.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.profile, "profile", "", "render profile (TOML)")
	root.PersistentFlags().StringVar(&g.font, "font", "", "TrueType font for text (default Go Regular)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newRenderCmd(g),
		newBoundsCmd(g),
		newPickCmd(g),
		newWatchCmd(g),
		newViewCmd(g),
		newSampleCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (g *globalOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (g *globalOptions) engineOptions(logger *slog.Logger) (config.Profile, engine.Options, error) {
	profile, err := config.LoadProfile(g.profile)
	if err != nil {
		return config.Profile{}, engine.Options{}, err
	}
	return profile, profile.EngineOptions(logger), nil
}

func (g *globalOptions) rasterOptions(logger *slog.Logger) (raster.Options, error) {
	profile, opts, err := g.engineOptions(logger)
	if err != nil {
		return raster.Options{}, err
	}
	font, err := raster.LoadFont(g.font)
	if err != nil {
		return raster.Options{}, err
	}
	raster.SetLogger(logger)
	return raster.Options{
		Background: profile.Background,
		Font:       font,
		Engine:     opts,
	}, nil
}

// readDocument decodes a drawing from path, or from stdin when path is "-".
func readDocument(cmd *cobra.Command, path string) (*document.Document, error) {
	if path == "-" {
		return document.Decode(cmd.InOrStdin())
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := document.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

func parseSpace(s string) (document.Space, error) {
	switch document.Space(s) {
	case "", document.ModelSpace:
		return document.ModelSpace, nil
	case document.PaperSpace:
		return document.PaperSpace, nil
	}
	return "", fmt.Errorf("unknown space %q (want model or paper)", s)
}
