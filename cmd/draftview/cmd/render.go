package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/raster"
)

type renderOptions struct {
	output string
	width  int
	height int
	lod    bool
	hide   []string
	sel    string
	space  string
}

func (o *renderOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "output PNG (default FILE with .png, - for stdout)")
	cmd.Flags().IntVar(&o.width, "width", 1024, "image width in pixels")
	cmd.Flags().IntVar(&o.height, "height", 768, "image height in pixels")
	cmd.Flags().BoolVar(&o.lod, "lod", false, "skip entities too small to see")
	cmd.Flags().StringSliceVar(&o.hide, "hide", nil, "layers to hide (repeatable)")
	cmd.Flags().StringVar(&o.sel, "select", "", "entity ID to highlight")
	cmd.Flags().StringVar(&o.space, "space", "model", "model or paper")
}

func (o *renderOptions) outputPath(input string) string {
	if o.output != "" {
		return o.output
	}
	if input == "-" {
		return "-"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".png"
}

func (o *renderOptions) apply(opts raster.Options) (raster.Options, error) {
	if o.width <= 0 || o.height <= 0 {
		return opts, fmt.Errorf("invalid size %dx%d", o.width, o.height)
	}
	space, err := parseSpace(o.space)
	if err != nil {
		return opts, err
	}
	opts.Width, opts.Height = o.width, o.height
	opts.Space = space
	opts.LOD = o.lod
	opts.HideLayers = o.hide
	opts.SelectID = o.sel
	return opts, nil
}

func newRenderCmd(g *globalOptions) *cobra.Command {
	o := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render FILE",
		Short: "Render a drawing to PNG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			base, err := g.rasterOptions(logger)
			if err != nil {
				return err
			}
			opts, err := o.apply(base)
			if err != nil {
				return err
			}
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			out := o.outputPath(args[0])
			res, err := renderTo(cmd.OutOrStdout(), out, doc, opts)
			if err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%dx%d, drawn %d, hidden %d, culled %d, skipped %d)\n",
					out, opts.Width, opts.Height, res.Stats.Drawn, res.Stats.Hidden, res.Stats.Culled, res.Stats.Skipped)
			}
			return nil
		},
	}
	o.addFlags(cmd)
	return cmd
}

// renderTo writes the PNG to stdout for "-", otherwise atomically to path.
func renderTo(stdout io.Writer, path string, doc *document.Document, opts raster.Options) (raster.Result, error) {
	if path == "-" {
		return raster.RenderPNG(stdout, doc, opts)
	}
	data, res, err := raster.PNG(doc, opts)
	if err != nil {
		return res, err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return res, err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return res, err
	}
	return res, nil
}
