package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

type pickResult struct {
	Hit      bool          `json:"hit"`
	EntityID string        `json:"entityId,omitempty"`
	Kind     document.Kind `json:"kind,omitempty"`
	Layer    string        `json:"layer,omitempty"`
	Screen   geom.Point    `json:"screen"`
	Document geom.Point    `json:"document"`
}

func newPickCmd(g *globalOptions) *cobra.Command {
	var (
		x, y          float64
		width, height int
		space         string
		lod           bool
	)
	cmd := &cobra.Command{
		Use:   "pick FILE",
		Short: "Report the entity under a pixel of the fitted view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sp, err := parseSpace(space)
			if err != nil {
				return err
			}
			_, opts, err := g.engineOptions(g.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}

			eng := engine.NewEngine(opts)
			eng.SetSpace(sp)
			if err := eng.LoadDocument(doc); err != nil {
				return err
			}
			eng.SetLevelOfDetailEnabled(lod)
			eng.SetViewportSize(geom.Size{Width: float64(width), Height: float64(height)})
			if _, _, err := eng.RenderCommands(); err != nil {
				return err
			}

			p := geom.Pt(x, y)
			res := pickResult{Screen: p, Document: eng.ScreenToDocument(p)}
			if e, ok := eng.Pick(p); ok {
				h := e.Head()
				res.Hit, res.EntityID, res.Kind, res.Layer = true, h.ID, e.Kind(), h.Layer
				if h.OnDefaultLayer() {
					res.Layer = document.DefaultLayer
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "screen x in pixels")
	cmd.Flags().Float64Var(&y, "y", 0, "screen y in pixels")
	cmd.Flags().IntVar(&width, "width", 1024, "viewport width in pixels")
	cmd.Flags().IntVar(&height, "height", 768, "viewport height in pixels")
	cmd.Flags().StringVar(&space, "space", "model", "model or paper")
	cmd.Flags().BoolVar(&lod, "lod", false, "skip entities too small to see")
	cmd.MarkFlagRequired("x")
	cmd.MarkFlagRequired("y")
	return cmd
}
