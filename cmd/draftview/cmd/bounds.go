package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/inamate/draftview/internal/document"
	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/geom"
)

// extent is the JSON printed by the bounds command.
type extent struct {
	ID       string                `json:"id"`
	Space    document.Space        `json:"space"`
	Bounds   geom.BoundingBox      `json:"bounds"`
	Width    float64               `json:"width"`
	Height   float64               `json:"height"`
	Entities int                   `json:"entities"`
	Kinds    map[document.Kind]int `json:"kinds"`
	Layers   map[string]int        `json:"layers"`
}

func newBoundsCmd(g *globalOptions) *cobra.Command {
	var space string
	cmd := &cobra.Command{
		Use:   "bounds FILE",
		Short: "Print the extent and entity counts of a drawing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sp, err := parseSpace(space)
			if err != nil {
				return err
			}
			doc, err := readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(measure(doc, sp))
		},
	}
	cmd.Flags().StringVar(&space, "space", "model", "model or paper")
	return cmd
}

func measure(doc *document.Document, space document.Space) extent {
	entities := doc.Entities(space)
	ext := extent{
		ID:       doc.ID,
		Space:    space,
		Bounds:   engine.ComputeBounds(entities),
		Entities: len(entities),
		Kinds:    make(map[document.Kind]int),
		Layers:   make(map[string]int),
	}
	ext.Width, ext.Height = ext.Bounds.Width(), ext.Bounds.Height()
	for _, e := range entities {
		if e == nil {
			continue
		}
		ext.Kinds[e.Kind()]++
		layer := e.Head().Layer
		if e.Head().OnDefaultLayer() {
			layer = document.DefaultLayer
		}
		ext.Layers[layer]++
	}
	return ext
}
