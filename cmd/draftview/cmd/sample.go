package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/inamate/draftview/internal/document"
)

func newSampleCmd() *cobra.Command {
	var output, id string
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write the sample drawing as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := document.NewSampleDocument(id)
			if output == "" || output == "-" {
				return document.Encode(cmd.OutOrStdout(), doc)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := document.Encode(f, doc); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&id, "id", "dwg_sample", "drawing ID")
	return cmd
}
