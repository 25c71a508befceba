package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/inamate/draftview/internal/engine"
	"github.com/inamate/draftview/internal/termview"
)

func newViewCmd(g *globalOptions) *cobra.Command {
	var (
		space  string
		lod    bool
		follow bool
	)
	cmd := &cobra.Command{
		Use:   "view FILE",
		Short: "Browse a drawing in the terminal",
		Long: `Browse a drawing in the terminal.

Drag with the left or middle button to pan and use the wheel to zoom at the
cursor. Click an entity to select it.

Keys: f fit, r reset, +/- zoom, arrows pan, l level of detail, p model/paper,
x clear selection, q quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sp, err := parseSpace(space)
			if err != nil {
				return err
			}
			path := args[0]
			if path == "-" {
				return errors.New("view needs a file; stdin is the terminal")
			}
			doc, err := readDocument(cmd, path)
			if err != nil {
				return err
			}
			// Logs are held until the screen is released.
			var logs bytes.Buffer
			logger := g.logger(&logs)
			_, opts, err := g.engineOptions(logger)
			if err != nil {
				return err
			}

			eng := engine.NewEngine(opts)
			eng.SetSpace(sp)
			if err := eng.LoadDocument(doc); err != nil {
				return err
			}
			eng.SetLevelOfDetailEnabled(lod)

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("open terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("init terminal: %w", err)
			}

			viewer := termview.NewViewer(screen, eng, logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
			defer stop()
			watchCtx, cancelWatch := context.WithCancel(ctx)
			done := make(chan struct{})
			go func() {
				defer close(done)
				if !follow {
					return
				}
				err := watchFile(watchCtx, path, settle, logger, func() {
					next, err := readDocument(cmd, path)
					if err != nil {
						logger.Error("reload failed", "file", path, "error", err)
						return
					}
					viewer.Reload(next)
				})
				if err != nil {
					logger.Error("watch failed", "file", path, "error", err)
				}
			}()

			err = viewer.Run(ctx)
			cancelWatch()
			<-done
			screen.Fini()
			io.Copy(cmd.ErrOrStderr(), &logs)
			return err
		},
	}
	cmd.Flags().StringVar(&space, "space", "model", "model or paper")
	cmd.Flags().BoolVar(&lod, "lod", true, "skip entities too small to see")
	cmd.Flags().BoolVar(&follow, "follow", true, "reload when the file is saved")
	return cmd
}
