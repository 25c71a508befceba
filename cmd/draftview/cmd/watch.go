package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// settle is how long a file must stay quiet before it is re-read. Editors
// often save in several writes.
const settle = 150 * time.Millisecond

func newWatchCmd(g *globalOptions) *cobra.Command {
	o := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-render a drawing to PNG whenever it is saved",
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
			in, out := args[0], o.outputPath(args[0])
			if in == "-" || out == "-" {
				return fmt.Errorf("watch needs a file for input and output")
			}

			render := func() {
				doc, err := readDocument(cmd, in)
				if err != nil {
					logger.Error("read failed", "file", in, "error", err)
					return
				}
				res, err := renderTo(nil, out, doc, opts)
				if err != nil {
					logger.Error("render failed", "file", in, "error", err)
					return
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "%s wrote %s (drawn %d, skipped %d)\n",
					time.Now().Format(time.TimeOnly), out, res.Stats.Drawn, res.Stats.Skipped)
			}
			render()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watchFile(ctx, in, settle, logger, render)
		},
	}
	o.addFlags(cmd)
	return cmd
}

// watchFile calls onChange after path is written or replaced and then stays
// unchanged for delay. It watches the parent directory so editors that save by
// renaming a temporary file are seen too. It returns when ctx is done.
func watchFile(ctx context.Context, path string, delay time.Duration, logger *slog.Logger, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			logger.Debug("file changed", "file", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.AfterFunc(delay, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(delay)
			}
		case <-fire:
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}
