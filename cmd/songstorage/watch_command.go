package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"songstorage/internal/catalog"
	"songstorage/internal/metadata"
	"songstorage/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Report audio files added to or removed from the store outside songstorage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ctx.withLibrary(runCtx, false, func(lib *library) error {
				formats := lib.cfg.Metadata.SupportedFormats
				watcher, err := lib.store.Watch(func(name string) bool {
					return metadata.IsAudioFile(name, formats)
				})
				if err != nil {
					return err
				}
				defer watcher.Close()

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Watching %s (Ctrl+C to stop)\n", lib.store.Root())
				for {
					select {
					case <-runCtx.Done():
						return nil
					case change, ok := <-watcher.Changes():
						if !ok {
							return nil
						}
						reportChange(runCtx, lib, change, out)
					}
				}
			})
		},
	}
}

func reportChange(ctx context.Context, lib *library, change store.Change, out io.Writer) {
	song, err := lib.engine.FindByFileName(ctx, change.FileName)
	recorded := err == nil
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		lib.logger.WithError(err).WithField("file_name", change.FileName).Warn("Failed to look up changed file")
		return
	}

	fields := logrus.Fields{"file_name": change.FileName, "change": change.Kind.String()}
	switch {
	case change.Kind == store.FileRemoved && recorded:
		lib.logger.WithFields(fields).Warn("Catalogued file removed from the store")
		fmt.Fprintf(out, "%s removed but still catalogued as %q (id %s)\n", change.FileName, song.Title, song.ID)
	case change.Kind == store.FileCreated && !recorded:
		lib.logger.WithFields(fields).Warn("Uncatalogued file appeared in the store")
		fmt.Fprintf(out, "%s appeared in the store without a catalog record\n", change.FileName)
	default:
		lib.logger.WithFields(fields).Debug("Store change matches catalog")
	}
}
