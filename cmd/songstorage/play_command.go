package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"songstorage/internal/player"

	"github.com/spf13/cobra"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var selection int

	cmd := &cobra.Command{
		Use:   "play <title>",
		Short: "Play a stored song with the configured external player",
		Long: `Play a stored song.

In a terminal the commands pause, resume, stop and status control playback.
Otherwise the command returns when the track ends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			return ctx.withLibrary(cmd.Context(), false, func(lib *library) error {
				matches, err := lib.engine.FindByTitle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				song, err := p.chooseSong(matches, selection)
				if err != nil {
					return err
				}

				engine := player.NewExecEngine(lib.cfg.Playback.Command, lib.cfg.Playback.Args, lib.logger)
				controller := player.NewController(engine, lib.logger)
				defer controller.Stop()

				if err := controller.Start(lib.store.ResolvePath(song.FileName)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Playing %s - %s\n", song.Artist, song.Title)

				if !p.interactive {
					return waitForEnd(cmd.Context(), controller)
				}
				return controlLoop(p, controller)
			})
		},
	}

	cmd.Flags().IntVar(&selection, "select", 0, "1-based choice when several songs share the title")
	return cmd
}

func waitForEnd(ctx context.Context, controller *player.Controller) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for controller.State() != player.Stopped {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func controlLoop(p *prompter, controller *player.Controller) error {
	for {
		input, err := p.ask("[pause|resume|stop|status]: ")
		if err != nil {
			return err
		}
		switch strings.ToLower(input) {
		case "pause":
			err = controller.Pause()
		case "resume", "play":
			err = controller.Start("")
		case "stop", "quit", "exit":
			return controller.Stop()
		case "status", "":
		default:
			fmt.Fprintln(p.out, "Invalid choice")
			continue
		}
		if err != nil {
			return err
		}

		state := controller.State()
		fmt.Fprintln(p.out, "Status:", state)
		if state == player.Stopped {
			return nil
		}
	}
}
