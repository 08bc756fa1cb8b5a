package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	var selection int
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <title>",
		Short: "Remove a song from the catalog and the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrompter(cmd)
			return ctx.withLibrary(cmd.Context(), true, func(lib *library) error {
				matches, err := lib.engine.FindByTitle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				song, err := p.chooseSong(matches, selection)
				if err != nil {
					return err
				}

				ok, err := p.confirm(fmt.Sprintf("Delete %s (%s by %s)?", song.FileName, song.Title, song.Artist), yes)
				if err != nil {
					return err
				}
				res, err := lib.engine.Delete(cmd.Context(), song, ok)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				switch {
				case res.Declined:
					fmt.Fprintln(out, "Nothing deleted")
				case res.FileRemoved:
					fmt.Fprintf(out, "Deleted %s\n", song.FileName)
				default:
					fmt.Fprintf(out, "Deleted record for %s (file was already missing)\n", song.FileName)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&selection, "select", 0, "1-based choice when several songs share the title")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking for confirmation")
	return cmd
}
