package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	var flags criteriaFlags

	cmd := &cobra.Command{
		Use:   "archive <name>",
		Short: "Zip the stored files of matching songs into the archive directory",
		Long: `Zip the stored files of every song matching the given fields.

The archive is written to the configured archive directory; ".zip" is
appended when the name has no extension. Songs whose file is missing from the
store are skipped and listed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(cmd.Context(), true, func(lib *library) error {
				res, err := lib.engine.Archive(cmd.Context(), args[0], flags.criteria())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Archived %d file(s) to %s\n", len(res.Added), res.Path)
				for _, name := range res.Skipped {
					fmt.Fprintf(out, "Skipped %s (missing from store)\n", name)
				}
				return nil
			})
		},
	}

	flags.register(cmd, false)
	return cmd
}
