package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report stored files without a record and records without a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(cmd.Context(), false, func(lib *library) error {
				report, err := lib.engine.Check(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if report.Consistent() {
					fmt.Fprintln(out, "Store and catalog are consistent")
					return nil
				}

				tw := newTableWriter([]column{{title: "Problem"}, {title: "File"}, {title: "Record"}})
				for _, name := range report.Orphans {
					appendRow(tw, "orphan file", name, "-")
				}
				for _, song := range report.Missing {
					appendRow(tw, "missing file", song.FileName, song.ID)
				}
				fmt.Fprintln(out, tw.Render())
				problems := len(report.Orphans) + len(report.Missing)
				return fmt.Errorf("%d inconsistencies found", problems)
			})
		},
	}
}
