package main

import (
	"fmt"

	"songstorage/pkg/models"

	"github.com/spf13/cobra"
)

// criteriaFlags collect exact-match search criteria.
type criteriaFlags struct {
	values map[models.Field]*string
}

func (c *criteriaFlags) register(cmd *cobra.Command, withFormat bool) {
	fields := append([]models.Field{}, models.MetadataFields...)
	if withFormat {
		fields = append(fields, models.FieldFormat)
	}
	c.values = make(map[models.Field]*string, len(fields))
	for _, f := range fields {
		v := new(string)
		c.values[f] = v
		cmd.Flags().StringVar(v, string(f), "", "Match "+string(f)+" exactly")
	}
}

func (c *criteriaFlags) criteria() models.Criteria {
	criteria := models.Criteria{}
	for f, v := range c.values {
		if *v != "" {
			criteria[f] = *v
		}
	}
	return criteria
}

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var flags criteriaFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List catalogued songs matching every given field",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLibrary(cmd.Context(), false, func(lib *library) error {
				songs, err := lib.engine.Search(cmd.Context(), flags.criteria())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(songs) == 0 {
					fmt.Fprintln(out, "No matches")
					return nil
				}
				fmt.Fprintln(out, renderSongs(songs, false))
				fmt.Fprintf(out, "%d song(s)\n", len(songs))
				return nil
			})
		},
	}

	flags.register(cmd, true)
	return cmd
}
