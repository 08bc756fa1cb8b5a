package main

import (
	"fmt"
	"strings"

	"songstorage/internal/catalog"
	"songstorage/pkg/models"

	"github.com/spf13/cobra"
)

func newModifyCommand(ctx *commandContext) *cobra.Command {
	var selection int
	var sets []string

	cmd := &cobra.Command{
		Use:   "modify <title>",
		Short: "Edit a song's metadata in the catalog and in the file's tags",
		Long: `Edit a song's metadata.

With --set field=value (repeatable) the changes are saved directly. Otherwise
an edit loop starts: 1-5 pick title, artist, album, year or genre, "save"
writes the changes and "cancel" discards them.`,
		Args: cobra.ExactArgs(1),
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

				session := catalog.NewEditSession(song)
				if len(sets) > 0 {
					if err := applySets(session, sets); err != nil {
						return err
					}
				} else if saved, err := editLoop(p, session); err != nil || !saved {
					if err == nil {
						fmt.Fprintln(cmd.OutOrStdout(), "Changes discarded")
					}
					return err
				}

				res, err := lib.engine.SaveEdit(cmd.Context(), session)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Updated %s\n", res.Song.FileName)
				fmt.Fprintln(out, renderSong(res.Song))
				for _, w := range res.Warnings {
					fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&selection, "select", 0, "1-based choice when several songs share the title")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to change (title, artist, album, year, genre)")
	return cmd
}

func applySets(session *catalog.EditSession, sets []string) error {
	for _, kv := range sets {
		field, value, ok := strings.Cut(kv, "=")
		if !ok {
			return &catalog.Error{Op: "modify", Kind: catalog.ErrInvalidInput, Err: fmt.Errorf("expected field=value, got %q", kv)}
		}
		if err := session.Set(models.Field(strings.TrimSpace(field)), value); err != nil {
			return err
		}
	}
	return nil
}

// editLoop runs the interactive edit menu. It reports whether the user chose
// to save.
func editLoop(p *prompter, session *catalog.EditSession) (bool, error) {
	for {
		fmt.Fprintln(p.out, renderSong(session.Working()))
		input, err := p.ask("Field number to change, 'save' or 'cancel': ")
		if err != nil {
			return false, err
		}

		command := catalog.ParseEditCommand(input)
		switch command.Action {
		case catalog.EditSave:
			return true, nil
		case catalog.EditCancel:
			session.Cancel()
			return false, nil
		case catalog.EditField:
			value, err := p.ask(fmt.Sprintf("New %s (enter for %q): ", command.Field, models.Sentinel(command.Field)))
			if err != nil {
				return false, err
			}
			if err := session.Set(command.Field, value); err != nil {
				return false, err
			}
		default:
			fmt.Fprintln(p.out, "Invalid choice")
		}
	}
}
