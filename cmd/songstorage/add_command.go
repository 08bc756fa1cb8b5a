package main

import (
	"fmt"
	"strings"

	"songstorage/internal/metadata"
	"songstorage/pkg/models"

	"github.com/spf13/cobra"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var fields metadataFlags
	var fromTags bool

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Copy an audio file into the store and catalog it",
		Long: `Copy an audio file into the store and record its metadata.

Metadata comes from the flags when any is given, otherwise from the file's
embedded tags. In a terminal without flags you are asked whether to type it in.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := trimPath(args[0])
			p := newPrompter(cmd)

			user := fields.userFields(cmd)
			if user == nil && !fromTags && p.interactive {
				var err error
				if user, err = promptUserFields(p); err != nil {
					return err
				}
			}

			return ctx.withLibrary(cmd.Context(), true, func(lib *library) error {
				if !metadata.IsAudioFile(path, lib.cfg.Metadata.SupportedFormats) {
					lib.logger.WithField("filePath", path).Warn("File extension is not a configured audio format")
				}
				res, err := lib.engine.Add(cmd.Context(), path, user)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Added %s (id %s)\n", res.Song.FileName, res.ID)
				fmt.Fprintln(out, renderSong(res.Song))
				return nil
			})
		},
	}

	fields.register(cmd)
	cmd.Flags().BoolVar(&fromTags, "tags", false, "Read metadata from the file without prompting")
	return cmd
}

// metadataFlags are the five user-editable fields as command flags.
type metadataFlags struct {
	values [5]string
}

func (m *metadataFlags) register(cmd *cobra.Command) {
	for i, f := range models.MetadataFields {
		cmd.Flags().StringVar(&m.values[i], string(f), "", "Song "+string(f))
	}
}

// userFields returns nil when no metadata flag was set.
func (m *metadataFlags) userFields(cmd *cobra.Command) *models.UserFields {
	set := false
	for _, f := range models.MetadataFields {
		if cmd.Flags().Changed(string(f)) {
			set = true
		}
	}
	if !set {
		return nil
	}
	return &models.UserFields{
		Title:  m.values[0],
		Artist: m.values[1],
		Album:  m.values[2],
		Year:   m.values[3],
		Genre:  m.values[4],
	}
}

func promptUserFields(p *prompter) (*models.UserFields, error) {
	answer, err := p.ask("Enter metadata for the song? (y/n): ")
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(answer, "y") {
		return nil, nil
	}

	fmt.Fprintln(p.out, "Press enter to skip a field")
	values := make([]string, len(models.MetadataFields))
	for i, f := range models.MetadataFields {
		if values[i], err = p.ask(fmt.Sprintf("Enter %s: ", f)); err != nil {
			return nil, err
		}
	}
	return &models.UserFields{
		Title:  values[0],
		Artist: values[1],
		Album:  values[2],
		Year:   values[3],
		Genre:  values[4],
	}, nil
}
