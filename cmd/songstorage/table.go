package main

import (
	"fmt"
	"strconv"

	"songstorage/pkg/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column is a table heading; numeric columns are right aligned.
type column struct {
	title   string
	numeric bool
}

var (
	numberColumn = column{title: "#", numeric: true}
	songColumns  = []column{
		{title: "File"}, {title: "Title"}, {title: "Artist"}, {title: "Album"},
		{title: "Year"}, {title: "Genre"}, {title: "Length", numeric: true},
	}
)

func newTableWriter(columns []column) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, c := range columns {
		header[i] = c.title
		configs[i] = table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
		if c.numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)
	return tw
}

func appendRow(tw table.Writer, cells ...string) {
	row := make(table.Row, len(cells))
	for i, cell := range cells {
		row[i] = cell
	}
	tw.AppendRow(row)
}

// renderSongs lists songs one per row; numbered adds the 1-based selection
// column used for disambiguation.
func renderSongs(songs []models.Song, numbered bool) string {
	columns := songColumns
	if numbered {
		columns = append([]column{numberColumn}, songColumns...)
	}

	tw := newTableWriter(columns)
	for i, s := range songs {
		cells := []string{s.FileName, s.Title, s.Artist, s.Album, s.Year, s.Genre, formatDuration(s.Duration)}
		if numbered {
			cells = append([]string{strconv.Itoa(i + 1)}, cells...)
		}
		appendRow(tw, cells...)
	}
	return tw.Render()
}

// renderSong shows one record's metadata fields numbered as in the edit loop.
func renderSong(s models.Song) string {
	tw := newTableWriter([]column{numberColumn, {title: "Field"}, {title: "Value"}})
	for i, f := range models.MetadataFields {
		appendRow(tw, strconv.Itoa(i+1), string(f), s.Get(f))
	}
	return tw.Render()
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
