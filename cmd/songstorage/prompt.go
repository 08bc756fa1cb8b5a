package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"songstorage/internal/catalog"
	"songstorage/pkg/models"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// errNeedsTerminal is returned when a choice must be made but stdin is not a
// terminal and no flag supplied the answer.
var errNeedsTerminal = errors.New("input required: run in a terminal or pass the answer as a flag")

type prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{
		in:          bufio.NewReader(in),
		out:         cmd.OutOrStdout(),
		interactive: isTerminal(in),
	}
}

func isTerminal(r io.Reader) bool {
	file, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// ask prints label and returns the trimmed answer line.
func (p *prompter) ask(label string) (string, error) {
	if !p.interactive {
		return "", errNeedsTerminal
	}
	fmt.Fprint(p.out, label)
	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a y/n question. The yes flag answers it up front.
func (p *prompter) confirm(question string, yes bool) (bool, error) {
	if yes {
		return true, nil
	}
	answer, err := p.ask(question + " (y/n): ")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(answer, "y") || strings.EqualFold(answer, "yes"), nil
}

// chooseSong disambiguates matches. A single match is taken as is; otherwise
// the numbered list is shown and the selection read, unless selectFlag > 0.
func (p *prompter) chooseSong(matches []models.Song, selectFlag int) (models.Song, error) {
	if selectFlag > 0 {
		return catalog.Select(matches, selectFlag)
	}
	if len(matches) == 1 {
		return matches[0], nil
	}

	fmt.Fprintln(p.out, renderSongs(matches, true))
	answer, err := p.ask(fmt.Sprintf("Select a song (1-%d): ", len(matches)))
	if err != nil {
		return models.Song{}, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		return models.Song{}, &catalog.Error{Op: "select", Kind: catalog.ErrInvalidSelection, Err: fmt.Errorf("%q is not a number", answer)}
	}
	return catalog.Select(matches, n)
}

// trimPath strips whitespace and the quotes shells and file managers add
// around dragged-in paths.
func trimPath(path string) string {
	path = strings.TrimSpace(path)
	if len(path) >= 2 {
		if (path[0] == '"' && path[len(path)-1] == '"') || (path[0] == '\'' && path[len(path)-1] == '\'') {
			path = path[1 : len(path)-1]
		}
	}
	return path
}
