package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"songstorage/internal/catalog"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
			for _, w := range catalog.Warnings(err) {
				fmt.Fprintln(os.Stderr, "warning:", w)
			}
		}
		os.Exit(1)
	}
}
