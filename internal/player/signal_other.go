//go:build !unix

package player

import (
	"errors"
	"os"
)

// ErrPauseUnsupported is returned where processes cannot be suspended.
var ErrPauseUnsupported = errors.New("pause is not supported on this platform")

func suspend(p *os.Process) error {
	return ErrPauseUnsupported
}

func resume(p *os.Process) error {
	return ErrPauseUnsupported
}
