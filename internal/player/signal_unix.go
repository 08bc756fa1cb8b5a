//go:build unix

package player

import (
	"os"

	"golang.org/x/sys/unix"
)

func suspend(p *os.Process) error {
	return unix.Kill(p.Pid, unix.SIGSTOP)
}

func resume(p *os.Process) error {
	return unix.Kill(p.Pid, unix.SIGCONT)
}
