package player

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNotLoaded is returned when Play is called before Load.
var ErrNotLoaded = errors.New("no track loaded")

// ExecEngine plays files by running an external player process. Pause and
// resume suspend and continue the process.
type ExecEngine struct {
	command string
	args    []string
	logger  *logrus.Logger

	mu   sync.Mutex
	path string
	cmd  *exec.Cmd
	done chan struct{}
}

// NewExecEngine creates an engine running command with args followed by the
// file path.
func NewExecEngine(command string, args []string, logger *logrus.Logger) *ExecEngine {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &ExecEngine{command: command, args: args, logger: logger}
}

// Load stops any running track and selects path for the next Play.
func (e *ExecEngine) Load(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	if err := e.Stop(); err != nil {
		return err
	}
	e.mu.Lock()
	e.path = path
	e.mu.Unlock()
	return nil
}

// Play starts the player process for the loaded file.
func (e *ExecEngine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.path == "" {
		return ErrNotLoaded
	}
	args := append(append([]string{}, e.args...), e.path)
	cmd := exec.Command(e.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", e.command, err)
	}

	done := make(chan struct{})
	go func() {
		if err := cmd.Wait(); err != nil {
			e.logger.WithError(err).WithField("command", e.command).Debug("Player process exited")
		}
		close(done)
	}()

	e.cmd = cmd
	e.done = done
	e.logger.WithFields(logrus.Fields{
		"command": e.command,
		"path":    e.path,
		"pid":     cmd.Process.Pid,
	}).Debug("Player process started")
	return nil
}

// Pause suspends the player process.
func (e *ExecEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running() {
		return nil
	}
	return suspend(e.cmd.Process)
}

// Unpause continues a suspended player process.
func (e *ExecEngine) Unpause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running() {
		return nil
	}
	return resume(e.cmd.Process)
}

// Stop kills the player process and waits for it to exit.
func (e *ExecEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running() {
		e.cmd, e.done = nil, nil
		return nil
	}
	// A suspended process must be continued before it can handle the kill.
	resume(e.cmd.Process)
	if err := e.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("failed to stop player: %w", err)
	}
	<-e.done
	e.cmd, e.done = nil, nil
	return nil
}

// Busy reports whether the player process is still alive.
func (e *ExecEngine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running()
}

func (e *ExecEngine) running() bool {
	if e.cmd == nil {
		return false
	}
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}
