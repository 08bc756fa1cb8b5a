// Package player drives playback of a stored file through an audio engine.
package player

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNoTrack is returned by Start when nothing is loaded and no path is given.
var ErrNoTrack = errors.New("no track to play")

// PlaybackState is the controller's position in Stopped -> Playing <-> Paused.
type PlaybackState int

const (
	Stopped PlaybackState = iota
	Playing
	Paused
)

func (s PlaybackState) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Status is a snapshot of the controller.
type Status struct {
	State     PlaybackState `json:"state"`
	Path      string        `json:"path,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// AudioEngine plays one file at a time.
type AudioEngine interface {
	Load(path string) error
	Play() error
	Pause() error
	Unpause() error
	Stop() error
	// Busy reports whether the loaded track is still playing or paused.
	Busy() bool
}

// Controller owns the playback state machine and notifies listeners of
// every transition.
type Controller struct {
	engine    AudioEngine
	status    Status
	mutex     sync.Mutex
	listeners []chan Status
	logger    *logrus.Logger
}

// NewController creates a stopped controller.
func NewController(engine AudioEngine, logger *logrus.Logger) *Controller {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Controller{
		engine: engine,
		status: Status{State: Stopped, UpdatedAt: time.Now()},
		logger: logger,
	}
}

// Start plays path from Stopped and resumes from Paused. While Playing it
// does nothing, so a repeated start never plays the track twice.
func (c *Controller) Start(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.settle()
	switch c.status.State {
	case Playing:
		return nil
	case Paused:
		if err := c.engine.Unpause(); err != nil {
			return err
		}
		c.transition(Playing, c.status.Path)
		return nil
	}

	if path == "" {
		return ErrNoTrack
	}
	if err := c.engine.Load(path); err != nil {
		return err
	}
	if err := c.engine.Play(); err != nil {
		return err
	}
	c.transition(Playing, path)
	return nil
}

// Pause suspends playback. It is a no-op unless Playing.
func (c *Controller) Pause() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.settle()
	if c.status.State != Playing {
		return nil
	}
	if err := c.engine.Pause(); err != nil {
		return err
	}
	c.transition(Paused, c.status.Path)
	return nil
}

// Stop ends playback from any state and releases the loaded track.
func (c *Controller) Stop() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.status.State == Stopped {
		return nil
	}
	err := c.engine.Stop()
	c.transition(Stopped, "")
	return err
}

// State returns the current state, settling to Stopped when the track ended.
func (c *Controller) State() PlaybackState {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.settle()
	return c.status.State
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.settle()
	return c.status
}

// Subscribe adds a listener for state changes.
func (c *Controller) Subscribe() <-chan Status {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ch := make(chan Status, 10)
	c.listeners = append(c.listeners, ch)
	return ch
}

// Unsubscribe removes and closes a listener.
func (c *Controller) Unsubscribe(ch <-chan Status) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for i, listener := range c.listeners {
		if listener == ch {
			close(listener)
			c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
			break
		}
	}
}

// settle moves a finished track to Stopped. Must be called with the lock held.
func (c *Controller) settle() {
	if c.status.State == Playing && !c.engine.Busy() {
		c.logger.WithField("path", c.status.Path).Debug("Track finished")
		c.transition(Stopped, "")
	}
}

// transition records the new state and notifies listeners. Must be called
// with the lock held.
func (c *Controller) transition(state PlaybackState, path string) {
	c.status = Status{State: state, Path: path, UpdatedAt: time.Now()}
	c.logger.WithFields(logrus.Fields{
		"state": state.String(),
		"path":  path,
	}).Debug("Playback state changed")

	kept := c.listeners[:0]
	for _, listener := range c.listeners {
		select {
		case listener <- c.status:
			kept = append(kept, listener)
		default:
			// Slow listener, drop it.
			close(listener)
		}
	}
	c.listeners = kept
}
