// Package progress shows a spinner on a terminal while a remote call runs.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/pterm/pterm"
)

// Config controls a Spinner.
type Config struct {
	// Enabled turns the animation on. Result lines are printed either way.
	Enabled bool
	Writer  io.Writer
	CharSet int
	Delay   time.Duration
}

// DefaultConfig animates on stderr.
func DefaultConfig() *Config {
	return &Config{
		Enabled: true,
		Writer:  os.Stderr,
		CharSet: 14,
		Delay:   100 * time.Millisecond,
	}
}

// Spinner is a single-operation progress indicator.
type Spinner struct {
	config  *Config
	spinner *spinner.Spinner
	active  bool
	mu      sync.Mutex
}

// NewSpinner creates a spinner. A nil config uses DefaultConfig.
func NewSpinner(config *Config) *Spinner {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Writer == nil {
		config.Writer = os.Stderr
	}

	return &Spinner{config: config}
}

// Start starts the spinner with a message.
func (s *Spinner) Start(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return fmt.Errorf("spinner already active")
	}
	s.active = true

	if !s.config.Enabled {
		return nil
	}

	s.spinner = spinner.New(spinner.CharSets[s.config.CharSet], s.config.Delay, spinner.WithWriter(s.config.Writer))
	s.spinner.Suffix = " " + message
	s.spinner.Start()
	return nil
}

// Success stops the spinner and prints message as a success line.
func (s *Spinner) Success(message string) {
	s.finish(pterm.Success, message)
}

// Failure stops the spinner and prints message as an error line.
func (s *Spinner) Failure(message string) {
	s.finish(pterm.Error, message)
}

// Stop stops the spinner without printing.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// IsActive reports whether the spinner is running.
func (s *Spinner) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Spinner) finish(printer pterm.PrefixPrinter, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return
	}
	s.stopLocked()
	printer.WithWriter(s.config.Writer).Println(message)
}

func (s *Spinner) stopLocked() {
	if s.spinner != nil {
		s.spinner.Stop()
		s.spinner = nil
	}
	s.active = false
}

// Run shows message while fn runs and reports the outcome.
func Run(config *Config, message, done string, fn func() error) error {
	s := NewSpinner(config)
	if err := s.Start(message); err != nil {
		return err
	}

	if err := fn(); err != nil {
		s.Failure(err.Error())
		return err
	}

	s.Success(done)
	return nil
}
