package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner draws a single animated status line until stopped.
type Spinner struct {
	frames   []string
	interval time.Duration

	mu      sync.Mutex
	message string
	stop    chan struct{}
	done    chan struct{}
}

func newSpinner(s spinner.Spinner, message string) *Spinner {
	return &Spinner{
		frames:   s.Frames,
		interval: s.FPS,
		message:  message,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for i := 0; ; i++ {
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			fmt.Printf("\r%s %s", SpinnerStyle.Render(s.frames[i%len(s.frames)]), msg)

			select {
			case <-s.stop:
				fmt.Print("\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop clears the line. It is safe to call more than once.
func (s *Spinner) Stop() {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	<-s.done
}

func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// RunConnectionSpinner starts a Globe spinner for network operations and returns its stop function.
func RunConnectionSpinner(message string) func() {
	sp := newSpinner(spinner.Globe, message)
	sp.Start()
	return sp.Stop
}

// RunWaitingSpinner starts a Points spinner and returns its stop function.
func RunWaitingSpinner(message string) func() {
	sp := newSpinner(spinner.Points, message)
	sp.Start()
	return sp.Stop
}
