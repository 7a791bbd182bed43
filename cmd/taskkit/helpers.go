package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// progress is a terminal spinner whose message can be updated from any goroutine.
type progress struct {
	s *spinner.Spinner
}

func startProgress(w io.Writer, message string) *progress {
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()
	return &progress{s: s}
}

func (p *progress) Update(message string) {
	p.s.Lock()
	p.s.Suffix = " " + message
	p.s.Unlock()
}

func (p *progress) Stop() {
	p.s.Stop()
}
