package cli

import (
	"io"
	"sync"

	"github.com/arthur-debert/modsync/pkg/syncer"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
)

// barSink draws a pterm progress bar over the downloading phase.
type barSink struct {
	mu        sync.Mutex
	out       io.Writer
	bar       *pterm.ProgressbarPrinter
	completed int
}

func newBarSink(out io.Writer) *barSink {
	return &barSink{out: out}
}

// OnProgress implements syncer.ProgressSink.
func (s *barSink) OnProgress(e syncer.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.Phase == syncer.PhaseDownloading && s.bar == nil && e.Total > 0 {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(e.Total).
			WithTitle("Downloading").
			WithWriter(s.out).
			Start()
		if err == nil {
			s.bar = bar
		}
	}

	if s.bar != nil {
		if e.Completed > s.completed {
			if e.CurrentFile != "" {
				s.bar.UpdateTitle(e.CurrentFile)
			}
			s.bar.Add(e.Completed - s.completed)
			s.completed = e.Completed
		}
		if e.Phase != syncer.PhaseDownloading {
			_, _ = s.bar.Stop()
			s.bar = nil
		}
	}
}

// logSink reports progress as log lines when output is not a terminal.
type logSink struct {
	logger zerolog.Logger
	last   syncer.Phase
}

// OnProgress implements syncer.ProgressSink.
func (s *logSink) OnProgress(e syncer.Event) {
	if e.Phase == syncer.PhaseDownloading && e.CurrentFile != "" {
		s.logger.Info().
			Str("file", e.CurrentFile).
			Int("completed", e.Completed).
			Int("total", e.Total).
			Msg("Downloaded")
	}
	if e.Phase == s.last {
		return
	}
	s.last = e.Phase
	s.logger.Debug().Str("phase", string(e.Phase)).Float64("percent", e.Percent).Msg("Sync phase")
}
