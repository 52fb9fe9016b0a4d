package main

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"dumpmigrate/internal/runner"
)

// barSink renders run progress as a single terminal bar: one bar for the
// whole migration, with the current phase name alongside the percentage.
// It implements runner.Sink.
type barSink struct {
	p   *mpb.Progress
	bar *mpb.Bar

	mu    sync.Mutex
	phase runner.Phase
	done  bool
}

func newBarSink(w io.Writer) *barSink {
	s := &barSink{phase: runner.PhasePreviewing}
	s.p = mpb.New(mpb.WithOutput(w), mpb.WithWidth(48))
	s.bar = s.p.AddBar(100,
		mpb.PrependDecorators(
			decor.Name("migrate", decor.WCSyncSpaceR),
			decor.Any(func(decor.Statistics) string {
				return string(s.currentPhase())
			}, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(decor.Percentage(decor.WCSyncSpace)),
	)
	return s
}

func (s *barSink) currentPhase() runner.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Publish implements runner.Sink. Done completes the bar; Failed drops it so
// the error text prints on a clean line.
func (s *barSink) Publish(e runner.Event) {
	s.mu.Lock()
	s.phase = e.Phase
	finished := e.Phase == runner.PhaseDone || e.Phase == runner.PhaseFailed
	if finished {
		s.done = true
	}
	s.mu.Unlock()

	switch {
	case e.Phase == runner.PhaseFailed:
		s.bar.Abort(true)
	case e.Phase == runner.PhaseDone:
		s.bar.SetTotal(100, true)
	default:
		s.bar.SetCurrent(int64(e.Percent))
	}
}

// Close settles the bar and waits for the renderer so the final frame lands
// before any summary output. A run that returned without a terminal event
// counts as aborted.
func (s *barSink) Close() {
	s.mu.Lock()
	settled := s.done
	s.done = true
	s.mu.Unlock()

	if !settled {
		s.bar.Abort(true)
	}
	s.p.Wait()
}
