package cmd

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/hqlauncher/hq-installer/internal/logging"
	"github.com/hqlauncher/hq-installer/internal/progress"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// newProgressSink draws a progress bar on an interactive terminal and
// falls back to plain step lines otherwise. Verbose mode always uses lines
// so debug output is not interleaved with the bar.
func newProgressSink(out *os.File) progress.Sink {
	if term.IsTerminal(int(out.Fd())) && !logging.Verbose() {
		return &barSink{out: out}
	}
	return &lineSink{}
}

// barSink renders overall progress in per-mille steps.
type barSink struct {
	out  io.Writer
	bar  *progressbar.ProgressBar
	step int
}

func (s *barSink) Emit(e progress.Event) {
	switch ev := e.(type) {
	case progress.Progress:
		if s.bar == nil {
			s.bar = progressbar.NewOptions(1000,
				progressbar.OptionSetWriter(s.out),
				progressbar.OptionSetWidth(30),
				progressbar.OptionSetPredictTime(false),
				progressbar.OptionClearOnFinish(),
			)
		}
		if ev.Step != s.step {
			s.step = ev.Step
			_ = s.bar.Clear()
			logging.Infof("[%d/%d] %s\n", ev.Step, ev.StepsTotal, ev.StepName)
		}
		s.bar.Describe(truncate(ev.Detail, 48))
		_ = s.bar.Set(int(math.Round(ev.OverallPercent * 10)))
	case progress.Finished, progress.Failed:
		if s.bar != nil {
			_ = s.bar.Finish()
			s.bar = nil
		}
	}
}

// lineSink logs each step once, and every detail change in verbose mode.
type lineSink struct {
	step   int
	detail string
}

func (s *lineSink) Emit(e progress.Event) {
	ev, ok := e.(progress.Progress)
	if !ok {
		return
	}
	if ev.Step != s.step {
		s.step = ev.Step
		logging.Infof("[%d/%d] %s\n", ev.Step, ev.StepsTotal, ev.StepName)
	}
	if ev.Detail != "" && ev.Detail != s.detail {
		s.detail = ev.Detail
		logging.Debugf("Verbose: %5.1f%% %s\n", ev.OverallPercent, ev.Detail)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:n-3]))
}
