package progress

import (
	"sync"

	"github.com/google/uuid"
)

// Detail carries the optional fields of a Progress event.
type Detail struct {
	Text            string
	DownloadedBytes *int64
	TotalBytes      *int64
	ExtractedFiles  *int
	TotalFiles      *int
}

// Bytes returns a Detail for a byte-counted transfer. total <= 0 means unknown.
func Bytes(text string, done, total int64) Detail {
	d := Detail{Text: text, DownloadedBytes: &done}
	if total > 0 {
		d.TotalBytes = &total
	}
	return d
}

// Files returns a Detail for a file-counted extraction.
func Files(text string, done, total int) Detail {
	return Detail{Text: text, ExtractedFiles: &done, TotalFiles: &total}
}

// Tracker emits the events of one run to a sink. It is safe for concurrent
// use, and it guarantees at most one terminal event: once Finish or Fail
// has been called every later call is dropped.
type Tracker struct {
	mu       sync.Mutex
	sink     Sink
	runID    string
	version  uint32
	steps    []string
	terminal bool
}

// NewTracker starts a run for version with the given step names.
func NewTracker(sink Sink, version uint32, steps []string) *Tracker {
	if sink == nil {
		sink = Discard
	}
	return &Tracker{
		sink:    sink,
		runID:   uuid.NewString(),
		version: version,
		steps:   steps,
	}
}

func (t *Tracker) RunID() string { return t.runID }

func (t *Tracker) Version() uint32 { return t.version }

// StepName returns the name of a 1-based step.
func (t *Tracker) StepName(step int) string {
	if step < 1 || step > len(t.steps) {
		return ""
	}
	return t.steps[step-1]
}

// Step emits a Progress event for a 1-based step.
func (t *Tracker) Step(step int, stepProgress float64, d Detail) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminal {
		return
	}

	total := len(t.steps)
	stepProgress = clampUnit(stepProgress)
	t.sink.Emit(Progress{
		RunID:           t.runID,
		Version:         t.version,
		StepsTotal:      total,
		Step:            step,
		StepName:        t.StepName(step),
		StepProgress:    stepProgress,
		OverallPercent:  OverallFromStep(step, stepProgress, total),
		Detail:          d.Text,
		DownloadedBytes: d.DownloadedBytes,
		TotalBytes:      d.TotalBytes,
		ExtractedFiles:  d.ExtractedFiles,
		TotalFiles:      d.TotalFiles,
	})
}

// Finish emits Finished. It reports false if the run had already ended.
func (t *Tracker) Finish(installedPath string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminal {
		return false
	}
	t.terminal = true
	t.sink.Emit(Finished{RunID: t.runID, Version: t.version, InstalledPath: installedPath})
	return true
}

// Fail emits Failed with err's message. It reports false if the run had
// already ended.
func (t *Tracker) Fail(err error) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.terminal {
		return false
	}
	t.terminal = true
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	t.sink.Emit(Failed{RunID: t.runID, Version: t.version, Message: msg})
	return true
}
