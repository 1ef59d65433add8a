// Package progress defines the structured events a pipeline run emits and
// the sinks that consume them.
package progress

import (
	"math"
	"sync"
)

// Event is one record in a run's ordered event stream.
type Event interface {
	isEvent()
}

// Progress reports the position of a run inside its current step.
type Progress struct {
	RunID          string
	Version        uint32
	StepsTotal     int
	Step           int
	StepName       string
	StepProgress   float64
	OverallPercent float64
	Detail         string

	DownloadedBytes *int64
	TotalBytes      *int64
	ExtractedFiles  *int
	TotalFiles      *int
}

// Finished is the terminal event of a successful run.
type Finished struct {
	RunID         string
	Version       uint32
	InstalledPath string
}

// Failed is the terminal event of a failed run.
type Failed struct {
	RunID   string
	Version uint32
	Message string
}

func (Progress) isEvent() {}
func (Finished) isEvent() {}
func (Failed) isEvent()   {}

// Sink receives events in emission order. Implementations must not block for long.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(Event) {})

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Terminals returns only the Finished and Failed events.
func (r *Recorder) Terminals() []Event {
	var out []Event
	for _, e := range r.Events() {
		switch e.(type) {
		case Finished, Failed:
			out = append(out, e)
		}
	}
	return out
}

// Progresses returns only the Progress events.
func (r *Recorder) Progresses() []Progress {
	var out []Progress
	for _, e := range r.Events() {
		if p, ok := e.(Progress); ok {
			out = append(out, p)
		}
	}
	return out
}

// OverallFromStep maps a position inside a step to a whole-run percentage.
// step is clamped to [1, total] and stepProgress to [0, 1].
func OverallFromStep(step int, stepProgress float64, total int) float64 {
	if total < 1 {
		return 0
	}
	step = min(max(step, 1), total)
	return (float64(step-1) + clampUnit(stepProgress)) / float64(total) * 100
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}
