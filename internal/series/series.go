// Package series keeps fixed-window sample buffers for live plots.
package series

import (
	"sync"
	"time"
)

// Sample is one point of a series. Elapsed is the time since the previous sample
// (zero for the first sample after a reset) and Values holds one value per line.
type Sample struct {
	Elapsed time.Duration `json:"elapsed"`
	Values  []float64     `json:"values"`
}

// Window is a ring buffer holding the most recent samples of a series with a fixed
// number of lines. It is safe for concurrent use.
type Window struct {
	mu      sync.RWMutex
	name    string
	unit    string
	lines   int
	size    int
	buf     []Sample
	next    int
	full    bool
	last    time.Time
	initial []float64
}

// NewWindow creates a series of size samples with the given number of lines.
// initial, when non-nil, is the value a Reset refills the window with.
func NewWindow(name, unit string, lines, size int, initial []float64) *Window {
	if lines < 1 {
		lines = 1
	}
	if size < 1 {
		size = 1
	}
	w := &Window{name: name, unit: unit, lines: lines, size: size, buf: make([]Sample, size)}
	if initial != nil {
		w.initial = append([]float64(nil), initial...)
		w.fill(w.initial)
	}
	return w
}

// Name returns the series name
func (w *Window) Name() string { return w.name }

// Unit returns the y-axis unit
func (w *Window) Unit() string { return w.unit }

// Lines returns the number of values per sample
func (w *Window) Lines() int { return w.lines }

// Add appends a sample taken at now. Missing trailing values repeat the previous
// sample's value for that line.
func (w *Window) Add(now time.Time, values ...float64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var elapsed time.Duration
	if !w.last.IsZero() {
		elapsed = now.Sub(w.last)
	}
	w.last = now

	vals := make([]float64, w.lines)
	prev := w.latestLocked()
	for i := range vals {
		switch {
		case i < len(values):
			vals[i] = values[i]
		case prev != nil:
			vals[i] = prev.Values[i]
		}
	}

	w.buf[w.next] = Sample{Elapsed: elapsed, Values: vals}
	w.next = (w.next + 1) % w.size
	if w.next == 0 {
		w.full = true
	}
}

func (w *Window) latestLocked() *Sample {
	if !w.full && w.next == 0 {
		return nil
	}
	idx := (w.next - 1 + w.size) % w.size
	return &w.buf[idx]
}

// Latest returns the most recent sample
func (w *Window) Latest() (Sample, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s := w.latestLocked()
	if s == nil {
		return Sample{}, false
	}
	return copySample(*s), true
}

// Samples returns the buffered samples, oldest first
func (w *Window) Samples() []Sample {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var out []Sample
	if w.full {
		out = make([]Sample, 0, w.size)
		for i := 0; i < w.size; i++ {
			out = append(out, copySample(w.buf[(w.next+i)%w.size]))
		}
		return out
	}
	out = make([]Sample, 0, w.next)
	for i := 0; i < w.next; i++ {
		out = append(out, copySample(w.buf[i]))
	}
	return out
}

// Reset empties the window. A window created with an initial value is refilled
// with its most recent sample (or the initial value if it has none), so a 2-D
// track keeps its last known position.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	var keep []float64
	if w.initial != nil {
		keep = w.initial
		if s := w.latestLocked(); s != nil {
			keep = append([]float64(nil), s.Values...)
		}
	}
	w.buf = make([]Sample, w.size)
	w.next = 0
	w.full = false
	w.last = time.Time{}
	if keep != nil {
		w.fill(keep)
	}
}

func (w *Window) fill(values []float64) {
	for i := range w.buf {
		vals := make([]float64, w.lines)
		copy(vals, values)
		w.buf[i] = Sample{Values: vals}
	}
	w.next = 0
	w.full = true
}

func copySample(s Sample) Sample {
	return Sample{Elapsed: s.Elapsed, Values: append([]float64(nil), s.Values...)}
}

// Set is a named collection of windows
type Set struct {
	order   []string
	windows map[string]*Window
}

// NewSet creates an empty Set
func NewSet() *Set {
	return &Set{windows: make(map[string]*Window)}
}

// Add registers a window; a window with the same name is replaced
func (s *Set) Add(w *Window) {
	if _, ok := s.windows[w.name]; !ok {
		s.order = append(s.order, w.name)
	}
	s.windows[w.name] = w
}

// Get returns the window with the given name
func (s *Set) Get(name string) (*Window, bool) {
	w, ok := s.windows[name]
	return w, ok
}

// Names returns the window names in registration order
func (s *Set) Names() []string {
	return append([]string(nil), s.order...)
}

// ResetAll resets every window
func (s *Set) ResetAll() {
	for _, name := range s.order {
		s.windows[name].Reset()
	}
}
