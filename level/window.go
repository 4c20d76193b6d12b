package level

import (
	"slices"
	"time"
)

// Horizon is how long samples are retained, and the largest averaging window.
const Horizon = 5 * time.Second

const epsilon = time.Microsecond

// Sample is one loudness reading.
type Sample struct {
	At    time.Time
	Value float64
}

// Window keeps recent samples in arrival order. It is not safe for concurrent
// use; the owning goroutine serializes access.
type Window struct {
	samples []Sample
}

// Push appends s and evicts every sample older than s.At-Horizon.
func (w *Window) Push(s Sample) {
	w.samples = append(w.samples, s)
	cutoff := s.At.Add(-Horizon)
	w.samples = slices.DeleteFunc(w.samples, func(x Sample) bool {
		return x.At.Before(cutoff)
	})
}

// Average returns the mean of samples taken within window of now. A window at
// or below one microsecond, or one containing no samples, yields instant.
func (w *Window) Average(window time.Duration, instant float64, now time.Time) float64 {
	if window <= epsilon {
		return instant
	}
	cutoff := now.Add(-window)
	var sum float64
	var n int
	for _, s := range w.samples {
		if s.At.Before(cutoff) {
			continue
		}
		sum += s.Value
		n++
	}
	if n == 0 {
		return instant
	}
	return sum / float64(n)
}

func (w *Window) Len() int { return len(w.samples) }

func (w *Window) Reset() { w.samples = w.samples[:0] }

// Oldest returns the earliest retained sample.
func (w *Window) Oldest() (Sample, bool) {
	if len(w.samples) == 0 {
		return Sample{}, false
	}
	return w.samples[0], true
}
