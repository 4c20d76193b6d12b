package overlay

import "math"

// Monitor describes one display in device pixels. Scale is the device pixel
// ratio; 1 means no scaling.
type Monitor struct {
	Name   string
	X, Y   int
	Width  int
	Height int
	Scale  float64
}

type Point struct{ X, Y int }

type Size struct{ Width, Height int }

// Display enumerates the attached monitors.
type Display interface {
	Monitors() []Monitor
}

// StaticDisplay is a Display with a fixed monitor list.
type StaticDisplay []Monitor

func (d StaticDisplay) Monitors() []Monitor { return d }

// Center returns the logical position that centers size on m. Bounds are
// divided by the monitor's scale before centering.
func Center(m Monitor, size Size) Point {
	scale := m.Scale
	if scale <= 0 {
		scale = 1
	}
	left := float64(m.X)/scale + (float64(m.Width)/scale-float64(size.Width))/2
	top := float64(m.Y)/scale + (float64(m.Height)/scale-float64(size.Height))/2
	return Point{X: int(math.Round(left)), Y: int(math.Round(top))}
}

// Select returns monitors[index], falling back to the first monitor when the
// index is out of range. ok is false only when there are no monitors.
func Select(monitors []Monitor, index int) (Monitor, bool) {
	if len(monitors) == 0 {
		return Monitor{}, false
	}
	if index < 0 || index >= len(monitors) {
		index = 0
	}
	return monitors[index], true
}
