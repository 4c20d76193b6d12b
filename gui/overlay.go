//go:build gui

package gui

import (
	"runtime"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/go-gl/glfw/v3.3/glfw"

	"noisewarn/log"
	"noisewarn/overlay"
)

// overlayWindow adapts the frameless fyne splash window to overlay.Window.
// Calls may come from any goroutine; the glfw work is queued with fyne.Do.
type overlayWindow struct {
	win fyne.Window

	mu   sync.Mutex
	size overlay.Size
}

func (o *overlayWindow) Size() overlay.Size {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size
}

func (o *overlayWindow) Move(p overlay.Point) {
	fyne.Do(func() {
		if w := glfw.GetCurrentContext(); w != nil {
			s := screenScale(w)
			w.SetPos(int(float32(p.X)*s), int(float32(p.Y)*s))
		}
	})
}

func (o *overlayWindow) SetOpacity(opacity float64) {
	fyne.Do(func() {
		if w := glfw.GetCurrentContext(); w != nil {
			w.SetOpacity(float32(opacity))
		}
	})
}

func (o *overlayWindow) Show() {
	fyne.Do(func() {
		w := glfw.GetCurrentContext()
		if w == nil {
			o.win.Show()
			return
		}
		w.SetAttrib(glfw.FocusOnShow, glfw.False)
		w.SetAttrib(glfw.Floating, glfw.True)
		w.Show()
	})
}

func (o *overlayWindow) Hide() {
	fyne.Do(o.win.Hide)
}

// screenScale converts logical units to glfw screen coordinates. macOS
// screen coordinates are already logical.
func screenScale(w *glfw.Window) float32 {
	if runtime.GOOS == "darwin" {
		return 1
	}
	sx, _ := w.GetContentScale()
	if sx <= 0 {
		return 1
	}
	return sx
}

// display caches the monitor list. glfw may only be queried on the main
// thread, while the monitoring session asks from its own goroutine.
type display struct {
	mu       sync.Mutex
	monitors []overlay.Monitor
}

func (d *display) Monitors() []overlay.Monitor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.monitors
}

// refresh must run on the main thread.
func (d *display) refresh() {
	var ms []overlay.Monitor
	for _, m := range glfw.GetMonitors() {
		x, y, w, h := m.GetWorkarea()
		scale, _ := m.GetContentScale()
		if runtime.GOOS == "darwin" || scale <= 0 {
			scale = 1
		}
		ms = append(ms, overlay.Monitor{
			Name:   m.GetName(),
			X:      int(float32(x) * scale),
			Y:      int(float32(y) * scale),
			Width:  int(float32(w) * scale),
			Height: int(float32(h) * scale),
			Scale:  float64(scale),
		})
	}
	d.mu.Lock()
	d.monitors = ms
	d.mu.Unlock()
	log.Infof("display: %d monitor(s)", len(ms))
}
