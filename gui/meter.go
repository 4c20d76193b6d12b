//go:build gui

package gui

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

const meterSegments = 40

// MeterWidget draws the averaged level as a segmented bar with a marker at
// the threshold.
type MeterWidget struct {
	widget.BaseWidget
	mu        sync.Mutex
	level     float64
	threshold float64
}

func NewMeterWidget() *MeterWidget {
	m := &MeterWidget{}
	m.ExtendBaseWidget(m)
	return m
}

// SetLevel may be called from any goroutine. Rises follow quickly and falls
// decay so the bar does not flicker.
func (m *MeterWidget) SetLevel(level, threshold float64) {
	m.mu.Lock()
	if level > m.level {
		m.level = m.level*0.2 + level*0.8
	} else {
		m.level = m.level*0.7 + level*0.3
	}
	m.threshold = threshold
	m.mu.Unlock()
	fyne.Do(m.Refresh)
}

func (m *MeterWidget) MinSize() fyne.Size {
	return fyne.NewSize(overlayWidth-32, 18)
}

func (m *MeterWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &meterRenderer{m: m, marker: canvas.NewRectangle(colorMarker)}
	for i := range r.segs {
		r.segs[i] = canvas.NewRectangle(colorTrack)
	}
	return r
}

type meterRenderer struct {
	m      *MeterWidget
	segs   [meterSegments]*canvas.Rectangle
	marker *canvas.Rectangle
	size   fyne.Size
}

func (r *meterRenderer) Layout(size fyne.Size) {
	r.size = size
	w := size.Width / meterSegments
	for i, s := range r.segs {
		s.Move(fyne.NewPos(float32(i)*w+1, 0))
		s.Resize(fyne.NewSize(w-2, size.Height))
	}
	r.placeMarker()
}

func (r *meterRenderer) placeMarker() {
	r.m.mu.Lock()
	threshold := r.m.threshold
	r.m.mu.Unlock()
	x := r.size.Width * float32(threshold/100)
	r.marker.Move(fyne.NewPos(x-1, -2))
	r.marker.Resize(fyne.NewSize(2, r.size.Height+4))
}

func (r *meterRenderer) MinSize() fyne.Size { return r.m.MinSize() }

func (r *meterRenderer) Refresh() {
	r.m.mu.Lock()
	level, threshold := r.m.level, r.m.threshold
	r.m.mu.Unlock()

	lit := int(level / 100 * meterSegments)
	for i, s := range r.segs {
		s.FillColor = segmentColor(i, lit, threshold)
		s.Refresh()
	}
	r.placeMarker()
	r.marker.Refresh()
}

func segmentColor(i, lit int, threshold float64) color.Color {
	if i >= lit {
		return colorTrack
	}
	pct := float64(i+1) / meterSegments * 100
	switch {
	case pct > threshold:
		return colorLoud
	case pct > threshold*0.8:
		return colorNear
	}
	return colorQuiet
}

func (r *meterRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, meterSegments+1)
	for _, s := range r.segs {
		objs = append(objs, s)
	}
	return append(objs, r.marker)
}

func (r *meterRenderer) Destroy() {}
