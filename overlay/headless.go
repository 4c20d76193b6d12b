package overlay

import "sync"

// Headless is a Window that only records what it was told. It backs replay
// runs and machines without a display.
type Headless struct {
	mu      sync.Mutex
	size    Size
	pos     Point
	opacity float64
	shown   bool
	shows   int
}

func NewHeadless(size Size) *Headless {
	return &Headless{size: size, opacity: 1}
}

func (h *Headless) Size() Size {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.size
}

func (h *Headless) Move(p Point) {
	h.mu.Lock()
	h.pos = p
	h.mu.Unlock()
}

func (h *Headless) SetOpacity(o float64) {
	h.mu.Lock()
	h.opacity = o
	h.mu.Unlock()
}

func (h *Headless) Show() {
	h.mu.Lock()
	h.shown = true
	h.shows++
	h.mu.Unlock()
}

func (h *Headless) Hide() {
	h.mu.Lock()
	h.shown = false
	h.mu.Unlock()
}

// Status reports the last position, opacity and visibility.
func (h *Headless) Status() (pos Point, opacity float64, shown bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pos, h.opacity, h.shown
}

// Shows counts Show calls.
func (h *Headless) Shows() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shows
}
