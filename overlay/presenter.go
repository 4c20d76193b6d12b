package overlay

import "time"

// State is the visibility of the overlay.
type State int

const (
	Hidden State = iota
	Visible
	FadingOut
)

func (s State) String() string {
	switch s {
	case Hidden:
		return "hidden"
	case Visible:
		return "visible"
	case FadingOut:
		return "fading"
	}
	return "unknown"
}

const (
	// FadeDuration is how long Hide takes to fade the overlay out.
	FadeDuration = 500 * time.Millisecond
	fadeSteps    = 15
	fadeFrame    = FadeDuration / fadeSteps
)

// Window is the on-screen surface the presenter drives. Positions are in
// logical units.
type Window interface {
	Size() Size
	Move(p Point)
	SetOpacity(opacity float64)
	Show()
	Hide()
}

// Scheduler runs f after d on the goroutine that owns the Presenter.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// Presenter shows the overlay centered on a monitor and fades it out on hide.
// Every method, and every callback handed to the Scheduler, must run on the
// same goroutine.
type Presenter struct {
	win   Window
	sched Scheduler

	state   State
	opacity float64
	pos     Point
	gen     uint64

	// Cancelled is called when a show interrupts a running fade.
	Cancelled func()
}

// NewPresenter returns a hidden presenter driving win.
func NewPresenter(win Window, sched Scheduler) *Presenter {
	return &Presenter{win: win, sched: sched, opacity: 1}
}

func (p *Presenter) State() State { return p.state }

func (p *Presenter) Opacity() float64 { return p.opacity }

// ShowOrReposition cancels any fade, restores full opacity and centers the
// window on target.
func (p *Presenter) ShowOrReposition(target Monitor) {
	prev := p.state
	if prev == FadingOut {
		p.gen++
		if p.Cancelled != nil {
			p.Cancelled()
		}
	}
	if p.opacity != 1 {
		p.opacity = 1
		p.win.SetOpacity(1)
	}

	pos := Center(target, p.win.Size())
	if prev == Hidden || pos != p.pos {
		p.win.Move(pos)
		p.pos = pos
	}
	if prev == Hidden {
		p.win.Show()
	}
	p.state = Visible
}

// Hide starts the fade-out. It does nothing unless the overlay is Visible.
func (p *Presenter) Hide() {
	if p.state != Visible {
		return
	}
	p.state = FadingOut
	p.gen++
	p.schedule(p.gen, 1)
}

func (p *Presenter) schedule(gen uint64, step int) {
	p.sched.AfterFunc(fadeFrame, func() { p.fade(gen, step) })
}

func (p *Presenter) fade(gen uint64, step int) {
	if gen != p.gen || p.state != FadingOut {
		return
	}
	if step < fadeSteps {
		p.opacity = 1 - float64(step)/fadeSteps
		p.win.SetOpacity(p.opacity)
		p.schedule(gen, step+1)
		return
	}
	p.win.Hide()
	p.state = Hidden
	p.opacity = 1
	p.win.SetOpacity(1)
}

// Close hides the window at once and invalidates pending fade callbacks.
func (p *Presenter) Close() {
	p.gen++
	if p.state != Hidden {
		p.win.Hide()
	}
	p.state = Hidden
	if p.opacity != 1 {
		p.opacity = 1
		p.win.SetOpacity(1)
	}
}
