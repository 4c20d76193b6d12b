package hotkey

import "time"

// Action is what a press of the hotkey asks for.
type Action int

const (
	// Toggle starts or stops monitoring.
	Toggle Action = iota
	// Preview plays the warning sound once at the configured volume.
	Preview
)

func (a Action) String() string {
	if a == Preview {
		return "preview"
	}
	return "toggle"
}

// Gestures turns raw key transitions into actions: a tap toggles monitoring,
// holding the combination for at least longPress previews the warning sound.
type Gestures struct {
	actions chan Action
	stop    chan struct{}
}

func NewGestures(hk Hotkey, longPress time.Duration) *Gestures {
	g := &Gestures{
		actions: make(chan Action, 1),
		stop:    make(chan struct{}),
	}
	go g.run(hk, longPress)
	return g
}

func (g *Gestures) Actions() <-chan Action { return g.actions }

// Close stops the gesture goroutine. It does not unregister hk.
func (g *Gestures) Close() { close(g.stop) }

func (g *Gestures) run(hk Hotkey, longPress time.Duration) {
	for {
		select {
		case <-g.stop:
			return
		case <-hk.Keydown():
		}

		timer := time.NewTimer(longPress)
		select {
		case <-g.stop:
			timer.Stop()
			return
		case <-timer.C:
			g.emit(Preview)
			select {
			case <-hk.Keyup():
			case <-g.stop:
				return
			}
		case <-hk.Keyup():
			timer.Stop()
			g.emit(Toggle)
		}
	}
}

func (g *Gestures) emit(a Action) {
	select {
	case g.actions <- a:
	default:
	}
}
