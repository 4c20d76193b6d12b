package alert

import "noisewarn/overlay"

// Sound plays the alert chime. Play reports whether playback started.
type Sound interface {
	Play(volumePercent int) bool
}

type Overlay interface {
	ShowOrReposition(target overlay.Monitor)
	Hide()
}

// Toggles are the settings the coordinator reads on each dispatch.
type Toggles struct {
	Sound         bool
	Overlay       bool
	RepeatSound   bool
	VolumePercent int
	Target        overlay.Monitor
}

// Coordinator turns threshold states and events into sound and overlay calls.
type Coordinator struct {
	Sound   Sound
	Overlay Overlay
}

// Dispatch reacts to one evaluation. It reports whether a chime was started.
func (c *Coordinator) Dispatch(state State, ev Event, t Toggles) (played bool) {
	if state != Alerting {
		c.Overlay.Hide()
		return false
	}

	if t.Sound && (ev == Enter || t.RepeatSound) {
		played = c.Sound.Play(t.VolumePercent)
	}
	if t.Overlay {
		c.Overlay.ShowOrReposition(t.Target)
	} else {
		c.Overlay.Hide()
	}
	return played
}
