package alert

// State is whether the averaged level is currently over the threshold.
type State int

const (
	// Idle means the level is at or below the threshold.
	Idle State = iota
	// Alerting means the level is above the threshold.
	Alerting
)

func (s State) String() string {
	if s == Alerting {
		return "alerting"
	}
	return "idle"
}

// Event is the transition produced by one evaluation.
type Event int

const (
	None Event = iota
	// Enter is emitted on Idle to Alerting.
	Enter
	// Leave is emitted on Alerting to Idle.
	Leave
)

func (e Event) String() string {
	switch e {
	case Enter:
		return "enter"
	case Leave:
		return "leave"
	}
	return "none"
}

// Evaluate is the threshold state machine. The next state is Alerting iff avg
// is strictly greater than threshold; a change of state yields Enter or Leave.
func Evaluate(avg, threshold float64, cur State) (State, Event) {
	next := Idle
	if avg > threshold {
		next = Alerting
	}
	switch {
	case cur == Idle && next == Alerting:
		return next, Enter
	case cur == Alerting && next == Idle:
		return next, Leave
	}
	return next, None
}

// Monitor tracks the current state across evaluations.
type Monitor struct {
	state State
}

// Evaluate advances the monitor and returns its new state and any transition.
func (m *Monitor) Evaluate(avg, threshold float64) (State, Event) {
	var ev Event
	m.state, ev = Evaluate(avg, threshold, m.state)
	return m.state, ev
}

// State returns the state after the last evaluation.
func (m *Monitor) State() State { return m.state }

// Reset returns the monitor to Idle without emitting an event.
func (m *Monitor) Reset() { m.state = Idle }
