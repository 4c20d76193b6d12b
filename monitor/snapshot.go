package monitor

import (
	"fmt"
	"time"

	"noisewarn/alert"
)

// Snapshot is the session's state after one evaluated block.
type Snapshot struct {
	Session   string    `json:"session"`
	At        time.Time `json:"at"`
	Level     float64   `json:"level"`
	Average   float64   `json:"average"`
	Threshold int       `json:"threshold"`
	Window    float64   `json:"window_s"`
	Alerting  bool      `json:"alerting"`
	Event     string    `json:"event,omitempty"`
	Overlay   string    `json:"overlay"`
	Sound     string    `json:"sound"`
}

// Status renders the level line shown to the operator.
func (s Snapshot) Status() string {
	if s.Window <= 0 {
		return fmt.Sprintf("Level: %.0f%% (Instant)", s.Level)
	}
	return fmt.Sprintf("Level: %.0f%% (Avg: %.0f%% / %gs)", s.Level, s.Average, s.Window)
}

func eventName(ev alert.Event) string {
	if ev == alert.None {
		return ""
	}
	return ev.String()
}
