package config

import (
	"math"
	"time"
)

const (
	DefaultThreshold     = 50
	DefaultVolume        = 100
	MaxVolume            = 200
	MaxAverageWindowSecs = 5.0
)

// Settings are the operator's persisted choices. JSON names stay compatible
// with existing appsettings.json files, including the legacy ThresholdDb key,
// which has always held a percentage.
type Settings struct {
	SelectedDevice       string  `json:"SelectedDevice"`
	ThresholdPercent     int     `json:"ThresholdDb" label:"threshold" validate:"min=0,max=100"`
	AverageWindowSeconds float64 `json:"AverageWindowSeconds" label:"window" validate:"min=0,max=5"`
	SelectedMonitor      int     `json:"SelectedMonitor" label:"monitor" validate:"min=0"`
	WarningVolumePercent int     `json:"WarningSoundVolume" label:"volume" validate:"min=0,max=200"`
	LastWarningSoundPath string  `json:"LastWarningSoundPath"`
	OverlayImagePath     string  `json:"OverlayImagePath"`
	EnableWarningSound   bool    `json:"EnableWarningSound"`
	EnableOverlay        bool    `json:"EnableOverlay"`
	RepeatWarningSound   bool    `json:"RepeatWarningSound"`
}

func Defaults() Settings {
	return Settings{
		ThresholdPercent:     DefaultThreshold,
		WarningVolumePercent: DefaultVolume,
		EnableWarningSound:   true,
		EnableOverlay:        true,
	}
}

// Clamp forces every numeric field into range. changed reports whether any
// value was altered.
func (s Settings) Clamp() (out Settings, changed bool) {
	out = s
	out.ThresholdPercent = min(max(s.ThresholdPercent, 0), 100)
	out.WarningVolumePercent = min(max(s.WarningVolumePercent, 0), MaxVolume)
	out.SelectedMonitor = max(s.SelectedMonitor, 0)
	if math.IsNaN(s.AverageWindowSeconds) {
		out.AverageWindowSeconds = 0
	} else {
		out.AverageWindowSeconds = math.Max(0, math.Min(MaxAverageWindowSecs, s.AverageWindowSeconds))
	}
	return out, out != s
}

// AverageWindow is the averaging window as a duration, clamped to [0, 5s].
func (s Settings) AverageWindow() time.Duration {
	c, _ := s.Clamp()
	return time.Duration(c.AverageWindowSeconds * float64(time.Second))
}

// Update is a partial settings change. Nil fields are left untouched.
type Update struct {
	Threshold *int     `json:"threshold,omitempty" validate:"omitempty,min=0,max=100"`
	Window    *float64 `json:"window,omitempty" validate:"omitempty,min=0,max=5"`
	Volume    *int     `json:"volume,omitempty" validate:"omitempty,min=0,max=200"`
	Monitor   *int     `json:"monitor,omitempty" validate:"omitempty,min=0"`
	Sound     *bool    `json:"sound,omitempty"`
	Overlay   *bool    `json:"overlay,omitempty"`
	Repeat    *bool    `json:"repeat,omitempty"`
	SoundPath *string  `json:"sound_path,omitempty"`
	ImagePath *string  `json:"image_path,omitempty"`
	Device    *string  `json:"device,omitempty"`
}

// Apply validates u and returns s with it applied. On error s is returned
// unchanged.
func (s Settings) Apply(u Update) (Settings, error) {
	if err := Validate(u); err != nil {
		return s, err
	}
	if u.Threshold != nil {
		s.ThresholdPercent = *u.Threshold
	}
	if u.Window != nil {
		s.AverageWindowSeconds = *u.Window
	}
	if u.Volume != nil {
		s.WarningVolumePercent = *u.Volume
	}
	if u.Monitor != nil {
		s.SelectedMonitor = *u.Monitor
	}
	if u.Sound != nil {
		s.EnableWarningSound = *u.Sound
	}
	if u.Overlay != nil {
		s.EnableOverlay = *u.Overlay
	}
	if u.Repeat != nil {
		s.RepeatWarningSound = *u.Repeat
	}
	if u.SoundPath != nil {
		s.LastWarningSoundPath = *u.SoundPath
	}
	if u.ImagePath != nil {
		s.OverlayImagePath = *u.ImagePath
	}
	if u.Device != nil {
		s.SelectedDevice = *u.Device
	}
	return s, nil
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u == Update{}
}
