package audio

import (
	"errors"
	"strings"
)

const (
	SampleRate    = 44100
	Channels      = 1
	BitsPerSample = 16

	WAVHeaderSize = 44
)

var ErrNoDevices = errors.New("no capture devices found")

// DataCallback receives S16LE PCM. data is only valid during the call.
type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
}

// DefaultConfig is 44.1 kHz mono, the only format the level meter reads.
func DefaultConfig() CaptureConfig {
	return CaptureConfig{SampleRate: SampleRate, Channels: Channels}
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

// CaptureDevice delivers blocks to its callback between Start and Stop. Stop
// returns only after the last callback has finished.
type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
	DeviceName() string
}

// ResolveDevice finds the device called name. An empty or unknown name falls
// back to the first device; found is false in that case. With no devices at
// all the result is nil, meaning the system default.
func ResolveDevice(devices []DeviceInfo, name string) (dev *DeviceInfo, found bool) {
	if len(devices) == 0 {
		return nil, false
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i], true
		}
	}
	return &devices[0], false
}

var btKeywords = []string{
	"bluetooth", " bt ", " bt)", " bt]",
	"airpods", "beats", "bose", "jabra", "plantronics",
	"galaxy buds", "pixel buds", "wh-1000", "wf-1000",
}

// IsBluetooth guesses from the name whether a device is a Bluetooth headset.
// Headset microphones often run in a narrowband mode that reads quieter.
func IsBluetooth(name string) bool {
	lower := " " + strings.ToLower(name) + " "
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
