package sound

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

type State int32

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	if s == Playing {
		return "playing"
	}
	return "idle"
}

var (
	ErrNoSound = errors.New("no alert sound loaded")
	ErrBusy    = errors.New("alert sound already playing")
)

// PollInterval is how often a running chime is checked for completion.
const PollInterval = 50 * time.Millisecond

// Handle is one loaded sound.
type Handle interface {
	Play()
	Stop()
	SetGain(factor float64)
	ResetPosition() error
	Playing() bool
	Close() error
}

// Backend loads sounds. An empty path loads the built-in chime.
type Backend interface {
	Load(path string) (Handle, error)
}

// Alert plays one chime at a time. A Play while the chime is still sounding is
// dropped, never queued.
type Alert struct {
	backend Backend
	poll    time.Duration

	state atomic.Int32

	mu   sync.Mutex
	h    Handle
	path string
	gen  uint64
	wg   sync.WaitGroup
}

func NewAlert(b Backend) *Alert {
	return &Alert{backend: b, poll: PollInterval}
}

// Gain maps a volume percentage to a linear factor. Values above 100 amplify.
func Gain(volumePercent int) float64 {
	v := min(max(volumePercent, 0), 200)
	return float64(v) / 100
}

func (a *Alert) State() State { return State(a.state.Load()) }

func (a *Alert) Path() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.path
}

// Loaded reports whether a sound is ready to play.
func (a *Alert) Loaded() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.h != nil
}

// Play starts the chime from the beginning at the given volume. It returns
// false if a chime is already playing or nothing is loaded.
func (a *Alert) Play(volumePercent int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.h == nil {
		return false
	}
	if !a.state.CompareAndSwap(int32(Idle), int32(Playing)) {
		return false
	}
	if err := a.h.ResetPosition(); err != nil {
		a.state.Store(int32(Idle))
		return false
	}
	a.h.SetGain(Gain(volumePercent))
	a.h.Play()

	a.wg.Add(1)
	go a.wait(a.h, a.gen)
	return true
}

// Preview plays the chime outside of an alert, for the operator to check
// the file and volume.
func (a *Alert) Preview(volumePercent int) error {
	if !a.Loaded() {
		return ErrNoSound
	}
	if !a.Play(volumePercent) {
		return ErrBusy
	}
	return nil
}

func (a *Alert) wait(h Handle, gen uint64) {
	defer a.wg.Done()
	t := time.NewTicker(a.poll)
	defer t.Stop()
	for range t.C {
		a.mu.Lock()
		stale := a.gen != gen
		done := stale || !h.Playing()
		if done && !stale {
			a.state.Store(int32(Idle))
		}
		a.mu.Unlock()
		if done {
			return
		}
	}
}

// SetFile replaces the loaded sound. Any running chime is stopped first. On a
// load error nothing stays loaded and Play is a no-op until the next
// successful SetFile.
func (a *Alert) SetFile(path string) error {
	h, err := a.backend.Load(path)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.release()
	a.path = path
	if err != nil {
		return fmt.Errorf("load alert sound %q: %w", path, err)
	}
	a.h = h
	return nil
}

func (a *Alert) release() {
	a.gen++
	if a.h != nil {
		a.h.Stop()
		a.h.Close()
		a.h = nil
	}
	a.state.Store(int32(Idle))
}

// Close stops playback, releases the sound and waits for the poll goroutine.
func (a *Alert) Close() {
	a.mu.Lock()
	a.release()
	a.mu.Unlock()
	a.wg.Wait()
}
