package main

import (
	"errors"
	"fmt"
	"sync"

	"noisewarn/audio"
	"noisewarn/config"
	"noisewarn/level"
	"noisewarn/log"
	"noisewarn/monitor"
	"noisewarn/overlay"
	"noisewarn/server"
	"noisewarn/sound"
)

// Sink receives what the operator should see. Snapshot is called on the
// session's consumer goroutine and must not block; the other methods may be
// called from any goroutine.
type Sink interface {
	Snapshot(s monitor.Snapshot)
	Monitoring(on bool, device string)
	Notice(text string)
	Settings(st config.Settings)
}

// controller owns the persisted settings and the running session. Settings
// changes from the TUI, the tray and websocket clients all go through
// ApplyUpdate.
type controller struct {
	store   *config.Store
	audio   audio.Context
	sound   *sound.Alert
	window  overlay.Window
	display overlay.Display
	agg     *level.Aggregator
	clipDir string
	buffer  int

	// op serializes Start, Stop and ApplyUpdate.
	op sync.Mutex

	mu       sync.Mutex
	settings config.Settings
	session  *monitor.Session
	sinks    []Sink
}

var _ server.Controller = (*controller)(nil)

func (c *controller) addSink(s Sink) {
	c.mu.Lock()
	c.sinks = append(c.sinks, s)
	c.mu.Unlock()
}

func (c *controller) eachSink(f func(Sink)) {
	c.mu.Lock()
	sinks := append([]Sink(nil), c.sinks...)
	c.mu.Unlock()
	for _, s := range sinks {
		f(s)
	}
}

func (c *controller) Settings() config.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *controller) running() *monitor.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Running reports whether a session is active.
func (c *controller) Running() bool { return c.running() != nil }

// ApplyUpdate validates u, applies it to the running session, reloads the
// warning sound if its path changed and persists the result.
func (c *controller) ApplyUpdate(u config.Update) (config.Settings, error) {
	c.op.Lock()
	defer c.op.Unlock()

	c.mu.Lock()
	prev := c.settings
	next, err := prev.Apply(u)
	if err != nil {
		c.mu.Unlock()
		return prev, err
	}
	c.settings = next
	sess := c.session
	c.mu.Unlock()

	if next.LastWarningSoundPath != prev.LastWarningSoundPath {
		c.loadSound(next.LastWarningSoundPath)
	}
	if err := c.store.Save(next); err != nil {
		log.Errorf("save settings: %v", err)
		c.notice(fmt.Sprintf("could not save settings: %v", err))
	}

	switch {
	case sess == nil:
	case next.SelectedDevice != prev.SelectedDevice:
		c.stopLocked()
		if err := c.startLocked(); err != nil {
			c.notice(err.Error())
		}
	default:
		if err := sess.Update(next); err != nil && !errors.Is(err, monitor.ErrStopped) {
			log.Errorf("apply settings: %v", err)
		}
	}

	c.eachSink(func(s Sink) { s.Settings(next) })
	return next, nil
}

// loadSound swaps the warning sound. An empty path selects the built-in
// chime. A file that cannot be decoded leaves the sound unloaded, so alerts
// stay silent until a valid file is set.
func (c *controller) loadSound(path string) {
	if c.sound == nil {
		return
	}
	if err := c.sound.SetFile(path); err != nil {
		log.Errorf("load warning sound: %v", err)
		c.notice(fmt.Sprintf("warning sound disabled: %v", err))
		return
	}
	log.SoundLoaded(path)
}

func (c *controller) notice(text string) {
	c.eachSink(func(s Sink) { s.Notice(text) })
}

// Start begins monitoring the configured device. It is a no-op when a
// session is already running.
func (c *controller) Start() error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.startLocked()
}

func (c *controller) startLocked() error {
	if c.running() != nil {
		return nil
	}
	devices, err := c.audio.Devices()
	if err != nil {
		return fmt.Errorf("list devices: %w", err)
	}
	st := c.Settings()
	dev, found := audio.ResolveDevice(devices, st.SelectedDevice)
	if dev == nil {
		return audio.ErrNoDevices
	}
	if !found && st.SelectedDevice != "" {
		log.Warnf("device %q not found, using %s", st.SelectedDevice, dev.Name)
		c.notice(fmt.Sprintf("%s not found, using %s", st.SelectedDevice, dev.Name))
	}

	sess, err := monitor.Start(monitor.Options{
		Audio:      c.audio,
		Device:     dev,
		Settings:   st,
		Aggregator: c.agg,
		Sound:      c.sound,
		Window:     c.window,
		Display:    c.display,
		ClipDir:    c.clipDir,
		Buffer:     c.buffer,
		OnSnapshot: c.publish,
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.session = sess
	c.mu.Unlock()

	name := sess.DeviceName()
	c.eachSink(func(s Sink) { s.Monitoring(true, name) })
	return nil
}

func (c *controller) publish(snap monitor.Snapshot) {
	c.eachSink(func(s Sink) { s.Snapshot(snap) })
}

// Stop ends the running session, if any.
func (c *controller) Stop() {
	c.op.Lock()
	defer c.op.Unlock()
	c.stopLocked()
}

func (c *controller) stopLocked() {
	c.mu.Lock()
	sess := c.session
	c.session = nil
	c.mu.Unlock()
	if sess == nil {
		return
	}
	sess.Stop()
	c.eachSink(func(s Sink) { s.Monitoring(false, "") })
}

// Toggle starts monitoring when stopped and stops it when running.
func (c *controller) Toggle() error {
	if c.Running() {
		c.Stop()
		return nil
	}
	return c.Start()
}

// Preview plays the warning sound at the configured volume.
func (c *controller) Preview() error {
	if c.sound == nil {
		return sound.ErrNoSound
	}
	return c.sound.Preview(c.Settings().WarningVolumePercent)
}

// Close stops monitoring and saves the settings one last time.
func (c *controller) Close() {
	c.Stop()
	if err := c.store.Save(c.Settings()); err != nil {
		log.Errorf("save settings: %v", err)
	}
}

// serverSink forwards snapshots and settings to websocket clients.
type serverSink struct{ srv *server.Server }

func (s serverSink) Snapshot(snap monitor.Snapshot) { s.srv.PublishSnapshot(snap) }
func (s serverSink) Monitoring(bool, string) {}
func (s serverSink) Notice(string) {}
func (s serverSink) Settings(st config.Settings) { s.srv.PublishSettings(st) }
