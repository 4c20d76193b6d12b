package monitor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"noisewarn/alert"
	"noisewarn/audio"
	"noisewarn/config"
	"noisewarn/encoder"
	"noisewarn/level"
	"noisewarn/log"
	"noisewarn/metrics"
	"noisewarn/overlay"
	"noisewarn/sound"
)

const (
	DefaultBuffer = 64

	snapshotEvery = 100 * time.Millisecond
	postBuffer    = 16
)

var ErrStopped = errors.New("monitoring stopped")

// Options configure one monitoring session. Audio is required; everything
// else has a usable zero value.
type Options struct {
	Audio      audio.Context
	Device     *audio.DeviceInfo
	Settings   config.Settings
	Aggregator *level.Aggregator

	// Sound is shared across sessions; nil disables the chime.
	Sound *sound.Alert
	// Window is the overlay surface; nil means a headless window.
	Window  overlay.Window
	Display overlay.Display

	// ClipDir, when set, receives a FLAC of the last seconds of audio on
	// every alert.
	ClipDir string

	// Buffer is the capacity of the capture-to-consumer hand-off.
	Buffer int

	// OnSnapshot runs on the consumer goroutine and must not block.
	OnSnapshot func(Snapshot)
}

type reading struct {
	at      time.Time
	pct     float64
	samples []int16
}

// Session captures from one device and drives the alert pipeline. The capture
// callback only computes a level and hands it over; a single consumer
// goroutine owns the window, the threshold state, the overlay presenter and
// the settings.
type Session struct {
	id      string
	opts    Options
	agg     *level.Aggregator
	capture audio.CaptureDevice

	levels chan reading
	posts  chan func()
	quit   chan struct{}
	done   chan struct{}

	stopped  atomic.Bool
	stopOnce sync.Once
	clips    sync.WaitGroup
	began    time.Time

	// capture goroutine only
	frames uint64

	// consumer goroutine only
	settings  config.Settings
	window    level.Window
	monitor   alert.Monitor
	coord     alert.Coordinator
	presenter *overlay.Presenter
	preroll   *encoder.PreRoll
	alertAt   time.Time
	lastSnap  time.Time

	mu   sync.Mutex
	snap Snapshot

	blocks        atomic.Uint64
	dropped       atomic.Uint64
	alerts        atomic.Uint64
	soundsPlayed  atomic.Uint64
	soundsDropped atomic.Uint64
}

// Start opens the capture device and begins monitoring. If the device cannot
// be started it is released before the error is returned.
func Start(opts Options) (*Session, error) {
	if opts.Audio == nil {
		return nil, errors.New("monitor: no audio context")
	}
	capDev, err := opts.Audio.NewCapture(opts.Device, audio.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}

	s := newSession(opts)
	s.capture = capDev

	s.id = log.SessionStart(capDev.DeviceName(), s.settings.ThresholdPercent, s.settings.AverageWindow())
	go s.run()

	s.began = time.Now()
	capDev.SetCallback(s.onData)
	if err := capDev.Start(); err != nil {
		capDev.ClearCallback()
		capDev.Close()
		s.stopped.Store(true)
		close(s.quit)
		<-s.done
		log.Errorf("start capture on %s: %v", capDev.DeviceName(), err)
		log.SessionEnd(s.Stats())
		return nil, fmt.Errorf("start capture on %s: %w", capDev.DeviceName(), err)
	}

	metrics.SetMonitoring(true)
	metrics.SetThreshold(s.settings.ThresholdPercent)
	return s, nil
}

func newSession(opts Options) *Session {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	agg := opts.Aggregator
	if agg == nil {
		agg = level.NewAggregator()
	}
	win := opts.Window
	if win == nil {
		win = overlay.NewHeadless(overlay.Size{Width: 480, Height: 160})
	}
	settings, _ := opts.Settings.Clamp()

	s := &Session{
		opts:     opts,
		agg:      agg,
		levels:   make(chan reading, opts.Buffer),
		posts:    make(chan func(), postBuffer),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		settings: settings,
	}
	s.presenter = overlay.NewPresenter(win, scheduler{s})
	s.presenter.Cancelled = metrics.FadeCancelled
	s.coord = alert.Coordinator{
		Sound:   &meteredSound{alert: opts.Sound, s: s},
		Overlay: s.presenter,
	}
	if opts.ClipDir != "" {
		s.preroll = encoder.NewPreRoll(level.Horizon)
	}
	return s
}

// onData runs on the capture goroutine. It never blocks: when the consumer
// falls behind the value is dropped.
func (s *Session) onData(data []byte, _ uint32) {
	if s.stopped.Load() {
		return
	}
	pct, ok := s.agg.Percent(data)
	s.frames += uint64(len(data) / 2)
	if !ok {
		return
	}
	r := reading{
		at:  s.began.Add(time.Duration(float64(s.frames) / audio.SampleRate * float64(time.Second))),
		pct: pct,
	}
	if s.preroll != nil {
		r.samples = level.Samples(make([]int16, 0, len(data)/2), data)
	}
	select {
	case s.levels <- r:
	default:
		s.dropped.Add(1)
		metrics.BlockDropped()
	}
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			s.presenter.Close()
			metrics.SetAlerting(false)
			return
		case r := <-s.levels:
			s.handle(r)
		case f := <-s.posts:
			f()
		}
	}
}

func (s *Session) handle(r reading) {
	s.blocks.Add(1)
	s.window.Push(level.Sample{At: r.at, Value: r.pct})
	if s.preroll != nil {
		s.preroll.Write(r.samples)
	}

	threshold := s.settings.ThresholdPercent
	avg := s.window.Average(s.settings.AverageWindow(), r.pct, r.at)
	state, ev := s.monitor.Evaluate(avg, float64(threshold))
	s.coord.Dispatch(state, ev, s.toggles())

	switch ev {
	case alert.Enter:
		s.alerts.Add(1)
		s.alertAt = r.at
		metrics.AlertRaised()
		log.AlertEnter(avg, threshold)
		s.saveClip()
	case alert.Leave:
		log.AlertLeave(avg, threshold, r.at.Sub(s.alertAt))
	}
	metrics.SetLevel(r.pct, avg)
	metrics.SetAlerting(state == alert.Alerting)

	if ev != alert.None || r.at.Sub(s.lastSnap) >= snapshotEvery {
		s.lastSnap = r.at
		s.publish(Snapshot{
			Session:   s.id,
			At:        r.at,
			Level:     r.pct,
			Average:   avg,
			Threshold: threshold,
			Window:    s.settings.AverageWindowSeconds,
			Alerting:  state == alert.Alerting,
			Event:     eventName(ev),
			Overlay:   s.presenter.State().String(),
			Sound:     s.soundState().String(),
		})
	}
}

func (s *Session) toggles() alert.Toggles {
	var target overlay.Monitor
	if s.opts.Display != nil {
		target, _ = overlay.Select(s.opts.Display.Monitors(), s.settings.SelectedMonitor)
	}
	return alert.Toggles{
		Sound:         s.settings.EnableWarningSound && s.opts.Sound != nil,
		Overlay:       s.settings.EnableOverlay,
		RepeatSound:   s.settings.RepeatWarningSound,
		VolumePercent: s.settings.WarningVolumePercent,
		Target:        target,
	}
}

func (s *Session) soundState() sound.State {
	if s.opts.Sound == nil {
		return sound.Idle
	}
	return s.opts.Sound.State()
}

func (s *Session) saveClip() {
	if s.preroll == nil || s.preroll.Len() == 0 {
		return
	}
	samples := s.preroll.Snapshot()
	at := time.Now()
	dir := s.opts.ClipDir
	s.clips.Add(1)
	go func() {
		defer s.clips.Done()
		path, err := encoder.WriteClip(dir, at, samples)
		if err != nil {
			log.Errorf("clip: %v", err)
			return
		}
		log.ClipWritten(path, float64(len(samples))/audio.SampleRate)
	}()
}

func (s *Session) publish(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	if s.opts.OnSnapshot != nil {
		s.opts.OnSnapshot(snap)
	}
}

// Post runs f on the consumer goroutine. It reports false if the session has
// already stopped.
func (s *Session) Post(f func()) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.posts <- f:
		return true
	case <-s.done:
		return false
	}
}

// Update replaces the session's settings. Disabling the overlay fades it out
// immediately instead of waiting for the next block.
func (s *Session) Update(st config.Settings) error {
	st, _ = st.Clamp()
	applied := make(chan struct{})
	ok := s.Post(func() {
		s.settings = st
		if !st.EnableOverlay {
			s.presenter.Hide()
		}
		metrics.SetThreshold(st.ThresholdPercent)
		close(applied)
	})
	if !ok {
		return ErrStopped
	}
	select {
	case <-applied:
		return nil
	case <-s.done:
		return ErrStopped
	}
}

// Stop unsubscribes from capture, stops and releases the device, then waits
// for the consumer to exit. No level is processed after Stop returns.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		s.capture.ClearCallback()
		s.capture.Stop()
		s.capture.Close()
		close(s.quit)
		<-s.done
		s.clips.Wait()

		log.SessionEnd(s.Stats())
		metrics.SetMonitoring(false)
	})
}

// Done is closed once the consumer goroutine has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) ID() string { return s.id }

// Began is the stream origin: snapshot times are Began plus the audio
// captured so far.
func (s *Session) Began() time.Time { return s.began }

func (s *Session) DeviceName() string { return s.capture.DeviceName() }

// Snapshot returns the most recently published state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

func (s *Session) Stats() log.SessionStats {
	return log.SessionStats{
		Duration:      time.Since(s.began),
		Blocks:        s.blocks.Load(),
		DroppedBlocks: s.dropped.Load(),
		Alerts:        s.alerts.Load(),
		SoundsPlayed:  s.soundsPlayed.Load(),
		SoundsDropped: s.soundsDropped.Load(),
	}
}

// scheduler delivers presenter timers back onto the consumer goroutine.
type scheduler struct{ s *Session }

func (sc scheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, func() { sc.s.Post(f) })
}

type meteredSound struct {
	alert *sound.Alert
	s     *Session
}

func (m *meteredSound) Play(volumePercent int) bool {
	if m.alert == nil {
		return false
	}
	if m.alert.Play(volumePercent) {
		m.s.soundsPlayed.Add(1)
		metrics.SoundPlayed()
		return true
	}
	// only a chime already in flight counts as a drop
	if m.alert.State() == sound.Playing {
		m.s.soundsDropped.Add(1)
		metrics.SoundDropped()
	}
	return false
}
