package monitor

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noisewarn/audio"
	"noisewarn/config"
	"noisewarn/log"
	"noisewarn/overlay"
	"noisewarn/sound"
)

// pcm renders seconds of a 440 Hz sine at the given amplitude.
func pcm(seconds, amplitude float64) []byte {
	n := int(seconds * audio.SampleRate)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/audio.SampleRate)
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v)))
	}
	return buf
}

type instantHandle struct{ plays atomic.Int32 }

func (h *instantHandle) Play()                { h.plays.Add(1) }
func (h *instantHandle) Stop()                {}
func (h *instantHandle) SetGain(float64)      {}
func (h *instantHandle) ResetPosition() error { return nil }
func (h *instantHandle) Playing() bool        { return false }
func (h *instantHandle) Close() error         { return nil }

type instantBackend struct{ h *instantHandle }

func (b instantBackend) Load(string) (sound.Handle, error) { return b.h, nil }

func newSound(t *testing.T) (*sound.Alert, *instantHandle) {
	h := &instantHandle{}
	a := sound.NewAlert(instantBackend{h})
	require.NoError(t, a.SetFile(""))
	t.Cleanup(a.Close)
	return a, h
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) add(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snaps)
}

func (r *recorder) events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.snaps {
		if s.Event != "" {
			out = append(out, s.Event)
		}
	}
	return out
}

func settings() config.Settings {
	st := config.Defaults()
	st.AverageWindowSeconds = 0
	return st
}

func TestReplayRaisesAndClearsAlert(t *testing.T) {
	data := append(pcm(1, 0.5), pcm(1, 0)...)
	ctx := audio.NewFakeContextPCM(data, false)
	alertSound, h := newSound(t)
	win := overlay.NewHeadless(overlay.Size{Width: 400, Height: 200})
	rec := &recorder{}

	s, err := Start(Options{
		Audio:      ctx,
		Settings:   settings(),
		Sound:      alertSound,
		Window:     win,
		Display:    overlay.StaticDisplay{{Width: 1920, Height: 1080, Scale: 1}},
		Buffer:     1024,
		OnSnapshot: rec.add,
	})
	require.NoError(t, err)

	<-ctx.Captures()[0].AudioDone()
	require.Eventually(t, func() bool { return s.Stats().Blocks == 20 }, 5*time.Second, time.Millisecond)
	s.Stop()

	assert.Equal(t, []string{"enter", "leave"}, rec.events())
	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Alerts)
	assert.Equal(t, uint64(1), stats.SoundsPlayed)
	assert.Zero(t, stats.DroppedBlocks)
	assert.Equal(t, int32(1), h.plays.Load())
	assert.Equal(t, 1, win.Shows())

	pos, _, shown := win.Status()
	assert.Equal(t, overlay.Point{X: 760, Y: 440}, pos)
	assert.False(t, shown)
	assert.True(t, ctx.Captures()[0].Closed())
}

func TestAverageWindowSmoothsShortBurst(t *testing.T) {
	// a 0.3 s burst inside 2 s of silence stays under the threshold when
	// averaged over 2 s
	data := append(append(pcm(1, 0), pcm(0.3, 0.5)...), pcm(1, 0)...)
	ctx := audio.NewFakeContextPCM(data, false)
	st := config.Defaults()
	st.AverageWindowSeconds = 2

	s, err := Start(Options{Audio: ctx, Settings: st, Buffer: 1024})
	require.NoError(t, err)
	<-ctx.Captures()[0].AudioDone()
	require.Eventually(t, func() bool { return s.Stats().Blocks == 23 }, 5*time.Second, time.Millisecond)
	s.Stop()

	assert.Zero(t, s.Stats().Alerts)
}

func TestStartFailureReleasesDevice(t *testing.T) {
	ctx := audio.NewFakeContextPCM(pcm(1, 0.5), false)
	ctx.StartErr = errors.New("device busy")

	s, err := Start(Options{Audio: ctx, Settings: settings()})
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorContains(t, err, "device busy")
	require.Len(t, ctx.Captures(), 1)
	assert.True(t, ctx.Captures()[0].Closed())
}

func TestStartFailureClosesLoggedSession(t *testing.T) {
	dir := t.TempDir()
	log.SetDir(dir)
	require.NoError(t, log.Init())
	t.Cleanup(log.Close)

	ctx := audio.NewFakeContextPCM(pcm(1, 0.5), false)
	ctx.StartErr = errors.New("device busy")
	_, err := Start(Options{Audio: ctx, Settings: settings()})
	require.Error(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "diagnostics_log.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "session_start")
	assert.Contains(t, string(data), "session_end")
}

type resetFailHandle struct{ instantHandle }

func (*resetFailHandle) ResetPosition() error { return errors.New("seek failed") }

type resetFailBackend struct{}

func (resetFailBackend) Load(string) (sound.Handle, error) { return &resetFailHandle{}, nil }

func TestFailedPlayIsNotCountedAsDrop(t *testing.T) {
	a := sound.NewAlert(resetFailBackend{})
	require.NoError(t, a.SetFile(""))
	t.Cleanup(a.Close)

	s := newSession(Options{Settings: settings()})
	m := &meteredSound{alert: a, s: s}
	assert.False(t, m.Play(100))
	assert.Zero(t, s.soundsDropped.Load())
	assert.Zero(t, s.soundsPlayed.Load())
}

func TestPlayWhilePlayingIsCountedAsDrop(t *testing.T) {
	h := &fakeBusyHandle{}
	a := sound.NewAlert(busyBackend{h})
	require.NoError(t, a.SetFile(""))
	t.Cleanup(a.Close)

	s := newSession(Options{Settings: settings()})
	m := &meteredSound{alert: a, s: s}
	require.True(t, m.Play(100))
	assert.False(t, m.Play(100))
	assert.Equal(t, uint64(1), s.soundsPlayed.Load())
	assert.Equal(t, uint64(1), s.soundsDropped.Load())
}

// fakeBusyHandle keeps playing until the test ends.
type fakeBusyHandle struct{ instantHandle }

func (*fakeBusyHandle) Playing() bool { return true }

type busyBackend struct{ h *fakeBusyHandle }

func (b busyBackend) Load(string) (sound.Handle, error) { return b.h, nil }

func TestNoSnapshotsAfterStop(t *testing.T) {
	ctx := audio.NewFakeContextPCM(pcm(10, 0.2), true)
	rec := &recorder{}
	s, err := Start(Options{Audio: ctx, Settings: settings(), OnSnapshot: rec.add})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return rec.len() >= 2 }, 5*time.Second, 5*time.Millisecond)
	s.Stop()
	n := rec.len()

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, n, rec.len())
	assert.False(t, s.Post(func() {}))
	assert.ErrorIs(t, s.Update(settings()), ErrStopped)

	s.Stop() // idempotent
}

func TestSlowConsumerDropsInsteadOfBlocking(t *testing.T) {
	ctx := audio.NewFakeContextPCM(pcm(3, 0.2), false)
	s, err := Start(Options{
		Audio:      ctx,
		Settings:   settings(),
		Buffer:     1,
		OnSnapshot: func(Snapshot) { time.Sleep(20 * time.Millisecond) },
	})
	require.NoError(t, err)

	select {
	case <-ctx.Captures()[0].AudioDone():
	case <-time.After(2 * time.Second):
		t.Fatal("capture blocked on a slow consumer")
	}
	s.Stop()

	stats := s.Stats()
	assert.Positive(t, stats.DroppedBlocks)
	assert.LessOrEqual(t, stats.Blocks+stats.DroppedBlocks, uint64(30))
}

func TestUpdateDisablingOverlayHides(t *testing.T) {
	ctx := audio.NewFakeContextPCM(pcm(10, 0.5), true)
	rec := &recorder{}
	s, err := Start(Options{Audio: ctx, Settings: settings(), OnSnapshot: rec.add})
	require.NoError(t, err)
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Snapshot().Overlay == overlay.Visible.String()
	}, 5*time.Second, 5*time.Millisecond)

	st := settings()
	st.EnableOverlay = false
	require.NoError(t, s.Update(st))

	state := make(chan overlay.State, 1)
	require.True(t, s.Post(func() { state <- s.presenter.State() }))
	assert.NotEqual(t, overlay.Visible, <-state)

	require.Eventually(t, func() bool {
		return s.Snapshot().Overlay == overlay.Hidden.String()
	}, 5*time.Second, 5*time.Millisecond)
	assert.True(t, s.Snapshot().Alerting)
}

func TestClipWrittenOnAlert(t *testing.T) {
	dir := t.TempDir()
	data := append(pcm(1, 0), pcm(0.5, 0.5)...)
	ctx := audio.NewFakeContextPCM(data, false)
	s, err := Start(Options{Audio: ctx, Settings: settings(), ClipDir: dir, Buffer: 1024})
	require.NoError(t, err)
	<-ctx.Captures()[0].AudioDone()
	require.Eventually(t, func() bool { return s.Stats().Blocks == 15 }, 5*time.Second, time.Millisecond)
	s.Stop()

	matches, err := filepath.Glob(filepath.Join(dir, "alert-*.flac"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	info, err := os.Stat(matches[0])
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestSnapshotStatus(t *testing.T) {
	assert.Equal(t, "Level: 42% (Instant)", Snapshot{Level: 42}.Status())
	assert.Equal(t, "Level: 42% (Avg: 38% / 2s)", Snapshot{Level: 42, Average: 38, Window: 2}.Status())
	assert.Equal(t, "Level: 10% (Avg: 12% / 1.5s)", Snapshot{Level: 10, Average: 12, Window: 1.5}.Status())
}
