package sound

import (
	"encoding/binary"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu      sync.Mutex
	playing bool
	plays   int
	stops   int
	closed  bool
	gain    float64
	resets  int
}

func (h *fakeHandle) Play() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.playing {
		panic("overlapping playback")
	}
	h.playing = true
	h.plays++
}

func (h *fakeHandle) Stop() {
	h.mu.Lock()
	h.playing = false
	h.stops++
	h.mu.Unlock()
}

func (h *fakeHandle) SetGain(f float64) {
	h.mu.Lock()
	h.gain = f
	h.mu.Unlock()
}

func (h *fakeHandle) ResetPosition() error {
	h.mu.Lock()
	h.resets++
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) Playing() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}

// finish simulates the end of the sound.
func (h *fakeHandle) finish() {
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
}

type fakeBackend struct {
	mu      sync.Mutex
	handles map[string]*fakeHandle
}

var errNotFound = errors.New("not found")

func (b *fakeBackend) Load(path string) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if path == "missing.wav" {
		return nil, errNotFound
	}
	h := &fakeHandle{}
	if b.handles == nil {
		b.handles = map[string]*fakeHandle{}
	}
	b.handles[path] = h
	return h, nil
}

func (b *fakeBackend) handle(path string) *fakeHandle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.handles[path]
}

func newTestAlert(t *testing.T) (*Alert, *fakeBackend) {
	b := &fakeBackend{}
	a := NewAlert(b)
	a.poll = time.Millisecond
	t.Cleanup(a.Close)
	return a, b
}

func TestGain(t *testing.T) {
	assert.Equal(t, 1.5, Gain(150))
	assert.Equal(t, 2.0, Gain(250))
	assert.Equal(t, 1.0, Gain(100))
	assert.Equal(t, 0.0, Gain(-20))
}

func TestPlayWithoutSoundIsNoop(t *testing.T) {
	a, _ := newTestAlert(t)
	assert.False(t, a.Play(100))
	assert.Equal(t, Idle, a.State())
	assert.ErrorIs(t, a.Preview(100), ErrNoSound)
}

func TestPlayDropsWhilePlaying(t *testing.T) {
	a, b := newTestAlert(t)
	require.NoError(t, a.SetFile("alert.wav"))
	h := b.handle("alert.wav")

	assert.True(t, a.Play(150))
	assert.Equal(t, Playing, a.State())
	for i := 0; i < 10; i++ {
		assert.False(t, a.Play(100))
	}
	assert.ErrorIs(t, a.Preview(100), ErrBusy)

	h.mu.Lock()
	assert.Equal(t, 1, h.plays)
	assert.Equal(t, 1.5, h.gain)
	assert.Equal(t, 1, h.resets)
	h.mu.Unlock()

	h.finish()
	assert.Eventually(t, func() bool { return a.State() == Idle }, time.Second, time.Millisecond)
	assert.True(t, a.Play(250))
	h.mu.Lock()
	assert.Equal(t, 2, h.plays)
	assert.Equal(t, 2.0, h.gain)
	h.mu.Unlock()
}

func TestConcurrentPlayNeverOverlaps(t *testing.T) {
	a, b := newTestAlert(t)
	require.NoError(t, a.SetFile("alert.wav"))
	h := b.handle("alert.wav")

	var started atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if a.Play(100) {
					started.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	// the fake panics on overlapping Play, and nothing finishes the sound
	assert.Equal(t, int32(1), started.Load())
	assert.True(t, h.Playing())
}

func TestSetFileWhilePlaying(t *testing.T) {
	a, b := newTestAlert(t)
	require.NoError(t, a.SetFile("one.wav"))
	require.True(t, a.Play(100))
	old := b.handle("one.wav")

	require.NoError(t, a.SetFile("two.wav"))
	assert.Equal(t, Idle, a.State())
	assert.Equal(t, "two.wav", a.Path())
	old.mu.Lock()
	assert.True(t, old.closed)
	assert.False(t, old.playing)
	old.mu.Unlock()

	require.True(t, a.Play(100))
	// the old poller must not reset the new chime's state
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, Playing, a.State())

	b.handle("two.wav").finish()
	assert.Eventually(t, func() bool { return a.State() == Idle }, time.Second, time.Millisecond)
}

func TestSetFileLoadFailure(t *testing.T) {
	a, b := newTestAlert(t)
	require.NoError(t, a.SetFile("one.wav"))

	err := a.SetFile("missing.wav")
	require.Error(t, err)
	assert.ErrorIs(t, err, errNotFound)
	assert.True(t, b.handle("one.wav").closed)
	assert.False(t, a.Loaded())
	assert.False(t, a.Play(100))
	assert.Equal(t, Idle, a.State())

	require.NoError(t, a.SetFile(""))
	assert.True(t, a.Play(100))
}

func TestGainStream(t *testing.T) {
	pcm := make([]byte, 8)
	for i, v := range []int16{1000, -1000, 20000, -20000} {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	s := newGainStream(pcm)
	s.SetGain(2)

	out, err := io.ReadAll(s)
	require.NoError(t, err)
	var got []int16
	for i := 0; i < len(out); i += 2 {
		got = append(got, int16(binary.LittleEndian.Uint16(out[i:])))
	}
	assert.Equal(t, []int16{2000, -2000, 32767, -32768}, got)

	pos, err := s.Seek(0, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos)
	s.SetGain(1)
	out, err = io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, pcm, out)
}

func TestChime(t *testing.T) {
	c := Chime()
	require.NotEmpty(t, c)
	assert.Zero(t, len(c)%4)
}
