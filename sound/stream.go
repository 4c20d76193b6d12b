package sound

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync"
)

// gainStream serves decoded S16LE PCM with a gain applied on read. It is the
// player's source, so Read runs on the audio goroutine.
type gainStream struct {
	mu   sync.Mutex
	data []byte
	pos  int64
	gain float64
}

func newGainStream(pcm []byte) *gainStream {
	return &gainStream{data: pcm, gain: 1}
}

func (g *gainStream) SetGain(f float64) {
	g.mu.Lock()
	g.gain = f
	g.mu.Unlock()
}

func (g *gainStream) Read(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pos >= int64(len(g.data)) {
		return 0, io.EOF
	}
	// whole samples only
	n := copy(p[:len(p)&^1], g.data[g.pos:])
	if g.gain != 1 {
		for i := 0; i+1 < n; i += 2 {
			s := float64(int16(binary.LittleEndian.Uint16(p[i:])))
			v := math.Max(math.MinInt16, math.Min(math.MaxInt16, s*g.gain))
			binary.LittleEndian.PutUint16(p[i:], uint16(int16(v)))
		}
	}
	g.pos += int64(n)
	return n, nil
}

func (g *gainStream) Seek(offset int64, whence int) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = g.pos + offset
	case io.SeekEnd:
		abs = int64(len(g.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	g.pos = abs
	return abs, nil
}

