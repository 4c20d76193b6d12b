package encoder

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	SampleRate    = 44100
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

// PreRoll keeps the most recent samples in a fixed-size ring.
type PreRoll struct {
	buf   []int16
	start int
	n     int
}

func NewPreRoll(d time.Duration) *PreRoll {
	size := int(d.Seconds() * SampleRate)
	return &PreRoll{buf: make([]int16, max(size, 1))}
}

func (p *PreRoll) Write(samples []int16) {
	c := len(p.buf)
	if len(samples) >= c {
		copy(p.buf, samples[len(samples)-c:])
		p.start, p.n = 0, c
		return
	}
	for _, s := range samples {
		p.buf[(p.start+p.n)%c] = s
		if p.n < c {
			p.n++
		} else {
			p.start = (p.start + 1) % c
		}
	}
}

// Snapshot returns the retained samples, oldest first.
func (p *PreRoll) Snapshot() []int16 {
	out := make([]int16, p.n)
	c := len(p.buf)
	for i := range out {
		out[i] = p.buf[(p.start+i)%c]
	}
	return out
}

func (p *PreRoll) Len() int { return p.n }

func (p *PreRoll) Reset() { p.start, p.n = 0, 0 }

// ClipName is the file name used for a clip captured at t.
func ClipName(t time.Time) string {
	return "alert-" + t.Format("20060102-150405.000") + ".flac"
}

// WriteClip encodes samples as FLAC into dir and returns the file path.
func WriteClip(dir string, at time.Time, samples []int16) (string, error) {
	if len(samples) == 0 {
		return "", fmt.Errorf("empty clip")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create clip directory: %w", err)
	}
	path := filepath.Join(dir, ClipName(at))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create clip: %w", err)
	}

	enc, err := NewFlac(seekWriter{f})
	if err == nil {
		for i := 0; i < len(samples) && err == nil; i += BlockSize {
			err = enc.EncodeBlock(samples[i:min(i+BlockSize, len(samples))])
		}
		if cerr := enc.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// seekWriter hides Close so the FLAC encoder can rewrite the header through
// Seek while the file stays owned by WriteClip.
type seekWriter struct{ f *os.File }

func (w seekWriter) Write(p []byte) (int, error) { return w.f.Write(p) }

func (w seekWriter) Seek(offset int64, whence int) (int64, error) {
	return w.f.Seek(offset, whence)
}
