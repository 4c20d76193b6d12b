package sound

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// OtoBackend plays through a single shared oto context, created on first
// Load. Files are decoded fully into memory.
type OtoBackend struct {
	once sync.Once
	ctx  *oto.Context
	err  error
}

func NewOtoBackend() *OtoBackend {
	return &OtoBackend{}
}

func (b *OtoBackend) context() (*oto.Context, error) {
	b.once.Do(func() {
		var ready chan struct{}
		b.ctx, ready, b.err = oto.NewContext(&oto.NewContextOptions{
			SampleRate:   SampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		})
		if b.err != nil {
			b.err = fmt.Errorf("oto init: %w", b.err)
			return
		}
		<-ready
	})
	return b.ctx, b.err
}

func (b *OtoBackend) Load(path string) (Handle, error) {
	ctx, err := b.context()
	if err != nil {
		return nil, err
	}
	var pcm []byte
	if path == "" {
		pcm = Chime()
	} else if pcm, err = Decode(path); err != nil {
		return nil, err
	}
	s := newGainStream(pcm)
	return &otoHandle{player: ctx.NewPlayer(s), stream: s}, nil
}

// Decode reads a .wav, .mp3 or .ogg file into 44.1 kHz stereo S16LE.
func Decode(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data)

	var src io.Reader
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		src, err = wav.DecodeWithSampleRate(SampleRate, r)
	case ".mp3":
		src, err = mp3.DecodeWithSampleRate(SampleRate, r)
	case ".ogg", ".oga":
		src, err = vorbis.DecodeWithSampleRate(SampleRate, r)
	default:
		return nil, fmt.Errorf("unsupported sound format %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	pcm, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if len(pcm) == 0 {
		return nil, fmt.Errorf("decode %s: no audio", filepath.Base(path))
	}
	return pcm, nil
}

type otoHandle struct {
	player *oto.Player
	stream *gainStream
}

func (h *otoHandle) Play() { h.player.Play() }

func (h *otoHandle) Stop() { h.player.Pause() }

func (h *otoHandle) SetGain(f float64) { h.stream.SetGain(f) }

func (h *otoHandle) ResetPosition() error {
	_, err := h.player.Seek(0, io.SeekStart)
	return err
}

func (h *otoHandle) Playing() bool { return h.player.IsPlaying() }

func (h *otoHandle) Close() error {
	h.player.Pause()
	return h.player.Err()
}
