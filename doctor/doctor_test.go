package doctor

import (
	"encoding/binary"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noisewarn/audio"
	"noisewarn/level"
)

func square(seconds, amplitude float64) []byte {
	n := int(seconds * audio.SampleRate)
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		v := int16(amplitude * 32767)
		if (i/50)%2 == 1 {
			v = -v
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

func TestMeasure(t *testing.T) {
	ctx := audio.NewFakeContextPCM(square(1, 0.1), false)
	stop := make(chan struct{})
	go func() {
		time.Sleep(300 * time.Millisecond)
		close(stop)
	}()

	devices, err := ctx.Devices()
	require.NoError(t, err)
	r, err := measure(ctx, &devices[0], level.NewAggregator(), stop)
	require.NoError(t, err)

	assert.Equal(t, 10, r.Blocks)
	// a full-scale square wave has rms = amplitude, so 0.1 reads as
	// 0.1*sqrt2*100*2.5
	assert.InDelta(t, 35.36, r.Peak, 0.1)
	assert.InDelta(t, r.Peak, r.Mean, 0.1)
	assert.True(t, ctx.Captures()[0].Closed())
}

func TestMeasureStartError(t *testing.T) {
	ctx := audio.NewFakeContextPCM(square(1, 0.1), false)
	ctx.StartErr = os.ErrPermission
	_, err := measure(ctx, nil, level.NewAggregator(), make(chan struct{}))
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.True(t, ctx.Captures()[0].Closed())
}

func TestImageSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "banner.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 320, 90))))
	require.NoError(t, f.Close())

	w, h, err := imageSize(path)
	require.NoError(t, err)
	assert.Equal(t, 320, w)
	assert.Equal(t, 90, h)

	_, _, err = imageSize(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	bogus := filepath.Join(dir, "bogus.png")
	require.NoError(t, os.WriteFile(bogus, []byte("not an image"), 0o644))
	_, _, err = imageSize(bogus)
	assert.ErrorContains(t, err, "decode overlay image")
}

func TestConfirm(t *testing.T) {
	assert.True(t, confirm(strings.NewReader("y\n"), ""))
	assert.True(t, confirm(strings.NewReader("Yes\n"), ""))
	assert.False(t, confirm(strings.NewReader("n\n"), ""))
	assert.False(t, confirm(strings.NewReader(""), ""))
}
