package encoder

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mewkiz/flac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineSamples(n int) []int16 {
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	return out
}

func TestFlacEncoder(t *testing.T) {
	samples := sineSamples(SampleRate)
	var buf bytes.Buffer
	enc, err := NewFlac(&buf)
	require.NoError(t, err)

	for i := 0; i < len(samples); i += BlockSize {
		require.NoError(t, enc.EncodeBlock(samples[i:min(i+BlockSize, len(samples))]))
	}
	require.NoError(t, enc.Close())

	assert.Equal(t, uint64(len(samples)), enc.Samples())
	require.Greater(t, buf.Len(), 4)
	assert.Equal(t, "fLaC", buf.String()[:4])
}

func TestWriteClipDecodes(t *testing.T) {
	dir := t.TempDir()
	samples := sineSamples(10000)
	at := time.Date(2024, 3, 1, 12, 30, 5, 250e6, time.UTC)

	path, err := WriteClip(filepath.Join(dir, "clips"), at, samples)
	require.NoError(t, err)
	assert.Equal(t, "alert-20240301-123005.250.flac", filepath.Base(path))

	stream, err := flac.ParseFile(path)
	require.NoError(t, err)
	defer stream.Close()
	assert.Equal(t, uint32(SampleRate), stream.Info.SampleRate)
	assert.Equal(t, uint8(Channels), stream.Info.NChannels)

	var got []int16
	for {
		f, err := stream.ParseNext()
		if err != nil {
			break
		}
		for _, s := range f.Subframes[0].Samples {
			got = append(got, int16(s))
		}
	}
	assert.Equal(t, samples, got)
}

func TestWriteClipEmpty(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteClip(dir, time.Now(), nil)
	require.Error(t, err)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestPreRoll(t *testing.T) {
	p := &PreRoll{buf: make([]int16, 4)}
	p.Write([]int16{1, 2})
	assert.Equal(t, []int16{1, 2}, p.Snapshot())

	p.Write([]int16{3, 4, 5})
	assert.Equal(t, []int16{2, 3, 4, 5}, p.Snapshot())

	p.Write([]int16{6, 7, 8, 9, 10, 11})
	assert.Equal(t, []int16{8, 9, 10, 11}, p.Snapshot())

	p.Write([]int16{12})
	assert.Equal(t, []int16{9, 10, 11, 12}, p.Snapshot())
	assert.Equal(t, 4, p.Len())

	p.Reset()
	assert.Empty(t, p.Snapshot())
}

func TestNewPreRollSize(t *testing.T) {
	p := NewPreRoll(5 * time.Second)
	p.Write(make([]int16, 6*SampleRate))
	assert.Equal(t, 5*SampleRate, p.Len())
}
