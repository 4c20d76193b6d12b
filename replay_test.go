package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noisewarn/audio"
	"noisewarn/config"
	"noisewarn/level"
)

func writeWAV(t *testing.T, pcm []byte) string {
	t.Helper()
	header := make([]byte, audio.WAVHeaderSize)
	copy(header, "RIFF")
	copy(header[8:], "WAVE")
	path := filepath.Join(t.TempDir(), "take.wav")
	require.NoError(t, os.WriteFile(path, append(header, pcm...), 0o644))
	return path
}

func TestReplayReportsCrossings(t *testing.T) {
	var pcm []byte
	pcm = append(pcm, sine(1, 0)...)
	pcm = append(pcm, sine(1, 0.5)...)
	pcm = append(pcm, sine(1, 0)...)
	ctx, err := audio.NewFakeContext(writeWAV(t, pcm), false)
	require.NoError(t, err)

	st := config.Defaults()
	var out bytes.Buffer
	alerts, err := replay(&out, ctx, st, level.NewAggregator(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, alerts)
	assert.Contains(t, out.String(), "enter")
	assert.Contains(t, out.String(), "leave")
	assert.Contains(t, out.String(), "30 block(s), 1 alert(s)")
	assert.Contains(t, out.String(), "    1.1s  enter")
}

func TestReplayRejectsNonWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 100), 0o644))
	_, err := audio.NewFakeContext(path, false)
	assert.ErrorContains(t, err, "not a WAV file")
}
