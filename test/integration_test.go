//go:build integration

package test_test

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

const sampleRate = 44100

var testBinary string

func TestMain(m *testing.M) {
	testBinary = os.Getenv("NOISEWARN_TEST_BIN")
	if testBinary == "" {
		fmt.Fprintln(os.Stderr, "NOISEWARN_TEST_BIN not set; run: go build -o /tmp/noisewarn . && NOISEWARN_TEST_BIN=/tmp/noisewarn go test -tags integration ./test")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type segment struct {
	seconds   float64
	amplitude float64
}

func generateWAV(t *testing.T, segs ...segment) string {
	t.Helper()
	var pcm []byte
	for _, s := range segs {
		n := int(s.seconds * sampleRate)
		for i := 0; i < n; i++ {
			v := s.amplitude * 32767 * math.Sin(2*math.Pi*440*float64(i)/sampleRate)
			pcm = binary.LittleEndian.AppendUint16(pcm, uint16(int16(v)))
		}
	}

	const headerSize = 44
	buf := make([]byte, headerSize, headerSize+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(headerSize-8+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], sampleRate)
	binary.LittleEndian.PutUint32(buf[28:32], sampleRate*2)
	binary.LittleEndian.PutUint16(buf[32:34], 2)  // block align
	binary.LittleEndian.PutUint16(buf[34:36], 16) // bits per sample
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	buf = append(buf, pcm...)

	path := filepath.Join(t.TempDir(), "take.wav")
	if err := os.WriteFile(path, buf, 0644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func runNoisewarn(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	cmdArgs := append([]string{
		"-logpath", dir,
		"-config", filepath.Join(dir, "settings.json"),
	}, args...)

	cmd := exec.Command(testBinary, cmdArgs...)
	cmd.Env = os.Environ()
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("noisewarn exited with error: %v\noutput: %s", err, out)
	}
	return string(out)
}

func TestVersion(t *testing.T) {
	out := runNoisewarn(t, "-version")
	if !strings.HasPrefix(out, "noisewarn ") {
		t.Errorf("unexpected version output: %q", out)
	}
}

func TestReplayQuiet(t *testing.T) {
	wav := generateWAV(t, segment{2, 0.01})
	out := runNoisewarn(t, "-replay", wav)
	if !strings.Contains(out, "20 block(s), 0 alert(s)") {
		t.Errorf("expected no alerts, got:\n%s", out)
	}
}

func TestReplayLoudBurst(t *testing.T) {
	wav := generateWAV(t, segment{1, 0}, segment{1, 0.5}, segment{1, 0})
	out := runNoisewarn(t, "-replay", wav)
	if !strings.Contains(out, "1 alert(s)") {
		t.Errorf("expected one alert, got:\n%s", out)
	}
	if !strings.Contains(out, "enter") || !strings.Contains(out, "leave") {
		t.Errorf("expected enter and leave, got:\n%s", out)
	}
}

func TestReplayThresholdAtMaximum(t *testing.T) {
	wav := generateWAV(t, segment{1, 1})
	out := runNoisewarn(t, "-threshold", "100", "-replay", wav)
	if !strings.Contains(out, "0 alert(s)") {
		t.Errorf("a full-scale signal must not exceed a 100%% threshold, got:\n%s", out)
	}
}

func TestReplayWritesClip(t *testing.T) {
	clipDir := t.TempDir()
	wav := generateWAV(t, segment{1, 0}, segment{1, 0.5})
	runNoisewarn(t, "-clipdir", clipDir, "-replay", wav)

	clips, err := filepath.Glob(filepath.Join(clipDir, "*.flac"))
	if err != nil {
		t.Fatal(err)
	}
	if len(clips) != 1 {
		t.Errorf("expected 1 clip, found %d", len(clips))
	}
}

func TestRejectsInvalidThreshold(t *testing.T) {
	dir := t.TempDir()
	cmd := exec.Command(testBinary, "-logpath", dir, "-config", filepath.Join(dir, "settings.json"), "-threshold", "150", "-replay", "unused.wav")
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected failure, got:\n%s", out)
	}
	if !strings.Contains(string(out), "threshold") {
		t.Errorf("expected threshold error, got:\n%s", out)
	}
}
