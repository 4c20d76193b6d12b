package sound

import (
	"encoding/binary"
	"math"
)

const (
	SampleRate = 44100
	channels   = 2

	chimeFreq   = 880
	chimeVolume = 0.5
	chimeDecay  = 6
)

// tone renders a decaying sine as interleaved stereo S16LE.
func tone(freq, duration, volume, decay float64) []byte {
	n := int(SampleRate * duration)
	buf := make([]byte, n*channels*2)
	for i := 0; i < n; i++ {
		t := float64(i) / SampleRate
		envelope := math.Exp(-t * decay)
		s := uint16(int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope))
		binary.LittleEndian.PutUint16(buf[i*4:], s)
		binary.LittleEndian.PutUint16(buf[i*4+2:], s)
	}
	return buf
}

// Chime is the built-in alert: two falling tones with a short gap.
func Chime() []byte {
	hi := tone(chimeFreq, 0.35, chimeVolume, chimeDecay)
	lo := tone(chimeFreq*3/4, 0.5, chimeVolume, chimeDecay)
	gap := make([]byte, int(SampleRate*0.05)*channels*2)

	out := make([]byte, 0, len(hi)+len(gap)+len(lo))
	out = append(out, hi...)
	out = append(out, gap...)
	out = append(out, lo...)
	return out
}
