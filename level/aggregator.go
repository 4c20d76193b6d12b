package level

import "math"

const (
	// FullScaleSineRMS is the RMS of a full-scale sine wave in normalized units.
	FullScaleSineRMS = 1 / math.Sqrt2

	// DefaultSensitivity scales RMS so ordinary speech reads well above zero.
	DefaultSensitivity = 2.5

	maxSampleValue = 32768.0
)

// Aggregator converts a block of S16LE mono PCM into a loudness percentage.
type Aggregator struct {
	Sensitivity float64
}

// NewAggregator returns an Aggregator using DefaultSensitivity.
func NewAggregator() *Aggregator {
	return &Aggregator{Sensitivity: DefaultSensitivity}
}

// Percent returns the block's loudness in [0, 100]. ok is false when the
// block holds no complete sample.
func (a *Aggregator) Percent(pcm []byte) (pct float64, ok bool) {
	k := a.Sensitivity
	if k <= 0 {
		k = DefaultSensitivity
	}
	return percent(pcm, k)
}

// Percent runs the default aggregator over pcm.
func Percent(pcm []byte) (float64, bool) {
	return percent(pcm, DefaultSensitivity)
}

func percent(pcm []byte, k float64) (float64, bool) {
	n := len(pcm) / 2
	if n == 0 {
		return 0, false
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
		v := s / maxSampleValue
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(n))
	return Clamp(rms/FullScaleSineRMS*100*k, 0, 100), true
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Samples decodes S16LE bytes into int16 samples, appending to dst.
func Samples(dst []int16, pcm []byte) []int16 {
	for i := 0; i+1 < len(pcm); i += 2 {
		dst = append(dst, int16(uint16(pcm[i])|uint16(pcm[i+1])<<8))
	}
	return dst
}
