package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	levelPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "noisewarn_level_percent",
			Help: "Loudness of the most recent captured block",
		},
	)

	averagePercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "noisewarn_average_percent",
			Help: "Loudness averaged over the configured window",
		},
	)

	thresholdPercent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "noisewarn_threshold_percent",
			Help: "Configured alert threshold",
		},
	)

	alerting = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "noisewarn_alerting",
			Help: "1 while the averaged level is above the threshold",
		},
	)

	monitoring = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "noisewarn_monitoring",
			Help: "1 while a capture session is running",
		},
	)

	blocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noisewarn_blocks_total",
			Help: "Total number of captured blocks evaluated",
		},
	)

	blocksDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noisewarn_blocks_dropped_total",
			Help: "Total number of level values dropped because the consumer fell behind",
		},
	)

	alertsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noisewarn_alerts_total",
			Help: "Total number of alerts raised",
		},
	)

	soundsPlayedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noisewarn_sounds_played_total",
			Help: "Total number of alert sounds started",
		},
	)

	soundsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noisewarn_sounds_dropped_total",
			Help: "Total number of alert sounds skipped because one was already playing",
		},
	)

	fadesCancelledTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "noisewarn_overlay_fades_cancelled_total",
			Help: "Total number of overlay fade-outs interrupted by a new alert",
		},
	)
)

func SetLevel(instant, avg float64) {
	levelPercent.Set(instant)
	averagePercent.Set(avg)
	blocksTotal.Inc()
}

func SetThreshold(v int) { thresholdPercent.Set(float64(v)) }

func SetAlerting(on bool) { alerting.Set(boolGauge(on)) }

func SetMonitoring(on bool) { monitoring.Set(boolGauge(on)) }

func AlertRaised() { alertsTotal.Inc() }

func BlockDropped() { blocksDroppedTotal.Inc() }

func SoundPlayed() { soundsPlayedTotal.Inc() }

func SoundDropped() { soundsDroppedTotal.Inc() }

func FadeCancelled() { fadesCancelledTotal.Inc() }

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
