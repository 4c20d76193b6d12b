package main

import (
	"fmt"
	"io"
	"time"

	"noisewarn/audio"
	"noisewarn/config"
	"noisewarn/level"
	"noisewarn/monitor"
)

// replay runs the alert pipeline over a recording as fast as it can be read
// and prints every threshold crossing. It returns the number of alerts.
func replay(w io.Writer, ctx *audio.FakeContext, st config.Settings, agg *level.Aggregator, clipDir string) (int, error) {
	blocks := ctx.Blocks()
	events := make(chan monitor.Snapshot, blocks+1)

	sess, err := monitor.Start(monitor.Options{
		Audio:      ctx,
		Settings:   st,
		Aggregator: agg,
		ClipDir:    clipDir,
		Buffer:     blocks + 1,
		OnSnapshot: func(s monitor.Snapshot) {
			if s.Event != "" {
				events <- s
			}
		},
	})
	if err != nil {
		return 0, err
	}

	deadline := time.After(time.Minute)
wait:
	for {
		stats := sess.Stats()
		if stats.Blocks+stats.DroppedBlocks >= uint64(blocks) {
			break
		}
		select {
		case <-deadline:
			break wait
		case <-time.After(5 * time.Millisecond):
		}
	}
	sess.Stop()
	close(events)

	alerts := 0
	for s := range events {
		if s.Event == "enter" {
			alerts++
		}
		fmt.Fprintf(w, "%7.1fs  %-5s  avg %3.0f%%  level %3.0f%%  threshold %d%%\n",
			s.At.Sub(sess.Began()).Seconds(), s.Event, s.Average, s.Level, s.Threshold)
	}
	fmt.Fprintf(w, "%d block(s), %d alert(s)\n", sess.Stats().Blocks, alerts)
	return alerts, nil
}
