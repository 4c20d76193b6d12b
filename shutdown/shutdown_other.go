//go:build !windows

package shutdown

import (
	"os"
	"os/signal"
	"syscall"
)

// Notify delivers the signals that should end monitoring. SIGHUP is included
// so closing the terminal releases the microphone cleanly.
func Notify(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
}
