package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	diagLog   zerolog.Logger
	diagFile  *os.File
	alertFile *os.File
	logMu     sync.Mutex
	logReady  bool
	pid       int
	dir       string
	sessionID string
)

// SessionStats summarizes one monitoring session.
type SessionStats struct {
	Duration      time.Duration
	Blocks        uint64
	DroppedBlocks uint64
	Alerts        uint64
	SoundsPlayed  uint64
	SoundsDropped uint64
}

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: NOISEWARN_LOG_PATH environment variable
	if envPath := os.Getenv("NOISEWARN_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	pid = os.Getpid()

	var err error

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	diagFile, err = os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	alertPath := filepath.Join(dir, "alert_log.txt")
	alertFile, err = os.OpenFile(alertPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if alertFile != nil {
		alertFile.Close()
		alertFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

// SessionStart logs the start of monitoring and returns the new session id.
func SessionStart(device string, threshold int, window time.Duration) string {
	logMu.Lock()
	sessionID = uuid.NewString()
	id := sessionID
	logMu.Unlock()

	if logReady {
		diagLog.Info().
			Str("session", id).
			Str("device", device).
			Int("threshold", threshold).
			Dur("window", window).
			Msg("session_start")
	}
	return id
}

func SessionEnd(s SessionStats) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("session", Session()).
		Dur("duration", s.Duration).
		Uint64("blocks", s.Blocks).
		Uint64("dropped_blocks", s.DroppedBlocks).
		Uint64("alerts", s.Alerts).
		Uint64("sounds_played", s.SoundsPlayed).
		Uint64("sounds_dropped", s.SoundsDropped).
		Msg("session_end")
}

// Session returns the id of the current monitoring session.
func Session() string {
	logMu.Lock()
	defer logMu.Unlock()
	return sessionID
}

func AlertEnter(avg float64, threshold int) {
	if !logReady {
		return
	}
	diagLog.Warn().
		Float64("avg", avg).
		Int("threshold", threshold).
		Msg("alert_enter")
	AlertText(fmt.Sprintf("ENTER avg=%.1f threshold=%d", avg, threshold))
}

func AlertLeave(avg float64, threshold int, lasted time.Duration) {
	if !logReady {
		return
	}
	diagLog.Info().
		Float64("avg", avg).
		Int("threshold", threshold).
		Dur("lasted", lasted).
		Msg("alert_leave")
	AlertText(fmt.Sprintf("LEAVE avg=%.1f threshold=%d lasted=%s", avg, threshold, lasted.Round(time.Millisecond)))
}

// AlertText appends one line to alert_log.txt.
func AlertText(text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	if alertFile == nil {
		return
	}
	line := fmt.Sprintf("%s\t[%d]\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, text)
	alertFile.WriteString(line)
}

func SoundLoaded(path string) {
	if !logReady {
		return
	}
	if path == "" {
		path = "(built-in chime)"
	}
	diagLog.Info().Str("path", path).Msg("sound_loaded")
}

func ClipWritten(path string, seconds float64) {
	if !logReady {
		return
	}
	diagLog.Info().Str("path", path).Float64("audio_s", seconds).Msg("clip_written")
}
