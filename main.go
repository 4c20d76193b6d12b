package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"noisewarn/audio"
	"noisewarn/config"
	"noisewarn/doctor"
	"noisewarn/hotkey"
	"noisewarn/level"
	"noisewarn/log"
	"noisewarn/monitor"
	"noisewarn/server"
	"noisewarn/shutdown"
	"noisewarn/sound"
)

var version = "dev"

const longPress = 600 * time.Millisecond

// Tray menu actions, signalled from the GUI thread.
var (
	trayToggle  = make(chan struct{}, 1)
	trayPreview = make(chan struct{}, 1)
)

func signalChan(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// flagUpdate collects the settings given on the command line. Only flags the
// operator actually set override the stored settings.
func flagUpdate(fs *flag.FlagSet) config.Update {
	var u config.Update
	fs.Visit(func(f *flag.Flag) {
		g, ok := f.Value.(flag.Getter)
		if !ok {
			return
		}
		switch v := g.Get().(type) {
		case int:
			switch f.Name {
			case "threshold":
				u.Threshold = ptr(v)
			case "volume":
				u.Volume = ptr(v)
			case "monitor":
				u.Monitor = ptr(v)
			}
		case float64:
			if f.Name == "window" {
				u.Window = ptr(v)
			}
		case bool:
			switch f.Name {
			case "nosound":
				u.Sound = ptr(!v)
			case "nooverlay":
				u.Overlay = ptr(!v)
			case "repeat":
				u.Repeat = ptr(v)
			}
		case string:
			switch f.Name {
			case "sound":
				u.SoundPath = ptr(v)
			case "overlay":
				u.ImagePath = ptr(v)
			case "device":
				u.Device = ptr(v)
			}
		}
	})
	return u
}

func run() {
	fs := flag.CommandLine
	configFlag := fs.String("config", "", "settings file (default: $NOISEWARN_CONFIG or the OS config dir)")
	logPathFlag := fs.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.String("device", "", "use named microphone device")
	setupFlag := fs.Bool("setup", false, "select microphone device interactively")
	fs.Int("threshold", config.DefaultThreshold, "alert threshold in percent (0-100)")
	fs.Float64("window", 0, "averaging window in seconds (0 = instant, max 5)")
	fs.Int("volume", config.DefaultVolume, "warning sound volume in percent (0-200)")
	fs.String("sound", "", "warning sound file (.wav, .mp3, .ogg); empty = built-in chime")
	fs.String("overlay", "", "overlay image file (.png, .jpg)")
	fs.Int("monitor", 0, "monitor index for the overlay")
	fs.Bool("nosound", false, "disable the warning sound")
	fs.Bool("nooverlay", false, "disable the overlay")
	fs.Bool("repeat", false, "replay the warning sound on every loud block while alerting")
	listenFlag := fs.String("listen", "", "serve /metrics and /ws on this address (e.g. :9100)")
	tokenFlag := fs.String("token", "", "token websocket clients must present (default: $NOISEWARN_TOKEN, generated when -listen is not loopback)")
	clipDirFlag := fs.String("clipdir", "", "write a FLAC clip of the last seconds of audio on every alert")
	sensitivityFlag := fs.Float64("sensitivity", level.DefaultSensitivity, "level sensitivity multiplier")
	replayFlag := fs.String("replay", "", "run the pipeline over a 44.1 kHz mono WAV file and exit")
	doctorFlag := fs.Bool("doctor", false, "run system diagnostics and exit")
	versionFlag := fs.Bool("version", false, "print version and exit")
	fs.Bool("gui", false, "show the overlay in a desktop window (requires -tags gui)")
	tuiFlag := fs.Bool("tui", true, "run with terminal UI")
	profileFlag := fs.String("profile", "", "enable pprof profiling server (e.g., :6060 or localhost:6060)")
	fs.Parse(os.Args[1:])

	if *versionFlag {
		fmt.Printf("noisewarn %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *profileFlag != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", *profileFlag)
			if err := http.ListenAndServe(*profileFlag, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	store := config.NewStore(config.ResolvePath(*configFlag))
	st, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	st, err = st.Apply(flagUpdate(fs))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	agg := &level.Aggregator{Sensitivity: *sensitivityFlag}

	if *doctorFlag {
		os.Exit(doctor.Run(st))
	}

	if *replayFlag != "" {
		ctx, err := audio.NewFakeContext(*replayFlag, false)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if _, err := replay(os.Stdout, ctx, st, agg, *clipDirFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	defer log.Close()

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	if *setupFlag {
		dev, err := audio.SelectDevice(actx, st.SelectedDevice)
		switch {
		case errors.Is(err, audio.ErrCancelled):
		case err != nil:
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\n", err)
		case dev != nil:
			st.SelectedDevice = dev.Name
		}
	}
	if err := store.Save(st); err != nil {
		log.Warnf("save settings: %v", err)
	}

	alertSound := sound.NewAlert(sound.NewOtoBackend())
	defer alertSound.Close()

	ctrl := &controller{
		store:    store,
		audio:    actx,
		sound:    alertSound,
		agg:      agg,
		clipDir:  *clipDirFlag,
		settings: st,
	}
	ctrl.loadSound(st.LastWarningSoundPath)

	var tuiDone <-chan struct{}
	if win, disp, sink, ok := guiSurface(); ok {
		ctrl.window, ctrl.display = win, disp
		ctrl.addSink(sink)
	} else if *tuiFlag {
		state := &tuiState{}
		ctrl.window = terminalOverlay{state}
		ctrl.addSink(state)

		tuiMu.Lock()
		tuiProgram = NewTUIProgram(ctrl, state)
		tuiMu.Unlock()
		done := make(chan struct{})
		tuiDone = done
		go func() {
			defer close(done)
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
			}
		}()
	} else {
		ctrl.addSink(consoleSink{})
	}

	var srv *server.Server
	if *listenFlag != "" {
		srv = server.New(ctrl)
		token := *tokenFlag
		if token == "" {
			token = os.Getenv("NOISEWARN_TOKEN")
		}
		if token == "" && !server.IsLoopback(*listenFlag) {
			token = uuid.NewString()
			ctrl.notice("websocket token: " + token)
		}
		srv.SetToken(token)
		if err := srv.Start(*listenFlag); err != nil {
			log.Errorf("%v", err)
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		ctrl.addSink(serverSink{srv})
	}
	ctrl.eachSink(func(s Sink) { s.Settings(st) })

	var gestures <-chan hotkey.Action
	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Warnf("hotkey register error: %v", err)
		ctrl.notice(fmt.Sprintf("%s unavailable: %v", hotkey.Combo, err))
	} else {
		defer hk.Unregister()
		g := hotkey.NewGestures(hk, longPress)
		defer g.Close()
		gestures = g.Actions()
	}

	if err := ctrl.Start(); err != nil {
		log.Errorf("start monitoring: %v", err)
		ctrl.notice(fmt.Sprintf("start: %v", err))
	}

	ctx, stop := shutdown.Context(context.Background())
	defer stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-tuiDone:
			break loop
		case a := <-gestures:
			handleAction(ctrl, a)
		case <-trayToggle:
			handleAction(ctrl, hotkey.Toggle)
		case <-trayPreview:
			handleAction(ctrl, hotkey.Preview)
		}
	}

	ctrl.Close()
	if srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		srv.Shutdown(sctx)
		cancel()
	}
	tuiMu.Lock()
	if tuiProgram != nil {
		tuiProgram.Quit()
	}
	tuiMu.Unlock()
	quitGUI()
}

func handleAction(ctrl *controller, a hotkey.Action) {
	log.Infof("action: %s", a)
	switch a {
	case hotkey.Toggle:
		if err := ctrl.Toggle(); err != nil {
			log.Errorf("toggle monitoring: %v", err)
			ctrl.notice(fmt.Sprintf("start: %v", err))
		}
	case hotkey.Preview:
		if err := ctrl.Preview(); err != nil && !errors.Is(err, sound.ErrBusy) {
			ctrl.notice(fmt.Sprintf("preview: %v", err))
		}
	}
}

// consoleSink prints alert transitions when running without a UI.
type consoleSink struct{}

func (consoleSink) Snapshot(s monitor.Snapshot) {
	if s.Event != "" {
		fmt.Printf("%s  %-5s  %s\n", s.At.Format("15:04:05"), s.Event, s.Status())
	}
}

func (consoleSink) Monitoring(on bool, device string) {
	if on {
		fmt.Printf("monitoring %s\n", device)
	} else {
		fmt.Println("monitoring stopped")
	}
}

func (consoleSink) Notice(text string) { fmt.Fprintln(os.Stderr, text) }

func (consoleSink) Settings(config.Settings) {}
