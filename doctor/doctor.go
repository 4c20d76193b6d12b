package doctor

import (
	"bufio"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"noisewarn/audio"
	"noisewarn/config"
	"noisewarn/hotkey"
	"noisewarn/level"
	"noisewarn/shutdown"
	"noisewarn/sound"
)

// Run executes interactive diagnostic checks and returns an exit code (0=all pass, 1=any fail).
func Run(st config.Settings) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("noisewarn doctor - interactive system diagnostics")
	fmt.Println("=================================================")

	allPass := true
	if !checkHotkey() {
		allPass = false
	}
	if !checkMicrophone(st) {
		allPass = false
	}
	if !checkSound(st) {
		allPass = false
	}
	if !checkOverlay(st) {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func setupInterruptHandler() {
	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		println("\nInterrupted")
		os.Exit(1)
	}()
}

func checkHotkey() bool {
	fmt.Println()
	fmt.Println("[1/4] Hotkey detection")
	fmt.Printf("Press %s...\n", hotkey.Combo)

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		fmt.Printf("  FAIL: could not register hotkey: %v\n", err)
		return false
	}
	defer hk.Unregister()

	select {
	case <-hk.Keydown():
		fmt.Println("  PASS: hotkey detected")
		select {
		case <-hk.Keyup():
		case <-time.After(5 * time.Second):
		}
		resetTerminal()
		return true
	case <-time.After(10 * time.Second):
		fmt.Println("  FAIL: timeout waiting for hotkey")
		return false
	}
}

func checkMicrophone(st config.Settings) bool {
	fmt.Println()
	fmt.Println("[2/4] Microphone level")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	for i, d := range devices {
		fmt.Printf("  %d. %s\n", i+1, d.Name)
	}
	dev, found := audio.ResolveDevice(devices, st.SelectedDevice)
	if dev == nil {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}
	if !found && st.SelectedDevice != "" {
		fmt.Printf("  Warning: %q not found, using %s\n", st.SelectedDevice, dev.Name)
	}

	fmt.Print("Press Enter and make some noise for 3 seconds...")
	bufio.NewReader(os.Stdin).ReadString('\n')

	stop := make(chan struct{})
	time.AfterFunc(3*time.Second, func() { close(stop) })
	fmt.Print("  Listening")
	r, err := measure(ctx, dev, level.NewAggregator(), stop)
	fmt.Println(" done")
	if err != nil {
		fmt.Printf("  FAIL: capture error: %v\n", err)
		return false
	}
	if r.Blocks == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}

	fmt.Printf("  Peak %.0f%%, mean %.0f%% over %d blocks (threshold %d%%)\n",
		r.Peak, r.Mean, r.Blocks, st.ThresholdPercent)
	if r.Peak == 0 {
		fmt.Println("  FAIL: microphone delivered only silence (muted?)")
		return false
	}
	if r.Peak <= float64(st.ThresholdPercent) {
		fmt.Println("  Note: nothing crossed the threshold; lower it if that was loud")
	}
	fmt.Println("  PASS: microphone level measured")
	return true
}

// Reading summarises a short capture.
type Reading struct {
	Peak   float64
	Mean   float64
	Blocks int
}

func measure(ctx audio.Context, dev *audio.DeviceInfo, agg *level.Aggregator, stop <-chan struct{}) (Reading, error) {
	var (
		mu  sync.Mutex
		r   Reading
		sum float64
	)

	capture, err := ctx.NewCapture(dev, audio.DefaultConfig())
	if err != nil {
		return Reading{}, err
	}
	capture.SetCallback(func(data []byte, _ uint32) {
		pct, ok := agg.Percent(data)
		if !ok {
			return
		}
		mu.Lock()
		r.Blocks++
		r.Peak = max(r.Peak, pct)
		sum += pct
		mu.Unlock()
	})
	if err := capture.Start(); err != nil {
		capture.ClearCallback()
		capture.Close()
		return Reading{}, err
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-stop:
			break wait
		case <-ticker.C:
			fmt.Print(".")
		}
	}

	capture.ClearCallback()
	capture.Stop()
	capture.Close()

	mu.Lock()
	defer mu.Unlock()
	if r.Blocks > 0 {
		r.Mean = sum / float64(r.Blocks)
	}
	return r, nil
}

func checkSound(st config.Settings) bool {
	fmt.Println()
	fmt.Println("[3/4] Warning sound")

	a := sound.NewAlert(sound.NewOtoBackend())
	defer a.Close()
	name := st.LastWarningSoundPath
	if name == "" {
		name = "built-in chime"
	}
	if err := a.SetFile(st.LastWarningSoundPath); err != nil {
		fmt.Printf("  FAIL: cannot load %s: %v\n", name, err)
		return false
	}
	if err := a.Preview(st.WarningVolumePercent); err != nil {
		fmt.Printf("  FAIL: preview: %v\n", err)
		return false
	}
	for a.State() == sound.Playing {
		time.Sleep(50 * time.Millisecond)
	}

	if !confirm(os.Stdin, fmt.Sprintf("Did you hear the %s at %d%%? [y/n]: ", name, st.WarningVolumePercent)) {
		fmt.Println("  FAIL: playback not confirmed")
		return false
	}
	fmt.Println("  PASS: warning sound verified by user")
	return true
}

func checkOverlay(st config.Settings) bool {
	fmt.Println()
	fmt.Println("[4/4] Overlay image")

	if st.OverlayImagePath == "" {
		fmt.Println("  PASS: no image configured, the text banner will be used")
		return true
	}
	w, h, err := imageSize(st.OverlayImagePath)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: %s is %dx%d\n", st.OverlayImagePath, w, h)
	return true
}

func imageSize(path string) (w, h int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open overlay image: %w", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("decode overlay image %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

func confirm(in io.Reader, prompt string) bool {
	resetTerminal()
	fmt.Print(prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes"
}
