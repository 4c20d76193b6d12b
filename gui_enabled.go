//go:build gui

package main

import (
	"runtime"

	"noisewarn/config"
	"noisewarn/gui"
	"noisewarn/monitor"
	"noisewarn/overlay"
)

var guiApp *gui.App

// initGUI takes the main thread for fyne and runs the application from the
// ready callback.
func initGUI() {
	runtime.LockOSThread()

	guiApp = gui.NewApp(gui.Options{
		OnReady:   run,
		OnToggle:  func() { signalChan(trayToggle) },
		OnPreview: func() { signalChan(trayPreview) },
	})
	if err := gui.Run(guiApp); err != nil {
		panic(err)
	}
}

// guiSurface returns the fyne overlay when running with -gui.
func guiSurface() (overlay.Window, overlay.Display, Sink, bool) {
	if guiApp == nil {
		return nil, nil, nil, false
	}
	return guiApp.Window(), guiApp.Display(), guiSink{guiApp}, true
}

func quitGUI() {
	if guiApp != nil {
		guiApp.Quit()
	}
}

type guiSink struct{ app *gui.App }

func (g guiSink) Snapshot(s monitor.Snapshot) { g.app.Snapshot(s) }
func (g guiSink) Monitoring(on bool, _ string) { g.app.SetMonitoring(on) }
func (g guiSink) Notice(string) {}
func (g guiSink) Settings(st config.Settings) { g.app.SetImage(st.OverlayImagePath) }
