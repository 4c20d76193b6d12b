//go:build gui

package gui

import (
	_ "embed"
	"image/color"
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/go-gl/glfw/v3.3/glfw"

	"noisewarn/log"
	"noisewarn/monitor"
	"noisewarn/overlay"
)

//go:generate go run ./assets/gen_icon.go

//go:embed assets/tray.png
var trayIcon []byte

// Options wire the tray and overlay to the rest of the application. The
// callbacks run on the fyne main thread and must not block.
type Options struct {
	OnReady   func()
	OnToggle  func()
	OnPreview func()
}

type App struct {
	opts    Options
	fyneApp fyne.App
	window  *overlayWindow
	display *display
	meter   *MeterWidget
	status  *canvas.Text
	head    *fyne.Container
	image   string

	menu   *fyne.Menu
	toggle *fyne.MenuItem
}

func NewApp(opts Options) *App {
	return &App{opts: opts, display: &display{}, meter: NewMeterWidget()}
}

// Run blocks on the fyne event loop. It must be called from the main
// goroutine with the OS thread locked.
func Run(a *App) error {
	a.fyneApp = app.NewWithID("io.noisewarn.gui")
	a.fyneApp.Settings().SetTheme(&darkTheme{})

	a.setupTray()

	a.display.refresh()
	glfw.SetMonitorCallback(func(*glfw.Monitor, glfw.PeripheralEvent) {
		a.display.refresh()
	})

	var win fyne.Window
	if drv, ok := a.fyneApp.Driver().(desktop.Driver); ok {
		win = drv.CreateSplashWindow()
	} else {
		win = a.fyneApp.NewWindow("noisewarn")
	}
	content := a.banner()
	win.SetContent(content)
	win.SetFixedSize(true)
	win.SetPadded(false)
	size := content.MinSize()
	win.Resize(size)
	a.window = &overlayWindow{
		win:  win,
		size: overlay.Size{Width: int(size.Width), Height: int(size.Height)},
	}

	if a.opts.OnReady != nil {
		go a.opts.OnReady()
	}

	// The window stays hidden until the first alert.
	a.fyneApp.Run()
	return nil
}

func (a *App) setupTray() {
	desk, ok := a.fyneApp.(desktop.App)
	if !ok {
		return
	}
	a.toggle = fyne.NewMenuItem("Start monitoring", func() {
		if a.opts.OnToggle != nil {
			a.opts.OnToggle()
		}
	})
	preview := fyne.NewMenuItem("Preview sound", func() {
		if a.opts.OnPreview != nil {
			a.opts.OnPreview()
		}
	})
	a.menu = fyne.NewMenu("noisewarn", a.toggle, preview,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", a.fyneApp.Quit),
	)
	desk.SetSystemTrayMenu(a.menu)
	desk.SetSystemTrayIcon(fyne.NewStaticResource("tray.png", trayIcon))
}

// banner is the alert content: the operator's image if one is set, otherwise
// a red text panel, with the live meter underneath.
func (a *App) banner() fyne.CanvasObject {
	bg := canvas.NewRectangle(colorAlert)
	bg.CornerRadius = 12

	// reserves room for an image so the window size never changes
	room := canvas.NewRectangle(color.Transparent)
	room.SetMinSize(fyne.NewSize(overlayWidth-32, 120))
	a.head = container.NewStack(room, title())

	a.status = canvas.NewText("", colorText)
	a.status.TextSize = 14
	a.status.Alignment = fyne.TextAlignCenter

	body := container.NewVBox(a.head, a.meter, a.status)
	return container.NewStack(bg, container.NewPadded(container.NewPadded(body)))
}

func title() fyne.CanvasObject {
	t := canvas.NewText("Too loud!", colorText)
	t.TextSize = 42
	t.TextStyle = fyne.TextStyle{Bold: true}
	t.Alignment = fyne.TextAlignCenter
	return container.NewCenter(t)
}

// SetImage replaces the banner headline with the image at path. An empty
// path, or one that cannot be read, restores the text headline.
func (a *App) SetImage(path string) {
	if path == a.image {
		return
	}
	a.image = path
	var head fyne.CanvasObject
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			log.Warnf("overlay image: %v", err)
		} else {
			img := canvas.NewImageFromFile(path)
			img.FillMode = canvas.ImageFillContain
			head = img
		}
	}
	if head == nil {
		head = title()
	}
	fyne.Do(func() {
		if a.head == nil {
			return
		}
		a.head.Objects = []fyne.CanvasObject{a.head.Objects[0], head}
		a.head.Refresh()
	})
}

func (a *App) Quit() {
	if a.fyneApp != nil {
		fyne.Do(a.fyneApp.Quit)
	}
}

// Window is the overlay surface. It is nil until Run has set it up, which
// happens before OnReady is called.
func (a *App) Window() overlay.Window { return a.window }

func (a *App) Display() overlay.Display { return a.display }

// SetMonitoring updates the tray item label.
func (a *App) SetMonitoring(on bool) {
	fyne.Do(func() {
		if a.toggle == nil {
			return
		}
		if on {
			a.toggle.Label = "Stop monitoring"
		} else {
			a.toggle.Label = "Start monitoring"
		}
		a.menu.Refresh()
	})
}

// Snapshot feeds a level snapshot to the overlay meter.
func (a *App) Snapshot(s monitor.Snapshot) {
	a.meter.SetLevel(s.Average, float64(s.Threshold))
	text := s.Status()
	fyne.Do(func() {
		a.status.Text = text
		a.status.Refresh()
	})
}
