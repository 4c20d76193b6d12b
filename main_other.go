//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	// -gui hands the main thread to fyne, which calls run() in a goroutine
	for _, arg := range os.Args[1:] {
		if arg == "-gui" || arg == "--gui" {
			initGUI()
			return
		}
	}
	// the hotkey package needs the main thread on macOS
	mainthread.Init(run)
}
