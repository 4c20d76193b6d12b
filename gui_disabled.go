//go:build !gui

package main

import (
	"fmt"
	"os"

	"noisewarn/overlay"
)

func initGUI() {
	fmt.Fprintln(os.Stderr, "noisewarn: built without GUI support (rebuild with -tags gui)")
	os.Exit(1)
}

func guiSurface() (overlay.Window, overlay.Display, Sink, bool) {
	return nil, nil, nil, false
}

func quitGUI() {}
