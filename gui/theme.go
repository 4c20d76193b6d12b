//go:build gui

package gui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

var (
	colorAlert   = color.RGBA{190, 20, 20, 235}
	colorText    = color.RGBA{255, 255, 255, 255}
	colorQuiet   = color.RGBA{90, 200, 90, 255}
	colorNear    = color.RGBA{255, 175, 0, 255}
	colorLoud    = color.RGBA{255, 60, 60, 255}
	colorTrack   = color.RGBA{60, 10, 10, 255}
	colorMarker  = color.RGBA{255, 255, 255, 255}
	overlayWidth = float32(480)
)

type darkTheme struct{}

func (d *darkTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNameBackground:
		return color.RGBA{18, 18, 18, 255}
	case theme.ColorNameForeground:
		return color.RGBA{200, 200, 200, 255}
	}
	return theme.DefaultTheme().Color(name, theme.VariantDark)
}

func (d *darkTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (d *darkTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (d *darkTheme) Size(name fyne.ThemeSizeName) float32 {
	return theme.DefaultTheme().Size(name)
}
