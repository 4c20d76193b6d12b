//go:build ignore

// Generates tray.png: three level bars, the tallest one red.
package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
)

func main() {
	const size = 22
	img := image.NewRGBA(image.Rect(0, 0, size, size))

	bars := []struct {
		x, height int
		c         color.RGBA
	}{
		{3, 7, color.RGBA{90, 200, 90, 255}},
		{9, 12, color.RGBA{255, 175, 0, 255}},
		{15, 18, color.RGBA{230, 40, 40, 255}},
	}
	for _, b := range bars {
		for y := size - 2 - b.height; y < size-2; y++ {
			for x := b.x; x < b.x+4; x++ {
				img.Set(x, y, b.c)
			}
		}
	}

	f, err := os.Create("tray.png")
	if err != nil {
		panic(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		panic(err)
	}
}
