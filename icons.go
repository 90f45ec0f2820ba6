package main

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"github.com/nfnt/resize"
)

const (
	defaultIconSize = 22
	maxIconSize     = 256
	masterIconSize  = 64
)

var (
	folderBody  = color.RGBA{0xe8, 0xb3, 0x3c, 0xff}
	folderTab   = color.RGBA{0xc9, 0x94, 0x22, 0xff}
	pageFill    = color.RGBA{0xfa, 0xfa, 0xfa, 0xff}
	pageEdge    = color.RGBA{0x8a, 0x8a, 0x8a, 0xff}
	pageRuling  = color.RGBA{0xb0, 0xb8, 0xc4, 0xff}
	iconMasters = map[string]*image.RGBA{
		iconFolder:  drawFolder(),
		iconGeneric: drawGenericFile(),
	}

	iconCache struct {
		mu   sync.Mutex
		pngs map[iconKey][]byte
	}
)

type iconKey struct {
	name string
	size int
}

func fill(img *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, &image.Uniform{C: c}, image.Point{}, draw.Src)
}

func drawFolder() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, masterIconSize, masterIconSize))
	fill(img, image.Rect(4, 10, 28, 18), folderTab)
	fill(img, image.Rect(4, 16, 60, 54), folderBody)
	fill(img, image.Rect(4, 16, 60, 19), folderTab)
	return img
}

func drawGenericFile() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, masterIconSize, masterIconSize))
	fill(img, image.Rect(12, 4, 52, 60), pageEdge)
	fill(img, image.Rect(14, 6, 50, 58), pageFill)
	// folded corner
	fill(img, image.Rect(40, 6, 50, 16), pageEdge)
	for y := 22; y < 54; y += 8 {
		fill(img, image.Rect(19, y, 45, y+2), pageRuling)
	}
	return img
}

// loadIcon returns the named theme icon scaled to size×size. Unknown names
// get a transparent image rather than an error; a non-positive size means the
// default.
func loadIcon(name string, size int) image.Image {
	size = clampIconSize(size)
	master, ok := iconMasters[name]
	if !ok {
		return image.NewRGBA(image.Rect(0, 0, size, size))
	}
	return resize.Resize(uint(size), uint(size), master, resize.Lanczos3)
}

func clampIconSize(size int) int {
	if size <= 0 {
		return defaultIconSize
	}
	if size > maxIconSize {
		return maxIconSize
	}
	return size
}

// iconPNG returns loadIcon encoded as PNG. Theme icons are memoised per size.
func iconPNG(name string, size int) ([]byte, error) {
	size = clampIconSize(size)
	if _, ok := iconMasters[name]; !ok {
		var buf bytes.Buffer
		err := png.Encode(&buf, loadIcon(name, size))
		return buf.Bytes(), err
	}

	key := iconKey{name: name, size: size}

	iconCache.mu.Lock()
	defer iconCache.mu.Unlock()
	if data, ok := iconCache.pngs[key]; ok {
		return data, nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, loadIcon(name, size)); err != nil {
		return nil, err
	}
	if iconCache.pngs == nil {
		iconCache.pngs = make(map[iconKey][]byte)
	}
	iconCache.pngs[key] = buf.Bytes()
	return buf.Bytes(), nil
}
