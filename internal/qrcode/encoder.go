// Package qrcode adapts third-party QR libraries to the service interfaces:
// skip2/go-qrcode for encoding and gozxing for decoding camera frames.
package qrcode

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	skip "github.com/skip2/go-qrcode"

	"github.com/BrandonDHaskell/qrscan/internal/qrscan/service"
)

var (
	dark  = color.Gray{Y: 0x00}
	light = color.Gray{Y: 0xff}
)

// ErrSymbolTooLarge means the symbol has more modules than the requested
// graphic has pixels, so it cannot be drawn at one pixel per module or more.
var ErrSymbolTooLarge = errors.New("qrcode: text too long for graphic size")

// Encoder implements service.Encoder.  The symbol keeps the library's
// four-module quiet zone.
type Encoder struct{}

func NewEncoder() Encoder { return Encoder{} }

func (Encoder) Encode(req service.EncodeRequest) (service.Graphic, error) {
	level, err := recoveryLevel(req.Level)
	if err != nil {
		return nil, err
	}
	code, err := skip.New(req.Value, level)
	if err != nil {
		return nil, fmt.Errorf("qrcode: %w", err)
	}
	modules := code.Bitmap()
	if len(modules) > req.Size {
		return nil, fmt.Errorf("%w: %d modules in %d px", ErrSymbolTooLarge, len(modules), req.Size)
	}
	return &Graphic{
		value:   req.Value,
		size:    req.Size,
		modules: modules,
	}, nil
}

func recoveryLevel(l service.ErrorCorrection) (skip.RecoveryLevel, error) {
	switch l {
	case service.CorrectionLow:
		return skip.Low, nil
	case service.CorrectionMedium:
		return skip.Medium, nil
	case service.CorrectionQuartile:
		return skip.High, nil
	case service.CorrectionHigh, "":
		return skip.Highest, nil
	default:
		return 0, fmt.Errorf("qrcode: unknown error correction level %q", l)
	}
}

// Graphic is an encoded symbol.  modules[y][x] is true for dark modules and
// already includes the quiet zone.
type Graphic struct {
	value   string
	size    int
	modules [][]bool
}

func (g *Graphic) Value() string { return g.value }
func (g *Graphic) Size() int     { return g.size }

// Bitmap returns a copy of the module grid, quiet zone included.
func (g *Graphic) Bitmap() [][]bool {
	out := make([][]bool, len(g.modules))
	for i, row := range g.modules {
		out[i] = append([]bool(nil), row...)
	}
	return out
}

// Raster draws size×size pixels at a whole number of pixels per module,
// centred, with the leftover pixels added to the light margin.  Fractional
// scaling would merge or drop modules on dense symbols.
func (g *Graphic) Raster() image.Image {
	n := len(g.modules)
	scale := g.size / n
	offset := (g.size - n*scale) / 2

	img := image.NewGray(image.Rect(0, 0, g.size, g.size))
	for i := range img.Pix {
		img.Pix[i] = light.Y
	}
	for my, row := range g.modules {
		for mx, on := range row {
			if !on {
				continue
			}
			x0, y0 := offset+mx*scale, offset+my*scale
			for y := y0; y < y0+scale; y++ {
				for x := x0; x < x0+scale; x++ {
					img.SetGray(x, y, dark)
				}
			}
		}
	}
	return img
}

// SVG draws one rect per horizontal run of dark modules on a white
// background.  The viewBox is in module units so the output scales cleanly.
func (g *Graphic) SVG() string {
	n := len(g.modules)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		g.size, g.size, n, n)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="#ffffff"/>`, n, n)
	b.WriteString(`<path fill="#000000" d="`)
	for y, row := range g.modules {
		for x := 0; x < n; {
			if !row[x] {
				x++
				continue
			}
			start := x
			for x < n && row[x] {
				x++
			}
			fmt.Fprintf(&b, "M%d %dh%dv1h-%dz", start, y, x-start, x-start)
		}
	}
	b.WriteString(`"/></svg>`)
	return b.String()
}
