package service

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"strings"
)

const (
	MinGraphicSize = 128
	MaxGraphicSize = 512

	DownloadName = "qrcode.png"
)

var (
	ErrEmptyText      = errors.New("text to encode is required")
	ErrSizeOutOfRange = fmt.Errorf("size must be between %d and %d", MinGraphicSize, MaxGraphicSize)
)

// ErrorCorrection is a QR error-correction level, "L", "M", "Q" or "H".
type ErrorCorrection string

const (
	CorrectionLow      ErrorCorrection = "L"
	CorrectionMedium   ErrorCorrection = "M"
	CorrectionQuartile ErrorCorrection = "Q"
	CorrectionHigh     ErrorCorrection = "H"
)

type EncodeRequest struct {
	Value string
	Size  int
	Level ErrorCorrection
}

// Graphic is an encoded QR symbol, quiet zone included.
type Graphic interface {
	Value() string
	Size() int
	SVG() string
	// Raster is exactly Size() pixels square.
	Raster() image.Image
}

type Encoder interface {
	Encode(req EncodeRequest) (Graphic, error)
}

// DownloadFile is a save-to-disk artifact.
type DownloadFile struct {
	Name string
	Data []byte
}

// Generator turns text into QR graphics.  It holds no state shared with the
// scan path.
type Generator struct {
	encoder Encoder
}

func NewGenerator(enc Encoder) *Generator {
	return &Generator{encoder: enc}
}

// Generate encodes text at level H.  Empty text yields ErrEmptyText so the
// caller can clear its preview instead of rendering.
func (g *Generator) Generate(text string, size int) (Graphic, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	if size < MinGraphicSize || size > MaxGraphicSize {
		return nil, fmt.Errorf("%w: got %d", ErrSizeOutOfRange, size)
	}

	gr, err := g.encoder.Encode(EncodeRequest{Value: text, Size: size, Level: CorrectionHigh})
	if err != nil {
		return nil, fmt.Errorf("encode %d chars: %w", len(text), err)
	}
	return gr, nil
}

// DownloadAsImage renders the graphic's raster as a PNG named qrcode.png.
func DownloadAsImage(gr Graphic) (DownloadFile, error) {
	if gr == nil {
		return DownloadFile{}, ErrEmptyText
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gr.Raster()); err != nil {
		return DownloadFile{}, fmt.Errorf("png encode: %w", err)
	}
	return DownloadFile{Name: DownloadName, Data: buf.Bytes()}, nil
}
