package qrcode

import (
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	zxqr "github.com/makiuchi-d/gozxing/qrcode"
)

// ErrDecode wraps frames that contain something code-like but could not be
// read (bad checksum, unsupported format).  Scan sessions ignore it.
var ErrDecode = errors.New("qrcode: decode failed")

// Decoder implements service.Decoder on top of gozxing.
type Decoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewDecoder returns a decoder that tries harder on each frame, which suits
// the low frame rate of a scan loop.
func NewDecoder() *Decoder {
	return &Decoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode returns ("", nil) when the frame holds no QR code.
func (d *Decoder) Decode(frame image.Image) (string, error) {
	if frame == nil || frame.Bounds().Empty() {
		return "", nil
	}

	bmp, err := gozxing.NewBinaryBitmapFromImage(frame)
	if err != nil {
		return "", fmt.Errorf("%w: binarize: %v", ErrDecode, err)
	}

	res, err := zxqr.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		var nf gozxing.NotFoundException
		if errors.As(err, &nf) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return res.GetText(), nil
}
