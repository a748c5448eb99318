package verifier

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	errs "imgaudit/pkg/errors"
)

// Decoder decides whether a downloaded body is a readable image
type Decoder interface {
	Decode(data []byte) error
}

// DecoderFunc adapts a function to Decoder
type DecoderFunc func(data []byte) error

func (f DecoderFunc) Decode(data []byte) error { return f(data) }

// ImageDecoder fully decodes the body with every registered image format:
// JPEG, PNG, GIF, BMP, TIFF and WebP.
type ImageDecoder struct{}

// Decode implements Decoder
func (ImageDecoder) Decode(data []byte) error {
	if len(data) == 0 {
		return errs.New(errs.ErrorTypeDecode, "empty body", nil)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return errs.New(errs.ErrorTypeDecode, "image decode failed", err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return errs.New(errs.ErrorTypeDecode, "image has no pixels ("+format+")", nil)
	}
	return nil
}
