package port

import (
	"image"
	"io"
	"ogio/internal/core/domain"
)

type ImageConverter interface {
	// DecodeConfig reads only the header of an image in the given format.
	DecodeConfig(format domain.OutputFormat, r io.Reader) (image.Config, error)
	// Decode reads a full bitmap in the given format.
	Decode(format domain.OutputFormat, r io.Reader) (image.Image, error)
	// Encode writes img in the given format. Quality is 1-100 for every format.
	Encode(w io.Writer, img image.Image, format domain.OutputFormat, quality int) error
}
