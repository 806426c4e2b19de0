package converter

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"ogio/internal/core/domain"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"
	xwebp "golang.org/x/image/webp"
)

// ImagingConverter decodes and encodes JPEG, PNG and WebP images. Decoding
// never applies EXIF orientation, pixels are used as stored.
type ImagingConverter struct{}

func NewImagingConverter() *ImagingConverter {
	return &ImagingConverter{}
}

func (c *ImagingConverter) DecodeConfig(format domain.OutputFormat, r io.Reader) (image.Config, error) {
	switch format {
	case domain.FormatJPEG:
		return jpeg.DecodeConfig(r)
	case domain.FormatPNG:
		return png.DecodeConfig(r)
	case domain.FormatWebP:
		return xwebp.DecodeConfig(r)
	default:
		return image.Config{}, fmt.Errorf("unsupported format %q", format)
	}
}

func (c *ImagingConverter) Decode(format domain.OutputFormat, r io.Reader) (image.Image, error) {
	switch format {
	case domain.FormatJPEG, domain.FormatPNG:
		img, err := imaging.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("error decoding %s %w", format, err)
		}
		return img, nil
	case domain.FormatWebP:
		img, err := xwebp.Decode(r)
		if err != nil {
			return nil, fmt.Errorf("error decoding %s %w", format, err)
		}
		return img, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}

// Encode writes img at the given quality. JPEG and WebP take quality directly,
// PNG maps it onto a compression level where higher quality means less compression.
func (c *ImagingConverter) Encode(w io.Writer, img image.Image, format domain.OutputFormat, quality int) error {
	var err error

	switch format {
	case domain.FormatJPEG:
		err = imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case domain.FormatPNG:
		level := domain.PNGCompressionLevel(quality)
		log.Debug().Int("quality", quality).Int("level", level).Msg("encoding png")
		err = imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(PNGLevel(level)))
	case domain.FormatWebP:
		err = webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	default:
		return fmt.Errorf("unsupported format %q", format)
	}

	if err != nil {
		return fmt.Errorf("error encoding %s %w", format, err)
	}

	return nil
}

// PNGLevel maps a zlib-style 0-9 level onto the encoder's compression presets.
// The standard library PNG encoder only offers these four presets, so levels
// 1-3, 4-6 and 7-9 each produce identical output.
func PNGLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}
