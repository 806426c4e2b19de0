package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"ogio/internal/core/domain"
	"ogio/internal/core/port"

	"github.com/rs/zerolog"
)

const stageValidate = "validate"

// ValidationLimits bounds what the validator accepts.
type ValidationLimits struct {
	MaxFileSize  int64
	MinDimension int
	MaxDimension int
}

func DefaultValidationLimits() ValidationLimits {
	return ValidationLimits{
		MaxFileSize:  10 << 20,
		MinDimension: 50,
		MaxDimension: 4000,
	}
}

var (
	signatureJPEG = []byte{0xFF, 0xD8, 0xFF}
	signaturePNG  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
	signatureRIFF = []byte("RIFF")
	signatureWEBP = []byte("WEBP")
)

const signatureLength = 12

type ImageValidator struct {
	attachments port.AttachmentRepository
	storage     port.AssetStorage
	converter   port.ImageConverter
	limits      ValidationLimits
	log         zerolog.Logger
}

func NewImageValidator(attachments port.AttachmentRepository, storage port.AssetStorage,
	converter port.ImageConverter, limits ValidationLimits, log zerolog.Logger) *ImageValidator {
	return &ImageValidator{
		attachments: attachments,
		storage:     storage,
		converter:   converter,
		limits:      limits,
		log:         log,
	}
}

// Validate inspects the file behind ref without decoding pixels. Checks run in a
// fixed order and stop at the first failure.
func (v *ImageValidator) Validate(ctx context.Context, ref string, role domain.Role) (domain.ImageAsset, error) {
	l := v.log.With().Str("ref", ref).Str("role", string(role)).Logger()

	fail := func(kind domain.Kind, err error) (domain.ImageAsset, error) {
		l.Debug().Err(err).Str("kind", kind.String()).Msg("image rejected")
		return domain.ImageAsset{}, domain.NewError(kind, stageValidate, role, err)
	}

	attachment, err := v.attachments.Attachment(ctx, ref)
	if err != nil {
		return fail(domain.KindMissingFile, fmt.Errorf("resolving attachment: %w", err))
	}

	path := v.storage.Resolve(attachment.RelPath)
	info, err := v.storage.Stat(path)
	if err != nil {
		return fail(domain.KindMissingFile, err)
	}
	if info.IsDir() {
		return fail(domain.KindMissingFile, fmt.Errorf("%s is a directory", path))
	}

	inside, err := v.storage.Contains(path)
	if err != nil || !inside {
		if err == nil {
			err = fmt.Errorf("%s is outside the asset root", path)
		}
		return fail(domain.KindPathEscape, err)
	}

	if info.Size() > v.limits.MaxFileSize {
		return fail(domain.KindFileTooLarge,
			fmt.Errorf("%d bytes exceeds limit of %d", info.Size(), v.limits.MaxFileSize))
	}

	format, ok := domain.FormatForMime(attachment.MimeType)
	if !ok {
		return fail(domain.KindUnsupportedFormat, fmt.Errorf("declared type %q", attachment.MimeType))
	}

	header, err := v.readHeader(path)
	if err != nil {
		return fail(domain.KindMissingFile, err)
	}
	if !MatchesSignature(format, header) {
		return fail(domain.KindSignatureMismatch, fmt.Errorf("leading bytes %x do not match %s", header, format))
	}

	cfg, err := v.probe(path, format)
	if err != nil {
		return fail(domain.KindUnreadableDimensions, err)
	}

	if !v.inRange(cfg.Width) || !v.inRange(cfg.Height) {
		return fail(domain.KindDimensionsOutOfRange, fmt.Errorf("%dx%d outside [%d, %d]",
			cfg.Width, cfg.Height, v.limits.MinDimension, v.limits.MaxDimension))
	}

	channels, bits := colorDepth(cfg.ColorModel)
	asset := domain.ImageAsset{
		Ref:                   ref,
		Role:                  role,
		Path:                  path,
		MimeType:              attachment.MimeType,
		Width:                 cfg.Width,
		Height:                cfg.Height,
		ByteSize:              info.Size(),
		EstimatedDecodeMemory: EstimateDecodeMemory(cfg.Width, cfg.Height, channels, bits),
	}

	l.Debug().Int("width", asset.Width).Int("height", asset.Height).
		Int64("estimate", asset.EstimatedDecodeMemory).Msg("image validated")

	return asset, nil
}

func (v *ImageValidator) inRange(n int) bool {
	return n >= v.limits.MinDimension && n <= v.limits.MaxDimension
}

func (v *ImageValidator) readHeader(path string) ([]byte, error) {
	f, err := v.storage.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, signatureLength)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}

	return buf[:n], nil
}

func (v *ImageValidator) probe(path string, format domain.OutputFormat) (image.Config, error) {
	f, err := v.storage.Open(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()

	cfg, err := v.converter.DecodeConfig(format, f)
	if err != nil {
		return image.Config{}, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return image.Config{}, fmt.Errorf("probe returned %dx%d", cfg.Width, cfg.Height)
	}

	return cfg, nil
}

// MatchesSignature checks the leading bytes of a file against the magic number
// of the declared format.
func MatchesSignature(format domain.OutputFormat, header []byte) bool {
	switch format {
	case domain.FormatJPEG:
		return bytes.HasPrefix(header, signatureJPEG)
	case domain.FormatPNG:
		return bytes.HasPrefix(header, signaturePNG)
	case domain.FormatWebP:
		return len(header) >= signatureLength &&
			bytes.Equal(header[0:4], signatureRIFF) &&
			bytes.Equal(header[8:12], signatureWEBP)
	default:
		return false
	}
}

// EstimateDecodeMemory is the admission estimate for one decoded bitmap, doubled
// to cover the working buffer.
func EstimateDecodeMemory(width, height, channels, bitsPerChannel int) int64 {
	return int64(width) * int64(height) * int64(channels) * int64(bitsPerChannel) / 8 * 2
}

func colorDepth(m color.Model) (channels, bits int) {
	switch m {
	case color.GrayModel:
		return 1, 8
	case color.Gray16Model:
		return 1, 16
	case color.YCbCrModel:
		return 3, 8
	case color.RGBA64Model, color.NRGBA64Model:
		return 4, 16
	default:
		return 4, 8
	}
}
