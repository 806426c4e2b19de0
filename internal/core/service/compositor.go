package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"ogio/internal/core/domain"
	"ogio/internal/core/port"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

const (
	stageDecodeBase    = "decode_base"
	stageDecodeOverlay = "decode_overlay"
	stagePosition      = "position"
	stageComposite     = "composite"
	stageEncode        = "encode"

	DefaultMaxExecution = 30 * time.Second
	executionMargin     = 5 * time.Second
)

// CompositionJob is everything the compositor needs for one render.
type CompositionJob struct {
	Base    domain.ImageAsset
	Overlay domain.ImageAsset
	Offset  image.Point
	Format  domain.OutputFormat
	Quality int
}

type Compositor struct {
	storage      port.AssetStorage
	converter    port.ImageConverter
	maxExecution time.Duration
	now          func() time.Time
	log          zerolog.Logger
}

func NewCompositor(storage port.AssetStorage, converter port.ImageConverter, maxExecution time.Duration,
	log zerolog.Logger) *Compositor {
	if maxExecution <= 0 {
		maxExecution = DefaultMaxExecution
	}
	return &Compositor{
		storage:      storage,
		converter:    converter,
		maxExecution: maxExecution,
		now:          time.Now,
		log:          log,
	}
}

// bitmap is a decoded image owned by a single Compose call.
type bitmap struct {
	img image.Image
}

func (b *bitmap) release() {
	b.img = nil
}

// Compose decodes both images, pastes the overlay onto the base at the offset
// and encodes the result. Nothing partial is ever returned.
func (c *Compositor) Compose(ctx context.Context, job CompositionJob) (res domain.Result, err error) {
	started := c.now()
	l := c.log.With().Str("base", job.Base.Ref).Str("overlay", job.Overlay.Ref).
		Str("format", string(job.Format)).Int("quality", job.Quality).Logger()

	base := &bitmap{}
	overlay := &bitmap{}
	defer base.release()
	defer overlay.release()

	defer func() {
		if r := recover(); r != nil {
			l.Error().Interface("panic", r).Msg("composition panicked")
			res = domain.Result{}
			err = domain.NewError(domain.KindProcessingException, stageComposite, "", fmt.Errorf("panic: %v", r))
		}
	}()

	base.img, err = c.decode(job.Base)
	if err != nil {
		return domain.Result{}, domain.NewError(domain.KindDecodeFailed, stageDecodeBase, domain.RoleBase, err)
	}
	if !sameSize(base.img, job.Base) {
		return domain.Result{}, domain.NewError(domain.KindDimensionMismatch, stageDecodeBase, domain.RoleBase,
			sizeMismatch(base.img, job.Base))
	}

	overlay.img, err = c.decode(job.Overlay)
	if err != nil {
		return domain.Result{}, domain.NewError(domain.KindDecodeFailed, stageDecodeOverlay, domain.RoleOverlay, err)
	}
	if !sameSize(overlay.img, job.Overlay) {
		return domain.Result{}, domain.NewError(domain.KindOverlayDimensionMismatch, stageDecodeOverlay,
			domain.RoleOverlay, sizeMismatch(overlay.img, job.Overlay))
	}

	if !Fits(job.Base.Width, job.Base.Height, job.Overlay.Width, job.Overlay.Height, job.Offset) {
		return domain.Result{}, domain.NewError(domain.KindOverlayOutOfBounds, stagePosition, domain.RoleOverlay,
			fmt.Errorf("overlay %dx%d at (%d,%d) exceeds base %dx%d", job.Overlay.Width, job.Overlay.Height,
				job.Offset.X, job.Offset.Y, job.Base.Width, job.Base.Height))
	}

	if elapsed := c.now().Sub(started); elapsed > c.maxExecution-executionMargin || ctx.Err() != nil {
		cause := ctx.Err()
		if cause == nil {
			cause = fmt.Errorf("%s elapsed before compositing", elapsed)
		}
		return domain.Result{}, domain.NewError(domain.KindProcessingTimeout, stageComposite, "", cause)
	}

	composited := imaging.Overlay(base.img, overlay.img, job.Offset, 1.0)
	overlay.release()
	base.release()

	var buf bytes.Buffer
	if err := c.converter.Encode(&buf, composited, job.Format, job.Quality); err != nil {
		return domain.Result{}, domain.NewError(domain.KindEncodeFailed, stageEncode, "", err)
	}
	if buf.Len() == 0 {
		return domain.Result{}, domain.NewError(domain.KindEncodeFailed, stageEncode, "", errors.New("encoder wrote no bytes"))
	}

	l.Debug().Int("bytes", buf.Len()).Dur("duration", c.now().Sub(started)).Msg("composited")

	return domain.Result{
		Body:        buf.Bytes(),
		ContentType: job.Format.ContentType(),
		Width:       composited.Bounds().Dx(),
		Height:      composited.Bounds().Dy(),
	}, nil
}

func (c *Compositor) decode(asset domain.ImageAsset) (image.Image, error) {
	f, err := c.storage.Open(asset.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return c.converter.Decode(asset.Format(), f)
}

// Fits reports whether an overlay placed at offset lies entirely within the base.
func Fits(baseW, baseH, overlayW, overlayH int, offset image.Point) bool {
	return offset.X >= 0 && offset.Y >= 0 &&
		offset.X+overlayW <= baseW && offset.Y+overlayH <= baseH
}

func sameSize(img image.Image, asset domain.ImageAsset) bool {
	b := img.Bounds()
	return b.Dx() == asset.Width && b.Dy() == asset.Height
}

func sizeMismatch(img image.Image, asset domain.ImageAsset) error {
	b := img.Bounds()
	return fmt.Errorf("decoded %dx%d, validated %dx%d", b.Dx(), b.Dy(), asset.Width, asset.Height)
}
