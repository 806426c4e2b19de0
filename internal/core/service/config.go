package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"ogio/internal/core/domain"
	"ogio/internal/core/port"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

const stageConfig = "config"

// ConfigResolver turns raw stored settings into a typed snapshot. Bad values fall
// back to defaults; only a missing overlay is fatal.
type ConfigResolver struct {
	settings    port.SettingsRepository
	attachments port.AttachmentRepository
	log         zerolog.Logger
}

func NewConfigResolver(settings port.SettingsRepository, attachments port.AttachmentRepository,
	log zerolog.Logger) *ConfigResolver {
	return &ConfigResolver{settings: settings, attachments: attachments, log: log}
}

func (r *ConfigResolver) Resolve(ctx context.Context) (domain.Config, error) {
	cfg := domain.Config{
		OverlayX:      r.clampedInt(ctx, domain.KeyOverlayX, 0, domain.MinOffset, domain.MaxOffset),
		OverlayY:      r.clampedInt(ctx, domain.KeyOverlayY, 0, domain.MinOffset, domain.MaxOffset),
		OutputQuality: r.clampedInt(ctx, domain.KeyOutputQuality, domain.DefaultQuality, domain.MinQuality, domain.MaxQuality),
		ImageSource:   ParseImageSource(r.raw(ctx, domain.KeyImageSource)),
		OutputFormat:  ParseOutputFormat(r.raw(ctx, domain.KeyOutputFormat)),
		SEOPlugin:     ParseSEOPlugin(r.raw(ctx, domain.KeySEOPlugin)),
	}

	overlay, err := r.imageRef(ctx, domain.KeyOverlayImage)
	if err != nil {
		return domain.Config{}, domain.NewError(domain.KindMissingOverlay, stageConfig, domain.RoleOverlay, err)
	}
	cfg.OverlayImage = overlay

	fallback, err := r.imageRef(ctx, domain.KeyFallbackImage)
	if err != nil {
		r.log.Debug().Err(err).Msg("ignoring fallback image")
	} else {
		cfg.FallbackImage = fallback
	}

	return cfg, nil
}

func (r *ConfigResolver) raw(ctx context.Context, key string) string {
	v, err := r.settings.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrSettingNotFound) {
			r.log.Warn().Err(err).Str("key", key).Msg("could not read setting, using default")
		}
		return ""
	}
	return strings.TrimSpace(v)
}

func (r *ConfigResolver) clampedInt(ctx context.Context, key string, def, lo, hi int) int {
	raw := r.raw(ctx, key)
	if raw == "" {
		return def
	}

	n, err := strconv.Atoi(raw)
	if err == nil {
		return clamp(n, lo, hi)
	}

	// Out of range values parse to ±Inf or a float too large for int; clamp
	// those before converting.
	f, err := strconv.ParseFloat(raw, 64)
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(f) {
		r.log.Debug().Str("key", key).Str("value", raw).Msg("not a number, using default")
		return def
	}

	return clampFloat(f, lo, hi)
}

func clampFloat(f float64, lo, hi int) int {
	switch {
	case f <= float64(lo):
		return lo
	case f >= float64(hi):
		return hi
	default:
		return int(f)
	}
}

// imageRef returns the reference stored under key when it names an existing
// image attachment. Only the attachment record is consulted, never the file.
func (r *ConfigResolver) imageRef(ctx context.Context, key string) (string, error) {
	ref, ok := ParseRef(r.raw(ctx, key))
	if !ok {
		return "", fmt.Errorf("%s is not set", key)
	}

	attachment, err := r.attachments.Attachment(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	if !strings.HasPrefix(attachment.MimeType, "image/") {
		return "", fmt.Errorf("%s: attachment %s is %q", key, ref, attachment.MimeType)
	}

	return ref, nil
}

// ParseRef normalizes an asset reference. References are positive integer ids.
func ParseRef(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return "", false
	}
	return strconv.FormatInt(n, 10), true
}

func ParseImageSource(raw string) domain.ImageSource {
	switch s := domain.ImageSource(strings.ToLower(raw)); s {
	case domain.SourceDefault, domain.SourceYoast, domain.SourceRankMath:
		return s
	default:
		return domain.SourceDefault
	}
}

func ParseOutputFormat(raw string) domain.OutputFormat {
	switch f := domain.OutputFormat(strings.ToLower(raw)); f {
	case domain.FormatJPEG, domain.FormatPNG, domain.FormatWebP:
		return f
	case "jpg":
		return domain.FormatJPEG
	default:
		return domain.DefaultFormat
	}
}

func ParseSEOPlugin(raw string) domain.SEOPlugin {
	switch p := domain.SEOPlugin(strings.ToLower(raw)); p {
	case domain.SEOYoast, domain.SEORankMath:
		return p
	default:
		return domain.SEOOther
	}
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
