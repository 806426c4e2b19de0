package service

import (
	"context"
	"net/url"
	"ogio/internal/core/domain"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ImageURLBuilder produces the public URL at which a content item's preview is rendered.
type ImageURLBuilder struct {
	baseURL string
}

func NewImageURLBuilder(baseURL string) *ImageURLBuilder {
	return &ImageURLBuilder{baseURL: strings.TrimRight(baseURL, "/")}
}

// ImageURL is the callback SEO integrations use to point og:image at this service.
func (b *ImageURLBuilder) ImageURL(contentID int64) string {
	return b.baseURL + "/ogio/" + url.PathEscape(strconv.FormatInt(contentID, 10))
}

// SEOFilter substitutes an SEO plugin's og:image URL when that plugin is the
// one selected in the settings.
type SEOFilter struct {
	config *ConfigResolver
	urls   *ImageURLBuilder
	log    zerolog.Logger
}

func NewSEOFilter(config *ConfigResolver, urls *ImageURLBuilder, log zerolog.Logger) *SEOFilter {
	return &SEOFilter{config: config, urls: urls, log: log}
}

// Filter returns the URL the plugin should publish for contentID.
func (f *SEOFilter) Filter(ctx context.Context, plugin domain.SEOPlugin, contentID int64, original string) string {
	cfg, err := f.config.Resolve(ctx)
	if err != nil {
		f.log.Debug().Err(err).Msg("overlay not configured, keeping original image url")
		return original
	}

	if plugin == domain.SEOOther || cfg.SEOPlugin != plugin {
		return original
	}

	return f.urls.ImageURL(contentID)
}
