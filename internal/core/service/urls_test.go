package service

import (
	"ogio/internal/core/domain"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageURLBuilder_ImageURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "https://example.com", want: "https://example.com/ogio/42"},
		{base: "https://example.com/", want: "https://example.com/ogio/42"},
		{base: "https://example.com/blog//", want: "https://example.com/blog/ogio/42"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, NewImageURLBuilder(tc.base).ImageURL(42))
	}
}

func TestSEOFilter_Filter(t *testing.T) {
	const original = "https://example.com/wp-content/uploads/photo.jpg"

	attachments := fakeAttachments{"12": {Ref: "12", RelPath: "overlay.png", MimeType: domain.MimePNG}}

	tests := []struct {
		name     string
		settings fakeSettings
		plugin   domain.SEOPlugin
		want     string
	}{
		{
			name:     "selected plugin gets substituted",
			settings: fakeSettings{domain.KeyOverlayImage: "12", domain.KeySEOPlugin: "yoast"},
			plugin:   domain.SEOYoast,
			want:     "https://example.com/ogio/42",
		},
		{
			name:     "other plugin keeps original",
			settings: fakeSettings{domain.KeyOverlayImage: "12", domain.KeySEOPlugin: "yoast"},
			plugin:   domain.SEORankMath,
			want:     original,
		},
		{
			name:     "nothing selected",
			settings: fakeSettings{domain.KeyOverlayImage: "12"},
			plugin:   domain.SEOOther,
			want:     original,
		},
		{
			name:     "no overlay configured",
			settings: fakeSettings{domain.KeySEOPlugin: "rankmath"},
			plugin:   domain.SEORankMath,
			want:     original,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewSEOFilter(NewConfigResolver(tc.settings, attachments, nopLogger()),
				NewImageURLBuilder("https://example.com"), nopLogger())

			assert.Equal(t, tc.want, f.Filter(t.Context(), tc.plugin, 42, original))
		})
	}
}
