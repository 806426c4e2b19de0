package service

import (
	"ogio/internal/core/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigResolver_Resolve(t *testing.T) {
	attachments := fakeAttachments{
		"12": {Ref: "12", RelPath: "overlay.png", MimeType: domain.MimePNG},
		"13": {Ref: "13", RelPath: "fallback.jpg", MimeType: domain.MimeJPEG},
		"14": {Ref: "14", RelPath: "doc.pdf", MimeType: "application/pdf"},
	}

	tests := []struct {
		name     string
		settings fakeSettings
		want     domain.Config
		wantKind domain.Kind
	}{
		{
			name:     "defaults",
			settings: fakeSettings{domain.KeyOverlayImage: "12"},
			want: domain.Config{
				OverlayImage:  "12",
				ImageSource:   domain.SourceDefault,
				OutputFormat:  domain.FormatPNG,
				OutputQuality: domain.DefaultQuality,
				SEOPlugin:     domain.SEOOther,
			},
		},
		{
			name: "everything set",
			settings: fakeSettings{
				domain.KeyOverlayImage:  " 12 ",
				domain.KeyFallbackImage: "13",
				domain.KeyOverlayX:      "40",
				domain.KeyOverlayY:      "25.7",
				domain.KeyImageSource:   "RankMath",
				domain.KeyOutputFormat:  "jpg",
				domain.KeyOutputQuality: "75",
				domain.KeySEOPlugin:     "yoast",
			},
			want: domain.Config{
				OverlayImage:  "12",
				FallbackImage: "13",
				OverlayX:      40,
				OverlayY:      25,
				ImageSource:   domain.SourceRankMath,
				OutputFormat:  domain.FormatJPEG,
				OutputQuality: 75,
				SEOPlugin:     domain.SEOYoast,
			},
		},
		{
			name: "out of range values are clamped",
			settings: fakeSettings{
				domain.KeyOverlayImage:  "12",
				domain.KeyOverlayX:      "-5",
				domain.KeyOverlayY:      "99999",
				domain.KeyOutputQuality: "0",
			},
			want: domain.Config{
				OverlayImage:  "12",
				OverlayX:      domain.MinOffset,
				OverlayY:      domain.MaxOffset,
				ImageSource:   domain.SourceDefault,
				OutputFormat:  domain.FormatPNG,
				OutputQuality: domain.MinQuality,
				SEOPlugin:     domain.SEOOther,
			},
		},
		{
			name: "huge values clamp to the maximum",
			settings: fakeSettings{
				domain.KeyOverlayImage:  "12",
				domain.KeyOverlayX:      "99999999999999999999",
				domain.KeyOverlayY:      "NaN",
				domain.KeyOutputQuality: "1e30",
			},
			want: domain.Config{
				OverlayImage:  "12",
				OverlayX:      domain.MaxOffset,
				OverlayY:      0,
				ImageSource:   domain.SourceDefault,
				OutputFormat:  domain.FormatPNG,
				OutputQuality: domain.MaxQuality,
				SEOPlugin:     domain.SEOOther,
			},
		},
		{
			name: "non finite values clamp or default",
			settings: fakeSettings{
				domain.KeyOverlayImage:  "12",
				domain.KeyOverlayX:      "-99999999999999999999",
				domain.KeyOverlayY:      "1e400",
				domain.KeyOutputQuality: "NaN",
			},
			want: domain.Config{
				OverlayImage:  "12",
				OverlayX:      domain.MinOffset,
				OverlayY:      domain.MaxOffset,
				ImageSource:   domain.SourceDefault,
				OutputFormat:  domain.FormatPNG,
				OutputQuality: domain.DefaultQuality,
				SEOPlugin:     domain.SEOOther,
			},
		},
		{
			name: "infinities clamp to the bounds",
			settings: fakeSettings{
				domain.KeyOverlayImage:  "12",
				domain.KeyOverlayX:      "+Inf",
				domain.KeyOverlayY:      "-Inf",
				domain.KeyOutputQuality: "-1e400",
			},
			want: domain.Config{
				OverlayImage:  "12",
				OverlayX:      domain.MaxOffset,
				OverlayY:      domain.MinOffset,
				ImageSource:   domain.SourceDefault,
				OutputFormat:  domain.FormatPNG,
				OutputQuality: domain.MinQuality,
				SEOPlugin:     domain.SEOOther,
			},
		},
		{
			name: "garbage falls back to defaults",
			settings: fakeSettings{
				domain.KeyOverlayImage:  "12",
				domain.KeyFallbackImage: "14",
				domain.KeyOverlayX:      "left",
				domain.KeyImageSource:   "instagram",
				domain.KeyOutputFormat:  "gif",
				domain.KeyOutputQuality: "best",
				domain.KeySEOPlugin:     "aioseo",
			},
			want: domain.Config{
				OverlayImage:  "12",
				ImageSource:   domain.SourceDefault,
				OutputFormat:  domain.FormatPNG,
				OutputQuality: domain.DefaultQuality,
				SEOPlugin:     domain.SEOOther,
			},
		},
		{
			name:     "no overlay",
			settings: fakeSettings{},
			wantKind: domain.KindMissingOverlay,
		},
		{
			name:     "overlay not a number",
			settings: fakeSettings{domain.KeyOverlayImage: "logo.png"},
			wantKind: domain.KindMissingOverlay,
		},
		{
			name:     "overlay attachment missing",
			settings: fakeSettings{domain.KeyOverlayImage: "99"},
			wantKind: domain.KindMissingOverlay,
		},
		{
			name:     "overlay not an image",
			settings: fakeSettings{domain.KeyOverlayImage: "14"},
			wantKind: domain.KindMissingOverlay,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewConfigResolver(tc.settings, attachments, nopLogger())

			cfg, err := r.Resolve(t.Context())
			if tc.wantKind != 0 {
				require.Error(t, err)
				failure := domain.AsError(err)
				assert.Equal(t, tc.wantKind, failure.Kind)
				assert.Equal(t, domain.RoleOverlay, failure.Role)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, cfg)
		})
	}
}

func TestParseRef(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOk bool
	}{
		{raw: "12", want: "12", wantOk: true},
		{raw: " 012 ", want: "12", wantOk: true},
		{raw: "0", wantOk: false},
		{raw: "-3", wantOk: false},
		{raw: "1.5", wantOk: false},
		{raw: "", wantOk: false},
		{raw: "abc", wantOk: false},
	}

	for _, tc := range tests {
		got, ok := ParseRef(tc.raw)
		assert.Equal(t, tc.wantOk, ok, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestParseOutputFormat(t *testing.T) {
	assert.Equal(t, domain.FormatJPEG, ParseOutputFormat("jpeg"))
	assert.Equal(t, domain.FormatJPEG, ParseOutputFormat("JPG"))
	assert.Equal(t, domain.FormatWebP, ParseOutputFormat("webp"))
	assert.Equal(t, domain.FormatPNG, ParseOutputFormat(""))
	assert.Equal(t, domain.FormatPNG, ParseOutputFormat("tiff"))
}
