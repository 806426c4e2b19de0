package domain

type ImageSource string

const (
	SourceDefault  ImageSource = "default"
	SourceYoast    ImageSource = "yoast"
	SourceRankMath ImageSource = "rankmath"
)

type SEOPlugin string

const (
	SEOYoast    SEOPlugin = "yoast"
	SEORankMath SEOPlugin = "rankmath"
	SEOOther    SEOPlugin = "other"
)

// Setting keys as stored by the host CMS.
const (
	KeyOverlayImage  = "ogio_overlay_image"
	KeyFallbackImage = "ogio_fallback_image"
	KeyOverlayX      = "ogio_overlay_position_x"
	KeyOverlayY      = "ogio_overlay_position_y"
	KeyImageSource   = "ogio_image_source"
	KeyOutputFormat  = "ogio_image_output_format"
	KeyOutputQuality = "ogio_image_output_quality"
	KeySEOPlugin     = "ogio_select_seo_plugin"
)

const (
	MinOffset      = 0
	MaxOffset      = 2000
	MinQuality     = 1
	MaxQuality     = 100
	DefaultQuality = 90
	DefaultFormat  = FormatPNG
)

// Config is an immutable snapshot of the user settings for one request.
type Config struct {
	OverlayImage  string
	FallbackImage string
	OverlayX      int
	OverlayY      int
	ImageSource   ImageSource
	OutputFormat  OutputFormat
	OutputQuality int
	SEOPlugin     SEOPlugin
}

// HasFallback reports whether a fallback image is configured.
func (c Config) HasFallback() bool {
	return c.FallbackImage != ""
}
