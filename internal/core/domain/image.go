package domain

import (
	"math"
	"time"
)

type Role string

const (
	RoleBase    Role = "base"
	RoleOverlay Role = "overlay"
)

type OutputFormat string

const (
	FormatJPEG OutputFormat = "jpeg"
	FormatPNG  OutputFormat = "png"
	FormatWebP OutputFormat = "webp"
)

// ContentType returns the MIME type emitted for the format.
func (f OutputFormat) ContentType() string {
	switch f {
	case FormatJPEG:
		return MimeJPEG
	case FormatWebP:
		return MimeWebP
	default:
		return MimePNG
	}
}

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
)

// FormatForMime maps a supported MIME type to its format.
func FormatForMime(mime string) (OutputFormat, bool) {
	switch mime {
	case MimeJPEG:
		return FormatJPEG, true
	case MimePNG:
		return FormatPNG, true
	case MimeWebP:
		return FormatWebP, true
	default:
		return "", false
	}
}

// ImageAsset is a validated image file. It lives for a single request.
type ImageAsset struct {
	Ref                   string
	Role                  Role
	Path                  string
	MimeType              string
	Width                 int
	Height                int
	ByteSize              int64
	EstimatedDecodeMemory int64
}

// Format returns the output format matching the asset's declared MIME type.
func (a ImageAsset) Format() OutputFormat {
	f, _ := FormatForMime(a.MimeType)
	return f
}

// Attachment is a stored media record as the CMS knows it.
type Attachment struct {
	Ref      string
	RelPath  string
	MimeType string
}

// Content is a post-like record that may carry several candidate image fields.
type Content struct {
	ID            int64
	Published     bool
	FeaturedImage string
	YoastImage    string
	RankMathImage string
}

// Result is a fully encoded image ready to be emitted.
type Result struct {
	Body        []byte
	ContentType string
	Width       int
	Height      int
}

// ErrorEntry is one row of the admin-visible error log.
type ErrorEntry struct {
	Time              time.Time `json:"time"`
	RequestID         string    `json:"request_id"`
	ContentID         string    `json:"content_id"`
	Kind              string    `json:"kind"`
	Category          string    `json:"category"`
	Stage             string    `json:"stage,omitempty"`
	Role              string    `json:"role,omitempty"`
	Message           string    `json:"message"`
	RecoveryAttempted bool      `json:"recovery_attempted"`
}

// PNGCompressionLevel maps a 1-100 quality onto the 0-9 zlib level scale, where
// higher quality means less compression.
func PNGCompressionLevel(quality int) int {
	level := 9 - int(math.Round(float64(quality)/100*9))
	if level < 0 {
		return 0
	}
	if level > 9 {
		return 9
	}
	return level
}
