package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrSettingNotFound    = errors.New("setting not found")
	ErrContentNotFound    = errors.New("content not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrCeilingFixed       = errors.New("memory ceiling cannot be raised")
)

// Kind is the closed set of failure kinds produced by the pipeline.
type Kind int

const (
	KindInvalidIdentifier Kind = iota + 1
	KindContentNotFound
	KindNoValidImage
	KindMissingOverlay

	KindMissingFile
	KindPathEscape
	KindFileTooLarge
	KindUnsupportedFormat
	KindSignatureMismatch
	KindUnreadableDimensions
	KindDimensionsOutOfRange

	KindInsufficientMemory
	KindProcessingTimeout

	KindDimensionMismatch
	KindOverlayDimensionMismatch
	KindOverlayOutOfBounds
	KindDecodeFailed
	KindEncodeFailed
	KindProcessingException
)

var kindNames = map[Kind]string{
	KindInvalidIdentifier:        "invalid_identifier",
	KindContentNotFound:          "content_not_found",
	KindNoValidImage:             "no_valid_image",
	KindMissingOverlay:           "missing_overlay",
	KindMissingFile:              "missing_file",
	KindPathEscape:               "path_escape",
	KindFileTooLarge:             "file_too_large",
	KindUnsupportedFormat:        "unsupported_format",
	KindSignatureMismatch:        "signature_mismatch",
	KindUnreadableDimensions:     "unreadable_dimensions",
	KindDimensionsOutOfRange:     "dimensions_out_of_range",
	KindInsufficientMemory:       "insufficient_memory",
	KindProcessingTimeout:        "processing_timeout",
	KindDimensionMismatch:        "dimension_mismatch",
	KindOverlayDimensionMismatch: "overlay_dimension_mismatch",
	KindOverlayOutOfBounds:       "overlay_out_of_bounds",
	KindDecodeFailed:             "decode_failed",
	KindEncodeFailed:             "encode_failed",
	KindProcessingException:      "processing_exception",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

type Category string

const (
	CategoryRequest     Category = "request"
	CategoryConfig      Category = "configuration"
	CategoryValidation  Category = "validation"
	CategoryResource    Category = "resource"
	CategoryComposition Category = "composition"
)

func (k Kind) Category() Category {
	switch k {
	case KindInvalidIdentifier, KindContentNotFound, KindNoValidImage:
		return CategoryRequest
	case KindMissingOverlay:
		return CategoryConfig
	case KindMissingFile, KindPathEscape, KindFileTooLarge, KindUnsupportedFormat,
		KindSignatureMismatch, KindUnreadableDimensions, KindDimensionsOutOfRange:
		return CategoryValidation
	case KindInsufficientMemory, KindProcessingTimeout:
		return CategoryResource
	default:
		return CategoryComposition
	}
}

// Error is the structured failure carried through the pipeline. Err holds
// detail for the error log only; it never reaches a response body.
type Error struct {
	Kind              Kind
	Stage             string
	Role              Role
	Err               error
	RecoveryAttempted bool
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Stage != "" {
		msg = e.Stage + ": " + msg
	}
	if e.Role != "" {
		msg += " (" + string(e.Role) + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.RecoveryAttempted {
		msg += " [recovery attempted: true]"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure to the status code returned to the client.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidIdentifier:
		return http.StatusBadRequest
	case KindContentNotFound, KindNoValidImage:
		return http.StatusNotFound
	case KindMissingFile, KindPathEscape, KindFileTooLarge, KindUnsupportedFormat,
		KindSignatureMismatch, KindUnreadableDimensions, KindDimensionsOutOfRange:
		if e.Role == RoleBase {
			return http.StatusNotFound
		}
		return http.StatusInternalServerError
	case KindMissingOverlay, KindInsufficientMemory, KindProcessingTimeout,
		KindDimensionMismatch, KindOverlayDimensionMismatch, KindOverlayOutOfBounds,
		KindDecodeFailed, KindEncodeFailed, KindProcessingException:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewError builds a pipeline error.
func NewError(kind Kind, stage string, role Role, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Role: role, Err: err}
}

// AsError extracts a pipeline error, wrapping anything else as a processing exception.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindProcessingException, Err: err}
}
