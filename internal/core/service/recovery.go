package service

import (
	"context"
	"errors"
	"ogio/internal/core/domain"
	"ogio/internal/core/port"

	"github.com/rs/zerolog"
)

const (
	DefaultMemoryIncrement = 32 << 20
	timeoutQuality         = 50
)

type Mitigation int

const (
	MitigationNone Mitigation = iota
	MitigationFallbackImage
	MitigationRaiseMemory
	MitigationLowerQuality
)

func (m Mitigation) String() string {
	switch m {
	case MitigationFallbackImage:
		return "fallback_image"
	case MitigationRaiseMemory:
		return "raise_memory"
	case MitigationLowerQuality:
		return "lower_quality"
	default:
		return "none"
	}
}

// Attempt is the mutable part of a request that a mitigation may change.
type Attempt struct {
	Config  domain.Config
	BaseRef string
}

var errNoFallback = errors.New("no usable fallback image")

type RecoveryPolicy struct {
	memory          port.MemoryProbe
	memoryIncrement int64
	log             zerolog.Logger
}

func NewRecoveryPolicy(memory port.MemoryProbe, memoryIncrement int64, log zerolog.Logger) *RecoveryPolicy {
	if memoryIncrement <= 0 {
		memoryIncrement = DefaultMemoryIncrement
	}
	return &RecoveryPolicy{memory: memory, memoryIncrement: memoryIncrement, log: log}
}

// Recover applies the single mitigation registered for the failure kind and
// mutates the attempt accordingly. When no mitigation applies the original
// error is returned untouched; when the mitigation itself fails it is returned
// flagged as recovery attempted.
func (p *RecoveryPolicy) Recover(_ context.Context, failure *domain.Error, attempt *Attempt) (Mitigation, error) {
	mitigation := MitigationFor(failure)
	l := p.log.With().Str("kind", failure.Kind.String()).Str("mitigation", mitigation.String()).Logger()

	switch mitigation {
	case MitigationFallbackImage:
		if !attempt.Config.HasFallback() || attempt.Config.FallbackImage == attempt.BaseRef {
			return p.failed(l, failure, errNoFallback)
		}
		attempt.BaseRef = attempt.Config.FallbackImage

	case MitigationRaiseMemory:
		ceiling, err := p.memory.Raise(p.memoryIncrement)
		if err != nil {
			return p.failed(l, failure, err)
		}
		l.Debug().Int64("ceiling", ceiling).Msg("memory ceiling raised")

	case MitigationLowerQuality:
		attempt.Config.OutputQuality = min(attempt.Config.OutputQuality, timeoutQuality)

	case MitigationNone:
		return MitigationNone, failure
	}

	l.Info().Msg("retrying after mitigation")
	return mitigation, nil
}

func (p *RecoveryPolicy) failed(l zerolog.Logger, failure *domain.Error, cause error) (Mitigation, error) {
	l.Warn().Err(cause).Msg("mitigation failed")
	failure.RecoveryAttempted = true
	return MitigationNone, failure
}

// MitigationFor returns the mitigation registered for a failure.
func MitigationFor(failure *domain.Error) Mitigation {
	switch failure.Kind {
	case domain.KindMissingFile, domain.KindFileTooLarge, domain.KindSignatureMismatch:
		if failure.Role == domain.RoleBase {
			return MitigationFallbackImage
		}
		return MitigationNone
	case domain.KindInsufficientMemory:
		return MitigationRaiseMemory
	case domain.KindProcessingTimeout:
		return MitigationLowerQuality
	case domain.KindInvalidIdentifier, domain.KindContentNotFound, domain.KindNoValidImage,
		domain.KindMissingOverlay, domain.KindPathEscape, domain.KindUnsupportedFormat,
		domain.KindUnreadableDimensions, domain.KindDimensionsOutOfRange, domain.KindDimensionMismatch,
		domain.KindOverlayDimensionMismatch, domain.KindOverlayOutOfBounds, domain.KindDecodeFailed,
		domain.KindEncodeFailed, domain.KindProcessingException:
		return MitigationNone
	default:
		return MitigationNone
	}
}
