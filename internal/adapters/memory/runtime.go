package memory

import (
	"fmt"
	"math"
	"ogio/internal/core/domain"
	"runtime"
	"runtime/debug"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

const DefaultCeiling int64 = 256 << 20

// RuntimeProbe reports heap usage against a soft memory limit that it owns.
// Raises update the runtime limit and are capped by max.
type RuntimeProbe struct {
	ceiling atomic.Int64
	max     int64
	apply   bool
}

// NewRuntimeProbe starts at ceiling, or at the current runtime limit when ceiling
// is not positive. A max of zero fixes the ceiling. When apply is set the ceiling
// is installed as the runtime's soft memory limit.
func NewRuntimeProbe(ceiling, maxCeiling int64, apply bool) *RuntimeProbe {
	if ceiling <= 0 {
		ceiling = debug.SetMemoryLimit(-1)
		if ceiling == math.MaxInt64 {
			ceiling = DefaultCeiling
		}
	}

	p := &RuntimeProbe{max: maxCeiling, apply: apply}
	p.ceiling.Store(ceiling)

	if apply {
		debug.SetMemoryLimit(ceiling)
	}

	log.Debug().Int64("ceiling", ceiling).Int64("max", maxCeiling).Bool("apply", apply).Msg("memory probe ready")

	return p
}

func (p *RuntimeProbe) Ceiling() int64 {
	return p.ceiling.Load()
}

func (p *RuntimeProbe) Usage() int64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return int64(m.HeapAlloc)
}

func (p *RuntimeProbe) Raise(delta int64) (int64, error) {
	if delta <= 0 {
		return p.Ceiling(), nil
	}

	for {
		current := p.ceiling.Load()
		next := current + delta
		if p.max <= 0 || next > p.max {
			return current, fmt.Errorf("%w: %d + %d exceeds %d", domain.ErrCeilingFixed, current, delta, p.max)
		}

		if p.ceiling.CompareAndSwap(current, next) {
			if p.apply {
				debug.SetMemoryLimit(next)
			}
			log.Info().Int64("from", current).Int64("to", next).Msg("raised memory ceiling")
			return next, nil
		}
	}
}
