package service

import (
	"fmt"
	"ogio/internal/core/domain"
	"ogio/internal/core/port"

	"github.com/rs/zerolog"
)

const (
	stageBudget = "budget"

	// memoryHeadroom is the share of free memory a single request may claim.
	memoryHeadroom = 0.7
)

type MemoryBudgeter struct {
	probe port.MemoryProbe
	log   zerolog.Logger
}

func NewMemoryBudgeter(probe port.MemoryProbe, log zerolog.Logger) *MemoryBudgeter {
	return &MemoryBudgeter{probe: probe, log: log}
}

// Check admits the pair only if both decoded bitmaps fit into the headroom left
// under the process ceiling. It never attempts a partial decode.
func (b *MemoryBudgeter) Check(base, overlay domain.ImageAsset) error {
	required := base.EstimatedDecodeMemory + overlay.EstimatedDecodeMemory
	ceiling := b.probe.Ceiling()
	usage := b.probe.Usage()
	available := Available(ceiling, usage)

	b.log.Debug().Int64("required", required).Int64("available", available).
		Int64("ceiling", ceiling).Int64("usage", usage).Msg("memory budget")

	if required > available {
		return domain.NewError(domain.KindInsufficientMemory, stageBudget, "",
			fmt.Errorf("need %d bytes, %d available under ceiling %d", required, available, ceiling))
	}

	return nil
}

// Available returns the safety-margined byte count a request may use.
func Available(ceiling, usage int64) int64 {
	free := ceiling - usage
	if free <= 0 {
		return 0
	}
	return int64(float64(free) * memoryHeadroom)
}
