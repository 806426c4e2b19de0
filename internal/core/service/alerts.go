package service

import (
	"context"
	"ogio/internal/core/domain"
	"ogio/internal/core/port"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AlertThrottle forwards at most dailyLimit entries per failure kind each day
// to the wrapped sink. Counters reset at local midnight.
type AlertThrottle struct {
	next       port.ErrorSink
	dailyLimit int
	counts     map[string]int
	mutex      sync.Mutex
	log        zerolog.Logger
}

func NewAlertThrottle(ctx context.Context, next port.ErrorSink, dailyLimit int, log zerolog.Logger) *AlertThrottle {
	t := &AlertThrottle{
		next:       next,
		dailyLimit: dailyLimit,
		counts:     make(map[string]int),
		log:        log,
	}

	go t.ResetDaily(ctx)

	return t
}

func (t *AlertThrottle) Record(ctx context.Context, entry domain.ErrorEntry) {
	if !t.allow(entry.Kind) {
		t.log.Debug().Str("kind", entry.Kind).Int("limit", t.dailyLimit).Msg("alert suppressed")
		return
	}

	t.next.Record(ctx, entry)
}

func (t *AlertThrottle) allow(kind string) bool {
	if t.dailyLimit <= 0 {
		return true
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.counts[kind] >= t.dailyLimit {
		return false
	}
	t.counts[kind]++

	return true
}

func (t *AlertThrottle) Reset() {
	t.mutex.Lock()
	t.counts = make(map[string]int)
	t.mutex.Unlock()
}

func (t *AlertThrottle) ResetDaily(ctx context.Context) {
	for {
		reset := nextResetTime(time.Now())
		t.log.Debug().Time("reset", reset).Msg("running alert reset timer")

		select {
		case <-time.After(time.Until(reset)):
			t.log.Debug().Msg("resetting alert counters")
			t.Reset()
		case <-ctx.Done():
			t.log.Debug().Msg("stopping alert reset timer")
			return
		}
	}
}

func nextResetTime(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}
