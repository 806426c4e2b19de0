package service

import (
	"context"
	"ogio/internal/core/domain"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type recordingSink struct {
	entries []domain.ErrorEntry
}

func (s *recordingSink) Record(_ context.Context, e domain.ErrorEntry) {
	s.entries = append(s.entries, e)
}

func TestAlertThrottle_Record(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		kinds []string
		want  int
	}{
		{name: "unlimited", limit: 0, kinds: []string{"a", "a", "a"}, want: 3},
		{name: "limited per kind", limit: 2, kinds: []string{"a", "a", "a", "b"}, want: 3},
		{name: "single", limit: 1, kinds: []string{"a", "b", "a", "b"}, want: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sink := &recordingSink{}
			th := NewAlertThrottle(t.Context(), sink, tc.limit, zerolog.Nop())

			for _, k := range tc.kinds {
				th.Record(t.Context(), domain.ErrorEntry{Kind: k})
			}
			assert.Len(t, sink.entries, tc.want)
		})
	}
}

func TestAlertThrottle_Reset(t *testing.T) {
	sink := &recordingSink{}
	th := NewAlertThrottle(t.Context(), sink, 1, zerolog.Nop())

	th.Record(t.Context(), domain.ErrorEntry{Kind: "a"})
	th.Record(t.Context(), domain.ErrorEntry{Kind: "a"})
	th.Reset()
	th.Record(t.Context(), domain.ErrorEntry{Kind: "a"})

	assert.Len(t, sink.entries, 2)
}

func TestNextResetTime(t *testing.T) {
	now := time.Date(2024, 12, 31, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), nextResetTime(now))
}
