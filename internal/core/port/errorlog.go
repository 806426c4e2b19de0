package port

import (
	"context"
	"ogio/internal/core/domain"
)

type ErrorSink interface {
	// Record stores an entry. Implementations must not block the caller for long and never fail it.
	Record(ctx context.Context, entry domain.ErrorEntry)
}

type ErrorLog interface {
	ErrorSink
	// Entries returns the retained entries, newest first.
	Entries() []domain.ErrorEntry
}
