package port

import (
	"context"
	"ogio/internal/core/domain"
)

type ContentRepository interface {
	// Content loads a content record by its numeric id, or returns domain.ErrContentNotFound.
	Content(ctx context.Context, id int64) (domain.Content, error)
}

type AttachmentRepository interface {
	// Attachment resolves an asset reference to its stored record, or returns domain.ErrAttachmentNotFound.
	Attachment(ctx context.Context, ref string) (domain.Attachment, error)
}
