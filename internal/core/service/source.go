package service

import (
	"context"
	"ogio/internal/core/domain"
	"ogio/internal/core/port"
	"strings"

	"github.com/rs/zerolog"
)

const stageSource = "source"

// SourceSelector picks the base image reference for a piece of content.
type SourceSelector struct {
	attachments port.AttachmentRepository
	log         zerolog.Logger
}

func NewSourceSelector(attachments port.AttachmentRepository, log zerolog.Logger) *SourceSelector {
	return &SourceSelector{attachments: attachments, log: log}
}

// Select walks the candidate fields in a fixed order: the configured alternate
// field, the featured image, then the fallback image.
func (s *SourceSelector) Select(ctx context.Context, content domain.Content, cfg domain.Config) (string, error) {
	for _, candidate := range candidates(content, cfg) {
		ref, ok := ParseRef(candidate.ref)
		if !ok {
			s.log.Debug().Str("field", candidate.field).Msg("source field empty or malformed")
			continue
		}

		attachment, err := s.attachments.Attachment(ctx, ref)
		if err != nil {
			s.log.Debug().Err(err).Str("field", candidate.field).Str("ref", ref).Msg("source field unresolvable")
			continue
		}
		if !strings.HasPrefix(attachment.MimeType, "image/") {
			s.log.Debug().Str("field", candidate.field).Str("mime", attachment.MimeType).Msg("source field not an image")
			continue
		}

		s.log.Debug().Str("field", candidate.field).Str("ref", ref).Msg("source selected")
		return ref, nil
	}

	return "", domain.NewError(domain.KindNoValidImage, stageSource, domain.RoleBase, nil)
}

type candidate struct {
	field string
	ref   string
}

// candidates lists the fields consulted for the base image, in order.
func candidates(content domain.Content, cfg domain.Config) []candidate {
	var list []candidate

	switch cfg.ImageSource {
	case domain.SourceYoast:
		list = append(list, candidate{field: "yoast", ref: content.YoastImage})
	case domain.SourceRankMath:
		list = append(list, candidate{field: "rankmath", ref: content.RankMathImage})
	case domain.SourceDefault:
	}

	return append(list,
		candidate{field: "featured", ref: content.FeaturedImage},
		candidate{field: "fallback", ref: cfg.FallbackImage},
	)
}
