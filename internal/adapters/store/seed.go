package store

import (
	"context"
	"fmt"
	"ogio/internal/core/domain"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// AssetWriter stores an uploaded file below the asset root.
type AssetWriter interface {
	Write(relPath string, data []byte) (string, error)
}

// Seed is the [seed] config table: rows imported at startup so the database
// settings backend can run without an external CMS.
type Seed struct {
	Contents    []SeedContent     `mapstructure:"contents"`
	Attachments []SeedAttachment  `mapstructure:"attachments"`
	Options     map[string]string `mapstructure:"options"`
}

type SeedContent struct {
	ID            int64  `mapstructure:"id"`
	Published     bool   `mapstructure:"published"`
	FeaturedImage string `mapstructure:"featured_image"`
	YoastImage    string `mapstructure:"yoast_image"`
	RankMathImage string `mapstructure:"rankmath_image"`
}

// SeedAttachment registers an asset. When Source is set the file is copied to
// Path below the asset root first.
type SeedAttachment struct {
	ID     int64  `mapstructure:"id"`
	Path   string `mapstructure:"path"`
	Mime   string `mapstructure:"mime"`
	Source string `mapstructure:"source"`
}

func (s Seed) Empty() bool {
	return len(s.Contents) == 0 && len(s.Attachments) == 0 && len(s.Options) == 0
}

// Import upserts every seed row. Attachment files are read from sources and
// written through assets before their rows are stored.
func (r *Repository) Import(ctx context.Context, seed Seed, sources afero.Fs, assets AssetWriter) error {
	for _, a := range seed.Attachments {
		if a.Path == "" || a.Mime == "" {
			return fmt.Errorf("seed attachment %d needs a path and a mime type", a.ID)
		}

		if a.Source != "" {
			data, err := afero.ReadFile(sources, a.Source)
			if err != nil {
				return fmt.Errorf("error reading seed file %s %w", a.Source, err)
			}
			if _, err := assets.Write(a.Path, data); err != nil {
				return err
			}
		}

		err := r.PutAttachment(ctx, domain.Attachment{
			Ref:      strconv.FormatInt(a.ID, 10),
			RelPath:  a.Path,
			MimeType: a.Mime,
		})
		if err != nil {
			return err
		}
	}

	for _, c := range seed.Contents {
		if c.ID <= 0 {
			return fmt.Errorf("seed content id %d is not positive", c.ID)
		}

		err := r.PutContent(ctx, domain.Content{
			ID:            c.ID,
			Published:     c.Published,
			FeaturedImage: c.FeaturedImage,
			YoastImage:    c.YoastImage,
			RankMathImage: c.RankMathImage,
		})
		if err != nil {
			return err
		}
	}

	for key, value := range seed.Options {
		if err := r.Set(ctx, key, value); err != nil {
			return err
		}
	}

	log.Info().Int("contents", len(seed.Contents)).Int("attachments", len(seed.Attachments)).
		Int("options", len(seed.Options)).Msg("imported seed data")

	return nil
}
