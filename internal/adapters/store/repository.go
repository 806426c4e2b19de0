package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ogio/internal/core/domain"
	"strconv"

	"github.com/rs/zerolog/log"
)

// Repository serves content, attachment and option lookups from sqlite.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Content(ctx context.Context, id int64) (domain.Content, error) {
	c := domain.Content{ID: id}

	err := r.db.QueryRowContext(ctx,
		`SELECT published, featured_image, yoast_image, rankmath_image FROM contents WHERE id = ?`, id).
		Scan(&c.Published, &c.FeaturedImage, &c.YoastImage, &c.RankMathImage)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Content{}, domain.ErrContentNotFound
	}
	if err != nil {
		err = fmt.Errorf("error loading content %d %w", id, err)
		log.Error().Err(err).Send()
		return domain.Content{}, err
	}

	return c, nil
}

func (r *Repository) Attachment(ctx context.Context, ref string) (domain.Attachment, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		return domain.Attachment{}, domain.ErrAttachmentNotFound
	}

	a := domain.Attachment{Ref: ref}
	err = r.db.QueryRowContext(ctx,
		`SELECT rel_path, mime_type FROM attachments WHERE id = ?`, id).
		Scan(&a.RelPath, &a.MimeType)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attachment{}, domain.ErrAttachmentNotFound
	}
	if err != nil {
		err = fmt.Errorf("error loading attachment %s %w", ref, err)
		log.Error().Err(err).Send()
		return domain.Attachment{}, err
	}

	return a, nil
}

// Get returns an option value.
func (r *Repository) Get(ctx context.Context, key string) (string, error) {
	var value string

	err := r.db.QueryRowContext(ctx, `SELECT value FROM options WHERE name = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrSettingNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error loading option %s %w", key, err)
	}

	return value, nil
}

func (r *Repository) PutContent(ctx context.Context, c domain.Content) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contents (id, published, featured_image, yoast_image, rankmath_image)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET published = excluded.published,
		   featured_image = excluded.featured_image,
		   yoast_image = excluded.yoast_image,
		   rankmath_image = excluded.rankmath_image`,
		c.ID, c.Published, c.FeaturedImage, c.YoastImage, c.RankMathImage)
	if err != nil {
		return fmt.Errorf("error storing content %d %w", c.ID, err)
	}
	return nil
}

func (r *Repository) PutAttachment(ctx context.Context, a domain.Attachment) error {
	id, err := strconv.ParseInt(a.Ref, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("attachment ref %q is not a positive integer", a.Ref)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO attachments (id, rel_path, mime_type) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET rel_path = excluded.rel_path, mime_type = excluded.mime_type`,
		id, a.RelPath, a.MimeType)
	if err != nil {
		return fmt.Errorf("error storing attachment %s %w", a.Ref, err)
	}
	return nil
}

// Set stores an option value, replacing any previous one.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO options (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("error storing option %s %w", key, err)
	}
	return nil
}
