package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"ogio/internal/adapters/converter"
	"ogio/internal/adapters/file"
	"ogio/internal/core/domain"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testRoot = "/uploads"

// isKind reports whether err is a pipeline error of the given kind.
func isKind(err error, kind domain.Kind) bool {
	var e *domain.Error
	return errors.As(err, &e) && e.Kind == kind
}

type fakeSettings map[string]string

func (s fakeSettings) Get(_ context.Context, key string) (string, error) {
	v, ok := s[key]
	if !ok {
		return "", domain.ErrSettingNotFound
	}
	return v, nil
}

type fakeAttachments map[string]domain.Attachment

func (a fakeAttachments) Attachment(_ context.Context, ref string) (domain.Attachment, error) {
	att, ok := a[ref]
	if !ok {
		return domain.Attachment{}, domain.ErrAttachmentNotFound
	}
	return att, nil
}

type fakeContent map[int64]domain.Content

func (c fakeContent) Content(_ context.Context, id int64) (domain.Content, error) {
	content, ok := c[id]
	if !ok {
		return domain.Content{}, domain.ErrContentNotFound
	}
	return content, nil
}

type fakeProbe struct {
	mu      sync.Mutex
	ceiling int64
	usage   int64
	max     int64
	raises  int
}

func (p *fakeProbe) Ceiling() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ceiling
}

func (p *fakeProbe) Usage() int64 {
	return p.usage
}

func (p *fakeProbe) Raise(delta int64) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ceiling+delta > p.max {
		return p.ceiling, domain.ErrCeilingFixed
	}
	p.ceiling += delta
	p.raises++
	return p.ceiling, nil
}

// fixture is an in-memory CMS: settings, content, attachments and their files.
type fixture struct {
	t           *testing.T
	storage     *file.Storage
	converter   *converter.ImagingConverter
	settings    fakeSettings
	attachments fakeAttachments
	content     fakeContent
	probe       *fakeProbe
	sink        *recordingSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	storage, err := file.NewStorage(afero.NewMemMapFs(), testRoot)
	require.NoError(t, err)

	return &fixture{
		t:           t,
		storage:     storage,
		converter:   converter.NewImagingConverter(),
		settings:    fakeSettings{},
		attachments: fakeAttachments{},
		content:     fakeContent{},
		probe:       &fakeProbe{ceiling: 1 << 30, max: 2 << 30},
		sink:        &recordingSink{},
	}
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// addImage encodes a solid image and registers it as attachment ref.
func (f *fixture) addImage(ref, mime string, w, h int, c color.NRGBA) {
	f.t.Helper()

	format, ok := domain.FormatForMime(mime)
	require.True(f.t, ok)

	var buf bytes.Buffer
	require.NoError(f.t, f.converter.Encode(&buf, solid(w, h, c), format, 90))
	f.addFile(ref, mime, "img-"+ref+"."+string(format), buf.Bytes())
}

func (f *fixture) addFile(ref, mime, rel string, data []byte) {
	f.t.Helper()

	_, err := f.storage.Write(rel, data)
	require.NoError(f.t, err)
	f.attachments[ref] = domain.Attachment{Ref: ref, RelPath: rel, MimeType: mime}
}

func (f *fixture) validator() *ImageValidator {
	return NewImageValidator(f.attachments, f.storage, f.converter, DefaultValidationLimits(), zerolog.Nop())
}

func (f *fixture) configResolver() *ConfigResolver {
	return NewConfigResolver(f.settings, f.attachments, zerolog.Nop())
}

func (f *fixture) compositor() *Compositor {
	return NewCompositor(f.storage, f.converter, DefaultMaxExecution, zerolog.Nop())
}

func (f *fixture) dispatcher() *RequestDispatcher {
	log := zerolog.Nop()
	return NewRequestDispatcher(
		f.configResolver(),
		f.content,
		NewSourceSelector(f.attachments, log),
		f.validator(),
		NewMemoryBudgeter(f.probe, log),
		f.compositor(),
		NewRecoveryPolicy(f.probe, DefaultMemoryIncrement, log),
		f.sink,
		log,
	)
}

func nopLogger() zerolog.Logger {
	return zerolog.Nop()
}
