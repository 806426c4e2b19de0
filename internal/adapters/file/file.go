package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Storage gives read access to uploaded assets below a single root directory.
type Storage struct {
	fs   afero.Fs
	root string
	os   bool
}

// NewStorage returns a storage rooted at root. On the OS filesystem the root is
// made absolute and its symlinks are resolved so containment checks compare
// like with like.
func NewStorage(fs afero.Fs, root string) (*Storage, error) {
	if root == "" {
		return nil, errors.New("asset root is required")
	}

	_, onOS := fs.(*afero.OsFs)

	root = filepath.Clean(root)
	if onOS {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("error resolving asset root %w", err)
		}
		resolved, err := filepath.EvalSymlinks(abs)
		if err != nil {
			return nil, fmt.Errorf("error resolving asset root %w", err)
		}
		root = resolved
	}

	log.Debug().Str("root", root).Bool("os", onOS).Msg("asset storage ready")

	return &Storage{fs: fs, root: root, os: onOS}, nil
}

// Root returns the cleaned storage root.
func (s *Storage) Root() string {
	return s.root
}

// Resolve joins a stored relative path onto the root. Absolute paths are only cleaned.
func (s *Storage) Resolve(relPath string) string {
	if filepath.IsAbs(relPath) {
		return filepath.Clean(relPath)
	}
	return filepath.Join(s.root, relPath)
}

func (s *Storage) Stat(path string) (os.FileInfo, error) {
	return s.fs.Stat(path)
}

// Contains reports whether path lies under the root after following symlinks.
func (s *Storage) Contains(path string) (bool, error) {
	resolved := filepath.Clean(path)
	if s.os {
		var err error
		resolved, err = filepath.EvalSymlinks(resolved)
		if err != nil {
			return false, fmt.Errorf("error resolving path %w", err)
		}
	}

	rel, err := filepath.Rel(s.root, resolved)
	if err != nil {
		return false, nil
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		log.Warn().Str("path", path).Str("root", s.root).Msg("asset path escapes storage root")
		return false, nil
	}

	return true, nil
}

func (s *Storage) Open(path string) (io.ReadCloser, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		err = fmt.Errorf("error opening asset %w", err)
		log.Debug().Err(err).Str("path", path).Send()
		return nil, err
	}

	return f, nil
}

// Write stores data at relPath below the root, creating directories as needed.
func (s *Storage) Write(relPath string, data []byte) (string, error) {
	path := s.Resolve(relPath)

	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		err = fmt.Errorf("error creating asset directory %w", err)
		log.Error().Err(err).Send()
		return "", err
	}

	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		err = fmt.Errorf("error writing asset %w", err)
		log.Error().Err(err).Send()
		return "", err
	}

	log.Debug().Str("path", path).Int("bytes", len(data)).Msg("wrote asset")

	return path, nil
}
