package port

import (
	"io"
	"os"
)

type AssetStorage interface {
	// Resolve turns a stored relative path into an absolute path. It does not check existence.
	Resolve(relPath string) string
	// Stat returns file info for an absolute path.
	Stat(path string) (os.FileInfo, error)
	// Contains reports whether an absolute path lies under the storage root once links are followed.
	Contains(path string) (bool, error)
	// Open opens an absolute path for reading.
	Open(path string) (io.ReadCloser, error)
}
