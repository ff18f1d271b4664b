package content

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxImageSize caps a single stored image at 5 MiB.
const MaxImageSize = 5 << 20

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
}

var (
	// ErrUnsupportedImageType is returned for filenames without an allowed
	// image extension.
	ErrUnsupportedImageType = errors.New("unsupported image type, only png/jpg/jpeg/gif/webp allowed")

	// ErrImageTooLarge is returned when an upload exceeds MaxImageSize.
	ErrImageTooLarge = errors.New("image exceeds maximum size")
)

// FileStore stores image artifacts under a single directory. Stored names
// are uuid-derived, so the caller-provided filename only contributes its
// extension and never reaches the filesystem.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a store rooted
// at it.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &FileStore{dir: dir}, nil
}

// Dir returns the directory artifacts are stored in.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Path returns the on-disk path for a stored name.
func (fs *FileStore) Path(name string) string {
	return filepath.Join(fs.dir, filepath.Base(name))
}

// Save writes the image to a fresh uuid-named file and returns the stored
// name. A partially written or oversized file is removed before the error
// is returned.
func (fs *FileStore) Save(originalName string, image io.Reader) (string, error) {
	var ext = strings.ToLower(filepath.Ext(originalName))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrUnsupportedImageType
	}

	var (
		name = uuid.New().String() + ext
		path = filepath.Join(fs.dir, name)
	)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}

	// Read one byte past the cap so an exactly-full file still passes.
	written, err := io.Copy(f, io.LimitReader(image, MaxImageSize+1))
	if err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write image file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close image file: %w", err)
	}

	if written > MaxImageSize {
		os.Remove(path)
		return "", ErrImageTooLarge
	}

	return name, nil
}

// Remove deletes a stored artifact. Removing a name that is already gone
// is not an error.
func (fs *FileStore) Remove(name string) error {
	var err = os.Remove(fs.Path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}
