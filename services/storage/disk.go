package storagesvc

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rmarban/approvio/core"
)

// DiskStorage persists uploaded files under a root directory using opaque
// uuid handles so original filenames never touch the filesystem.
type DiskStorage struct {
	root string
}

var _ core.FileStorage = (*DiskStorage)(nil)

func NewDiskStorage(conf *core.Config) (*DiskStorage, error) {
	root := conf.Uploads.RootDir
	if !filepath.IsAbs(root) {
		root = filepath.Join(conf.WorkDir, root)
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, errors.Wrap(err, "creating uploads dir")
	}
	return &DiskStorage{root: root}, nil
}

func (s *DiskStorage) Save(name string, r io.Reader) (string, int64, error) {
	handle := uuid.New().String() + filepath.Ext(name)
	f, err := os.Create(filepath.Join(s.root, handle))
	if err != nil {
		return "", 0, errors.Wrap(err, "creating file")
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(f.Name())
		return "", 0, errors.Wrap(err, "writing file")
	}
	return handle, size, nil
}

func (s *DiskStorage) Open(handle string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.Base(handle)))
	if err != nil {
		return nil, errors.Wrap(err, "opening file")
	}
	return f, nil
}

func (s *DiskStorage) Delete(handle string) error {
	err := os.Remove(filepath.Join(s.root, filepath.Base(handle)))
	if err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing file")
	}
	return nil
}
