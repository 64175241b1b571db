package core

import "io"

// FileStorage abstracts the physical artifact store.
// Save returns an opaque handle used to fetch or delete the artifact later.
type FileStorage interface {
	Save(name string, r io.Reader) (handle string, size int64, err error)
	Open(handle string) (io.ReadCloser, error)
	Delete(handle string) error
}
