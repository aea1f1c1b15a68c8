package persistence

import "fmt"

// StorageIOError is returned for any failed read, write, encode or decode of the document.
type StorageIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("storage %s %s: %s", e.Op, e.Path, e.Err)
}

func (e *StorageIOError) Unwrap() error {
	return e.Err
}

func ioError(op, path string, err error) error {
	return &StorageIOError{Op: op, Path: path, Err: err}
}
