package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ajitpratap0/arbor/pkg/mmap"
)

// Local stores objects as files. Writes go to a temporary file in the same
// directory and are renamed into place, so a failed write never leaves a
// partial file behind.
type Local struct{}

// NewLocal returns the local file backend.
func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mmap.ReadFile(path)
}

func (l *Local) Write(ctx context.Context, path string, data []byte) (err error) {
	loc := Location{Scheme: SchemeFile, Key: path}
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return wrapIO(err, "create", loc)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return wrapIO(err, "write", loc)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return wrapIO(err, "write", loc)
	}
	if err := tmp.Close(); err != nil {
		return wrapIO(err, "write", loc)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return wrapIO(err, "rename", loc)
	}
	return nil
}

func (l *Local) Delete(_ context.Context, path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return wrapIO(err, "delete", Location{Scheme: SchemeFile, Key: path})
	}
	return nil
}

func (l *Local) Close() error { return nil }
