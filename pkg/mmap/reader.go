// Package mmap provides read-only memory-mapped access to table files.
package mmap

import (
	"os"
	"sync"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Reader maps a whole file read-only. The returned slices alias the mapping
// and must not be used after Close.
type Reader struct {
	file     *os.File
	data     []byte
	fileSize int64
	pageSize int

	bytesRead int64

	mu sync.RWMutex
}

// NewReader opens and maps filename.
func NewReader(filename string) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open file")
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to stat file")
	}

	fileSize := stat.Size()
	if fileSize == 0 {
		file.Close()
		return nil, errors.New(errors.ErrorTypeIO, "file is empty").WithDetail("file", filename)
	}

	data, err := mmap(int(file.Fd()), int(fileSize))
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to mmap file")
	}
	// Advice is a hint; a failure does not affect correctness.
	_ = adviseSequential(data)

	return &Reader{
		file:     file,
		data:     data,
		fileSize: fileSize,
		pageSize: os.Getpagesize(),
	}, nil
}

// Size returns the mapped length.
func (r *Reader) Size() int64 {
	return r.fileSize
}

// ReadAll returns the entire mapping and asks the kernel to fault it in.
func (r *Reader) ReadAll() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data == nil {
		return nil
	}
	r.prefetchRange(0, r.fileSize)
	r.bytesRead += r.fileSize
	return r.data
}

// ReadRange returns length bytes from offset, clipped to the end of file.
func (r *Reader) ReadRange(offset, length int64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.data == nil {
		return nil, errors.New(errors.ErrorTypeIO, "reader is closed")
	}
	if offset < 0 || offset >= r.fileSize || length < 0 {
		return nil, errors.Newf(errors.ErrorTypeIO, "range [%d, +%d) out of bounds for file of %d bytes",
			offset, length, r.fileSize)
	}
	end := min(offset+length, r.fileSize)
	r.prefetchRange(offset, end)
	r.bytesRead += end - offset
	return r.data[offset:end], nil
}

func (r *Reader) prefetchRange(start, end int64) {
	page := int64(r.pageSize)
	startPage := (start / page) * page
	endPage := min(((end+page-1)/page)*page, r.fileSize)
	if endPage <= startPage {
		return
	}
	_ = adviseWillNeed(r.data[startPage:endPage])
}

// Close unmaps the file and closes it.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.data != nil {
		err = munmap(r.data)
		r.data = nil
	}
	if r.file != nil {
		if closeErr := r.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		r.file = nil
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to close mapped file")
	}
	return nil
}

// BytesRead returns how many bytes have been handed out.
func (r *Reader) BytesRead() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bytesRead
}

// ReadFile maps filename, copies its contents out and unmaps it. Where
// mapping is unsupported, or the file is empty, it falls back to os.ReadFile.
func ReadFile(filename string) ([]byte, error) {
	if !Supported {
		return readPlain(filename)
	}
	r, err := NewReader(filename)
	if err != nil {
		if info, statErr := os.Stat(filename); statErr == nil && info.Size() == 0 {
			return []byte{}, nil
		}
		return nil, err
	}
	data := r.ReadAll()
	out := make([]byte, len(data))
	copy(out, data)
	if err := r.Close(); err != nil {
		return nil, err
	}
	return out, nil
}

func readPlain(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to read file")
	}
	return data, nil
}
