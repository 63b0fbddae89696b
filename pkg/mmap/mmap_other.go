//go:build !linux && !darwin

package mmap

import (
	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Supported reports whether this platform maps files.
const Supported = false

func mmap(int, int) ([]byte, error) {
	return nil, errors.New(errors.ErrorTypeUnsupported, "memory mapping is not supported on this platform")
}

func munmap([]byte) error { return nil }

func adviseSequential([]byte) error { return nil }

func adviseWillNeed([]byte) error { return nil }
