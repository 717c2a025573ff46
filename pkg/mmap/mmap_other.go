//go:build !linux && !darwin

package mmap

import (
	"errors"
)

const mapped = false

var errUnsupported = errors.New("mmap unsupported on this platform")

func mmap(fd int, length int) ([]byte, error) { return nil, errUnsupported }

func munmap(b []byte) error { return nil }

func adviseSequential(b []byte) error { return nil }

func adviseWillNeed(b []byte) error { return nil }
