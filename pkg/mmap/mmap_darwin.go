//go:build darwin

package mmap

import (
	"syscall"
	"unsafe"
)

const mapped = true

// Sequential and will-need page references
const (
	madvSequential = 2
	madvWillNeed   = 3
)

// mmap wraps the mmap system call
func mmap(fd int, length int) ([]byte, error) {
	return syscall.Mmap(fd, 0, length, syscall.PROT_READ, syscall.MAP_SHARED)
}

// munmap wraps the munmap system call
func munmap(b []byte) error {
	return syscall.Munmap(b)
}

// madvise calls the system call directly; syscall exposes no wrapper on macOS.
func madvise(b []byte, advice int) error {
	_, _, err := syscall.Syscall(syscall.SYS_MADVISE, uintptr(unsafe.Pointer(&b[0])), uintptr(len(b)), uintptr(advice))
	if err != 0 {
		return err
	}
	return nil
}

func adviseSequential(b []byte) error { return madvise(b, madvSequential) }

func adviseWillNeed(b []byte) error { return madvise(b, madvWillNeed) }
