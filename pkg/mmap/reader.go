// Package mmap provides read-only memory-mapped file access. Platforms
// without mmap fall back to reading the file into memory.
package mmap

import (
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cpandas/pkg/errors"
	"github.com/ajitpratap0/cpandas/pkg/logger"
)

// Reader exposes a file's bytes without copying them into the heap.
// Slices returned by Bytes and ReadRange are valid until Close.
type Reader struct {
	file     *os.File
	data     []byte
	size     int64
	pageSize int
	mapped   bool

	bytesRead int64
	mu        sync.RWMutex
}

// Open maps path into memory.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "open file").WithDetail("path", path)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.CodeIO, "stat file").WithDetail("path", path)
	}
	size := stat.Size()
	if int64(int(size)) != size {
		file.Close()
		return nil, errors.Newf(errors.CodeOutOfMemory, "file of %d bytes cannot be mapped", size).WithDetail("path", path)
	}
	r := &Reader{file: file, size: size, pageSize: os.Getpagesize()}

	// Zero-length mappings are rejected by the kernel.
	if size == 0 {
		return r, nil
	}
	if mapped {
		data, err := mmap(int(file.Fd()), int(size))
		if err == nil {
			if err := adviseSequential(data); err != nil {
				logger.Debug("madvise failed", zap.String("path", path), zap.Error(err))
			}
			r.data, r.mapped = data, true
			return r, nil
		}
		logger.Debug("mmap failed, reading file instead", zap.String("path", path), zap.Error(err))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.CodeIO, "read file").WithDetail("path", path)
	}
	r.data = data
	return r, nil
}

// Size returns the file length in bytes.
func (r *Reader) Size() int64 { return r.size }

// Mapped reports whether the bytes come from a memory mapping.
func (r *Reader) Mapped() bool { return r.mapped }

// Bytes returns the whole file.
func (r *Reader) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mapped {
		r.prefetch(0, r.size)
	}
	r.bytesRead += r.size
	return r.data
}

// ReadRange returns up to length bytes starting at offset.
func (r *Reader) ReadRange(offset, length int64) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if offset < 0 || offset > r.size || length < 0 {
		return nil, errors.Newf(errors.CodeInvalid, "range [%d, +%d) outside file of %d bytes", offset, length, r.size)
	}
	end := offset + length
	if end > r.size {
		end = r.size
	}
	if r.mapped {
		r.prefetch(offset, end)
	}
	r.bytesRead += end - offset
	return r.data[offset:end], nil
}

// prefetch advises the kernel to page in [start, end) rounded out to pages.
func (r *Reader) prefetch(start, end int64) {
	page := int64(r.pageSize)
	start = start / page * page
	end = (end + page - 1) / page * page
	if end > r.size {
		end = r.size
	}
	if end <= start {
		return
	}
	_ = adviseWillNeed(r.data[start:end])
}

// BytesRead returns the number of bytes handed out so far.
func (r *Reader) BytesRead() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bytesRead
}

// Close unmaps the file and closes it
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	if r.mapped && r.data != nil {
		err = munmap(r.data)
	}
	r.data, r.mapped = nil, false

	if r.file != nil {
		if closeErr := r.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		r.file = nil
	}
	if err != nil {
		return errors.Wrap(err, errors.CodeIO, "close mapped file")
	}
	return nil
}
