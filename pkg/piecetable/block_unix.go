//go:build unix || darwin || linux || freebsd || openbsd || netbsd

// pkg/piecetable/block_unix.go
package piecetable

import (
	"fmt"
	"os"
	"syscall"
)

// mmapRegion owns a read-only memory mapping of a file on a unix-family
// platform.
type mmapRegion struct {
	file *os.File
	data []byte
}

// mapFileReadOnly memory-maps the whole of the file at path and returns a
// block backed by the mapping. The mapping is PROT_READ/MAP_SHARED: a
// loaded file is never written to through this block, and its size is
// fixed for the block's lifetime.
func mapFileReadOnly(path string) (*block, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("piecetable: open %s: %w", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("piecetable: stat %s: %w", path, err)
	}

	size := stat.Size()
	if size == 0 {
		f.Close()
		return newHeapBlock(nil), nil
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("piecetable: mmap %s: %w", path, err)
	}

	b := &block{
		kind:   mappedBlock,
		data:   data,
		mapped: &mmapRegion{file: f, data: data},
	}
	b.refs.Store(1)
	return b, nil
}

func (r *mmapRegion) unmap() {
	if r.data != nil {
		syscall.Munmap(r.data)
		r.data = nil
	}
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}
