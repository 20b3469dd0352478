//go:build windows

// pkg/piecetable/block_windows.go
package piecetable

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// mmapRegion owns a read-only memory mapping of a file on Windows.
type mmapRegion struct {
	file      *os.File
	mapHandle windows.Handle
	addr      uintptr
	data      []byte
}

// mapFileReadOnly memory-maps the whole of the file at path and returns a
// block backed by the mapping. The mapping is FILE_MAP_READ only: a
// loaded file is never written to through this block.
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

	mapHandle, err := windows.CreateFileMapping(
		windows.Handle(f.Fd()),
		nil,
		windows.PAGE_READONLY,
		uint32(size>>32),
		uint32(size&0xFFFFFFFF),
		nil,
	)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("piecetable: CreateFileMapping %s: %w", path, err)
	}

	addr, err := windows.MapViewOfFile(mapHandle, windows.FILE_MAP_READ, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(mapHandle)
		f.Close()
		return nil, fmt.Errorf("piecetable: MapViewOfFile %s: %w", path, err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))

	region := &mmapRegion{file: f, mapHandle: mapHandle, addr: addr, data: data}
	b := &block{kind: mappedBlock, data: data, mapped: region}
	b.refs.Store(1)
	return b, nil
}

func (r *mmapRegion) unmap() {
	if r.addr != 0 {
		windows.UnmapViewOfFile(r.addr)
		r.addr = 0
	}
	if r.mapHandle != 0 {
		windows.CloseHandle(r.mapHandle)
		r.mapHandle = 0
	}
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}
}
