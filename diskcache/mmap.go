// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package diskcache

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapped is a read-only memory mapping of a file. Close always unmaps.
type Mapped struct {
	data []byte
}

// Map maps the whole file at path. An empty file is reported as ErrCorrupt
// since it cannot be mapped.
func Map(path string) (*Mapped, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("diskcache: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("diskcache: %w", err)
	}
	if fi.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrCorrupt, path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(fi.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("diskcache: mmap %s: %w", path, err)
	}
	return &Mapped{data: data}, nil
}

// Bytes returns the mapped contents. The slice is invalid after Close.
func (m *Mapped) Bytes() []byte {
	return m.data
}

// Close unmaps the file. It is safe to call more than once.
func (m *Mapped) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
