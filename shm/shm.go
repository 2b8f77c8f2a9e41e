// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package shm shares read-mostly data between processes through files
// mapped from a shared-memory directory. The first process to open a key
// fills the segment; the others map the finished result.
package shm

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/2dChan/s2regrid/internal/lockfile"
	"github.com/2dChan/s2regrid/logging"
	"golang.org/x/sys/unix"
)

// DefaultDir is the usual tmpfs mount for POSIX shared memory on Linux.
const DefaultDir = "/dev/shm"

// Header layout: magic [8]byte, ready uint32, keyLen uint32, key, padding
// to a multiple of 8, then the payload.
const (
	magic       = "S2RGSHM1"
	readyOffset = 8
	keyOffset   = 16
)

var (
	// ErrLockTimeout is returned when the creation lock of a segment could
	// not be acquired within the configured retries.
	ErrLockTimeout = errors.New("shm: lock timeout")
	// ErrSize is returned for a non-positive payload size.
	ErrSize = errors.New("shm: invalid size")
)

// Options configures Open.
type Options struct {
	LockRetries int
	LockWait    time.Duration
	Logger      *slog.Logger
}

// Option is a function that modifies Options.
type Option func(*Options) error

// WithLockRetries sets how many times the creation lock is tried.
func WithLockRetries(n int) Option {
	return func(o *Options) error {
		if n < 1 {
			return fmt.Errorf("shm: lock retries %d must be at least 1", n)
		}
		o.LockRetries = n
		return nil
	}
}

// WithLockWait sets the pause between lock attempts.
func WithLockWait(d time.Duration) Option {
	return func(o *Options) error {
		if d <= 0 {
			return fmt.Errorf("shm: lock wait %v must be positive", d)
		}
		o.LockWait = d
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) error {
		o.Logger = l
		return nil
	}
}

// Segment is a mapped shared-memory segment. Close always unmaps it.
type Segment struct {
	path    string
	data    []byte
	payload []byte
	created bool
}

// Open maps the segment for key under dir, holding size payload bytes. If
// no complete segment exists, fill is called with the payload to produce
// it while holding an exclusive lock; other processes wait for the lock
// and then map the completed segment.
func Open(dir, key string, size int, fill func(payload []byte) error, setters ...Option) (*Segment, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrSize, size)
	}
	opts := Options{LockRetries: 600, LockWait: 100 * time.Millisecond, Logger: logging.Discard()}
	for _, set := range setters {
		if err := set(&opts); err != nil {
			return nil, err
		}
	}
	path := Path(dir, key)
	if seg, err := attach(path, key, size); err != nil || seg != nil {
		return seg, err
	}

	lock, err := lockfile.Acquire(path+".lock", opts.LockRetries, opts.LockWait)
	if errors.Is(err, lockfile.ErrTimeout) {
		return nil, fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	if err != nil {
		return nil, fmt.Errorf("shm: %w", err)
	}
	defer lock.Release()

	// The creator may have finished while we waited.
	if seg, err := attach(path, key, size); err != nil || seg != nil {
		return seg, err
	}
	opts.Logger.Debug("shm_create", "path", path, "bytes", size)
	return create(path, key, size, fill)
}

// Path returns the file backing key under dir.
func Path(dir, key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(dir, "s2regrid-"+hex.EncodeToString(sum[:16])+".shm")
}

func headerSize(key string) int {
	return (keyOffset + len(key) + 7) &^ 7
}

// attach maps an existing ready segment. It returns nil, nil when there is
// no usable segment.
func attach(path, key string, size int) (*Segment, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("shm: %w", err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("shm: %w", err)
	}
	total := headerSize(key) + size
	if fi.Size() != int64(total) {
		return nil, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}
	seg := &Segment{path: path, data: data, payload: data[headerSize(key):]}
	if !seg.valid(key) {
		seg.Close()
		return nil, nil
	}
	return seg, nil
}

// create fills a fresh file next to path and renames it into place once it
// is ready, so processes still mapping a previous segment keep their data.
func create(path, key string, size int, fill func([]byte) error) (*Segment, error) {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("shm: %w", err)
	}
	tmp := f.Name()
	defer f.Close()
	seg, err := fillFile(f, key, size, fill)
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		seg.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("shm: %w", err)
	}
	seg.path = path
	return seg, nil
}

func fillFile(f *os.File, key string, size int, fill func([]byte) error) (*Segment, error) {
	if err := f.Chmod(0o644); err != nil {
		return nil, fmt.Errorf("shm: %w", err)
	}
	total := headerSize(key) + size
	if err := f.Truncate(int64(total)); err != nil {
		return nil, fmt.Errorf("shm: %w", err)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, total, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap %s: %w", f.Name(), err)
	}
	seg := &Segment{path: f.Name(), data: data, payload: data[headerSize(key):], created: true}
	copy(data, magic)
	binary.LittleEndian.PutUint32(data[keyOffset-4:], uint32(len(key)))
	copy(data[keyOffset:], key)
	if err := fill(seg.payload); err != nil {
		seg.Close()
		return nil, err
	}
	atomic.StoreUint32(seg.ready(), 1)
	return seg, nil
}

func (s *Segment) ready() *uint32 {
	return (*uint32)(unsafe.Pointer(&s.data[readyOffset]))
}

func (s *Segment) valid(key string) bool {
	if string(s.data[:len(magic)]) != magic || atomic.LoadUint32(s.ready()) != 1 {
		return false
	}
	n := int(binary.LittleEndian.Uint32(s.data[keyOffset-4:]))
	return n == len(key) && string(s.data[keyOffset:keyOffset+n]) == key
}

// Bytes returns the payload. It is invalid after Close.
func (s *Segment) Bytes() []byte {
	return s.payload
}

// Float64s returns the payload viewed as float64 values. It is invalid
// after Close.
func (s *Segment) Float64s() []float64 {
	return Float64s(s.payload)
}

// Float64s views p as float64 values. p must be 8-byte aligned, as
// segment payloads are.
func Float64s(p []byte) []float64 {
	if len(p) < 8 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(&p[0])), len(p)/8)
}

// Size returns the number of mapped bytes, header included.
func (s *Segment) Size() int {
	return len(s.data)
}

// Created reports whether this call filled the segment.
func (s *Segment) Created() bool {
	return s.created
}

// Path returns the backing file.
func (s *Segment) Path() string {
	return s.path
}

// Close unmaps the segment. It is safe to call more than once. The backing
// file stays for other processes; use Remove to delete it.
func (s *Segment) Close() error {
	if s.data == nil {
		return nil
	}
	err := unix.Munmap(s.data)
	s.data, s.payload = nil, nil
	return err
}

// Remove deletes the backing file and its lock file.
func Remove(dir, key string) error {
	path := Path(dir, key)
	err := os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		err = nil
	}
	if lerr := os.Remove(path + ".lock"); lerr != nil && !errors.Is(lerr, os.ErrNotExist) && err == nil {
		err = lerr
	}
	return err
}
