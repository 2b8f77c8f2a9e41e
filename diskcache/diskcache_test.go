// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

package diskcache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/2dChan/s2regrid/internal/lockfile"
	"github.com/2dChan/s2regrid/metrics"
	"github.com/2dChan/s2regrid/weights"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCache_Path(t *testing.T) {
	c := mustCache(t, t.TempDir())
	p := c.Path("some key")
	rel, err := filepath.Rel(c.Root(), p)
	if err != nil {
		t.Fatalf("filepath.Rel(...) error = %v, want nil", err)
	}
	dir, file := filepath.Split(rel)
	if len(file) != 64+len(extension) || !strings.HasSuffix(file, extension) {
		t.Errorf("file name = %q, want <sha256>%s", file, extension)
	}
	if dir != file[:2]+string(filepath.Separator) {
		t.Errorf("dir = %q, want %q", dir, file[:2])
	}
	if c.Path("some key") != p || c.Path("other key") == p {
		t.Errorf("Path() is not a function of the key")
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero retries", WithLockRetries(0)},
		{"zero wait", WithLockWait(0)},
	}
	for _, tt := range tests {
		if _, err := New(t.TempDir(), tt.opt); err == nil {
			t.Errorf("New(%s) error = nil, want non-nil", tt.name)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	m := sampleMatrix()
	var buf bytes.Buffer
	if err := Encode(&buf, "key", m); err != nil {
		t.Fatalf("Encode(...) error = %v, want nil", err)
	}
	got, err := Decode(buf.Bytes(), "key")
	if err != nil {
		t.Fatalf("Decode(...) error = %v, want nil", err)
	}
	if !got.Equal(m) {
		t.Errorf("Decode(Encode(m)) is not bit-identical to m")
	}
}

func TestDecode_Corrupt(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, "key", sampleMatrix()); err != nil {
		t.Fatalf("Encode(...) error = %v, want nil", err)
	}
	valid := buf.Bytes()
	outOfRange := bytes.Clone(valid)
	// First triplet row, just after the header.
	outOfRange[len(magic)+4+3+24] = 0xff

	tests := []struct {
		name string
		data []byte
		key  string
	}{
		{"empty", nil, "key"},
		{"bad magic", append([]byte("XXXXXXXX"), valid[8:]...), "key"},
		{"key mismatch", valid, "other"},
		{"truncated header", valid[:len(magic)+6], "key"},
		{"truncated triplets", valid[:len(valid)-5], "key"},
		{"out of range", outOfRange, "key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data, tt.key); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Decode(...) error = %v, want %v", err, ErrCorrupt)
			}
		})
	}
}

func TestWeightCache_FetchOnce(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	compute := countingCompute(&calls)

	first, err := NewWeightCache(mustCache(t, root)).Fetch("k", compute)
	if err != nil {
		t.Fatalf("Fetch(k) error = %v, want nil", err)
	}
	// A fresh cache over the same root behaves like another process.
	second, err := NewWeightCache(mustCache(t, root)).Fetch("k", compute)
	if err != nil {
		t.Fatalf("second Fetch(k) error = %v, want nil", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("compute calls = %v, want 1", got)
	}
	if !first.Equal(second) {
		t.Errorf("loaded matrix is not bit-identical to computed matrix")
	}
}

func TestWeightCache_ConcurrentCaches(t *testing.T) {
	root := t.TempDir()
	var calls atomic.Int32
	compute := countingCompute(&calls)

	var wg sync.WaitGroup
	for range 8 {
		wc := NewWeightCache(mustCache(t, root))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := wc.Fetch("shared", compute); err != nil {
				t.Errorf("Fetch(shared) error = %v, want nil", err)
			}
		}()
	}
	wg.Wait()
	if got := calls.Load(); got != 1 {
		t.Errorf("compute calls = %v, want 1", got)
	}
}

func TestWeightCache_RepairsCorruptEntry(t *testing.T) {
	mc := metrics.NewCollector(prometheus.NewRegistry(), "test")
	c := mustCache(t, t.TempDir(), WithMetrics(mc))
	wc := NewWeightCache(c)

	tests := []struct {
		name    string
		content func() []byte
	}{
		{"garbage", func() []byte { return []byte("not a weight matrix") }},
		{"empty", func() []byte { return nil }},
		{"other key", func() []byte {
			var buf bytes.Buffer
			Encode(&buf, "other", sampleMatrix())
			return buf.Bytes()
		}},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "k-" + tt.name
			path := c.Path(key)
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				t.Fatalf("os.MkdirAll(...) error = %v, want nil", err)
			}
			if err := os.WriteFile(path, tt.content(), 0o644); err != nil {
				t.Fatalf("os.WriteFile(...) error = %v, want nil", err)
			}
			var calls atomic.Int32
			m, err := wc.Fetch(key, countingCompute(&calls))
			if err != nil {
				t.Fatalf("Fetch(%s) error = %v, want nil", key, err)
			}
			if calls.Load() != 1 || !m.Equal(sampleMatrix()) {
				t.Errorf("Fetch(%s) did not recompute the entry", key)
			}
			if got := testutil.ToFloat64(mc.DiskCacheTotal.WithLabelValues(metrics.OutcomeRepaired)); got != float64(i+1) {
				t.Errorf("repaired outcomes = %v, want %v", got, i+1)
			}
			if _, err := ReadFile(path, key); err != nil {
				t.Errorf("ReadFile(repaired) error = %v, want nil", err)
			}
		})
	}
}

func TestWeightCache_LockTimeout(t *testing.T) {
	c := mustCache(t, t.TempDir(), WithLockRetries(3), WithLockWait(time.Millisecond))
	path := c.Path("busy")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("os.MkdirAll(...) error = %v, want nil", err)
	}
	held, err := lockfile.TryAcquire(path + ".lock")
	if err != nil {
		t.Fatalf("lockfile.TryAcquire(...) error = %v, want nil", err)
	}
	defer held.Release()

	var calls atomic.Int32
	if _, err := NewWeightCache(c).Fetch("busy", countingCompute(&calls)); !errors.Is(err, ErrLockTimeout) {
		t.Errorf("Fetch(busy) error = %v, want %v", err, ErrLockTimeout)
	}
	if calls.Load() != 0 {
		t.Errorf("compute calls = %v, want 0", calls.Load())
	}
}

func TestWeightCache_ComputeError(t *testing.T) {
	c := mustCache(t, t.TempDir())
	errBoom := errors.New("boom")
	_, err := NewWeightCache(c).Fetch("k", func() (*weights.Matrix, error) { return nil, errBoom })
	if !errors.Is(err, errBoom) {
		t.Errorf("Fetch(k) error = %v, want %v", err, errBoom)
	}
	if _, err := os.Stat(c.Path("k")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("entry exists after failed compute: %v", err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(c.Path("k")), "*.tmp-*"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

// Helpers

func sampleMatrix() *weights.Matrix {
	return weights.FromTriplets(3, 4, []weights.Triplet{
		{Row: 0, Col: 1, Value: 0.25},
		{Row: 0, Col: 3, Value: 0.75},
		{Row: 2, Col: 0, Value: 1.0 / 3},
		{Row: 2, Col: 2, Value: 2.0 / 3},
	})
}

func countingCompute(calls *atomic.Int32) func() (*weights.Matrix, error) {
	return func() (*weights.Matrix, error) {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return sampleMatrix(), nil
	}
}

func mustCache(t *testing.T, root string, setters ...Option) *Cache {
	t.Helper()
	c, err := New(root, setters...)
	if err != nil {
		t.Fatalf("New(%q) error = %v, want nil", root, err)
	}
	return c
}
