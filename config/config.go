// Copyright (c) 2026 Andrey Kriulin
// Licensed under the MIT License.
// See the LICENSE file in the project root for full license text.

// Package config loads runtime settings from the environment and optional
// .env files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/2dChan/s2regrid/weights"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
)

// Prefix is prepended to every environment variable name.
const Prefix = "S2REGRID_"

// Environment variable names, without Prefix.
const (
	EnvCacheDir        = "CACHE_DIR"
	EnvSharedMemoryDir = "SHM_DIR"
	EnvMemoryCap       = "MEMORY_CAP"
	EnvSharedMemoryCap = "SHARED_MEMORY_CAP"
	EnvLockRetries     = "LOCK_RETRIES"
	EnvLockWait        = "LOCK_WAIT"
	EnvMissingPolicy   = "MISSING_POLICY"
	EnvLogLevel        = "LOG_LEVEL"
	EnvLogFormat       = "LOG_FORMAT"
	EnvMetricsAddr     = "METRICS_ADDR"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid value")

// Config holds the runtime settings.
type Config struct {
	// CacheDir is the root of the persistent weight cache. Empty disables it.
	CacheDir        string
	SharedMemoryDir string
	MemoryCap       uint64
	SharedMemoryCap uint64
	LockRetries     int
	LockWait        time.Duration
	MissingPolicy   weights.MissingPolicy
	LogLevel        string
	LogFormat       string
	MetricsAddr     string
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	cacheDir := os.TempDir()
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = dir
	}
	return Config{
		CacheDir:        filepath.Join(cacheDir, "s2regrid"),
		SharedMemoryDir: "/dev/shm",
		MemoryCap:       1 << 30,
		SharedMemoryCap: 1 << 30,
		LockRetries:     600,
		LockWait:        100 * time.Millisecond,
		MissingPolicy:   weights.MissingIfAllMissing,
		LogLevel:        "info",
		LogFormat:       "text",
		MetricsAddr:     ":9090",
	}
}

// Load reads the given .env files, skipping missing ones, then builds the
// configuration from the process environment. Variables already set in the
// environment take precedence over .env files.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds the configuration from lookup, starting from Default.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	get := func(name string) (string, bool) {
		v, ok := lookup(Prefix + name)
		return v, ok && v != ""
	}

	if v, ok := lookup(Prefix + EnvCacheDir); ok {
		c.CacheDir = v
	}
	if v, ok := get(EnvSharedMemoryDir); ok {
		c.SharedMemoryDir = v
	}
	var err error
	if v, ok := get(EnvMemoryCap); ok {
		if c.MemoryCap, err = humanize.ParseBytes(v); err != nil {
			return Config{}, fmt.Errorf("%w: %s%s=%q: %w", ErrInvalid, Prefix, EnvMemoryCap, v, err)
		}
	}
	if v, ok := get(EnvSharedMemoryCap); ok {
		if c.SharedMemoryCap, err = humanize.ParseBytes(v); err != nil {
			return Config{}, fmt.Errorf("%w: %s%s=%q: %w", ErrInvalid, Prefix, EnvSharedMemoryCap, v, err)
		}
	}
	if v, ok := get(EnvLockRetries); ok {
		if c.LockRetries, err = strconv.Atoi(v); err != nil {
			return Config{}, fmt.Errorf("%w: %s%s=%q: %w", ErrInvalid, Prefix, EnvLockRetries, v, err)
		}
	}
	if v, ok := get(EnvLockWait); ok {
		if c.LockWait, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("%w: %s%s=%q: %w", ErrInvalid, Prefix, EnvLockWait, v, err)
		}
	}
	if v, ok := get(EnvMissingPolicy); ok {
		if c.MissingPolicy, err = weights.ParseMissingPolicy(v); err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	if v, ok := get(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := get(EnvLogFormat); ok {
		c.LogFormat = v
	}
	if v, ok := get(EnvMetricsAddr); ok {
		c.MetricsAddr = v
	}
	return c, c.Validate()
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	switch {
	case c.MemoryCap == 0:
		return fmt.Errorf("%w: memory cap must be positive", ErrInvalid)
	case c.LockRetries < 1:
		return fmt.Errorf("%w: lock retries %d must be at least 1", ErrInvalid, c.LockRetries)
	case c.LockWait <= 0:
		return fmt.Errorf("%w: lock wait %v must be positive", ErrInvalid, c.LockWait)
	case c.LogFormat != "text" && c.LogFormat != "json":
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.LogFormat)
	}
	return nil
}
