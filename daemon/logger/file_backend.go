// Copyright (C) 2025 Mono Technologies Inc.
//
// This program is free software; you can redistribute it and/or
// modify it under the terms of the GNU General Public License
// as published by the Free Software Foundation; version 2.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.

// Package logger provides structured logging for the Lumo daemon.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DefaultMaxFileSize is the size at which the log file is rotated.
const DefaultMaxFileSize = 10 << 20

// FileBackend writes log entries to a file, keeping one rotated copy
// (path + ".1") once the file grows past maxSize.
type FileBackend struct {
	path    string
	format  string // "json" or "text"
	maxSize int64
	file    *os.File
	size    int64
	mu      sync.Mutex
}

// NewFileBackend creates a new file backend
func NewFileBackend(path string, format string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	b := &FileBackend{path: path, format: format, maxSize: DefaultMaxFileSize}
	if err := b.open(); err != nil {
		return nil, err
	}
	return b, nil
}

// SetMaxSize changes the rotation threshold. Zero disables rotation.
func (b *FileBackend) SetMaxSize(n int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxSize = n
}

func (b *FileBackend) open() error {
	file, err := os.OpenFile(b.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	b.file = file
	b.size = info.Size()
	return nil
}

func (b *FileBackend) rotate() error {
	if err := b.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	if err := os.Rename(b.path, b.path+".1"); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return b.open()
}

// Write writes a log entry to the file
func (b *FileBackend) Write(entry *Entry) error {
	line, err := entry.Format(b.format)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.file == nil {
		return fmt.Errorf("log file closed")
	}
	if b.maxSize > 0 && b.size+int64(len(line)) > b.maxSize && b.size > 0 {
		if err := b.rotate(); err != nil {
			return err
		}
	}

	n, err := b.file.Write(line)
	b.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write to log file: %w", err)
	}
	return nil
}

// Close closes the log file
func (b *FileBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.file == nil {
		return nil
	}
	err := b.file.Close()
	b.file = nil
	return err
}
