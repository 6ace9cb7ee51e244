// Package fsx abstracts the filesystem operations shmregion's link-file
// indirection (spec.md §6.2) needs, the same seam the original pkg/fs
// package in the teacher repo drew around os, trimmed here to the handful
// of operations a link file actually uses (exclusive create, read, stat,
// remove), since shmregion has no need for directory listings or chmod.
package fsx

import (
	"io"
	"os"
)

// File is the subset of *os.File a link file's lifecycle needs.
type File interface {
	io.ReadWriteCloser
	Stat() (os.FileInfo, error)
}

// FS creates, reads, and removes link files. All methods mirror their os
// package equivalents with identical error semantics, so errors.Is(err,
// os.ErrExist) / os.ErrNotExist keep working regardless of implementation.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type FS interface {
	// OpenFile opens a file with the given flags/perm. See [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// ReadFile reads an entire file into memory. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// Remove deletes a file. See [os.Remove].
	Remove(path string) error

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)
}

var _ File = (*os.File)(nil)
