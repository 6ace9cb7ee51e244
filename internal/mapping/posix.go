package mapping

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// shmDir is where POSIX shared-memory objects live on Linux. Other POSIX
// systems mount the same tmpfs-backed namespace at a different path; Linux is
// the only target this backend claims to support, consistent with
// shmregion's "no endian/ABI portability across heterogeneous processes"
// non-goal (spec.md §1), a single target already assumed.
const shmDir = "/dev/shm"

// posixBackend implements Backend over POSIX named shared memory: a
// name of the form "/shmem_XXXX" (spec.md §6.3) is translated to a file
// under shmDir (the leading '/' is significant on POSIX per spec.md §6.3,
// and is stripped here only to form the filesystem path underneath shmDir,
// not from the logical name itself).
type posixBackend struct{}

// Default is the POSIX shared-memory Backend, grounded on the file-backed
// mmap pattern used throughout the retrieved pack (kernel/threads/sab's
// SharedMemoryProvider, pkg/slotcache/open.go's mmapAndCreateCache): a named
// shared region is, under the hood, a file, truncated to size and mapped
// MAP_SHARED.
var Default Backend = posixBackend{}

func pathFor(name string) (string, error) {
	if name == "" {
		return "", errors.New("mapping: name is empty")
	}

	trimmed := strings.TrimPrefix(name, "/")
	if trimmed == "" || strings.ContainsRune(trimmed, '/') {
		return "", fmt.Errorf("mapping: invalid name %q", name)
	}

	return filepath.Join(shmDir, trimmed), nil
}

func (posixBackend) CreateMapping(name string, totalBytes uint64) (*MapData, error) {
	path, err := pathFor(name)
	if err != nil {
		return nil, err
	}

	if totalBytes == 0 {
		return nil, errors.New("mapping: totalBytes is zero")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		// Returned unwrapped: it is an *os.PathError, so os.IsExist works on it.
		return nil, err
	}
	defer f.Close()

	size, err := safeInt64(totalBytes)
	if err != nil {
		_ = os.Remove(path)

		return nil, err
	}

	if truncErr := f.Truncate(size); truncErr != nil {
		_ = os.Remove(path)

		return nil, fmt.Errorf("mapping: truncate %q: %w", name, truncErr)
	}

	return mapFile(f, totalBytes)
}

func (posixBackend) OpenMapping(name string) (*MapData, error) {
	path, err := pathFor(name)
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		// Returned unwrapped: it is an *os.PathError, so os.IsNotExist works on it.
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("mapping: stat %q: %w", name, err)
	}

	size := info.Size()
	if size < 0 {
		return nil, fmt.Errorf("mapping: negative size for %q", name)
	}

	return mapFile(f, uint64(size))
}

func (posixBackend) Close(d *MapData) error {
	if d == nil || d.Data == nil {
		return nil
	}

	err := unix.Munmap(d.Data)
	d.Data = nil

	if err != nil {
		return fmt.Errorf("mapping: munmap: %w", err)
	}

	return nil
}

// Unlink removes the named POSIX shared-memory object. Not part of the
// Backend interface (spec.md §6.4 only names create_mapping/open_mapping),
// it is the owner-teardown hook spec.md §5 says is the owner's
// responsibility, exposed separately so Backend stays a minimal seam.
func Unlink(name string) error {
	path, err := pathFor(name)
	if err != nil {
		return err
	}

	if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		return fmt.Errorf("mapping: unlink %q: %w", name, rmErr)
	}

	return nil
}

func mapFile(f *os.File, size uint64) (*MapData, error) {
	n, err := safeInt(size)
	if err != nil {
		return nil, err
	}

	data, err := unix.Mmap(int(f.Fd()), 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mapping: mmap: %w", err)
	}

	return &MapData{Data: data, MapSize: size}, nil
}

func safeInt64(n uint64) (int64, error) {
	if n > uint64(1)<<62 {
		return 0, fmt.Errorf("mapping: size %d too large", n)
	}

	return int64(n), nil
}

func safeInt(n uint64) (int, error) {
	v, err := safeInt64(n)
	if err != nil {
		return 0, err
	}

	return int(v), nil
}
