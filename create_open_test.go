package shmregion

import (
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/shmregion/internal/fsx"
	"github.com/calvinalkan/shmregion/internal/lockprim"
	"github.com/calvinalkan/shmregion/internal/mapping"
)

// memBackend is an in-memory stand-in for mapping.Backend (spec.md §6.4's
// "external collaborator"), letting the create/open round trip run without
// any real OS shared-memory object.
type memBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{objects: map[string][]byte{}}
}

func (b *memBackend) CreateMapping(name string, totalBytes uint64) (*mapping.MapData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[name]; exists {
		return nil, &os.PathError{Op: "create", Path: name, Err: os.ErrExist}
	}

	buf := make([]byte, totalBytes)
	b.objects[name] = buf

	return &mapping.MapData{Data: buf, MapSize: totalBytes}, nil
}

func (b *memBackend) OpenMapping(name string) (*mapping.MapData, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, exists := b.objects[name]
	if !exists {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}

	return &mapping.MapData{Data: buf, MapSize: uint64(len(buf))}, nil
}

func (b *memBackend) Close(*mapping.MapData) error { return nil }

// memFile and memFS give create/open a hermetic link-file stand-in so tests
// don't touch the real filesystem.
type memFile struct {
	path string
	fs   *memFS
	buf  []byte
	pos  int
}

func (f *memFile) Read(p []byte) (int, error) {
	n := copy(p, f.buf[f.pos:])
	f.pos += n

	if n == 0 && len(p) > 0 {
		return 0, os.ErrClosed
	}

	return n, nil
}

func (f *memFile) Write(p []byte) (int, error) {
	f.buf = append(f.buf, p...)
	f.fs.mu.Lock()
	f.fs.files[f.path] = append([]byte(nil), f.buf...)
	f.fs.mu.Unlock()

	return len(p), nil
}

func (f *memFile) Close() error { return nil }

func (f *memFile) Stat() (os.FileInfo, error) { return nil, errors.New("memFile.Stat: not implemented") }

type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFS() *memFS {
	return &memFS{files: map[string][]byte{}}
}

func (fsys *memFS) OpenFile(path string, flag int, _ os.FileMode) (fsx.File, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	_, exists := fsys.files[path]

	if flag&os.O_EXCL != 0 && exists {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrExist}
	}

	if flag&os.O_TRUNC != 0 {
		fsys.files[path] = nil
	} else if !exists {
		fsys.files[path] = nil
	}

	return &memFile{path: path, fs: fsys}, nil
}

func (fsys *memFS) ReadFile(path string) ([]byte, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	buf, exists := fsys.files[path]
	if !exists {
		return nil, &os.PathError{Op: "read", Path: path, Err: os.ErrNotExist}
	}

	return append([]byte(nil), buf...), nil
}

func (fsys *memFS) Remove(path string) error {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	delete(fsys.files, path)

	return nil
}

func (fsys *memFS) Stat(path string) (os.FileInfo, error) {
	fsys.mu.Lock()
	defer fsys.mu.Unlock()

	if _, exists := fsys.files[path]; !exists {
		return nil, &os.PathError{Op: "stat", Path: path, Err: os.ErrNotExist}
	}

	return memFileInfo{}, nil
}

type memFileInfo struct{}

func (memFileInfo) Name() string         { return "link" }
func (memFileInfo) Size() int64          { return 0 }
func (memFileInfo) Mode() os.FileMode    { return 0o644 }
func (memFileInfo) ModTime() time.Time   { return time.Time{} }
func (memFileInfo) IsDir() bool          { return false }
func (memFileInfo) Sys() any             { return nil }

func Test_Create_Then_Open_By_OSName_Reproduces_The_Declared_Layout(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	fsys := newMemFS()

	cfg := NewConfig().SetUserSize(1024).SetOSName("/shmem_test_1")

	cfg, err := cfg.AddLock(lockprim.Mutex, 0, 1024)
	require.NoError(t, err)

	region, err := cfg.create(fsys, backend)
	require.NoError(t, err)

	defer region.Close()

	opened, err := NewConfig().SetOSName("/shmem_test_1").open(fsys, backend)
	require.NoError(t, err)

	defer opened.Close()

	openedCfg := opened.Config()
	assert.Equal(t, uint64(1024), openedCfg.UserSize())
	assert.Equal(t, 1, openedCfg.NumLocks())
	assert.Equal(t, region.Config().MetaSize(), openedCfg.MetaSize())

	l := openedCfg.GetLock(0)
	assert.Equal(t, uint64(0), l.Offset)
	assert.Equal(t, uint64(1024), l.Length)
	assert.Equal(t, lockprim.Mutex.UID(), l.Kind.UID())
}

func Test_Create_With_LinkPath_Publishes_Synthesized_Name_For_Open_To_Resolve(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	fsys := newMemFS()

	region, err := NewConfig().SetUserSize(64).SetLinkPath("/tmp/test.shm").create(fsys, backend)
	require.NoError(t, err)

	defer region.Close()

	require.NotEmpty(t, region.Config().OSName())
	require.Regexp(t, `^/shmem_[0-9A-F]{16}$`, region.Config().OSName())

	opened, err := NewConfig().SetLinkPath("/tmp/test.shm").open(fsys, backend)
	require.NoError(t, err)

	defer opened.Close()

	assert.Equal(t, region.Config().OSName(), opened.Config().OSName())
}

func Test_Create_Fails_With_MapSizeZero_When_UserSize_Unset(t *testing.T) {
	t.Parallel()

	_, err := NewConfig().create(newMemFS(), newMemBackend())

	require.ErrorIs(t, err, ErrMapSizeZero)
}

func Test_Create_Fails_With_LinkExists_When_Link_File_Already_Present(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	fsys := newMemFS()

	_, err := NewConfig().SetUserSize(64).SetLinkPath("/tmp/dup.shm").create(fsys, backend)
	require.NoError(t, err)

	_, err = NewConfig().SetUserSize(64).SetLinkPath("/tmp/dup.shm").create(fsys, backend)
	require.ErrorIs(t, err, ErrLinkExists)
}

func Test_Open_Fails_With_InvalidHeader_When_Mapping_Smaller_Than_Header(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	_, err := backend.CreateMapping("/shmem_tiny", 16)
	require.NoError(t, err)

	_, err = NewConfig().SetOSName("/shmem_tiny").open(newMemFS(), backend)
	require.ErrorIs(t, err, ErrInvalidHeader)
}

func Test_Open_Fails_With_InvalidHeader_When_Lock_UID_Is_Unknown(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()

	md, err := backend.CreateMapping("/shmem_badkind", metaDataHeaderSize+lockHeaderSize+8+64)
	require.NoError(t, err)

	header := metaDataHeader{MetaSize: metaDataHeaderSize + lockHeaderSize + 8, UserSize: 64, NumLocks: 1, NumEvents: 0}
	copy(md.Data[:metaDataHeaderSize], encodeMetaDataHeader(header))
	copy(md.Data[metaDataHeaderSize:], encodeLockHeader(254, 0, 64))

	_, err = NewConfig().SetOSName("/shmem_badkind").open(newMemFS(), backend)
	require.ErrorIs(t, err, ErrInvalidHeader)
}

func Test_Open_Discards_Caller_Supplied_Locks_And_Rebuilds_From_The_Mapping(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	fsys := newMemFS()

	_, err := NewConfig().SetUserSize(128).SetOSName("/shmem_test_discard").create(fsys, backend)
	require.NoError(t, err)

	seeded := NewConfig().SetUserSize(128).SetOSName("/shmem_test_discard")

	seeded, err = seeded.AddLock(lockprim.Mutex, 0, 1)
	require.NoError(t, err)

	opened, err := seeded.open(fsys, backend)
	require.NoError(t, err)

	defer opened.Close()

	assert.Equal(t, 0, opened.Config().NumLocks())
}

// Test_Create_Then_Open_Reproduces_The_Same_Lock_And_Event_Declarations is a
// round-trip property test (spec.md §8 property 1: an opener's view of the
// lock/event set must equal the creator's): it diffs the creator-side
// Config's declared locks/events against the opener-side Config's
// rebuilt-from-the-mapping locks/events with cmp.Diff instead of comparing
// field by field, so a future field added to Lock/Event is covered for free.
func Test_Create_Then_Open_Reproduces_The_Same_Lock_And_Event_Declarations(t *testing.T) {
	t.Parallel()

	backend := newMemBackend()
	fsys := newMemFS()

	cfg := NewConfig().SetUserSize(256).SetOSName("/shmem_test_cmp")

	cfg, err := cfg.AddLock(lockprim.Mutex, 0, 64)
	require.NoError(t, err)

	cfg, err = cfg.AddLock(lockprim.RWMutex, 64, 64)
	require.NoError(t, err)

	cfg, err = cfg.AddEvent(lockprim.ManualResetEvent)
	require.NoError(t, err)

	cfg, err = cfg.AddEvent(lockprim.AutoResetEvent)
	require.NoError(t, err)

	region, err := cfg.create(fsys, backend)
	require.NoError(t, err)

	defer region.Close()

	opened, err := NewConfig().SetOSName("/shmem_test_cmp").open(fsys, backend)
	require.NoError(t, err)

	defer opened.Close()

	wantLocks := declaredLocks(region.Config())
	gotLocks := declaredLocks(opened.Config())

	if diff := cmp.Diff(wantLocks, gotLocks); diff != "" {
		t.Fatalf("opener's lock set does not match the creator's (-want +got):\n%s", diff)
	}

	wantEvents := declaredEvents(region.Config())
	gotEvents := declaredEvents(opened.Config())

	if diff := cmp.Diff(wantEvents, gotEvents); diff != "" {
		t.Fatalf("opener's event set does not match the creator's (-want +got):\n%s", diff)
	}
}

func declaredLocks(cfg *Config) []Lock {
	locks := make([]Lock, cfg.NumLocks())
	for i := range locks {
		locks[i] = cfg.GetLock(i)
	}

	return locks
}

func declaredEvents(cfg *Config) []Event {
	events := make([]Event, cfg.NumEvents())
	for i := range events {
		events[i] = cfg.GetEvent(i)
	}

	return events
}
