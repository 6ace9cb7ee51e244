// Package shmregion provides a cross-process shared-memory region with an
// in-band directory of synchronization primitives (locks and events).
//
// One process creates a region with a declared layout (user data size, a set
// of locks each protecting a byte range, a set of events); other processes
// open it by the same OS name, directly or via a filesystem link file, and
// reconstruct a compatible layout to coordinate access to the user data.
//
// # Basic usage
//
//	cfg := shmregion.NewConfig().
//	    SetUserSize(4096).
//	    SetLinkPath("/tmp/example.shmregion")
//
//	cfg, err := cfg.AddLock(lockprim.Mutex, 0, 4096)
//	if err != nil {
//	    // ErrRangeDoesNotFit / ErrRangeOverlapsExisting
//	}
//
//	region, err := cfg.Create()
//	if err != nil {
//	    // ErrMapSizeZero / ErrLinkExists / ErrLinkCreateFailed / ErrLinkWriteFailed / backend/primitive errors
//	}
//	defer region.Close()
//
//	user := region.UserData() // []byte view over the user region
//
// A second process reaches the same region with:
//
//	cfg := shmregion.NewConfig().SetLinkPath("/tmp/example.shmregion")
//	region, err := cfg.Open()
//
// # Concurrency
//
// A [Config] is mutated by exactly one goroutine; [Config.Create] and
// [Config.Open] are blocking operations that may touch the filesystem and the
// OS mapping backend. Once a [Region] exists, the user data it wraps is
// shared across processes; coordinate access to it using the locks and
// events declared on the [Config], not the [Config]/[Region] API itself.
//
// # Error handling
//
// Errors are plain sentinels (see errors.go) wrapped with additional context
// via fmt.Errorf's %w verb. Classify with errors.Is, never string matching.
package shmregion
