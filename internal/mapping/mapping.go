// Package mapping is the OS mapping backend spec.md §1/§6.4 treats as an
// external collaborator: create_mapping, open_mapping, and MapData. The core
// shmregion package only depends on the Backend interface declared here;
// posix.go provides the concrete implementation used by Default.
package mapping

// MapData is the result of mapping a named OS shared-memory object into this
// process's address space (spec.md §6.4).
type MapData struct {
	// Data is the mapped region, as a byte slice of length MapSize.
	// shmregion treats index 0 as map_base.
	Data []byte

	// MapSize is len(Data), kept alongside it so callers that only need the
	// size don't have to hold a reference to the mapping.
	MapSize uint64
}

// Backend creates and opens named OS shared-memory mappings (spec.md §6.4).
//
// shmregion depends only on this interface, never on a concrete OS mapping
// mechanism, the same seam spec.md draws around create_mapping/open_mapping
// as an external collaborator. Default provides the POSIX implementation
// used unless a caller supplies their own (for example, an in-memory fake
// for tests).
type Backend interface {
	// CreateMapping creates a new named mapping of totalBytes and maps it.
	// Returns an error satisfying os.IsExist if name is already in use.
	CreateMapping(name string, totalBytes uint64) (*MapData, error)

	// OpenMapping maps an existing named mapping at its current size.
	// Returns an error satisfying os.IsNotExist if name does not exist.
	OpenMapping(name string) (*MapData, error)

	// Close unmaps d and releases any OS resources the backend allocated to
	// track it. Does not remove the underlying named object, teardown is
	// the owner's responsibility (spec.md §5 "Shared resources"), and for a
	// POSIX shm object, that means a separate Unlink call after Close.
	Close(d *MapData) error
}
