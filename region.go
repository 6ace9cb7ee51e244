package shmregion

import (
	"errors"
	"fmt"

	"github.com/calvinalkan/shmregion/internal/fsx"
	"github.com/calvinalkan/shmregion/internal/mapping"
	"github.com/calvinalkan/shmregion/primitive"
)

// Region is a live handle to an attached shared-memory mapping (spec.md §3
// "Attached region"): the resolved Config, the OS mapping, and the
// descriptors and user-data view carved out of it.
type Region struct {
	cfg     *Config
	backend mapping.Backend
	mapData *mapping.MapData

	userData []byte
	locks    []primitive.LockDescriptor
	events   []primitive.EventDescriptor

	// linkFile is non-nil only in the process that created the region
	// (spec.md §5 "the link file is ... kept open for the region's
	// lifetime", by the creator; an opener never holds it).
	linkFile fsx.File
}

// Config returns the resolved configuration this region was created or
// opened with.
func (r *Region) Config() *Config { return r.cfg }

// UserData returns the user region: UserSize() bytes starting at
// map_base + meta_size (spec.md §3 invariant 5).
func (r *Region) UserData() []byte { return r.userData }

// Lock returns the i'th lock's descriptor, giving access to its Body bytes
// for use with the concrete operations its Kind exposes (primitive package
// doc: "live on the concrete type returned to callers via
// LockDescriptor.Kind"). Panics if i is out of range.
func (r *Region) Lock(i int) primitive.LockDescriptor { return r.locks[i] }

// Event returns the i'th event's descriptor. Panics if i is out of range.
func (r *Region) Event(i int) primitive.EventDescriptor { return r.events[i] }

// Close unmaps the region and, if this process holds the link file open
// (the creator only, spec.md §5), closes it. Close does not unlink the OS
// object or remove the link file, teardown beyond that is the owner's
// responsibility and out of scope for the core (spec.md §5, §1).
func (r *Region) Close() error {
	var errs []error

	if err := r.backend.Close(r.mapData); err != nil {
		errs = append(errs, err)
	}

	if r.linkFile != nil {
		if err := r.linkFile.Close(); err != nil {
			errs = append(errs, err)
		}

		r.linkFile = nil
	}

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("closing region: %w", errors.Join(errs...))
}
