package shmregion

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/calvinalkan/shmregion/internal/fsx"
	"github.com/calvinalkan/shmregion/internal/mapping"
	"github.com/calvinalkan/shmregion/primitive"
)

// nameCollisionRetries bounds the synthesized-name retry loop spec.md §9
// leaves as an open question ("a retry loop with bounded attempts is a
// reasonable enhancement"); decided here in favor of retrying rather than
// failing on the first collision.
const nameCollisionRetries = 8

// Create allocates a new mapping, serializes the declared layout,
// initializes every primitive as owner, and then publishes the mapping's
// name in the link file, if one is set (spec.md §4.5).
// The receiver is not mutated; Create operates on an internal copy so a
// Config can be reused as a template for multiple regions.
func (c *Config) Create() (*Region, error) {
	return c.create(fsx.NewReal(), mapping.Default)
}

func (c *Config) create(fs fsx.FS, backend mapping.Backend) (*Region, error) {
	cfg := c.clone()

	if cfg.userSize == 0 {
		return nil, ErrMapSizeZero
	}

	var linkFile fsx.File

	if cfg.linkPath != "" {
		f, err := openLinkFileForCreate(fs, cfg.linkPath, cfg.overwriteLink)
		if err != nil {
			return nil, err
		}

		linkFile = f
	}

	cfg.owner = true

	layout := computeLayout(cfg.locks, cfg.events)
	cfg.metaSizeHint = layout.metaSize
	totalBytes := layout.metaSize + cfg.userSize

	name, md, err := resolveMappingForCreate(backend, cfg.osName, totalBytes)
	if err != nil {
		closeQuietly(linkFile)

		return nil, err
	}

	cfg.osName = name

	region, err := finishCreate(cfg, backend, md, layout, linkFile)
	if err != nil {
		closeQuietly(linkFile)

		return nil, err
	}

	// Publish the name only once every primitive has been initialized as
	// owner. spec.md §9 documents the reference ordering (link-file write
	// before init) as a known race: "a fast opener may read the link and
	// attempt open on a half-initialized mapping... a correct design moves
	// the link-file write to after all init calls succeed." This is that
	// fix.
	if linkFile != nil {
		if _, writeErr := linkFile.Write([]byte(name)); writeErr != nil {
			closeQuietly(linkFile)

			return nil, fmt.Errorf("writing link file %q: %w: %w", cfg.linkPath, ErrLinkWriteFailed, writeErr)
		}
	}

	return region, nil
}

// finishCreate writes the header and every descriptor, then initializes
// each primitive as owner (spec.md §4.5 steps 5-8).
func finishCreate(cfg *Config, backend mapping.Backend, md *mapping.MapData, layout computedLayout, linkFile fsx.File) (*Region, error) {
	header := metaDataHeader{
		MetaSize:  layout.metaSize,
		UserSize:  cfg.userSize,
		NumLocks:  uint64(len(cfg.locks)),
		NumEvents: uint64(len(cfg.events)),
	}
	copy(md.Data[:metaDataHeaderSize], encodeMetaDataHeader(header))

	userPtr := layout.metaSize
	userData := md.Data[userPtr : userPtr+cfg.userSize]

	locks := make([]primitive.LockDescriptor, len(cfg.locks))

	for i, l := range cfg.locks {
		le := layout.locks[i]
		copy(md.Data[le.headerOffset:], encodeLockHeader(l.kind.UID(), l.offset, l.length))

		d := primitive.LockDescriptor{
			Kind:   l.kind,
			Offset: l.offset,
			Length: l.length,
			Body:   md.Data[le.bodyOffset : le.bodyOffset+le.bodySize],
			Data:   userData[l.offset : l.offset+l.length],
		}

		if err := l.kind.Init(&d, true); err != nil {
			return nil, fmt.Errorf("initializing lock %d (uid %d): %w", i, l.kind.UID(), err)
		}

		locks[i] = d
	}

	events := make([]primitive.EventDescriptor, len(cfg.events))

	for i, e := range cfg.events {
		le := layout.events[i]
		copy(md.Data[le.headerOffset:], encodeEventHeader(e.kind.UID()))

		d := primitive.EventDescriptor{
			Kind: e.kind,
			Body: md.Data[le.bodyOffset : le.bodyOffset+le.bodySize],
		}

		if err := e.kind.Init(&d, true); err != nil {
			return nil, fmt.Errorf("initializing event %d (uid %d): %w", i, e.kind.UID(), err)
		}

		events[i] = d
	}

	return &Region{
		cfg:      cfg,
		backend:  backend,
		mapData:  md,
		userData: userData,
		locks:    locks,
		events:   events,
		linkFile: linkFile,
	}, nil
}

// openLinkFileForCreate opens the link file per spec.md §4.5 step 1:
// create-exclusive unless overwrite is set.
func openLinkFileForCreate(fs fsx.FS, path string, overwrite bool) (fsx.File, error) {
	flag := os.O_RDWR | os.O_CREATE
	if overwrite {
		flag |= os.O_TRUNC
	} else {
		flag |= os.O_EXCL
	}

	f, err := fs.OpenFile(path, flag, 0o644)
	if err != nil {
		if !overwrite && os.IsExist(err) {
			return nil, fmt.Errorf("link file %q: %w", path, ErrLinkExists)
		}

		return nil, fmt.Errorf("creating link file %q: %w: %w", path, ErrLinkCreateFailed, err)
	}

	return f, nil
}

// resolveMappingForCreate requests the mapping with an explicit name, or
// synthesizes and retries one (spec.md §4.5 step 2, §9).
func resolveMappingForCreate(backend mapping.Backend, name string, totalBytes uint64) (string, *mapping.MapData, error) {
	if name != "" {
		md, err := backend.CreateMapping(name, totalBytes)
		if err != nil {
			return "", nil, err
		}

		return name, md, nil
	}

	var lastErr error

	for range nameCollisionRetries {
		candidate, err := generateOSName()
		if err != nil {
			return "", nil, err
		}

		md, err := backend.CreateMapping(candidate, totalBytes)
		if err == nil {
			return candidate, md, nil
		}

		if !os.IsExist(err) {
			return "", nil, err
		}

		lastErr = err
	}

	return "", nil, fmt.Errorf("%w: %d attempts, last error: %v", ErrNameCollision, nameCollisionRetries, lastErr)
}

// generateOSName synthesizes a name of the shape /shmem_<16-hex-uppercase>
// (spec.md §6.3), drawn from a cryptographically seeded source (spec.md §9:
// "should use a cryptographically seeded RNG to make collisions
// negligible").
func generateOSName() (string, error) {
	var buf [8]byte

	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generating os name: %w", err)
	}

	return fmt.Sprintf("/shmem_%016X", binary.BigEndian.Uint64(buf[:])), nil
}

func closeQuietly(f fsx.File) {
	if f != nil {
		_ = f.Close()
	}
}
