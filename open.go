package shmregion

import (
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/calvinalkan/shmregion/internal/fsx"
	"github.com/calvinalkan/shmregion/internal/mapping"
	"github.com/calvinalkan/shmregion/primitive"
)

// Open resolves the OS mapping (directly by name, or indirectly via the
// link file), parses and validates its header and descriptors, and attaches
// to every primitive as non-owner (spec.md §4.6).
//
// Open discards any lock_set/event_set the receiver accumulated, spec.md
// §3: "open... discards the in-process lock/event lists and rebuilds them
// from the mapping". Only OSName and LinkPath are consulted.
func (c *Config) Open() (*Region, error) {
	return c.open(fsx.NewReal(), mapping.Default)
}

func (c *Config) open(fs fsx.FS, backend mapping.Backend) (*Region, error) {
	cfg := c.clone()
	cfg.locks = nil
	cfg.events = nil
	cfg.ranges = rangeIndex{}
	cfg.owner = false

	name, err := resolveNameForOpen(fs, cfg)
	if err != nil {
		return nil, err
	}

	cfg.osName = name

	md, err := backend.OpenMapping(name)
	if err != nil {
		return nil, err
	}

	region, err := parseAndAttach(cfg, backend, md)
	if err != nil {
		backend.Close(md) //nolint:errcheck // best-effort cleanup on parse failure

		return nil, err
	}

	return region, nil
}

// resolveNameForOpen implements spec.md §4.6 step 1: prefer an explicit
// OSName, otherwise require a readable link file.
func resolveNameForOpen(fs fsx.FS, cfg *Config) (string, error) {
	if cfg.osName != "" {
		return cfg.osName, nil
	}

	if cfg.linkPath == "" {
		return "", ErrLinkDoesNotExist
	}

	info, err := fs.Stat(cfg.linkPath)
	if err != nil {
		return "", fmt.Errorf("link file %q: %w: %w", cfg.linkPath, ErrLinkDoesNotExist, err)
	}

	if info.IsDir() {
		return "", fmt.Errorf("link file %q is a directory: %w", cfg.linkPath, ErrLinkDoesNotExist)
	}

	contents, err := fs.ReadFile(cfg.linkPath)
	if err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) && pathErr.Op == "open" {
			return "", fmt.Errorf("opening link file %q: %w: %w", cfg.linkPath, ErrLinkOpenFailed, err)
		}

		return "", fmt.Errorf("reading link file %q: %w: %w", cfg.linkPath, ErrLinkReadFailed, err)
	}

	// spec.md §9: "the reference panics" on malformed UTF-8; this
	// implementation takes the defensive option the design notes suggest
	// instead, surfacing ErrLinkCorrupt.
	if !utf8.Valid(contents) {
		return "", fmt.Errorf("link file %q: %w", cfg.linkPath, ErrLinkCorrupt)
	}

	return string(contents), nil
}

// parseAndAttach implements spec.md §4.6 steps 2-8: header validation,
// descriptor walk, final consistency check, and primitive attachment.
func parseAndAttach(cfg *Config, backend mapping.Backend, md *mapping.MapData) (*Region, error) {
	if md.MapSize < metaDataHeaderSize {
		return nil, fmt.Errorf("mapping is %d bytes, smaller than the %d-byte header: %w", md.MapSize, metaDataHeaderSize, ErrInvalidHeader)
	}

	header := decodeMetaDataHeader(md.Data[:metaDataHeaderSize])
	cfg.userSize = header.UserSize

	if md.MapSize < header.MetaSize+header.UserSize {
		return nil, fmt.Errorf("mapping is %d bytes, smaller than meta_size+user_size (%d+%d): %w",
			md.MapSize, header.MetaSize, header.UserSize, ErrInvalidHeader)
	}

	userPtr := header.MetaSize
	userData := md.Data[userPtr : userPtr+header.UserSize]
	cursor := uint64(metaDataHeaderSize)

	locks := make([]primitive.LockDescriptor, 0, header.NumLocks)

	for i := uint64(0); i < header.NumLocks; i++ {
		if cursor+lockHeaderSize > userPtr {
			return nil, fmt.Errorf("lock %d header overruns metadata region: %w", i, ErrInvalidHeader)
		}

		lh := decodeLockHeader(md.Data[cursor:])
		cursor += lockHeaderSize
		cursor, _ = alignUp(cursor, AddrAlign)

		if cursor > userPtr {
			return nil, fmt.Errorf("lock %d body overruns metadata region: %w", i, ErrInvalidHeader)
		}

		kind, ok := primitive.LockKindByUID(lh.UID)
		if !ok {
			return nil, fmt.Errorf("lock %d: unknown kind uid %d: %w", i, lh.UID, ErrInvalidHeader)
		}

		if _, err := cfg.AddLock(kind, lh.Offset, lh.Length); err != nil {
			return nil, err
		}

		bodySize := kind.BodySize()
		if cursor+bodySize > userPtr {
			return nil, fmt.Errorf("lock %d body overruns metadata region: %w", i, ErrInvalidHeader)
		}

		d := primitive.LockDescriptor{
			Kind:   kind,
			Offset: lh.Offset,
			Length: lh.Length,
			Body:   md.Data[cursor : cursor+bodySize],
			Data:   userData[lh.Offset : lh.Offset+lh.Length],
		}
		cursor += bodySize

		if err := kind.Init(&d, false); err != nil {
			return nil, fmt.Errorf("attaching lock %d (uid %d): %w", i, lh.UID, err)
		}

		locks = append(locks, d)
	}

	events := make([]primitive.EventDescriptor, 0, header.NumEvents)

	for i := uint64(0); i < header.NumEvents; i++ {
		if cursor+eventHeaderSize > userPtr {
			return nil, fmt.Errorf("event %d header overruns metadata region: %w", i, ErrInvalidHeader)
		}

		uid := decodeEventHeader(md.Data[cursor:])
		cursor += eventHeaderSize
		cursor, _ = alignUp(cursor, AddrAlign)

		if cursor > userPtr {
			return nil, fmt.Errorf("event %d body overruns metadata region: %w", i, ErrInvalidHeader)
		}

		kind, ok := primitive.EventKindByUID(uid)
		if !ok {
			return nil, fmt.Errorf("event %d: unknown kind uid %d: %w", i, uid, ErrInvalidHeader)
		}

		if _, err := cfg.AddEvent(kind); err != nil {
			return nil, err
		}

		bodySize := kind.BodySize()
		if cursor+bodySize > userPtr {
			return nil, fmt.Errorf("event %d body overruns metadata region: %w", i, ErrInvalidHeader)
		}

		d := primitive.EventDescriptor{
			Kind: kind,
			Body: md.Data[cursor : cursor+bodySize],
		}
		cursor += bodySize

		if err := kind.Init(&d, false); err != nil {
			return nil, fmt.Errorf("attaching event %d (uid %d): %w", i, uid, err)
		}

		events = append(events, d)
	}

	cursor, _ = alignUp(cursor, AddrAlign)

	if cursor != userPtr || cursor != header.MetaSize {
		return nil, fmt.Errorf("cursor %d does not match meta_size %d / user_ptr %d: %w",
			cursor, header.MetaSize, userPtr, ErrInvalidHeader)
	}

	cfg.metaSizeHint = header.MetaSize

	return &Region{
		cfg:      cfg,
		backend:  backend,
		mapData:  md,
		userData: userData,
		locks:    locks,
		events:   events,
	}, nil
}
