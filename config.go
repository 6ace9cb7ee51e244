package shmregion

import (
	"fmt"

	"github.com/calvinalkan/shmregion/primitive"
)

// Config accumulates the intent for a shared-memory region before it is
// turned into a live [Region] by Create or Open (spec.md §3, §4.4).
//
// A Config is built with a fluent API modeled on
// original_source/src/conf.rs's SharedMemConf, adapted to Go: infallible
// setters mutate the receiver and return it so calls chain, while AddLock and
// AddEvent validate and so return (*Config, error), Go has no ?-operator to
// hide that.
//
// A Config must be mutated by a single goroutine; Create and Open work on a
// copy of it and leave the receiver unchanged.
type Config struct {
	userSize      uint64
	linkPath      string
	overwriteLink bool
	osName        string

	locks  []lockEntry
	events []eventEntry

	ranges rangeIndex

	// metaSizeHint is the running tally spec.md §4.4 describes as
	// "approximate; the authoritative value is recomputed by 4.3 at create
	// time". It lets MetaSize() return a useful estimate before Create/Open
	// without forcing a full recompute on every accessor call.
	metaSizeHint uint64

	owner bool
}

// NewConfig returns a Config with the zero-valued defaults spec.md §3
// describes: user_size=0, empty lock/event sets, owner=false.
func NewConfig() *Config {
	return &Config{metaSizeHint: metaDataHeaderSize}
}

// SetUserSize sets the byte count of the usable user region. Must be > 0
// before Create (Create returns ErrMapSizeZero otherwise); ignored by Open,
// which derives it from the mapping's header.
func (c *Config) SetUserSize(n uint64) *Config {
	c.userSize = n

	return c
}

// SetLinkPath sets the filesystem path at which a textual pointer to the OS
// object is published (spec.md §6.2). Optional: a Config may instead use
// SetOSName directly, or an opener may resolve purely via SetOSName.
func (c *Config) SetLinkPath(path string) *Config {
	c.linkPath = path

	return c
}

// OverwriteLink allows Create to truncate and replace an existing link file
// instead of failing with ErrLinkExists.
func (c *Config) OverwriteLink() *Config {
	c.overwriteLink = true

	return c
}

// SetOSName sets the OS-visible unique name of the shared object. If unset at
// Create time, one is synthesized (spec.md §4.5 step 2, §6.3).
func (c *Config) SetOSName(name string) *Config {
	c.osName = name

	return c
}

// AddLock validates the (offset, length) range against the current user
// size and previously added locks (spec.md §4.2), then appends a lock
// descriptor to the lock set in order, order is significant, it fixes
// serialization order (spec.md §3 invariant 3).
//
// Returns ErrRangeDoesNotFit or ErrRangeOverlapsExisting on invalid input.
func (c *Config) AddLock(kind primitive.LockKind, offset, length uint64) (*Config, error) {
	if kind == nil {
		return nil, fmt.Errorf("lock kind is nil: %w", ErrInvalidInput)
	}

	if err := c.ranges.validateRange(c.userSize, offset, length); err != nil {
		return nil, err
	}

	if length > 0 {
		c.ranges.insert(offset, length, len(c.locks))
	}

	c.locks = append(c.locks, lockEntry{kind: kind, offset: offset, length: length})
	c.metaSizeHint += lockHeaderSize + kind.BodySize()

	return c, nil
}

// AddEvent appends an event descriptor to the event set in order.
func (c *Config) AddEvent(kind primitive.EventKind) (*Config, error) {
	if kind == nil {
		return nil, fmt.Errorf("event kind is nil: %w", ErrInvalidInput)
	}

	c.events = append(c.events, eventEntry{kind: kind})
	c.metaSizeHint += eventHeaderSize + kind.BodySize()

	return c, nil
}

// LinkPath returns the configured link-file path, or "" if unset.
func (c *Config) LinkPath() string { return c.linkPath }

// OSName returns the configured OS object name, or "" if unset (before
// Create synthesizes one, or before Open resolves one).
func (c *Config) OSName() string { return c.osName }

// UserSize returns the configured user region byte count.
func (c *Config) UserSize() uint64 { return c.userSize }

// MetaSize returns the running metadata-size tally. Before Create/Open this
// is the cheap incremental estimate AddLock/AddEvent maintain; on the Config
// of a created Region it is the value computeLayout produced, and on that of
// an opened Region it is the header's meta_size, checked against the
// descriptor walk.
func (c *Config) MetaSize() uint64 { return c.metaSizeHint }

// NumLocks returns the number of declared locks.
func (c *Config) NumLocks() int { return len(c.locks) }

// NumEvents returns the number of declared events.
func (c *Config) NumEvents() int { return len(c.events) }

// IsOwner reports whether this Config was produced by Create (true) or Open
// (false) for an attached Region, or is still a fresh builder (false).
func (c *Config) IsOwner() bool { return c.owner }

// Lock describes one declared lock by index, for inspection/diagnostics.
type Lock struct {
	Kind   primitive.LockKind
	Offset uint64
	Length uint64
}

// GetLock returns the i'th declared lock. Panics if i is out of range, like
// slice indexing, callers should guard with NumLocks.
func (c *Config) GetLock(i int) Lock {
	l := c.locks[i]

	return Lock{Kind: l.kind, Offset: l.offset, Length: l.length}
}

// Event describes one declared event by index.
type Event struct {
	Kind primitive.EventKind
}

// GetEvent returns the i'th declared event. Panics if i is out of range.
func (c *Config) GetEvent(i int) Event {
	return Event{Kind: c.events[i].kind}
}

// clone returns a shallow copy suitable as the starting point for Create or
// Open, which each consume the receiver without mutating the caller's
// reference out from under them mid-call.
func (c *Config) clone() *Config {
	cp := *c
	cp.locks = append([]lockEntry(nil), c.locks...)
	cp.events = append([]eventEntry(nil), c.events...)
	cp.ranges = rangeIndex{ranges: append([]lockRange(nil), c.ranges.ranges...)}

	return &cp
}
