package shmregion

import "github.com/calvinalkan/shmregion/primitive"

// Binary header sizes (spec.md §6.1). These are deliberately pinned rather
// than derived from unsafe.Sizeof: the spec calls out that relying on the
// host compiler's native struct layout is not interoperable, and requires an
// explicit, documented layout instead.
const (
	metaDataHeaderSize = 32 // 4 x u64: meta_size, user_size, num_locks, num_events
	lockHeaderSize     = 24 // u8 uid; u8 _pad[7]; u64 offset; u64 length
	eventHeaderSize    = 1  // u8 uid (then padded up to AddrAlign)
)

// lockEntry is a Config's in-process record for one declared lock, before
// layout offsets are known.
type lockEntry struct {
	kind   primitive.LockKind
	offset uint64
	length uint64
}

// eventEntry is the event analogue of lockEntry.
type eventEntry struct {
	kind primitive.EventKind
}

// layoutEntry records where one lock or event's header and body land once a
// layout has been computed.
type layoutEntry struct {
	headerOffset uint64
	bodyOffset   uint64
	bodySize     uint64
}

// computedLayout is the output of computeLayout: the exact byte layout of a
// metadata region for a given lock/event sequence (spec.md §4.3).
type computedLayout struct {
	locks    []layoutEntry
	events   []layoutEntry
	metaSize uint64
}

// computeLayout deterministically computes the metadata byte layout for the
// given lock and event sequences, in order. This is spec.md §4.3's pseudocode
// verbatim, just carrying the intermediate per-entry offsets forward instead
// of discarding them, since Create writes each header and body at them. Open
// does not call it: it walks the mapping's descriptors with its own cursor
// using the same steps and checks the result against the header's meta_size.
//
// The computation is pure: no I/O, no mutation of its arguments. It must be
// byte-identical on the creating and opening process for matching
// configurations (spec.md §4.3).
func computeLayout(locks []lockEntry, events []eventEntry) computedLayout {
	pos := uint64(metaDataHeaderSize)

	lockLayout := make([]layoutEntry, 0, len(locks))

	for _, l := range locks {
		headerOffset := pos
		pos += lockHeaderSize
		pos, _ = alignUp(pos, AddrAlign)

		bodySize := l.kind.BodySize()
		lockLayout = append(lockLayout, layoutEntry{
			headerOffset: headerOffset,
			bodyOffset:   pos,
			bodySize:     bodySize,
		})
		pos += bodySize
	}

	eventLayout := make([]layoutEntry, 0, len(events))

	for _, e := range events {
		headerOffset := pos
		pos += eventHeaderSize
		pos, _ = alignUp(pos, AddrAlign)

		bodySize := e.kind.BodySize()
		eventLayout = append(eventLayout, layoutEntry{
			headerOffset: headerOffset,
			bodyOffset:   pos,
			bodySize:     bodySize,
		})
		pos += bodySize
	}

	pos, _ = alignUp(pos, AddrAlign)

	return computedLayout{locks: lockLayout, events: eventLayout, metaSize: pos}
}
