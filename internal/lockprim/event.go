package lockprim

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/calvinalkan/shmregion/primitive"
)

const (
	manualResetEventUID uint8  = 1
	autoResetEventUID   uint8  = 2
	eventBodySize       uint64 = 8
)

const (
	eventUnset uint32 = 0
	eventSet   uint32 = 1
)

// manualResetEventKind implements primitive.EventKind: a process-shared flag
// that Wait observes but does not clear. Grounded on spec.md §4.7's event
// kinds; implemented as an atomic flag polled with backoff rather than an
// OS-level eventfd, since (like the lock kinds in this package) the body
// bytes the core hands to Init carry no file descriptor to wait on across
// process boundaries.
type manualResetEventKind struct{}

// ManualResetEvent is the built-in event kind (wire uid 1) that, once Set,
// stays set until explicitly Reset.
var ManualResetEvent = manualResetEventKind{}

func init() {
	primitive.RegisterEventKind(ManualResetEvent)
}

func (manualResetEventKind) UID() uint8 { return manualResetEventUID }

func (manualResetEventKind) BodySize() uint64 { return eventBodySize }

func (manualResetEventKind) Init(d *primitive.EventDescriptor, owner bool) error {
	if uint64(len(d.Body)) < eventBodySize {
		return fmt.Errorf("lockprim: event body too small: got %d bytes, need %d", len(d.Body), eventBodySize)
	}

	if owner {
		atomic.StoreUint32(mutexWord(d.Body), eventUnset)
	}

	return nil
}

// Set marks the event signaled. Safe to call from any process attached to
// the region.
func (manualResetEventKind) Set(body []byte) error {
	atomic.StoreUint32(mutexWord(body), eventSet)

	return nil
}

// Reset marks the event unsignaled.
func (manualResetEventKind) Reset(body []byte) error {
	atomic.StoreUint32(mutexWord(body), eventUnset)

	return nil
}

// Wait blocks until the event is signaled. Does not clear it.
func (manualResetEventKind) Wait(body []byte) error {
	w := mutexWord(body)
	backoff := time.Microsecond

	for atomic.LoadUint32(w) != eventSet {
		time.Sleep(backoff)

		if backoff < time.Millisecond {
			backoff *= 2
		}
	}

	return nil
}

// IsSet reports the event's current state without blocking.
func (manualResetEventKind) IsSet(body []byte) bool {
	return atomic.LoadUint32(mutexWord(body)) == eventSet
}

// autoResetEventKind implements primitive.EventKind: signaling wakes exactly
// one waiter, which atomically clears the event on its way out.
type autoResetEventKind struct{}

// AutoResetEvent is the built-in event kind (wire uid 2) that auto-clears
// when a Wait observes it set.
var AutoResetEvent = autoResetEventKind{}

func init() {
	primitive.RegisterEventKind(AutoResetEvent)
}

func (autoResetEventKind) UID() uint8 { return autoResetEventUID }

func (autoResetEventKind) BodySize() uint64 { return eventBodySize }

func (autoResetEventKind) Init(d *primitive.EventDescriptor, owner bool) error {
	if uint64(len(d.Body)) < eventBodySize {
		return fmt.Errorf("lockprim: event body too small: got %d bytes, need %d", len(d.Body), eventBodySize)
	}

	if owner {
		atomic.StoreUint32(mutexWord(d.Body), eventUnset)
	}

	return nil
}

// Set marks the event signaled, waking one Wait call.
func (autoResetEventKind) Set(body []byte) error {
	atomic.StoreUint32(mutexWord(body), eventSet)

	return nil
}

// Wait blocks until it observes the event set, then atomically clears it
// before returning, only one waiter wins the clear per Set.
func (autoResetEventKind) Wait(body []byte) error {
	w := mutexWord(body)
	backoff := time.Microsecond

	for !atomic.CompareAndSwapUint32(w, eventSet, eventUnset) {
		time.Sleep(backoff)

		if backoff < time.Millisecond {
			backoff *= 2
		}
	}

	return nil
}
