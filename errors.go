package shmregion

import "errors"

// Error classification codes returned by [Config.Create], [Config.Open], and
// [Config] mutators.
//
// Implementations MAY wrap these with additional context via fmt.Errorf's
// %w verb. Callers MUST classify errors using errors.Is, never string
// comparison.
var (
	// ErrMapSizeZero is returned by Create when UserSize is zero.
	ErrMapSizeZero = errors.New("shmregion: user size is zero")

	// ErrRangeDoesNotFit is returned by AddLock when offset+length exceeds
	// the configured user size.
	ErrRangeDoesNotFit = errors.New("shmregion: lock range does not fit user region")

	// ErrRangeOverlapsExisting is returned by AddLock when a non-zero-length
	// range overlaps a previously added lock.
	ErrRangeOverlapsExisting = errors.New("shmregion: lock range overlaps existing lock")

	// ErrLinkExists is returned by Create when the link file already exists
	// and OverwriteLink was not requested.
	ErrLinkExists = errors.New("shmregion: link file already exists")

	// ErrLinkDoesNotExist is returned by Open when neither an OS name nor a
	// usable link file is available.
	ErrLinkDoesNotExist = errors.New("shmregion: link file does not exist")

	// ErrLinkCreateFailed wraps an I/O failure while creating/truncating the
	// link file.
	ErrLinkCreateFailed = errors.New("shmregion: link file create failed")

	// ErrLinkOpenFailed wraps an I/O failure while opening an existing link
	// file for reading.
	ErrLinkOpenFailed = errors.New("shmregion: link file open failed")

	// ErrLinkReadFailed wraps an I/O failure while reading the link file.
	ErrLinkReadFailed = errors.New("shmregion: link file read failed")

	// ErrLinkWriteFailed wraps an I/O failure while writing the resolved OS
	// name into the link file.
	ErrLinkWriteFailed = errors.New("shmregion: link file write failed")

	// ErrLinkCorrupt is returned by Open when the link file's contents are
	// not valid UTF-8. Not part of spec.md's original taxonomy: the
	// reference implementation panics on this condition (see spec.md §9);
	// this implementation surfaces it as a normal error instead.
	ErrLinkCorrupt = errors.New("shmregion: link file contents are not valid UTF-8")

	// ErrInvalidHeader is the catch-all for structural parse failures during
	// Open: undersized mapping, unknown kind uid, cursor overrun, final
	// cursor mismatch.
	ErrInvalidHeader = errors.New("shmregion: invalid metadata header")

	// ErrInvalidInput is returned for programming errors in Config usage
	// that spec.md leaves to the implementation to define: a nil kind passed
	// to AddLock or AddEvent. Whether a kind is registered is not checked.
	ErrInvalidInput = errors.New("shmregion: invalid input")

	// ErrNameCollision is returned by Create when synthesizing an OS name
	// repeatedly collides with an existing object (see spec.md §9 open
	// question; DESIGN.md records the bounded-retry decision).
	ErrNameCollision = errors.New("shmregion: could not synthesize a unique OS name")
)
