package shmregion

// AddrAlign is the alignment, in bytes, applied uniformly to every lock body,
// event body, and the start of the user region (spec.md §4.1, §6.1). It must
// match between the creating and opening process; this implementation fixes
// it at the target's natural 64-bit pointer width.
const AddrAlign = 8

// alignUp rounds offset up to the next multiple of align, returning the
// rounded value and the number of padding bytes inserted (0..align-1).
//
// align must be a power of two; behavior is undefined otherwise (spec.md
// §4.1). This holds for the package's sole caller, which always passes
// AddrAlign.
func alignUp(offset uint64, align uint64) (uint64, uint64) {
	mask := align - 1
	aligned := (offset + mask) &^ mask

	return aligned, aligned - offset
}
