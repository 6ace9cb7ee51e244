package shmregion

import "encoding/binary"

// Field offsets within the 32-byte MetaDataHeader (spec.md §6.1).
const (
	offMetaSize   = 0x00 // u64
	offUserSize   = 0x08 // u64
	offNumLocks   = 0x10 // u64
	offNumEvents  = 0x18 // u64
	headerEndSize = 0x20
)

// metaDataHeader mirrors the 32-byte on-wire MetaDataHeader (spec.md §6.1).
type metaDataHeader struct {
	MetaSize  uint64
	UserSize  uint64
	NumLocks  uint64
	NumEvents uint64
}

// encodeMetaDataHeader serializes h into a 32-byte little-endian buffer.
func encodeMetaDataHeader(h metaDataHeader) []byte {
	buf := make([]byte, metaDataHeaderSize)

	binary.LittleEndian.PutUint64(buf[offMetaSize:], h.MetaSize)
	binary.LittleEndian.PutUint64(buf[offUserSize:], h.UserSize)
	binary.LittleEndian.PutUint64(buf[offNumLocks:], h.NumLocks)
	binary.LittleEndian.PutUint64(buf[offNumEvents:], h.NumEvents)

	return buf
}

// decodeMetaDataHeader parses a 32-byte little-endian buffer. Callers must
// ensure len(buf) >= metaDataHeaderSize.
func decodeMetaDataHeader(buf []byte) metaDataHeader {
	return metaDataHeader{
		MetaSize:  binary.LittleEndian.Uint64(buf[offMetaSize:]),
		UserSize:  binary.LittleEndian.Uint64(buf[offUserSize:]),
		NumLocks:  binary.LittleEndian.Uint64(buf[offNumLocks:]),
		NumEvents: binary.LittleEndian.Uint64(buf[offNumEvents:]),
	}
}

// Field offsets within the 24-byte LockHeader (spec.md §6.1 note: the layout
// is pinned explicitly as {u8 uid; u8 _pad[7]; u64 offset; u64 length} rather
// than left to the host compiler, precisely so a foreign process with the
// same pointer width/endianness can parse it unambiguously).
const (
	lockOffUID    = 0x00 // u8
	lockOffOffset = 0x08 // u64
	lockOffLength = 0x10 // u64
)

// encodeLockHeader serializes a lock's wire header into a 24-byte buffer.
func encodeLockHeader(uid uint8, offset, length uint64) []byte {
	buf := make([]byte, lockHeaderSize)

	buf[lockOffUID] = uid
	binary.LittleEndian.PutUint64(buf[lockOffOffset:], offset)
	binary.LittleEndian.PutUint64(buf[lockOffLength:], length)

	return buf
}

// decodedLockHeader is the parsed form of a 24-byte on-wire LockHeader.
type decodedLockHeader struct {
	UID    uint8
	Offset uint64
	Length uint64
}

// decodeLockHeader parses a 24-byte buffer. Callers must ensure
// len(buf) >= lockHeaderSize.
func decodeLockHeader(buf []byte) decodedLockHeader {
	return decodedLockHeader{
		UID:    buf[lockOffUID],
		Offset: binary.LittleEndian.Uint64(buf[lockOffOffset:]),
		Length: binary.LittleEndian.Uint64(buf[lockOffLength:]),
	}
}

// encodeEventHeader serializes an event's 1-byte wire header.
func encodeEventHeader(uid uint8) []byte {
	return []byte{uid}
}

// decodeEventHeader parses the 1-byte wire header. Callers must ensure
// len(buf) >= eventHeaderSize.
func decodeEventHeader(buf []byte) uint8 {
	return buf[0]
}
