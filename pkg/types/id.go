package types

import "fmt"

// SftId identifies a single semi-fungible token instance as a
// (token group, sub-item) pair. Both components are 1-based: group 0 is
// reserved, and sub-item ids start at 1 within a minted group.
type SftId struct {
	TokenID uint32 // token group id, >= 1
	SubID   uint32 // sub-item id within the group, >= 1
}

// MinSftId is the smallest valid token instance id.
var MinSftId = SftId{TokenID: 1, SubID: 1}

// SftIdFromUint64 unpacks a packed 64-bit token id.
func SftIdFromUint64(id uint64) SftId {
	return SftId{
		TokenID: uint32(id >> 32),
		SubID:   uint32(id & 0xffffffff),
	}
}

// Uint64 packs the id into a single 64-bit integer:
// token group in the high 32 bits, sub-item in the low 32 bits.
func (id SftId) Uint64() uint64 {
	return uint64(id.TokenID)<<32 | uint64(id.SubID)
}

// TokenIndex returns the zero-based storage index of the token group.
func (id SftId) TokenIndex() uint32 {
	if id.TokenID == 0 {
		return 0
	}
	return id.TokenID - 1
}

// Next returns the id of the following sub-item in the same group.
// The sub-item component saturates at the uint32 boundary instead of
// wrapping, so Next is safe to use as an exclusive pagination cursor.
func (id SftId) Next() SftId {
	next := id.SubID + 1
	if next == 0 {
		next = 0xffffffff
	}
	return SftId{TokenID: id.TokenID, SubID: next}
}

// Less reports whether id orders before other, lexicographically on
// (token group, sub-item).
func (id SftId) Less(other SftId) bool {
	if id.TokenID != other.TokenID {
		return id.TokenID < other.TokenID
	}
	return id.SubID < other.SubID
}

// String formats the id as "group-item".
func (id SftId) String() string {
	return fmt.Sprintf("%d-%d", id.TokenID, id.SubID)
}
