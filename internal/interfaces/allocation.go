// File: internal/interfaces/allocation.go
package interfaces

// AllocationMap provides methods for querying and updating the inode and zone bitmaps
type AllocationMap interface {
	// InodeInUse reports whether inode i is marked allocated
	InodeInUse(i uint32) bool

	// MarkInode marks inode i allocated
	MarkInode(i uint32)

	// UnmarkInode marks inode i free
	UnmarkInode(i uint32)

	// ZoneInUse reports whether zone z is marked allocated
	ZoneInUse(z uint32) bool

	// MarkZone marks zone z allocated
	MarkZone(z uint32)

	// UnmarkZone marks zone z free
	UnmarkZone(z uint32)

	// InodeMap returns the raw inode bitmap
	InodeMap() []byte

	// ZoneMap returns the raw zone bitmap
	ZoneMap() []byte
}

// RepairPolicy decides whether a detected inconsistency is repaired
type RepairPolicy interface {
	// Decide reports whether the repair described by prompt is applied.
	// def is the answer used when no interactive choice is made.
	Decide(prompt string, def bool) bool

	// Repairs reports whether the policy may apply repairs at all
	Repairs() bool

	// Interactive reports whether decisions are taken from a terminal
	Interactive() bool

	// OnUncorrected registers the callback invoked whenever a repair is not applied
	OnUncorrected(fn func())
}
