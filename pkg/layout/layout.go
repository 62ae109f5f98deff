// Package layout holds the handful of byte-layout constants shared between
// the method area's field-layout algorithm and the heap's allocator, so
// neither package needs to import the other to agree on header sizes.
package layout

const (
	// ObjectHeaderSize is the size in bytes of the header every heap
	// instance begins with: an 8-byte-aligned slot holding the owning
	// ClassId, padded so a leading long/double instance field still lands
	// on an 8-byte boundary.
	ObjectHeaderSize = 8

	// ArrayHeaderSize is the size in bytes of the header every heap array
	// begins with: an ObjectHeaderSize object header, followed by a 4-byte
	// element-type tag and a 4-byte length, which together round back up to
	// an 8-byte boundary.
	ArrayHeaderSize = ObjectHeaderSize + 8
)
