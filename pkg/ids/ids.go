// Package ids defines the opaque arena identifiers shared by the method
// area and the heap, so the two can refer to each other's entities without
// importing one another.
package ids

// ClassId identifies a loaded class for the lifetime of the process.
type ClassId int

// MethodId identifies a loaded method for the lifetime of the process.
type MethodId int

// FieldId identifies a loaded field for the lifetime of the process.
type FieldId int

// Invalid is the "no id" sentinel for each id type: valid ids are always
// non-negative, arena-assigned indices, so the zero value 0 is itself a
// valid id, not Invalid.
const Invalid = -1

func (c ClassId) Valid() bool  { return c != Invalid }
func (m MethodId) Valid() bool { return m != Invalid }
func (f FieldId) Valid() bool  { return f != Invalid }
