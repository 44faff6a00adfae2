// Package conv provides checked integer conversions for values decoded from
// snapshots and for dense label IDs.
//
// Use direct casts where the range is already guaranteed by construction.
package conv
