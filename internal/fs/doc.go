// Package fs abstracts the file operations behind atomic blob writes.
//
// Production code uses [Default]. Tests wrap it in a [FaultyFS] to make
// writes, syncs or renames fail and check that no partial blob becomes
// visible.
package fs
