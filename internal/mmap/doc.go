// Package mmap maps snapshot files read-only so LocalStore can hand them to
// the decoder without an extra copy.
//
// Unix builds use golang.org/x/sys/unix; other platforms fall back to reading
// the file.
package mmap
