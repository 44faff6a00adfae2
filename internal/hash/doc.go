// Package hash provides the CRC32-Castagnoli checksums guarding snapshots.
//
// The same checksum protects the snapshot body and is sent to S3 as the
// object's CRC32C, so corruption is caught both in transit and at rest.
// Go's crc32 package uses hardware instructions when available.
//
//	checksum := hash.CRC32C(data)
//	if err := hash.Verify(data, checksum); err != nil {
//	    // *ChecksumError
//	}
package hash
