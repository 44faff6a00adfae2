// Package blobstore provides storage abstraction for Flash snapshots.
//
// BlobStore is the interface for reading and writing immutable blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: Local filesystem with mmap reads and atomic rename writes
//   - MemoryStore: In-memory store for tests
//   - CachingStore: Local mirror in front of a remote store
//   - s3.Store, s3.DDBCommitStore: Amazon S3, optionally with DynamoDB commits
//   - minio.Store: MinIO and other S3-compatible services
//
// # Commit Pointer
//
// Saving a snapshot writes the snapshot blob first and then points the
// CURRENT blob at it, so readers following CURRENT never observe a partial
// snapshot:
//
//	name, err := blobstore.ReadCurrent(ctx, store)
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
package blobstore
