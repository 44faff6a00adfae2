// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("indexes/products/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	err = idx.Save(ctx, store, "")
//
// Wrap the store in a DDBCommitStore when several trainers may save to the
// same prefix.
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart uploads with CRC32C checksums for large snapshots
//   - Automatic pagination for listing
//   - CURRENT is written as uncacheable text so proxies never serve a stale commit
package s3
