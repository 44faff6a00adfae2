// Package minio stores snapshots in MinIO or any other S3-compatible server
// (Ceph, Garage, SeaweedFS) without the AWS SDK.
//
//	store, err := minio.Dial(minio.Config{
//	    Endpoint: "localhost:9000",
//	    Insecure: true,
//	    Bucket:   "models",
//	    Prefix:   "products/",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	name, err := idx.Save(ctx, store, "")
package minio
