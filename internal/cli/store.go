package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/hupe1980/flash/blobstore"
	"github.com/hupe1980/flash/blobstore/minio"
	"github.com/hupe1980/flash/blobstore/s3"
)

// Environment variables holding MinIO credentials.
const (
	envMinioAccessKey = "MINIO_ACCESS_KEY"
	envMinioSecretKey = "MINIO_SECRET_KEY"
)

// openStore resolves the --store flag.
func (g *globalFlags) openStore(ctx context.Context) (blobstore.BlobStore, error) {
	if !strings.Contains(g.store, "://") {
		return blobstore.NewLocalStore(g.store), nil
	}

	u, err := url.Parse(g.store)
	if err != nil {
		return nil, fmt.Errorf("invalid --store %q: %w", g.store, err)
	}

	var remote blobstore.BlobStore
	switch u.Scheme {
	case "file":
		return blobstore.NewLocalStore(u.Path), nil
	case "s3":
		remote, err = g.openS3(ctx, u)
	case "minio":
		remote, err = g.openMinio(u)
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, err
	}

	if g.cacheDir != "" {
		return blobstore.NewCachingStore(remote, blobstore.NewLocalStore(g.cacheDir), 0), nil
	}
	return remote, nil
}

func (g *globalFlags) openS3(ctx context.Context, u *url.URL) (blobstore.BlobStore, error) {
	prefix := keyPrefix(u.Path)
	store, err := s3.New(ctx, u.Host, s3.WithPrefix(prefix), s3.WithRegion(g.region))
	if err != nil {
		return nil, err
	}
	if g.ddbTable == "" {
		return store, nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if g.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(g.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewDDBCommitStore(store, dynamodb.NewFromConfig(cfg), g.ddbTable, "s3://"+u.Host+"/"+prefix), nil
}

func (g *globalFlags) openMinio(u *url.URL) (blobstore.BlobStore, error) {
	bucket, prefix, _ := strings.Cut(strings.TrimPrefix(u.Path, "/"), "/")
	if bucket == "" {
		return nil, fmt.Errorf("minio store %q needs a bucket", g.store)
	}
	return minio.Dial(minio.Config{
		Endpoint:  u.Host,
		AccessKey: os.Getenv(envMinioAccessKey),
		SecretKey: os.Getenv(envMinioSecretKey),
		Insecure:  g.insecure,
		Region:    g.region,
		Bucket:    bucket,
		Prefix:    keyPrefix(prefix),
	})
}

// keyPrefix normalizes a URL path into an object key prefix ending in "/".
func keyPrefix(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}
