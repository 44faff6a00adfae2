package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/flash/blobstore"
)

// DDBCommitStore implements blobstore.BlobStore backed by S3 with DynamoDB
// guarding the CURRENT pointer, so concurrent trainers saving to the same
// prefix never silently overwrite each other's commit.
//
// Snapshot blobs go to S3. A Put of CURRENT becomes a conditional write of
// the next version row; an Open of CURRENT reads the latest row.
//
// Every commit is kept as its own row, which gives a history of the
// snapshots a prefix pointed at.
//
// Table schema:
//   - Partition key: base_uri (string), the S3 prefix
//   - Sort key: version (number), increasing by one per commit
//   - Attributes: snapshot (string), committed_at (RFC 3339 string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name flash-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	blobs     blobstore.BlobStore
	ddb       DDBClient
	tableName string
	baseURI   string
	now       func() time.Time
}

// DDBClient is the subset of the DynamoDB API the commit store needs.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ DDBClient = (*dynamodb.Client)(nil)

// ErrConcurrentModification is returned when another writer committed the
// same version first.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// Commit is one row of the commit table.
type Commit struct {
	Version     uint64
	Snapshot    string
	CommittedAt time.Time
}

// NewDDBCommitStore wraps blobs, which holds the snapshot files. baseURI,
// usually "s3://bucket/prefix", is the partition key.
func NewDDBCommitStore(blobs blobstore.BlobStore, ddb DDBClient, tableName, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		blobs:     blobs,
		ddb:       ddb,
		tableName: tableName,
		baseURI:   baseURI,
		now:       time.Now,
	}
}

// Open serves CURRENT from the latest commit and everything else from the
// blob store.
func (s *DDBCommitStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	if name != blobstore.CurrentName {
		return s.blobs.Open(ctx, name)
	}
	c, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return newPointerBlob(c.Snapshot), nil
}

// Put commits a new version for CURRENT and uploads anything else.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	if name == blobstore.CurrentName {
		return s.commit(ctx, string(data))
	}
	return s.blobs.Put(ctx, name, data)
}

// Delete removes a snapshot blob. Commit rows are never deleted.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	return s.blobs.Delete(ctx, name)
}

// List lists snapshot blobs.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.blobs.List(ctx, prefix)
}

// Version returns the latest committed version, 0 if nothing was committed.
func (s *DDBCommitStore) Version(ctx context.Context) (uint64, error) {
	c, err := s.Latest(ctx)
	if errors.Is(err, blobstore.ErrNotFound) {
		return 0, nil
	}
	return c.Version, err
}

// Latest returns the newest commit or blobstore.ErrNotFound.
func (s *DDBCommitStore) Latest(ctx context.Context) (Commit, error) {
	commits, err := s.History(ctx, 1)
	if err != nil {
		return Commit{}, err
	}
	if len(commits) == 0 {
		return Commit{}, blobstore.ErrNotFound
	}
	return commits[0], nil
}

// History returns up to limit commits, newest first. limit <= 0 returns the
// first page of all commits.
func (s *DDBCommitStore) History(ctx context.Context, limit int) ([]Commit, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.baseURI},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		in.Limit = aws.Int32(int32(min(limit, 1<<30)))
	}

	out, err := s.ddb.Query(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("s3: query commits: %w", err)
	}

	commits := make([]Commit, 0, len(out.Items))
	for _, item := range out.Items {
		c, err := parseCommit(item)
		if err != nil {
			return nil, err
		}
		commits = append(commits, c)
	}
	return commits, nil
}

func parseCommit(item map[string]types.AttributeValue) (Commit, error) {
	v, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return Commit{}, errors.New("s3: commit row without version")
	}
	snap, ok := item["snapshot"].(*types.AttributeValueMemberS)
	if !ok {
		return Commit{}, errors.New("s3: commit row without snapshot")
	}

	version, err := strconv.ParseUint(v.Value, 10, 64)
	if err != nil {
		return Commit{}, fmt.Errorf("s3: commit version: %w", err)
	}
	c := Commit{Version: version, Snapshot: snap.Value}

	// Rows written before committed_at existed stay readable.
	if at, ok := item["committed_at"].(*types.AttributeValueMemberS); ok {
		if c.CommittedAt, err = time.Parse(time.RFC3339Nano, at.Value); err != nil {
			return Commit{}, fmt.Errorf("s3: commit time: %w", err)
		}
	}
	return c, nil
}

// commit writes version+1 only if no other writer took it first.
func (s *DDBCommitStore) commit(ctx context.Context, snapshot string) error {
	current, err := s.Version(ctx)
	if err != nil {
		return err
	}

	_, err = s.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"base_uri":     &types.AttributeValueMemberS{Value: s.baseURI},
			"version":      &types.AttributeValueMemberN{Value: strconv.FormatUint(current+1, 10)},
			"snapshot":     &types.AttributeValueMemberS{Value: snapshot},
			"committed_at": &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentModification
		}
		return fmt.Errorf("s3: commit version %d: %w", current+1, err)
	}
	return nil
}

// pointerBlob serves the snapshot name of a commit as the CURRENT blob.
type pointerBlob struct {
	r *bytes.Reader
}

func newPointerBlob(name string) *pointerBlob {
	return &pointerBlob{r: bytes.NewReader([]byte(name))}
}

func (b *pointerBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	return b.r.ReadAt(p, off)
}

func (b *pointerBlob) Close() error { return nil }

func (b *pointerBlob) Size() int64 { return b.r.Size() }
