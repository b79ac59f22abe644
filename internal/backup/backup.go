// Package backup keeps snapshots in an S3-compatible bucket (AWS S3 or MinIO).
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/lherron/pipeboard/internal/snapshot"
)

// Config holds construction parameters. Credentials fall back to the default
// AWS chain when AccessKeyID is empty.
type Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional; custom endpoint such as MinIO
	PathStyle       bool
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Store reads and writes snapshot objects under a key prefix of one bucket.
type Store struct {
	client *s3.Client
	bucket string
	prefix string
	now    func() time.Time
}

// Object describes a stored snapshot.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// New creates a backup store from cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewWithClient wraps an existing S3 client.
func NewWithClient(client *s3.Client, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: prefix, now: time.Now}
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// Key builds the object key for a snapshot taken at t.
func (s *Store) Key(t time.Time, rev string) string {
	short := strings.TrimPrefix(rev, "sha256:")
	if len(short) > 12 {
		short = short[:12]
	}
	if short == "" {
		short = "unsealed"
	}
	return s.prefix + t.UTC().Format("20060102T150405Z") + "-" + short + ".json"
}

// Push uploads snap in canonical form and returns its key. An unsealed
// snapshot is sealed first.
func (s *Store) Push(ctx context.Context, snap *snapshot.Snapshot) (string, error) {
	var (
		data []byte
		err  error
	)
	if snap.Meta.SnapshotRev == "" {
		data, err = snapshot.Seal(snap)
	} else {
		data, err = snapshot.CanonicalJSON(snap)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := s.Key(s.now(), snap.Meta.SnapshotRev)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"snapshot-rev": snap.Meta.SnapshotRev},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

// Pull downloads, parses and verifies a snapshot. Keys without the store
// prefix are resolved under it.
func (s *Store) Pull(ctx context.Context, key string) (*snapshot.Snapshot, error) {
	if !strings.HasPrefix(key, s.prefix) {
		key = s.prefix + key
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	snap, err := snapshot.Parse(data)
	if err != nil {
		return nil, err
	}
	if err := snapshot.Verify(snap); err != nil {
		return nil, fmt.Errorf("backup %s: %w", key, err)
	}
	return snap, nil
}

// List returns every snapshot object under the prefix, sorted by key.
func (s *Store) List(ctx context.Context) ([]Object, error) {
	var objects []Object
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.prefix),
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list backups: %w", err)
		}
		for _, obj := range out.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
		if aws.ToBool(out.IsTruncated) && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

// Latest returns the key of the newest snapshot.
func (s *Store) Latest(ctx context.Context) (string, error) {
	objects, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if len(objects) == 0 {
		return "", fmt.Errorf("no backups under s3://%s/%s", s.bucket, s.prefix)
	}
	return objects[len(objects)-1].Key, nil
}
