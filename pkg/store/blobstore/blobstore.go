// Package blobstore implements a record store on a gocloud.dev bucket,
// supporting S3, GCS, Azure Blob Storage, local files, and memory
package blobstore

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/kode4food/reflector/pkg/api"
	"github.com/kode4food/reflector/pkg/store"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Store keeps each record as a JSON object named <prefix><id>.json.
// Listings follow the bucket's key order
type Store struct {
	bucket *blob.Bucket
	prefix string
}

const objectSuffix = ".json"

var ErrBucketRequired = errors.New("bucket is required")

var _ store.Store = (*Store)(nil)

// Open opens the bucket at bucketURL and returns a Store over it
func Open(ctx context.Context, bucketURL, prefix string) (*Store, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return New(bucket, prefix)
}

// New returns a Store over an already opened bucket
func New(bucket *blob.Bucket, prefix string) (*Store, error) {
	if bucket == nil {
		return nil, ErrBucketRequired
	}
	return &Store{bucket: bucket, prefix: prefix}, nil
}

// Load returns the record saved under id
func (s *Store) Load(ctx context.Context, id string) (json.RawMessage, error) {
	data, err := s.bucket.ReadAll(ctx, s.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, store.NotFound(id)
		}
		return nil, err
	}
	return data, nil
}

// Save writes rec under id, replacing any previous object
func (s *Store) Save(ctx context.Context, id string, rec json.RawMessage) error {
	if id == "" {
		return store.ErrEmptyID
	}
	return s.bucket.WriteAll(ctx, s.keyFor(id), rec, &blob.WriterOptions{
		ContentType: "application/json",
	})
}

// List returns a page of records in key order
func (s *Store) List(
	ctx context.Context, params *api.ListParams,
) (*api.ListResult, error) {
	limit, err := store.ResolveLimit(params)
	if err != nil {
		return nil, err
	}
	pageToken, err := decodePageToken(params.Token())
	if err != nil {
		return nil, err
	}

	objs, next, err := s.bucket.ListPage(ctx, pageToken, limit,
		&blob.ListOptions{Prefix: s.prefix},
	)
	if err != nil {
		return nil, err
	}

	res := &api.ListResult{Items: []json.RawMessage{}}
	for _, obj := range objs {
		if obj.IsDir || !strings.HasSuffix(obj.Key, objectSuffix) {
			continue
		}
		data, err := s.bucket.ReadAll(ctx, obj.Key)
		if err != nil {
			return nil, err
		}
		res.Items = append(res.Items, data)
	}
	if len(next) > 0 {
		res.ContinuationToken = base64.RawURLEncoding.EncodeToString(next)
	}
	return res, nil
}

// Close releases the underlying bucket
func (s *Store) Close() error {
	return s.bucket.Close()
}

func (s *Store) keyFor(id string) string {
	return s.prefix + id + objectSuffix
}

func decodePageToken(token string) ([]byte, error) {
	if token == "" {
		return blob.FirstPageToken, nil
	}
	res, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(res) == 0 {
		return nil, fmt.Errorf("%w: %q", store.ErrInvalidToken, token)
	}
	return res, nil
}
