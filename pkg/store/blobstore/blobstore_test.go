package blobstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gocloud.dev/blob"

	"github.com/kode4food/reflector/pkg/store"
	"github.com/kode4food/reflector/pkg/store/blobstore"
	"github.com/kode4food/reflector/pkg/store/storetest"

	_ "gocloud.dev/blob/memblob"
)

func TestBlobContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := blobstore.Open(context.Background(), "mem://", "traces/")
		assert.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := blobstore.New(nil, "x/")
	assert.ErrorIs(t, err, blobstore.ErrBucketRequired)
}

func TestObjectLayout(t *testing.T) {
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	assert.NoError(t, err)
	defer func() { _ = bucket.Close() }()

	s, err := blobstore.New(bucket, "flows/")
	assert.NoError(t, err)
	assert.NoError(t, s.Save(ctx, "abc", storetest.Record("abc", 1)))

	ok, err := bucket.Exists(ctx, "flows/abc.json")
	assert.NoError(t, err)
	assert.True(t, ok)
}

func TestListIgnoresForeignObjects(t *testing.T) {
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	assert.NoError(t, err)
	defer func() { _ = bucket.Close() }()

	assert.NoError(t, bucket.WriteAll(ctx, "flows/readme.txt", []byte("x"), nil))
	assert.NoError(t, bucket.WriteAll(ctx, "other/abc.json", []byte("{}"), nil))

	s, err := blobstore.New(bucket, "flows/")
	assert.NoError(t, err)
	assert.NoError(t, s.Save(ctx, "abc", storetest.Record("abc", 1)))

	res, err := s.List(ctx, nil)
	assert.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, "abc", storetest.ID(t, res.Items[0]))
}

func TestOpenInvalidURL(t *testing.T) {
	_, err := blobstore.Open(context.Background(), "nope://bucket", "")
	assert.Error(t, err)
}
