package broker

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/auraflow/auraflow/pkg/api"
)

type (
	// DurableStore persists one record per session so a broker restart
	// does not lose in-flight sessions
	DurableStore interface {
		Get(context.Context, api.SessionID) (*api.Session, error)
		Put(context.Context, *api.Session) error
		Delete(context.Context, api.SessionID) error
		List(context.Context) ([]api.SessionID, error)
		Close() error
	}

	// BlobStore implements DurableStore over gocloud.dev/blob, storing
	// each session as a single JSON object
	BlobStore struct {
		bucket *blob.Bucket
		prefix string
	}
)

const blobSuffix = ".json"

var _ DurableStore = (*BlobStore)(nil)

// OpenBlobStore opens the bucket named by a gocloud URL (file://,
// mem://, or any registered driver)
func OpenBlobStore(
	ctx context.Context, bucketURL, prefix string,
) (*BlobStore, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &BlobStore{bucket: bucket, prefix: prefix}, nil
}

func (b *BlobStore) Get(
	ctx context.Context, id api.SessionID,
) (*api.Session, error) {
	data, err := b.bucket.ReadAll(ctx, b.keyFor(id))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var sess api.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (b *BlobStore) Put(ctx context.Context, sess *api.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return b.bucket.WriteAll(ctx, b.keyFor(sess.ID), data, nil)
}

func (b *BlobStore) Delete(ctx context.Context, id api.SessionID) error {
	err := b.bucket.Delete(ctx, b.keyFor(id))
	if err != nil && gcerrors.Code(err) == gcerrors.NotFound {
		return nil
	}
	return err
}

func (b *BlobStore) List(ctx context.Context) ([]api.SessionID, error) {
	var res []api.SessionID
	iter := b.bucket.List(&blob.ListOptions{Prefix: b.prefix})
	for {
		obj, err := iter.Next(ctx)
		if err == io.EOF {
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		key := strings.TrimPrefix(obj.Key, b.prefix)
		key = strings.TrimSuffix(key, blobSuffix)
		if key != "" {
			res = append(res, api.SessionID(key))
		}
	}
}

func (b *BlobStore) Close() error {
	return b.bucket.Close()
}

func (b *BlobStore) keyFor(id api.SessionID) string {
	return b.prefix + string(id) + blobSuffix
}
