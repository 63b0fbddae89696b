package storage

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores objects in one Cloud Storage bucket.
type GCS struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewGCS opens bucket with application default credentials, or with
// opts.CredentialsFile when set. Extra client options are appended.
func NewGCS(ctx context.Context, bucket string, opts Options, clientOpts ...option.ClientOption) (*GCS, error) {
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, wrapIO(err, "configure", Location{Scheme: SchemeGCS, Bucket: bucket})
	}
	return &GCS{client: client, bucket: client.Bucket(bucket), name: bucket}, nil
}

func (b *GCS) location(key string) Location {
	return Location{Scheme: SchemeGCS, Bucket: b.name, Key: key}
}

func (b *GCS) Read(ctx context.Context, key string) ([]byte, error) {
	r, err := b.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, wrapIO(err, "open", b.location(key))
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapIO(err, "download", b.location(key))
	}
	return data, nil
}

// Write uploads data. The object only becomes visible when the writer
// closes cleanly; cancelling ctx abandons the upload.
func (b *GCS) Write(ctx context.Context, key string, data []byte) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := b.bucket.Object(key).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		cancel()
		w.Close()
		return wrapIO(err, "upload", b.location(key))
	}
	if err := w.Close(); err != nil {
		return wrapIO(err, "upload", b.location(key))
	}
	return nil
}

func (b *GCS) Delete(ctx context.Context, key string) error {
	if err := b.bucket.Object(key).Delete(ctx); err != nil && err != storage.ErrObjectNotExist {
		return wrapIO(err, "delete", b.location(key))
	}
	return nil
}

func (b *GCS) Close() error {
	return b.client.Close()
}
