// Package storage resolves dump and load targets. A target is a local path,
// a file:// URL, an s3://bucket/key URL or a gs://bucket/object URL.
//
//	data, err := storage.ReadAll(ctx, "s3://trees/run-7/out.trees", storage.Options{Region: "eu-west-1"})
package storage

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/ajitpratap0/arbor/pkg/errors"
)

// Scheme identifies a backend.
type Scheme string

const (
	SchemeFile Scheme = "file"
	SchemeS3   Scheme = "s3"
	SchemeGCS  Scheme = "gs"
)

// Location is a parsed target. For SchemeFile, Key is the local path and
// Bucket is empty.
type Location struct {
	Scheme Scheme
	Bucket string
	Key    string
}

// String renders the location as a URL, or a plain path for local files.
func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return string(l.Scheme) + "://" + l.Bucket + "/" + l.Key
}

// ParseLocation parses raw. Anything without a recognised scheme is a local
// path.
func ParseLocation(raw string) (Location, error) {
	if raw == "" {
		return Location{}, errors.New(errors.ErrorTypeParameter, "empty storage location")
	}
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return Location{Scheme: SchemeFile, Key: filepath.Clean(raw)}, nil
	}
	switch Scheme(strings.ToLower(scheme)) {
	case SchemeFile:
		u, err := url.Parse(raw)
		if err != nil || u.Path == "" {
			return Location{}, errors.New(errors.ErrorTypeParameter, "invalid file URL").WithDetail("location", raw)
		}
		return Location{Scheme: SchemeFile, Key: filepath.Clean(u.Path)}, nil
	case SchemeS3, SchemeGCS:
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return Location{}, errors.New(errors.ErrorTypeParameter, "location needs a bucket and an object key").
				WithDetail("location", raw)
		}
		return Location{Scheme: Scheme(strings.ToLower(scheme)), Bucket: bucket, Key: key}, nil
	default:
		return Location{}, errors.Newf(errors.ErrorTypeUnsupported, "unsupported storage scheme: %s", scheme)
	}
}

// Options configures the remote backends. Zero values use each SDK's
// defaults and its standard credential chain.
type Options struct {
	// Region for S3.
	Region string `yaml:"region" json:"region"`
	// Endpoint overrides the S3 endpoint, for S3-compatible stores. Path
	// style addressing is used when it is set.
	Endpoint string `yaml:"endpoint" json:"endpoint"`
	// CredentialsFile is a GCS service-account key file.
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`
	// PartSize and Concurrency tune S3 multipart transfers.
	PartSize    int64 `yaml:"part_size" json:"part_size"`
	Concurrency int   `yaml:"concurrency" json:"concurrency"`
}

// Backend stores whole objects by key.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the backend serving loc.
func Open(ctx context.Context, loc Location, opts Options) (Backend, error) {
	switch loc.Scheme {
	case SchemeFile:
		return NewLocal(), nil
	case SchemeS3:
		return NewS3(ctx, loc.Bucket, opts)
	case SchemeGCS:
		return NewGCS(ctx, loc.Bucket, opts)
	default:
		return nil, errors.Newf(errors.ErrorTypeUnsupported, "unsupported storage scheme: %s", loc.Scheme)
	}
}

// ReadAll reads the object at raw.
func ReadAll(ctx context.Context, raw string, opts Options) ([]byte, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	b, err := Open(ctx, loc, opts)
	if err != nil {
		return nil, err
	}
	defer b.Close()
	return b.Read(ctx, loc.Key)
}

// WriteAll writes data to the object at raw, replacing it.
func WriteAll(ctx context.Context, raw string, data []byte, opts Options) error {
	loc, err := ParseLocation(raw)
	if err != nil {
		return err
	}
	b, err := Open(ctx, loc, opts)
	if err != nil {
		return err
	}
	defer b.Close()
	return b.Write(ctx, loc.Key, data)
}

func wrapIO(err error, op string, loc Location) error {
	return errors.Wrap(err, errors.ErrorTypeIO, "failed to "+op+" object").WithDetail("location", loc.String())
}
