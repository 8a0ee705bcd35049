// Package storage wraps object storage backends behind a single interface.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"groupsnap-backend/internal/config"
)

// PutOptions describes an object being stored
type PutOptions struct {
	ContentType string
	Expires     time.Time
	Metadata    map[string]string
}

// ObjectStore stores photo bytes in a single bucket
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, opts PutOptions) (string, error)
	Delete(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	PublicURL(key string) string
	// CheckBucket fails unless the configured bucket exists and is reachable
	CheckBucket(ctx context.Context) error
}

// New returns the store selected by cfg.Driver
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case "s3", "":
		return NewS3Store(ctx, cfg)
	case "minio":
		return NewMinioStore(cfg)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// PublicURL is the deterministic virtual-hosted URL of an object
func PublicURL(bucket, region, key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, strings.Join(segments, "/"))
}

// PhotoKey builds {folder}/{epoch-millis}-{filename}. Directory parts of
// fileName are dropped and characters outside [A-Za-z0-9._-] become '_'.
func PhotoKey(folder string, at time.Time, fileName string) string {
	name := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		name = "photo.jpg"
	}
	return fmt.Sprintf("%s/%d-%s", strings.Trim(folder, "/"), at.UnixMilli(), safeName(name))
}

func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
