package storage

import (
	"context"
	"io"
	"time"
)

// Package storage contains the object storage abstraction the document store is built on,
// and its S3-compatible implementations (MinIO, AWS S3, in-memory).
// Implementations must avoid using local disk and rely on streaming I/O only.

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1 and the implementation
// will buffer/chunk as supported by the backend.
// ContentType, CacheControl and Metadata are optional.
type PutObjectOptions struct {
	Size         int64
	ContentType  string
	CacheControl string
	Metadata     map[string]string
}

// ObjectInfo contains basic information about an object in storage.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// ListOptions selects the objects returned by List.
// With an empty Delimiter every key under Prefix is returned flat. With a Delimiter, keys that
// contain it after Prefix are rolled up into CommonPrefixes.
type ListOptions struct {
	Prefix    string
	Delimiter string
	// MaxKeys caps objects plus common prefixes returned by one call. Zero means DefaultMaxKeys.
	MaxKeys int
}

// ListResult is a single page of a listing. There is no continuation token: Truncated only
// tells the caller that more keys exist beyond MaxKeys.
type ListResult struct {
	Objects        []ObjectInfo
	CommonPrefixes []string
	Truncated      bool
}

// PresignGetOptions configures a download URL.
type PresignGetOptions struct {
	Expiry time.Duration
	// ContentDisposition, when set, is returned by the store as the response Content-Disposition.
	ContentDisposition string
}

// DefaultMaxKeys is the page size used when ListOptions.MaxKeys is zero.
const DefaultMaxKeys = 200

// Storage is a reusable, S3-compatible object storage client interface.
// Methods use context and streaming readers/writers; no local disk is used.
// Writes are unconditional overwrites: concurrent writers to one key are last-writer-wins.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	// A missing key yields a *NotFoundError.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns one bounded page of keys under a prefix.
	List(ctx context.Context, opt ListOptions) (ListResult, error)
	// PresignPut returns a time-limited URL accepting a single PUT of the object.
	PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error)
	// PresignGet returns a time-limited URL that can be used to download the object without credentials.
	PresignGet(ctx context.Context, key string, opt PresignGetOptions) (string, error)
	// Ping verifies the bucket is reachable.
	Ping(ctx context.Context) error
}

func maxKeys(n int) int {
	if n <= 0 {
		return DefaultMaxKeys
	}
	return n
}
