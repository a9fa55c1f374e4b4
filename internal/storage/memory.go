package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// MemoryStorage is an in-memory implementation of the Storage interface.
// It keeps the listing semantics of S3 (lexicographic order, delimiter roll-up, MaxKeys)
// and is safe for concurrent use, which makes it the backend of choice for tests and local runs.
type MemoryStorage struct {
	bucket  string
	mu      sync.RWMutex
	objects map[string]memObject
	getErrs map[string]error
	now     func() time.Time
}

type memObject struct {
	data []byte
	info ObjectInfo
}

// NewMemory creates an empty in-memory bucket.
func NewMemory(bucket string) *MemoryStorage {
	if bucket == "" {
		bucket = "memory"
	}
	return &MemoryStorage{
		bucket:  bucket,
		objects: make(map[string]memObject),
		getErrs: make(map[string]error),
		now:     time.Now,
	}
}

// FailGet makes every Get of key return err until cleared with a nil err.
func (m *MemoryStorage) FailGet(key string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.getErrs, key)
		return
	}
	m.getErrs[key] = err
}

// Len returns the number of stored objects.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemoryStorage) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("failed to read object: %w", err)
	}
	if opt.Size >= 0 && int64(len(data)) != opt.Size {
		return ObjectInfo{}, fmt.Errorf("size mismatch: expected %d bytes, got %d", opt.Size, len(data))
	}

	sum := md5.Sum(data)
	info := ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         hex.EncodeToString(sum[:]),
		ContentType:  opt.ContentType,
		LastModified: m.now(),
		Metadata:     opt.Metadata,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = memObject{data: data, info: info}
	return info, nil
}

func (m *MemoryStorage) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, ObjectInfo{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err, ok := m.getErrs[key]; ok {
		return nil, ObjectInfo{}, err
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, ObjectInfo{}, &NotFoundError{Key: key}
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (m *MemoryStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStorage) List(ctx context.Context, opt ListOptions) (ListResult, error) {
	if err := ctx.Err(); err != nil {
		return ListResult{}, err
	}
	limit := maxKeys(opt.MaxKeys)

	m.mu.RLock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		if strings.HasPrefix(k, opt.Prefix) {
			keys = append(keys, k)
		}
	}
	m.mu.RUnlock()
	sort.Strings(keys)

	var res ListResult
	seen := make(map[string]bool)
	for _, k := range keys {
		entry, isPrefix := k, false
		if opt.Delimiter != "" {
			rest := k[len(opt.Prefix):]
			if i := strings.Index(rest, opt.Delimiter); i >= 0 {
				entry, isPrefix = opt.Prefix+rest[:i+len(opt.Delimiter)], true
				if seen[entry] {
					continue
				}
			}
		}
		if len(res.Objects)+len(res.CommonPrefixes) >= limit {
			res.Truncated = true
			break
		}
		if isPrefix {
			seen[entry] = true
			res.CommonPrefixes = append(res.CommonPrefixes, entry)
			continue
		}
		m.mu.RLock()
		obj, ok := m.objects[k]
		m.mu.RUnlock()
		if ok {
			res.Objects = append(res.Objects, obj.info)
		}
	}
	return res, nil
}

// PresignPut returns a memory:// URL carrying the method, content type and expiry.
// Nothing serves these URLs; they exist so callers can be tested end to end.
func (m *MemoryStorage) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	q := url.Values{}
	q.Set("X-Method", "PUT")
	if contentType != "" {
		q.Set("X-Content-Type", contentType)
	}
	return m.presign(key, expiry, q), nil
}

func (m *MemoryStorage) PresignGet(ctx context.Context, key string, opt PresignGetOptions) (string, error) {
	q := url.Values{}
	q.Set("X-Method", "GET")
	if opt.ContentDisposition != "" {
		q.Set("response-content-disposition", opt.ContentDisposition)
	}
	return m.presign(key, opt.Expiry, q), nil
}

func (m *MemoryStorage) presign(key string, expiry time.Duration, q url.Values) string {
	q.Set("X-Expires", strconv.Itoa(int(expiry/time.Second)))
	u := url.URL{
		Scheme:   "memory",
		Host:     m.bucket,
		Path:     "/" + key,
		RawQuery: q.Encode(),
	}
	return u.String()
}

func (m *MemoryStorage) Ping(ctx context.Context) error {
	return ctx.Err()
}
