package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

const (
	ContentTypeJSON = "application/json; charset=utf-8"
	cacheNoStore    = "no-store"
)

// GetBytes reads a whole object into memory.
func GetBytes(ctx context.Context, s Storage, key string) ([]byte, error) {
	rc, _, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

// GetText reads a whole object as a string. A missing key yields a *NotFoundError.
func GetText(ctx context.Context, s Storage, key string) (string, error) {
	b, err := GetBytes(ctx, s, key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetJSON decodes the object at key into v. An empty body leaves v untouched.
func GetJSON(ctx context.Context, s Storage, key string, v any) error {
	b, err := GetBytes(ctx, s, key)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// PutBytes overwrites key with data.
func PutBytes(ctx context.Context, s Storage, key string, data []byte, contentType string) (ObjectInfo, error) {
	return s.Put(ctx, key, bytes.NewReader(data), PutObjectOptions{
		Size:         int64(len(data)),
		ContentType:  contentType,
		CacheControl: cacheNoStore,
	})
}

// PutJSON encodes v and overwrites key with it.
func PutJSON(ctx context.Context, s Storage, key string, v any) (ObjectInfo, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("encode %s: %w", key, err)
	}
	return PutBytes(ctx, s, key, b, ContentTypeJSON)
}
