// Package transfer issues short-lived presigned URLs so clients move file bytes directly
// to and from the object store. The issuer keeps no state between calls; expiry is
// enforced by the store.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"vaultapi/internal/keys"
	"vaultapi/internal/storage"
)

// DefaultExpiry is the lifetime of issued URLs when none is configured.
const DefaultExpiry = 10 * time.Minute

const defaultContentType = "application/octet-stream"

// Disposition tells a receiving client how to present a download.
type Disposition string

const (
	Inline     Disposition = "inline"
	Attachment Disposition = "attachment"
)

// ParseDisposition maps "attachment" to Attachment and anything else to Inline.
func ParseDisposition(s string) Disposition {
	if strings.EqualFold(strings.TrimSpace(s), string(Attachment)) {
		return Attachment
	}
	return Inline
}

// ErrInvalidKey is returned when a key fails validation. No store call is made.
var ErrInvalidKey = errors.New("invalid key")

// UploadTicket is a presigned single-PUT grant for one key.
type UploadTicket struct {
	Key              string `json:"key"`
	URL              string `json:"url"`
	Method           string `json:"method"`
	ContentType      string `json:"contentType"`
	ExpiresInSeconds int    `json:"expiresIn"`
}

// DownloadTicket is a presigned GET grant for one key.
type DownloadTicket struct {
	Key              string      `json:"key"`
	URL              string      `json:"url"`
	Method           string      `json:"method"`
	Disposition      Disposition `json:"disposition"`
	ExpiresInSeconds int         `json:"expiresIn"`
}

// Issuer signs transfer URLs for keys derived by a Codec.
type Issuer struct {
	store  storage.Storage
	codec  keys.Codec
	expiry time.Duration
}

// New returns an Issuer. A non-positive expiry means DefaultExpiry.
func New(store storage.Storage, codec keys.Codec, expiry time.Duration) *Issuer {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Issuer{store: store, codec: codec, expiry: expiry}
}

// Expiry returns the lifetime of issued URLs.
func (i *Issuer) Expiry() time.Duration { return i.expiry }

// fileKey accepts safe keys outside the tenant document categories.
func (i *Issuer) fileKey(key string) bool {
	return keys.IsSafeKey(key) && !i.codec.IsDocumentKey(key)
}

// IssueUploadURL derives [prefix/]folder/fileName and signs a PUT for it.
func (i *Issuer) IssueUploadURL(ctx context.Context, folder, fileName, contentType string) (UploadTicket, error) {
	return i.IssueUploadURLForKey(ctx, i.codec.FolderKey(folder, fileName), contentType)
}

// IssueUploadURLForKey signs a PUT for an already derived key. The content type becomes
// part of the signature; empty means application/octet-stream.
func (i *Issuer) IssueUploadURLForKey(ctx context.Context, key, contentType string) (UploadTicket, error) {
	if !i.fileKey(key) {
		return UploadTicket{}, ErrInvalidKey
	}
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		contentType = defaultContentType
	}
	u, err := i.store.PresignPut(ctx, key, contentType, i.expiry)
	if err != nil {
		return UploadTicket{}, fmt.Errorf("presign put %s: %w", key, err)
	}
	return UploadTicket{
		Key:              key,
		URL:              u,
		Method:           http.MethodPut,
		ContentType:      contentType,
		ExpiresInSeconds: int(i.expiry / time.Second),
	}, nil
}

// IssueDownloadURL signs a GET for key. The suggested file name is the last key segment
// with quotes and line breaks removed.
func (i *Issuer) IssueDownloadURL(ctx context.Context, key string, disposition Disposition) (DownloadTicket, error) {
	key = strings.TrimSpace(key)
	if !i.fileKey(key) {
		return DownloadTicket{}, ErrInvalidKey
	}
	if disposition != Attachment {
		disposition = Inline
	}
	u, err := i.store.PresignGet(ctx, key, storage.PresignGetOptions{
		Expiry:             i.expiry,
		ContentDisposition: ContentDisposition(disposition, keys.FileNameFromKey(key)),
	})
	if err != nil {
		return DownloadTicket{}, fmt.Errorf("presign get %s: %w", key, err)
	}
	return DownloadTicket{
		Key:              key,
		URL:              u,
		Method:           http.MethodGet,
		Disposition:      disposition,
		ExpiresInSeconds: int(i.expiry / time.Second),
	}, nil
}

// ContentDisposition renders a Content-Disposition header value.
func ContentDisposition(d Disposition, fileName string) string {
	return fmt.Sprintf(`%s; filename="%s"`, d, strings.ReplaceAll(fileName, `"`, ""))
}
