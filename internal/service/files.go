package service

import (
	"context"
	"fmt"
	"strings"

	"vaultapi/internal/keys"
	"vaultapi/internal/listing"
	"vaultapi/internal/storage"
	"vaultapi/internal/transfer"
)

// FileService is the facade over user-uploaded files. File bytes never pass through it:
// uploads and downloads go through presigned URLs.
type FileService interface {
	// List returns the normalized folder name and its listing. See listing.Lister.ListFolder.
	List(ctx context.Context, folder string) (string, listing.Listing, error)
	PresignUpload(ctx context.Context, folder, fileName, contentType string) (transfer.UploadTicket, error)
	PresignDownload(ctx context.Context, key string, disposition transfer.Disposition) (transfer.DownloadTicket, error)
	// Delete removes the object at key and returns the trimmed key.
	Delete(ctx context.Context, key string) (string, error)
}

type fileService struct {
	store  storage.Storage
	codec  keys.Codec
	lister *listing.Lister
	issuer *transfer.Issuer
}

// NewFileService constructs a new FileService. Keys in the tenant document categories are
// out of its reach.
func NewFileService(store storage.Storage, codec keys.Codec, lister *listing.Lister, issuer *transfer.Issuer) FileService {
	return &fileService{store: store, codec: codec, lister: lister, issuer: issuer}
}

func (s *fileService) List(ctx context.Context, folder string) (string, listing.Listing, error) {
	return s.lister.ListFolder(ctx, folder)
}

func (s *fileService) PresignUpload(ctx context.Context, folder, fileName, contentType string) (transfer.UploadTicket, error) {
	return s.issuer.IssueUploadURL(ctx, folder, fileName, contentType)
}

func (s *fileService) PresignDownload(ctx context.Context, key string, disposition transfer.Disposition) (transfer.DownloadTicket, error) {
	return s.issuer.IssueDownloadURL(ctx, key, disposition)
}

func (s *fileService) Delete(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if !keys.IsSafeKey(key) || s.codec.IsDocumentKey(key) {
		return "", ErrInvalidKey
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return "", fmt.Errorf("delete file: %w", err)
	}
	return key, nil
}
