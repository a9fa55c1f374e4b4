package storage

import (
	"context"
	"fmt"

	"vaultapi/internal/config"
)

// NewFromConfig creates the Storage implementation selected by cfg.Backend.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case config.BackendMinIO, "":
		return NewMinIO(ctx, cfg.MinIO)
	case config.BackendS3:
		return NewS3(ctx, cfg.S3)
	case config.BackendMemory:
		return NewMemory("memory"), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
