package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"vaultapi/internal/keys"
	"vaultapi/internal/listing"
	"vaultapi/internal/model"
	"vaultapi/internal/storage"
	"vaultapi/internal/workpool"
)

// ProjectionInput is a projection as submitted by a client. An empty ID saves a new projection.
type ProjectionInput struct {
	ID      string                   `json:"id,omitempty"`
	Inputs  *model.ProjectionInputs  `json:"inputs"`
	Results *model.ProjectionResults `json:"results"`
	Series  []model.ProjectionPoint  `json:"series"`
}

// ProjectionService defines the use cases for saved savings projections.
type ProjectionService interface {
	// Save stores a projection. New projections get a fresh id; re-saving an existing id keeps
	// its createdAt.
	Save(ctx context.Context, tenant string, in ProjectionInput) (string, *model.Projection, error)
	// Get returns one projection. A missing projection is ErrNotFound.
	Get(ctx context.Context, tenant, id string) (*model.Projection, error)
	// List returns the tenant's projections, newest first. Unreadable documents are skipped.
	List(ctx context.Context, tenant string) ([]model.Projection, error)
}

type projectionService struct {
	store   storage.Storage
	lister  *listing.Lister
	codec   keys.Codec
	clock   Clock
	ids     IDGenerator
	workers int
}

// NewProjectionService constructs a new ProjectionService.
func NewProjectionService(store storage.Storage, lister *listing.Lister, codec keys.Codec, clock Clock, ids IDGenerator, workers int) ProjectionService {
	if clock == nil {
		clock = RealClock{}
	}
	if ids == nil {
		ids = TimeIDGenerator{Clock: clock}
	}
	if workers <= 0 {
		workers = DefaultTitleWorkers
	}
	return &projectionService{store: store, lister: lister, codec: codec, clock: clock, ids: ids, workers: workers}
}

func (s *projectionService) Save(ctx context.Context, tenant string, in ProjectionInput) (string, *model.Projection, error) {
	id := strings.TrimSpace(in.ID)
	createdAt := ""
	if id == "" {
		id = s.ids.New()
	} else {
		if !keys.IsSafeID(id) {
			return "", nil, ErrInvalidID
		}
		prev, err := existingCreatedAt(ctx, s.store, s.codec.DocumentKey(keys.CategoryProjections, tenant, id))
		if err != nil {
			return "", nil, err
		}
		createdAt = prev
	}

	now := formatTime(s.clock.Now())
	if createdAt == "" {
		createdAt = now
	}
	p := &model.Projection{
		ID:        id,
		UserID:    tenant,
		Kind:      model.ProjectionKind,
		Inputs:    in.Inputs,
		Results:   in.Results,
		Series:    in.Series,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}

	key := s.codec.DocumentKey(keys.CategoryProjections, tenant, id)
	if _, err := storage.PutJSON(ctx, s.store, key, p); err != nil {
		return "", nil, fmt.Errorf("save projection: %w", err)
	}
	return key, p, nil
}

func (s *projectionService) Get(ctx context.Context, tenant, id string) (*model.Projection, error) {
	id = strings.TrimSpace(id)
	if !keys.IsSafeID(id) {
		return nil, ErrInvalidID
	}
	p, err := s.read(ctx, s.codec.DocumentKey(keys.CategoryProjections, tenant, id))
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get projection: %w", err)
	}
	p.ID = id
	return p, nil
}

func (s *projectionService) read(ctx context.Context, key string) (*model.Projection, error) {
	b, err := storage.GetBytes(ctx, s.store, key)
	if err != nil {
		return nil, err
	}
	var p model.Projection
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if p.Kind == "" {
		p.Kind = model.ProjectionKind
	}
	return &p, nil
}

func (s *projectionService) List(ctx context.Context, tenant string) ([]model.Projection, error) {
	res, err := s.lister.List(ctx, s.codec.CategoryPrefix(keys.CategoryProjections, tenant), "")
	if err != nil {
		return nil, err
	}
	type item struct{ id, key string }
	items := make([]item, 0, len(res.Files))
	for _, f := range res.Files {
		if id, ok := keys.IDFromKey(f.Key); ok {
			items = append(items, item{id: id, key: f.Key})
		}
	}

	read, err := workpool.Map(ctx, items, s.workers, func(ctx context.Context, it item) (*model.Projection, error) {
		p, err := s.read(ctx, it.key)
		if err != nil {
			return nil, nil
		}
		p.ID = it.id
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list projections: %w", err)
	}

	out := make([]model.Projection, 0, len(read))
	for _, p := range read {
		if p != nil {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := parseTime(out[i].CreatedAt)
		tj, _ := parseTime(out[j].CreatedAt)
		return ti.After(tj)
	})
	return out, nil
}
