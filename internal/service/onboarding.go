package service

import (
	"context"
	"fmt"
	"strings"

	"vaultapi/internal/keys"
	"vaultapi/internal/model"
	"vaultapi/internal/storage"
)

const tourFile = "welcome-tour.json"

// Tour actions.
const (
	TourCompleted = "completed"
	TourSkipped   = "skipped"
)

// OnboardingService tracks whether a tenant has been through the welcome tour.
type OnboardingService interface {
	// TourStatus reports the stored tour state. A missing or unreadable document means not seen.
	TourStatus(ctx context.Context, tenant string) (*model.TourStatus, error)
	// MarkTour records the tour as completed or skipped at the current version.
	MarkTour(ctx context.Context, tenant, action string) (*model.TourStatus, error)
}

type onboardingService struct {
	store storage.Storage
	codec keys.Codec
	clock Clock
}

// NewOnboardingService constructs a new OnboardingService.
func NewOnboardingService(store storage.Storage, codec keys.Codec, clock Clock) OnboardingService {
	if clock == nil {
		clock = RealClock{}
	}
	return &onboardingService{store: store, codec: codec, clock: clock}
}

func (s *onboardingService) key(tenant string) string {
	return s.codec.DeriveKey(keys.CategoryOnboarding, tenant, tourFile)
}

func (s *onboardingService) TourStatus(ctx context.Context, tenant string) (*model.TourStatus, error) {
	st := &model.TourStatus{RequiredVersion: model.TourVersion}

	b, err := storage.GetBytes(ctx, s.store, s.key(tenant))
	if err != nil {
		if storage.IsNotFound(err) {
			return st, nil
		}
		return nil, fmt.Errorf("get tour: %w", err)
	}
	doc, err := decodeFields(b)
	if err != nil {
		return st, nil
	}
	if v, ok := doc.num("version"); ok {
		st.Version = int(v)
	}
	if v, ok := doc.str("completedAt"); ok {
		st.CompletedAt = strPtr(v)
	}
	st.Seen = st.Version >= model.TourVersion && st.CompletedAt != nil && *st.CompletedAt != ""
	return st, nil
}

func (s *onboardingService) MarkTour(ctx context.Context, tenant, action string) (*model.TourStatus, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action != TourSkipped {
		action = TourCompleted
	}
	now := strPtr(formatTime(s.clock.Now()))
	doc := model.TourState{
		UserID:      tenant,
		Version:     model.TourVersion,
		Action:      action,
		CompletedAt: now,
	}
	if _, err := storage.PutJSON(ctx, s.store, s.key(tenant), doc); err != nil {
		return nil, fmt.Errorf("save tour: %w", err)
	}
	return &model.TourStatus{
		Seen:            true,
		Version:         model.TourVersion,
		RequiredVersion: model.TourVersion,
		CompletedAt:     now,
	}, nil
}
