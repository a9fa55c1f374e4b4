package mocks

import (
	"context"
	"encoding/json"

	"vaultapi/internal/listing"
	"vaultapi/internal/model"
	"vaultapi/internal/service"
	"vaultapi/internal/transfer"

	"github.com/stretchr/testify/mock"
)

type MockNoteService struct {
	mock.Mock
}

func (m *MockNoteService) List(ctx context.Context, tenant string) ([]model.NoteSummary, error) {
	args := m.Called(ctx, tenant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.NoteSummary), args.Error(1)
}

func (m *MockNoteService) Get(ctx context.Context, tenant, id string) (*model.Note, error) {
	args := m.Called(ctx, tenant, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Note), args.Error(1)
}

func (m *MockNoteService) Save(ctx context.Context, tenant, id, content string) (string, *model.Note, error) {
	args := m.Called(ctx, tenant, id, content)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*model.Note), args.Error(2)
}

func (m *MockNoteService) Delete(ctx context.Context, tenant, id string) (string, error) {
	args := m.Called(ctx, tenant, id)
	return args.String(0), args.Error(1)
}

type MockContactService struct {
	mock.Mock
}

func (m *MockContactService) Get(ctx context.Context, tenant string) (string, *model.ContactsDoc, error) {
	args := m.Called(ctx, tenant)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*model.ContactsDoc), args.Error(2)
}

func (m *MockContactService) Save(ctx context.Context, tenant string, raw json.RawMessage) (string, *model.ContactsDoc, error) {
	args := m.Called(ctx, tenant, raw)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*model.ContactsDoc), args.Error(2)
}

type MockProjectionService struct {
	mock.Mock
}

func (m *MockProjectionService) Save(ctx context.Context, tenant string, in service.ProjectionInput) (string, *model.Projection, error) {
	args := m.Called(ctx, tenant, in)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*model.Projection), args.Error(2)
}

func (m *MockProjectionService) Get(ctx context.Context, tenant, id string) (*model.Projection, error) {
	args := m.Called(ctx, tenant, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Projection), args.Error(1)
}

func (m *MockProjectionService) List(ctx context.Context, tenant string) ([]model.Projection, error) {
	args := m.Called(ctx, tenant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Projection), args.Error(1)
}

type MockOnboardingService struct {
	mock.Mock
}

func (m *MockOnboardingService) TourStatus(ctx context.Context, tenant string) (*model.TourStatus, error) {
	args := m.Called(ctx, tenant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TourStatus), args.Error(1)
}

func (m *MockOnboardingService) MarkTour(ctx context.Context, tenant, action string) (*model.TourStatus, error) {
	args := m.Called(ctx, tenant, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TourStatus), args.Error(1)
}

type MockFileService struct {
	mock.Mock
}

func (m *MockFileService) List(ctx context.Context, folder string) (string, listing.Listing, error) {
	args := m.Called(ctx, folder)
	return args.String(0), args.Get(1).(listing.Listing), args.Error(2)
}

func (m *MockFileService) PresignUpload(ctx context.Context, folder, fileName, contentType string) (transfer.UploadTicket, error) {
	args := m.Called(ctx, folder, fileName, contentType)
	return args.Get(0).(transfer.UploadTicket), args.Error(1)
}

func (m *MockFileService) PresignDownload(ctx context.Context, key string, disposition transfer.Disposition) (transfer.DownloadTicket, error) {
	args := m.Called(ctx, key, disposition)
	return args.Get(0).(transfer.DownloadTicket), args.Error(1)
}

func (m *MockFileService) Delete(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}
