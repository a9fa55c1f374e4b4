package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"vaultapi/internal/config"
	"vaultapi/internal/http/middleware"
	"vaultapi/internal/keys"
	"vaultapi/internal/listing"
	"vaultapi/internal/model"
	"vaultapi/internal/service"
	serviceMocks "vaultapi/internal/service/mocks"
	"vaultapi/internal/storage"
	storeMocks "vaultapi/internal/storage/mocks"
	"vaultapi/internal/testutil"
	"vaultapi/internal/transfer"
)

const tenantHeader = "X-Tenant-ID"

func newTestApp(store Pinger, svc Services) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler()})
	app.Use(middleware.RequestID())
	RegisterRoutes(app, store, svc, middleware.Tenant(config.AuthConfig{
		Mode:         config.AuthModeHeader,
		TenantHeader: tenantHeader,
	}))
	return app
}

func do(t *testing.T, app *fiber.App, method, target, body string) (*http.Response, []byte) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set(tenantHeader, "user_1")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, b
}

func decodeError(t *testing.T, b []byte) errorPayload {
	t.Helper()
	var p errorPayload
	require.NoError(t, json.Unmarshal(b, &p))
	return p
}

func TestHealthCheck(t *testing.T) {
	st := new(storeMocks.MockStorage)
	app := fiber.New()
	app.Get("/health", HealthCheck(st))

	t.Run("healthy", func(t *testing.T) {
		st.On("Ping", mock.Anything).Return(nil).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		st.On("Ping", mock.Anything).Return(errors.New("bucket gone")).Once()

		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "service_unavailable", body.Error.Code)
	})
	st.AssertExpectations(t)
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPIRequiresTenant(t *testing.T) {
	app := newTestApp(storage.NewMemory(""), Services{Notes: new(serviceMocks.MockNoteService)})

	req := httptest.NewRequest(http.MethodGet, "/api/notes/list", nil)
	req.Header.Set(middleware.RequestIDHeader, "rid-1")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	b, _ := io.ReadAll(resp.Body)
	p := decodeError(t, b)
	assert.Equal(t, "unauthorized", p.Error.Code)
	assert.Equal(t, "rid-1", p.RequestID)
}

func TestUnknownRoute(t *testing.T) {
	app := newTestApp(storage.NewMemory(""), Services{})
	resp, b := do(t, app, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeError(t, b).Error.Code)
}

func TestNotes(t *testing.T) {
	notes := new(serviceMocks.MockNoteService)
	app := newTestApp(storage.NewMemory(""), Services{Notes: notes})

	t.Run("list", func(t *testing.T) {
		notes.On("List", mock.Anything, "user_1").
			Return([]model.NoteSummary{{ID: "a", Title: "A"}}, nil).Once()

		resp, b := do(t, app, http.MethodGet, "/api/notes/list", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			Notes []model.NoteSummary `json:"notes"`
		}
		require.NoError(t, json.Unmarshal(b, &out))
		require.Len(t, out.Notes, 1)
		assert.Equal(t, "A", out.Notes[0].Title)
	})

	t.Run("get not found", func(t *testing.T) {
		notes.On("Get", mock.Anything, "user_1", "missing").Return(nil, service.ErrNotFound).Once()

		resp, b := do(t, app, http.MethodGet, "/api/notes/get?id=missing", "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "not_found", decodeError(t, b).Error.Code)
	})

	t.Run("get invalid id", func(t *testing.T) {
		notes.On("Get", mock.Anything, "user_1", "../x").Return(nil, service.ErrInvalidID).Once()

		resp, b := do(t, app, http.MethodGet, "/api/notes/get?id=../x", "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_id", decodeError(t, b).Error.Code)
	})

	t.Run("save", func(t *testing.T) {
		note := &model.Note{ID: "abc123", Title: "Groceries", Content: "Groceries\nMilk"}
		notes.On("Save", mock.Anything, "user_1", "abc123", "Groceries\nMilk").
			Return("notes/user_1/abc123.json", note, nil).Once()

		resp, b := do(t, app, http.MethodPost, "/api/notes/save", `{"id":"abc123","content":"Groceries\nMilk"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var out struct {
			OK   bool       `json:"ok"`
			Key  string     `json:"key"`
			Note model.Note `json:"note"`
		}
		require.NoError(t, json.Unmarshal(b, &out))
		assert.True(t, out.OK)
		assert.Equal(t, "notes/user_1/abc123.json", out.Key)
		assert.Equal(t, "Groceries", out.Note.Title)
	})

	t.Run("save malformed body", func(t *testing.T) {
		resp, b := do(t, app, http.MethodPost, "/api/notes/save", `{"id":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_body", decodeError(t, b).Error.Code)
	})

	t.Run("store failure carries message", func(t *testing.T) {
		notes.On("Delete", mock.Anything, "user_1", "n1").Return("", errors.New("delete note: access denied")).Once()

		resp, b := do(t, app, http.MethodPost, "/api/notes/delete", `{"id":"n1"}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		p := decodeError(t, b)
		assert.Equal(t, "internal_error", p.Error.Code)
		assert.Contains(t, p.Error.Message, "access denied")
		assert.NotEmpty(t, p.RequestID)
	})

	t.Run("delete", func(t *testing.T) {
		notes.On("Delete", mock.Anything, "user_1", "n1").Return("notes/user_1/n1.json", nil).Once()

		resp, b := do(t, app, http.MethodPost, "/api/notes/delete", `{"id":" n1 "}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"ok":true,"id":"n1","key":"notes/user_1/n1.json"}`, string(b))
	})

	notes.AssertExpectations(t)
}

func TestFiles(t *testing.T) {
	files := new(serviceMocks.MockFileService)
	app := newTestApp(storage.NewMemory(""), Services{Files: files})

	t.Run("list folder", func(t *testing.T) {
		files.On("List", mock.Anything, "Taxes").Return("Taxes", listing.Listing{
			Prefix:  "Taxes/",
			Folders: []model.FolderNode{{Name: "2024", Prefix: "Taxes/2024/"}},
			Files:   []model.ListedObject{{Key: "Taxes/a.pdf", Name: "a.pdf", Size: 3}},
		}, nil).Once()

		resp, b := do(t, app, http.MethodGet, "/api/files/list?folder=Taxes", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var out map[string]any
		require.NoError(t, json.Unmarshal(b, &out))
		assert.Equal(t, "Taxes", out["folder"])
		assert.Equal(t, "Taxes/", out["prefix"])
		assert.Len(t, out["folders"], 1)
		assert.Len(t, out["items"], 1)
		assert.Equal(t, false, out["truncated"])
	})

	t.Run("list all omits folders", func(t *testing.T) {
		files.On("List", mock.Anything, listing.AllFolders).Return(listing.AllFolders, listing.Listing{
			Folders:   []model.FolderNode{},
			Files:     []model.ListedObject{},
			Truncated: true,
		}, nil).Once()

		_, b := do(t, app, http.MethodGet, "/api/files/list?folder=__all__", "")
		var out map[string]any
		require.NoError(t, json.Unmarshal(b, &out))
		assert.NotContains(t, out, "folders")
		assert.Equal(t, true, out["truncated"])
	})

	t.Run("presign and upload alias", func(t *testing.T) {
		tk := transfer.UploadTicket{Key: "Documents/a.pdf", URL: "https://x", Method: "PUT", ExpiresInSeconds: 600}
		files.On("PresignUpload", mock.Anything, "", "a.pdf", "application/pdf").Return(tk, nil).Twice()

		for _, path := range []string{"/api/files/presign", "/api/files/upload"} {
			resp, b := do(t, app, http.MethodPost, path, `{"fileName":"a.pdf","contentType":"application/pdf"}`)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			var got transfer.UploadTicket
			require.NoError(t, json.Unmarshal(b, &got))
			assert.Equal(t, tk, got)
		}
	})

	t.Run("presign-get invalid key", func(t *testing.T) {
		files.On("PresignDownload", mock.Anything, "../etc", transfer.Attachment).
			Return(transfer.DownloadTicket{}, service.ErrInvalidKey).Once()

		resp, b := do(t, app, http.MethodPost, "/api/files/presign-get", `{"key":"../etc","disposition":"attachment"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_key", decodeError(t, b).Error.Code)
	})

	t.Run("delete", func(t *testing.T) {
		files.On("Delete", mock.Anything, "Taxes/a.pdf").Return("Taxes/a.pdf", nil).Once()

		_, b := do(t, app, http.MethodPost, "/api/files/delete", `{"key":"Taxes/a.pdf"}`)
		assert.JSONEq(t, `{"ok":true,"key":"Taxes/a.pdf"}`, string(b))
	})

	files.AssertExpectations(t)
}

func TestContacts(t *testing.T) {
	contacts := new(serviceMocks.MockContactService)
	app := newTestApp(storage.NewMemory(""), Services{Contacts: contacts})

	t.Run("get default", func(t *testing.T) {
		contacts.On("Get", mock.Anything, "user_1").Return("contacts/user_1/contacts.json",
			&model.ContactsDoc{Kind: model.ContactsKind, Contacts: []model.Contact{}}, nil).Once()

		_, b := do(t, app, http.MethodGet, "/api/contacts/get", "")
		assert.JSONEq(t, `{"ok":true,"key":"contacts/user_1/contacts.json","updatedAt":null,"contacts":[]}`, string(b))
	})

	t.Run("save", func(t *testing.T) {
		ts := "2025-03-01T09:00:00.000Z"
		contacts.On("Save", mock.Anything, "user_1", json.RawMessage(`[{"id":"c1"}]`)).
			Return("k", &model.ContactsDoc{Contacts: []model.Contact{{ID: "c1"}}, UpdatedAt: &ts}, nil).Once()

		_, b := do(t, app, http.MethodPost, "/api/contacts/save", `{"contacts":[{"id":"c1"}]}`)
		assert.JSONEq(t, `{"ok":true,"key":"k","updatedAt":"2025-03-01T09:00:00.000Z","count":1}`, string(b))
	})

	t.Run("not an array", func(t *testing.T) {
		contacts.On("Save", mock.Anything, "user_1", json.RawMessage(`"nope"`)).
			Return("", nil, service.ErrInvalidContacts).Once()

		resp, b := do(t, app, http.MethodPost, "/api/contacts/save", `{"contacts":"nope"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "invalid_contacts", decodeError(t, b).Error.Code)
	})

	contacts.AssertExpectations(t)
}

func TestProjectionsAndTour(t *testing.T) {
	proj := new(serviceMocks.MockProjectionService)
	tour := new(serviceMocks.MockOnboardingService)
	app := newTestApp(storage.NewMemory(""), Services{Projections: proj, Onboarding: tour})

	proj.On("Save", mock.Anything, "user_1", mock.MatchedBy(func(in service.ProjectionInput) bool {
		return in.ID == "" && in.Inputs != nil && in.Inputs.Years == 10
	})).Return("projections/user_1/p1.json", &model.Projection{ID: "p1"}, nil).Once()

	_, b := do(t, app, http.MethodPost, "/api/projections/save", `{"inputs":{"years":10},"results":{},"series":[]}`)
	assert.JSONEq(t, `{"ok":true,"id":"p1","key":"projections/user_1/p1.json"}`, string(b))

	proj.On("List", mock.Anything, "user_1").Return([]model.Projection{{ID: "p1"}}, nil).Once()
	_, b = do(t, app, http.MethodGet, "/api/projections/list", "")
	var listed struct {
		Projections []model.Projection `json:"projections"`
	}
	require.NoError(t, json.Unmarshal(b, &listed))
	assert.Len(t, listed.Projections, 1)

	ts := "2025-03-01T09:00:00.000Z"
	tour.On("TourStatus", mock.Anything, "user_1").
		Return(&model.TourStatus{RequiredVersion: 1}, nil).Once()
	_, b = do(t, app, http.MethodGet, "/api/onboarding/tour", "")
	assert.JSONEq(t, `{"ok":true,"seen":false,"version":0,"requiredVersion":1,"completedAt":null}`, string(b))

	tour.On("MarkTour", mock.Anything, "user_1", "skipped").
		Return(&model.TourStatus{Seen: true, Version: 1, RequiredVersion: 1, CompletedAt: &ts}, nil).Once()
	_, b = do(t, app, http.MethodPost, "/api/onboarding/tour", `{"action":"skipped"}`)
	assert.JSONEq(t, `{"ok":true,"seen":true,"version":1,"completedAt":"2025-03-01T09:00:00.000Z"}`, string(b))

	proj.AssertExpectations(t)
	tour.AssertExpectations(t)
}

func TestNotesEndToEnd(t *testing.T) {
	mem := storage.NewMemory("")
	codec := keys.New("unity")
	clock := testutil.FixedClock()
	lister := listing.New(mem, codec, 0)
	app := newTestApp(mem, Services{
		Notes: service.NewNoteService(mem, lister, codec, clock, 0),
	})

	resp, _ := do(t, app, http.MethodPost, "/api/notes/save", `{"id":"abc123","content":"Groceries\nMilk, eggs"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, b := do(t, app, http.MethodGet, "/api/notes/get?id=abc123", "")
	var got struct {
		Note model.Note `json:"note"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "Groceries", got.Note.Title)

	// stored under the authenticated tenant only
	rc, _, err := mem.Get(context.Background(), "unity/notes/user_1/abc123.json")
	require.NoError(t, err)
	rc.Close()
}
