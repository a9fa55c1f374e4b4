// Package client is a typed HTTP client for the vault API, plus direct transfers against
// presigned URLs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vaultapi/internal/model"
	"vaultapi/internal/service"
	"vaultapi/internal/transfer"
)

// HTTPError is a non-2xx answer, decoded from the API error envelope when present.
type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusNotFound
}

// DefaultTimeout bounds each API call. Direct transfers have no client timeout and are
// bounded by their context only.
const DefaultTimeout = 30 * time.Second

// Client calls the vault API. It is safe for concurrent use.
type Client struct {
	baseURL        string
	token          string
	tenantHeader   string
	tenant         string
	httpClient     *http.Client
	transferClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken authenticates with a bearer token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// WithTenantHeader sends the tenant in a plain header, for servers running in header auth mode.
func WithTenantHeader(header, tenant string) Option {
	return func(c *Client) {
		c.tenantHeader = header
		c.tenant = tenant
	}
}

// WithHTTPClient replaces the underlying client. Its transport is still wrapped for tracing.
// Direct transfers share the transport but drop the timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New returns a Client rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	c := &Client{baseURL: baseURL}
	for _, o := range opts {
		o(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	hc := *c.httpClient
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = otelhttp.NewTransport(base)
	c.httpClient = &hc

	tc := hc
	tc.Timeout = 0
	c.transferClient = &tc
	return c
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.tenantHeader != "" {
		req.Header.Set(c.tenantHeader, c.tenant)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	payload, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return err
	}

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if out == nil || len(payload) == 0 {
			return nil
		}
		return json.Unmarshal(payload, out)
	}

	var env struct {
		RequestID string `json:"request_id"`
		Error     struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	he := &HTTPError{StatusCode: resp.StatusCode}
	if json.Unmarshal(payload, &env) == nil && env.Error.Code != "" {
		he.Code, he.Message, he.RequestID = env.Error.Code, env.Error.Message, env.RequestID
	} else {
		he.Message = strings.TrimSpace(string(payload))
	}
	return he
}

// FileList is one folder (or the flat __all__ view) of user files.
type FileList struct {
	Folder    string               `json:"folder"`
	Prefix    string               `json:"prefix"`
	Folders   []model.FolderNode   `json:"folders"`
	Items     []model.ListedObject `json:"items"`
	Truncated bool                 `json:"truncated"`
}

func (c *Client) ListFiles(ctx context.Context, folder string) (*FileList, error) {
	var out FileList
	q := url.Values{"folder": {folder}}
	if err := c.doJSON(ctx, http.MethodGet, "/api/files/list?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PresignUpload(ctx context.Context, folder, fileName, contentType string) (*transfer.UploadTicket, error) {
	var out transfer.UploadTicket
	body := map[string]string{"folder": folder, "fileName": fileName, "contentType": contentType}
	if err := c.doJSON(ctx, http.MethodPost, "/api/files/presign", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PresignDownload(ctx context.Context, key string, disposition transfer.Disposition) (*transfer.DownloadTicket, error) {
	var out transfer.DownloadTicket
	body := map[string]string{"key": key, "disposition": string(disposition)}
	if err := c.doJSON(ctx, http.MethodPost, "/api/files/presign-get", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteFile removes a file and returns the key the server deleted.
func (c *Client) DeleteFile(ctx context.Context, key string) (string, error) {
	var out struct {
		Key string `json:"key"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/files/delete", map[string]string{"key": key}, &out); err != nil {
		return "", err
	}
	return out.Key, nil
}

func (c *Client) ListNotes(ctx context.Context) ([]model.NoteSummary, error) {
	var out struct {
		Notes []model.NoteSummary `json:"notes"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/notes/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Notes, nil
}

func (c *Client) GetNote(ctx context.Context, id string) (*model.Note, error) {
	var out struct {
		Note *model.Note `json:"note"`
	}
	q := url.Values{"id": {id}}
	if err := c.doJSON(ctx, http.MethodGet, "/api/notes/get?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out.Note, nil
}

// SaveNote overwrites a note and returns the stored version.
func (c *Client) SaveNote(ctx context.Context, id, content string) (*model.Note, error) {
	var out struct {
		Note *model.Note `json:"note"`
	}
	body := map[string]string{"id": id, "content": content}
	if err := c.doJSON(ctx, http.MethodPost, "/api/notes/save", body, &out); err != nil {
		return nil, err
	}
	return out.Note, nil
}

func (c *Client) DeleteNote(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/notes/delete", map[string]string{"id": id}, nil)
}

// ContactBook is the contact list as returned by the API.
type ContactBook struct {
	Key       string          `json:"key"`
	UpdatedAt *string         `json:"updatedAt"`
	Contacts  []model.Contact `json:"contacts"`
}

func (c *Client) GetContacts(ctx context.Context) (*ContactBook, error) {
	var out ContactBook
	if err := c.doJSON(ctx, http.MethodGet, "/api/contacts/get", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SaveContacts replaces the contact book and returns the number of entries kept.
func (c *Client) SaveContacts(ctx context.Context, contacts []model.Contact) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	body := map[string]any{"contacts": contacts}
	if err := c.doJSON(ctx, http.MethodPost, "/api/contacts/save", body, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// SaveProjection stores a projection and returns its id.
func (c *Client) SaveProjection(ctx context.Context, in service.ProjectionInput) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/projections/save", in, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (c *Client) ListProjections(ctx context.Context) ([]model.Projection, error) {
	var out struct {
		Projections []model.Projection `json:"projections"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/projections/list", nil, &out); err != nil {
		return nil, err
	}
	return out.Projections, nil
}

func (c *Client) TourStatus(ctx context.Context) (*model.TourStatus, error) {
	var out model.TourStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/onboarding/tour", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkTour records the welcome tour as "completed" or "skipped".
func (c *Client) MarkTour(ctx context.Context, action string) (*model.TourStatus, error) {
	var out model.TourStatus
	if err := c.doJSON(ctx, http.MethodPost, "/api/onboarding/tour", map[string]string{"action": action}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
