package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"vaultapi/internal/keys"
	"vaultapi/internal/model"
	"vaultapi/internal/storage"
)

// MaxContacts is the largest contact book accepted by Save.
const MaxContacts = 5000

const contactsFile = "contacts.json"

// Field caps, in characters.
const (
	maxFullName     = 120
	maxRole         = 80
	maxPhone        = 60
	maxEmail        = 254
	maxPrivateNotes = 8000
	maxTimestamp    = 80
)

// ContactService defines the use cases for a tenant's contact book.
type ContactService interface {
	// Get returns the contact book, or an empty one when none was saved yet.
	Get(ctx context.Context, tenant string) (string, *model.ContactsDoc, error)
	// Save replaces the contact book with the sanitized entries of raw, which must be a JSON array.
	// Entries without a valid id are dropped.
	Save(ctx context.Context, tenant string, raw json.RawMessage) (string, *model.ContactsDoc, error)
}

type contactService struct {
	store storage.Storage
	codec keys.Codec
	clock Clock
}

// NewContactService constructs a new ContactService.
func NewContactService(store storage.Storage, codec keys.Codec, clock Clock) ContactService {
	if clock == nil {
		clock = RealClock{}
	}
	return &contactService{store: store, codec: codec, clock: clock}
}

func (s *contactService) key(tenant string) string {
	return s.codec.DeriveKey(keys.CategoryContacts, tenant, contactsFile)
}

func (s *contactService) Get(ctx context.Context, tenant string) (string, *model.ContactsDoc, error) {
	key := s.key(tenant)
	out := &model.ContactsDoc{Kind: model.ContactsKind, Contacts: []model.Contact{}}

	b, err := storage.GetBytes(ctx, s.store, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return key, out, nil
		}
		return "", nil, fmt.Errorf("get contacts: %w", err)
	}
	doc, err := decodeFields(b)
	if err != nil {
		return key, out, nil
	}

	if v, ok := doc.str("updatedAt"); ok {
		out.UpdatedAt = strPtr(v)
	}
	if k, ok := doc.str("kind"); ok && k != "" {
		out.Kind = k
	}
	list, _ := doc["contacts"].([]any)
	for _, item := range list {
		if c, ok := contactFrom(item); ok {
			out.Contacts = append(out.Contacts, c)
		}
	}
	return key, out, nil
}

func (s *contactService) Save(ctx context.Context, tenant string, raw json.RawMessage) (string, *model.ContactsDoc, error) {
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil || list == nil {
		return "", nil, ErrInvalidContacts
	}
	if len(list) > MaxContacts {
		return "", nil, ErrTooManyContacts
	}

	now := formatTime(s.clock.Now())
	doc := &model.ContactsDoc{
		Kind:      model.ContactsKind,
		UserID:    tenant,
		Contacts:  make([]model.Contact, 0, len(list)),
		UpdatedAt: strPtr(now),
	}
	for _, item := range list {
		c, ok := contactFrom(item)
		if !ok {
			continue
		}
		if c.CreatedAt == "" {
			c.CreatedAt = now
		}
		c.UpdatedAt = now
		doc.Contacts = append(doc.Contacts, c)
	}

	key := s.key(tenant)
	if _, err := storage.PutJSON(ctx, s.store, key, doc); err != nil {
		return "", nil, fmt.Errorf("save contacts: %w", err)
	}
	return key, doc, nil
}

// contactFrom sanitizes one untrusted contact. It reports false when the entry is not an
// object or has no valid id.
func contactFrom(v any) (model.Contact, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		return model.Contact{}, false
	}
	f := fields(obj)
	id := clip(f, "id", keys.MaxIDLen)
	if !keys.IsSafeID(id) {
		return model.Contact{}, false
	}
	return model.Contact{
		ID:           id,
		FullName:     clip(f, "fullName", maxFullName),
		Role:         clip(f, "role", maxRole),
		Phone:        clip(f, "phone", maxPhone),
		Email:        clip(f, "email", maxEmail),
		PrivateNotes: clip(f, "privateNotes", maxPrivateNotes),
		CreatedAt:    clip(f, "createdAt", maxTimestamp),
		UpdatedAt:    clip(f, "updatedAt", maxTimestamp),
	}, true
}

// clip returns the trimmed string field name capped at n characters, or "" when the
// field is absent or not a string.
func clip(f fields, name string, n int) string {
	s, ok := f.str(name)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) > n {
		s = string([]rune(s)[:n])
	}
	return s
}
