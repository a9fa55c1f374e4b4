package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"vaultapi/internal/keys"
	"vaultapi/internal/listing"
	"vaultapi/internal/model"
	"vaultapi/internal/storage"
	"vaultapi/internal/workpool"
)

// DefaultTitleWorkers caps concurrent body reads while listing notes.
const DefaultTitleWorkers = 6

const maxTitleLen = 80

// NoteService defines the use cases for a tenant's notes.
type NoteService interface {
	// List returns every note under the tenant's prefix (bounded by the lister cap), newest first.
	// A note whose body cannot be read is still listed, with a placeholder title.
	List(ctx context.Context, tenant string) ([]model.NoteSummary, error)

	// Get returns a single note. A missing note is ErrNotFound.
	Get(ctx context.Context, tenant, id string) (*model.Note, error)

	// Save overwrites the note, deriving its title and keeping the createdAt of a previous version.
	Save(ctx context.Context, tenant, id, content string) (string, *model.Note, error)

	// Delete removes the note and returns its key. Deleting a missing note succeeds.
	Delete(ctx context.Context, tenant, id string) (string, error)
}

type noteService struct {
	store   storage.Storage
	lister  *listing.Lister
	codec   keys.Codec
	clock   Clock
	workers int
}

// NewNoteService constructs a new NoteService.
func NewNoteService(store storage.Storage, lister *listing.Lister, codec keys.Codec, clock Clock, workers int) NoteService {
	if workers <= 0 {
		workers = DefaultTitleWorkers
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &noteService{store: store, lister: lister, codec: codec, clock: clock, workers: workers}
}

func (s *noteService) List(ctx context.Context, tenant string) ([]model.NoteSummary, error) {
	res, err := s.lister.List(ctx, s.codec.CategoryPrefix(keys.CategoryNotes, tenant), "")
	if err != nil {
		return nil, err
	}

	type item struct {
		id  string
		obj model.ListedObject
	}
	items := make([]item, 0, len(res.Files))
	for _, f := range res.Files {
		if id, ok := keys.IDFromKey(f.Key); ok {
			items = append(items, item{id: id, obj: f})
		}
	}

	notes, err := workpool.Map(ctx, items, s.workers, func(ctx context.Context, it item) (model.NoteSummary, error) {
		return s.summarize(ctx, it.id, it.obj), nil
	})
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	sort.SliceStable(notes, func(i, j int) bool {
		return sortKey(notes[i]).After(sortKey(notes[j]))
	})
	return notes, nil
}

// summarize never fails: an unreadable body yields the placeholder title and the object's
// lastModified for both timestamps.
func (s *noteService) summarize(ctx context.Context, id string, obj model.ListedObject) model.NoteSummary {
	var lastModified *string
	if obj.LastModified != nil {
		lastModified = strPtr(formatTime(*obj.LastModified))
	}
	sum := model.NoteSummary{
		ID:           id,
		Key:          obj.Key,
		Title:        model.UntitledNote,
		Size:         obj.Size,
		CreatedAt:    lastModified,
		UpdatedAt:    lastModified,
		LastModified: lastModified,
	}

	b, err := storage.GetBytes(ctx, s.store, obj.Key)
	if err != nil {
		return sum
	}
	doc, err := decodeFields(b)
	if err != nil {
		return sum
	}
	sum.Title = titleOf(doc)
	if v, ok := doc.str("createdAt"); ok {
		sum.CreatedAt = strPtr(v)
	}
	if v, ok := doc.str("updatedAt"); ok {
		sum.UpdatedAt = strPtr(v)
	}
	return sum
}

// sortKey is updatedAt, falling back to lastModified. Unparseable values sort last.
func sortKey(n model.NoteSummary) time.Time {
	for _, s := range []*string{n.UpdatedAt, n.LastModified} {
		if s == nil {
			continue
		}
		if v, ok := parseTime(*s); ok {
			return v
		}
	}
	return time.Time{}
}

func (s *noteService) Get(ctx context.Context, tenant, id string) (*model.Note, error) {
	id = strings.TrimSpace(id)
	if !keys.IsSafeID(id) {
		return nil, ErrInvalidID
	}
	key := s.codec.DocumentKey(keys.CategoryNotes, tenant, id)

	b, err := storage.GetBytes(ctx, s.store, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get note: %w", err)
	}
	doc, err := decodeFields(b)
	if err != nil {
		return nil, fmt.Errorf("decode note %s: %w", key, err)
	}

	note := &model.Note{ID: id, Title: titleOf(doc)}
	note.Content, _ = doc.str("content")
	if v, ok := doc.str("createdAt"); ok {
		note.CreatedAt = strPtr(v)
	}
	if v, ok := doc.str("updatedAt"); ok {
		note.UpdatedAt = v
	} else {
		note.UpdatedAt = formatTime(s.clock.Now())
	}
	return note, nil
}

func (s *noteService) Save(ctx context.Context, tenant, id, content string) (string, *model.Note, error) {
	id = strings.TrimSpace(id)
	if !keys.IsSafeID(id) {
		return "", nil, ErrInvalidID
	}
	key := s.codec.DocumentKey(keys.CategoryNotes, tenant, id)

	createdAt, err := existingCreatedAt(ctx, s.store, key)
	if err != nil {
		return "", nil, err
	}
	now := formatTime(s.clock.Now())
	if createdAt == "" {
		createdAt = now
	}

	note := &model.Note{
		ID:        id,
		Title:     DeriveTitle(content),
		Content:   content,
		CreatedAt: strPtr(createdAt),
		UpdatedAt: now,
	}
	if _, err := storage.PutJSON(ctx, s.store, key, note); err != nil {
		return "", nil, fmt.Errorf("save note: %w", err)
	}
	return key, note, nil
}

// existingCreatedAt returns the createdAt of the document at key, or "" when there is no
// previous document or it carries no usable createdAt.
func existingCreatedAt(ctx context.Context, store storage.Storage, key string) (string, error) {
	b, err := storage.GetBytes(ctx, store, key)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("read previous %s: %w", key, err)
	}
	doc, err := decodeFields(b)
	if err != nil {
		return "", nil
	}
	v, _ := doc.str("createdAt")
	return v, nil
}

func (s *noteService) Delete(ctx context.Context, tenant, id string) (string, error) {
	id = strings.TrimSpace(id)
	if !keys.IsSafeID(id) {
		return "", ErrInvalidID
	}
	key := s.codec.DocumentKey(keys.CategoryNotes, tenant, id)
	if err := s.store.Delete(ctx, key); err != nil {
		return "", fmt.Errorf("delete note: %w", err)
	}
	return key, nil
}

// DeriveTitle returns the first non-blank line of content, trimmed and capped at 80
// characters, or the placeholder when there is none.
func DeriveTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxTitleLen {
			line = strings.TrimSpace(string([]rune(line)[:maxTitleLen]))
		}
		return line
	}
	return model.UntitledNote
}

// titleOf prefers a stored title, then a title derived from stored content.
func titleOf(doc fields) string {
	title := model.UntitledNote
	if v, ok := doc.str("title"); ok {
		title = v
	} else if v, ok := doc.str("content"); ok {
		title = DeriveTitle(v)
	}
	if title = strings.TrimSpace(title); title == "" {
		return model.UntitledNote
	}
	return title
}
