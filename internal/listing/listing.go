// Package listing turns bounded object store listings into folder and file views.
package listing

import (
	"context"
	"fmt"
	"strings"

	"vaultapi/internal/keys"
	"vaultapi/internal/model"
	"vaultapi/internal/storage"
)

// AllFolders is the folder value that selects the flat, every-folder listing.
const AllFolders = "__all__"

// Listing is one bounded page of a prefix. Files carry no ordering guarantee.
type Listing struct {
	Prefix    string
	Folders   []model.FolderNode
	Files     []model.ListedObject
	Truncated bool
}

// Lister reads listings through a Storage and a key Codec.
type Lister struct {
	store   storage.Storage
	codec   keys.Codec
	maxKeys int
}

// New returns a Lister capped at maxKeys entries per call (storage.DefaultMaxKeys when <= 0).
func New(store storage.Storage, codec keys.Codec, maxKeys int) *Lister {
	if maxKeys <= 0 {
		maxKeys = storage.DefaultMaxKeys
	}
	return &Lister{store: store, codec: codec, maxKeys: maxKeys}
}

// List returns the entries under prefix. With a delimiter, keys below the next segment are
// grouped into Folders and only direct children become Files. Without one, every key is
// returned flat and annotated with its path relative to the global prefix.
// The directory marker (a key equal to prefix) is never returned.
func (l *Lister) List(ctx context.Context, prefix, delimiter string) (Listing, error) {
	res, err := l.store.List(ctx, storage.ListOptions{
		Prefix:    prefix,
		Delimiter: delimiter,
		MaxKeys:   l.maxKeys,
	})
	if err != nil {
		return Listing{}, fmt.Errorf("list %q: %w", prefix, err)
	}

	out := Listing{
		Prefix:    prefix,
		Folders:   []model.FolderNode{},
		Files:     make([]model.ListedObject, 0, len(res.Objects)),
		Truncated: res.Truncated,
	}
	for _, cp := range res.CommonPrefixes {
		name := strings.TrimSuffix(strings.TrimPrefix(cp, prefix), delimiter)
		if name == "" {
			continue
		}
		out.Folders = append(out.Folders, model.FolderNode{Name: name, Prefix: cp})
	}
	for _, obj := range res.Objects {
		if obj.Key == prefix {
			continue
		}
		item := model.ListedObject{
			Key:  obj.Key,
			Name: lastSegment(obj.Key),
			Size: obj.Size,
		}
		if !obj.LastModified.IsZero() {
			lm := obj.LastModified.UTC()
			item.LastModified = &lm
		}
		if delimiter == "" {
			p := l.codec.RelativePath(obj.Key)
			item.Path = &p
		}
		out.Files = append(out.Files, item)
	}
	return out, nil
}

// ListAll returns every user file under the global prefix, flat. Tenant documents share the
// prefix and are left out; they still count against the key cap.
func (l *Lister) ListAll(ctx context.Context) (Listing, error) {
	res, err := l.List(ctx, l.codec.RootPrefix(), "")
	if err != nil {
		return res, err
	}
	files := res.Files[:0]
	for _, f := range res.Files {
		if !l.codec.IsDocumentKey(f.Key) {
			files = append(files, f)
		}
	}
	res.Files = files
	return res, nil
}

// ListFolder lists a user folder one level deep. An empty folder, "*" or AllFolders selects
// ListAll. The returned name is the normalized folder, or AllFolders.
func (l *Lister) ListFolder(ctx context.Context, folder string) (string, Listing, error) {
	if IsAllFolders(folder) {
		res, err := l.ListAll(ctx)
		return AllFolders, res, err
	}
	name := keys.NormalizeFolder(folder)
	res, err := l.List(ctx, l.codec.FolderPrefix(name), "/")
	return name, res, err
}

// IsAllFolders reports whether folder selects the flat listing.
func IsAllFolders(folder string) bool {
	switch strings.TrimSpace(folder) {
	case "", "*", AllFolders:
		return true
	}
	return false
}

func lastSegment(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
