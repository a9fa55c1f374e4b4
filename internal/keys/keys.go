// Package keys maps logical documents onto storage keys.
//
// Keys have the shape [prefix/]category/tenant/name. Everything that comes from a client
// (tenant ids issued by the identity provider, note ids, file names, folder names and raw keys)
// passes through this package before it is allowed near the object store.
package keys

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// Document categories.
const (
	CategoryNotes       = "notes"
	CategoryContacts    = "contacts"
	CategoryProjections = "projections"
	CategoryOnboarding  = "onboarding"
)

var categories = []string{CategoryNotes, CategoryContacts, CategoryProjections, CategoryOnboarding}

const (
	// DefaultFolder is used when a client folder name is empty or unsafe.
	DefaultFolder = "Documents"
	// FallbackName replaces file names that sanitize to nothing.
	FallbackName = "file"
	// encodedTenantMark starts every encoded tenant segment. It is outside the id alphabet,
	// so encoded and verbatim segments never meet.
	encodedTenantMark = "~"

	MaxNameLen   = 180
	MaxTenantLen = 120
	MaxIDLen     = 80
	MaxKeyLen    = 1024

	JSONExt = ".json"
)

// Codec derives keys under an optional global prefix. The zero value has no prefix.
type Codec struct {
	prefix string
}

// New returns a Codec rooted at prefix. Surrounding spaces and slashes are dropped.
func New(prefix string) Codec {
	return Codec{prefix: trimSlashes(prefix)}
}

// Prefix returns the normalized global prefix, without a trailing slash.
func (c Codec) Prefix() string { return c.prefix }

// RootPrefix is the listing prefix covering every key of this codec ("" or "prefix/").
func (c Codec) RootPrefix() string {
	if c.prefix == "" {
		return ""
	}
	return c.prefix + "/"
}

// DeriveKey builds [prefix/]category/tenant/name with tenant and name sanitized.
func (c Codec) DeriveKey(category, tenant, name string) string {
	return c.join(category, SafeTenant(tenant), SafeName(name))
}

// DocumentKey is DeriveKey for a JSON document addressed by id.
func (c Codec) DocumentKey(category, tenant, id string) string {
	return c.DeriveKey(category, tenant, id+JSONExt)
}

// CategoryPrefix is the listing prefix for one tenant's documents of a category.
func (c Codec) CategoryPrefix(category, tenant string) string {
	return c.join(category, SafeTenant(tenant)) + "/"
}

// IsDocumentKey reports whether key falls in a tenant document category, below the global
// prefix or at the bucket root. The file endpoints refuse such keys.
func (c Codec) IsDocumentKey(key string) bool {
	key = strings.TrimSpace(key)
	if root := c.RootPrefix(); root != "" && strings.HasPrefix(key, root) {
		if isCategory(firstSegment(strings.TrimPrefix(key, root))) {
			return true
		}
	}
	return isCategory(firstSegment(key))
}

// FolderKey builds [prefix/]folder/name for user-uploaded files.
func (c Codec) FolderKey(folder, name string) string {
	return c.join(NormalizeFolder(folder), SafeName(name))
}

// FolderPrefix is the listing prefix for a user folder.
func (c Codec) FolderPrefix(folder string) string {
	return c.join(NormalizeFolder(folder)) + "/"
}

// RelativePath returns the directory portion of key below the global prefix,
// e.g. "Bank Statements/2024" for "prefix/Bank Statements/2024/jan.pdf".
func (c Codec) RelativePath(key string) string {
	rest := strings.TrimPrefix(key, c.RootPrefix())
	i := strings.LastIndex(rest, "/")
	if i < 0 {
		return ""
	}
	return rest[:i]
}

func (c Codec) join(parts ...string) string {
	base := strings.Join(parts, "/")
	if c.prefix == "" {
		return base
	}
	return c.prefix + "/" + base
}

// SafeName keeps only the final path segment of name, trimmed and capped at MaxNameLen
// characters. Dot-dot sequences are collapsed so the result can never form a traversal
// segment.
func SafeName(name string) string {
	s := lastSegment(name)
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	s = strings.TrimSpace(truncate(s, MaxNameLen))
	if s == "" || s == "." {
		return FallbackName
	}
	return s
}

// SafeTenant maps a tenant id to a key segment. Ids of 1..MaxTenantLen characters of
// [A-Za-z0-9_-] are used verbatim; anything else becomes "~" plus its unpadded base64url
// encoding. The mapping is injective, so distinct tenants never share a key root.
// Surrounding spaces are not part of a tenant id.
func SafeTenant(tenant string) string {
	s := strings.TrimSpace(tenant)
	if isIDString(s, MaxTenantLen) {
		return s
	}
	return encodedTenantMark + base64.RawURLEncoding.EncodeToString([]byte(s))
}

// NormalizeFolder trims spaces and surrounding slashes. Empty folders, folders containing
// ".." and folders inside a document category become DefaultFolder.
func NormalizeFolder(folder string) string {
	s := trimSlashes(strings.ReplaceAll(folder, "\\", "/"))
	if s == "" || strings.Contains(s, "..") || isCategory(firstSegment(s)) {
		return DefaultFolder
	}
	return s
}

// IDFromKey extracts the document id from a key ending in "<id>.json".
// Keys of any other shape report false so listers can skip them.
func IDFromKey(key string) (string, bool) {
	base := lastSegment(key)
	if !strings.HasSuffix(base, JSONExt) {
		return "", false
	}
	id := strings.TrimSuffix(base, JSONExt)
	if !IsSafeID(id) {
		return "", false
	}
	return id, true
}

// IsSafeID reports whether id is 1..MaxIDLen characters of [A-Za-z0-9_-].
func IsSafeID(id string) bool {
	return isIDString(id, MaxIDLen)
}

func isIDString(s string, max int) bool {
	if s == "" || len(s) > max {
		return false
	}
	for _, r := range s {
		if !isIDRune(r) {
			return false
		}
	}
	return true
}

// IsSafeKey rejects empty keys, keys containing "..", and absolute keys.
func IsSafeKey(key string) bool {
	if key == "" || len(key) > MaxKeyLen {
		return false
	}
	if strings.Contains(key, "..") {
		return false
	}
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, "\\") {
		return false
	}
	return true
}

// FileNameFromKey returns the last segment of key suitable for a Content-Disposition
// filename parameter: quotes and line breaks are removed.
func FileNameFromKey(key string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '"', '\r', '\n':
			return -1
		}
		return r
	}, lastSegment(key))
	name = strings.TrimSpace(name)
	if name == "" {
		return FallbackName
	}
	return name
}

func lastSegment(s string) string {
	s = strings.ReplaceAll(s, "\\", "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

func firstSegment(s string) string {
	seg, _, _ := strings.Cut(s, "/")
	return seg
}

func isCategory(seg string) bool {
	for _, c := range categories {
		if seg == c {
			return true
		}
	}
	return false
}

func trimSlashes(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "/"))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

func isIDRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '-'
}
