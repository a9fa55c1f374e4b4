package keys

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveKey(t *testing.T) {
	tests := []struct {
		name     string
		prefix   string
		category string
		tenant   string
		file     string
		want     string
	}{
		{"plain", "", CategoryNotes, "user_1", "abc.json", "notes/user_1/abc.json"},
		{"global prefix trimmed", " /unity/ ", CategoryContacts, "u", "contacts.json", "unity/contacts/u/contacts.json"},
		{"directory components dropped", "", CategoryNotes, "u", "../../etc/passwd", "notes/u/passwd"},
		{"windows separators", "", CategoryNotes, "u", `C:\tmp\report.pdf`, "notes/u/report.pdf"},
		{"empty name", "", CategoryNotes, "u", "   ", "notes/u/file"},
		{"dot dot name", "", CategoryNotes, "u", "..", "notes/u/file"},
		{"embedded dot dot collapsed", "", CategoryNotes, "u", "a..b", "notes/u/a.b"},
		{"tenant encoded", "", CategoryNotes, "user|2/../x", "n.json", "notes/~dXNlcnwyLy4uL3g/n.json"},
		{"email tenant encoded", "", CategoryNotes, "alice@example.com", "n.json", "notes/~YWxpY2VAZXhhbXBsZS5jb20/n.json"},
		{"tenant spaces trimmed", "", CategoryNotes, " user_1 ", "n.json", "notes/user_1/n.json"},
		{"empty tenant", "", CategoryNotes, "", "n.json", "notes/~/n.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.prefix).DeriveKey(tt.category, tt.tenant, tt.file)
			assert.Equal(t, tt.want, got)
			assert.True(t, IsSafeKey(got))
		})
	}
}

func TestDeriveKey_NeverUnsafe(t *testing.T) {
	inputs := []string{"..", "../..", "/abs", "a/../b", "....", ". .", "\\..\\..", "x/..", "..json"}
	c := New("root")
	for _, in := range inputs {
		key := c.DeriveKey(CategoryNotes, in, in)
		assert.True(t, IsSafeKey(key), "input %q produced %q", in, key)
		key = c.FolderKey(in, in)
		assert.True(t, IsSafeKey(key), "input %q produced %q", in, key)
	}
}

func TestSafeTenant_Distinct(t *testing.T) {
	long := strings.Repeat("a", MaxTenantLen)
	tenants := []string{
		"alice@example.com", "alice_example_com", "alice.example.com",
		"user", "", "~", "~YWxpY2VAZXhhbXBsZS5jb20",
		long, long + "a", long + "b",
		"ä", "a", "A",
	}
	c := New("p")
	seen := map[string]string{}
	for _, tn := range tenants {
		prefix := c.CategoryPrefix(CategoryNotes, tn)
		if prev, dup := seen[prefix]; dup {
			t.Fatalf("tenants %q and %q share prefix %q", prev, tn, prefix)
		}
		seen[prefix] = tn
		assert.True(t, IsSafeKey(prefix+"x.json"), prefix)
	}
}

func TestSafeName_Truncates(t *testing.T) {
	long := strings.Repeat("é", MaxNameLen+20)
	got := SafeName(long)
	assert.Equal(t, MaxNameLen, len([]rune(got)))
}

func TestDocumentKeyAndPrefixes(t *testing.T) {
	c := New("p")
	assert.Equal(t, "p/notes/u/abc123.json", c.DocumentKey(CategoryNotes, "u", "abc123"))
	assert.Equal(t, "p/notes/u/", c.CategoryPrefix(CategoryNotes, "u"))
	assert.Equal(t, "p/Bank Statements/", c.FolderPrefix("/Bank Statements/"))
	assert.Equal(t, "p/Documents/x.pdf", c.FolderKey("../secret", "x.pdf"))
	assert.Equal(t, "p/", c.RootPrefix())
	assert.Equal(t, "", New("").RootPrefix())
	assert.Equal(t, "p", c.Prefix())
	assert.Equal(t, "a/b", New("/a/b/").Prefix())
}

func TestIsDocumentKey(t *testing.T) {
	c := New("p")
	for _, k := range []string{"p/notes/u/a.json", "p/contacts/u/contacts.json", " p/projections/u/x.json", "p/onboarding/u/tour.json", "notes/u/a.json"} {
		assert.True(t, c.IsDocumentKey(k), k)
	}
	for _, k := range []string{"p/Documents/a.pdf", "p/Notes/a.pdf", "p/notes-old/a.pdf", "Documents/notes/a.pdf", "p/loose.txt"} {
		assert.False(t, c.IsDocumentKey(k), k)
	}
	assert.True(t, New("").IsDocumentKey("contacts/u/contacts.json"))
}

func TestNormalizeFolder(t *testing.T) {
	assert.Equal(t, DefaultFolder, NormalizeFolder(""))
	assert.Equal(t, DefaultFolder, NormalizeFolder(" / "))
	assert.Equal(t, DefaultFolder, NormalizeFolder("a/../b"))
	assert.Equal(t, "Taxes/2024", NormalizeFolder("/Taxes/2024/"))
	assert.Equal(t, DefaultFolder, NormalizeFolder("notes"))
	assert.Equal(t, DefaultFolder, NormalizeFolder("/contacts/u"))
	assert.Equal(t, "Notes", NormalizeFolder("Notes"))
	assert.Equal(t, "notes-2024", NormalizeFolder("notes-2024"))
}

func TestIDFromKey(t *testing.T) {
	id, ok := IDFromKey("p/notes/u/abc123.json")
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)

	for _, key := range []string{"notes/u/", "notes/u/readme.txt", "notes/u/bad id.json", "notes/u/.json", "notes/u/" + strings.Repeat("a", MaxIDLen+1) + ".json"} {
		_, ok := IDFromKey(key)
		assert.False(t, ok, key)
	}
}

func TestIsSafeID(t *testing.T) {
	assert.True(t, IsSafeID("abc_123-XYZ"))
	assert.True(t, IsSafeID(strings.Repeat("a", MaxIDLen)))
	assert.False(t, IsSafeID(""))
	assert.False(t, IsSafeID(strings.Repeat("a", MaxIDLen+1)))
	assert.False(t, IsSafeID("../x"))
	assert.False(t, IsSafeID("a.b"))
	assert.False(t, IsSafeID("a b"))
	assert.False(t, IsSafeID("ünï"))
}

func TestIsSafeKey(t *testing.T) {
	assert.True(t, IsSafeKey("Documents/file.pdf"))
	assert.False(t, IsSafeKey(""))
	assert.False(t, IsSafeKey("/etc/passwd"))
	assert.False(t, IsSafeKey(`\windows`))
	assert.False(t, IsSafeKey("Documents/../notes/u/x.json"))
	assert.False(t, IsSafeKey(strings.Repeat("k", MaxKeyLen+1)))
}

func TestFileNameFromKey(t *testing.T) {
	assert.Equal(t, "report.pdf", FileNameFromKey("Documents/report.pdf"))
	assert.Equal(t, `evilx.pdf`, FileNameFromKey(`Documents/evil"x.pdf`))
	assert.Equal(t, "ab", FileNameFromKey("Documents/a\r\nb"))
	assert.Equal(t, FallbackName, FileNameFromKey("Documents/"))
}

func TestRelativePath(t *testing.T) {
	c := New("root")
	assert.Equal(t, "Taxes/2024", c.RelativePath("root/Taxes/2024/w2.pdf"))
	assert.Equal(t, "", c.RelativePath("root/loose.txt"))
	assert.Equal(t, "Documents", New("").RelativePath("Documents/a.txt"))
}
