package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func TestPutJSON_GetJSON(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("")

	info, err := PutJSON(ctx, m, "d.json", doc{Title: "x", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, ContentTypeJSON, info.ContentType)

	var got doc
	require.NoError(t, GetJSON(ctx, m, "d.json", &got))
	assert.Equal(t, doc{Title: "x", Count: 2}, got)

	text, err := GetText(ctx, m, "d.json")
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x","count":2}`, text)
}

func TestGetJSON_Missing(t *testing.T) {
	var got doc
	err := GetJSON(context.Background(), NewMemory(""), "nope.json", &got)
	assert.True(t, IsNotFound(err))
}

func TestGetJSON_EmptyBody(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("")
	_, err := m.Put(ctx, "e.json", strings.NewReader("  "), PutObjectOptions{Size: 2})
	require.NoError(t, err)

	got := doc{Title: "keep"}
	require.NoError(t, GetJSON(ctx, m, "e.json", &got))
	assert.Equal(t, "keep", got.Title)
}

func TestGetJSON_Malformed(t *testing.T) {
	ctx := context.Background()
	m := NewMemory("")
	_, err := PutBytes(ctx, m, "bad.json", []byte("{"), ContentTypeJSON)
	require.NoError(t, err)

	var got doc
	err = GetJSON(ctx, m, "bad.json", &got)
	require.Error(t, err)
	assert.False(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "decode bad.json")
}
