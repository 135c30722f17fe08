package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key := ObjectKey("u1", "schedules", "Doors.CSV")
	assert.True(t, strings.HasPrefix(key, "u1/schedules/"))
	assert.True(t, strings.HasSuffix(key, ".csv"))
}

func TestMemoryStore_JSONRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	url, err := PutJSON(ctx, s, "u1/rows.json", []map[string]string{{"a": "1"}})
	require.NoError(t, err)
	assert.Equal(t, "mem://u1/rows.json", url)

	var got []map[string]string
	require.NoError(t, GetJSON(ctx, s, url, &got))
	assert.Equal(t, []map[string]string{{"a": "1"}}, got)

	require.NoError(t, s.Delete(ctx, url))
	_, err = s.Get(ctx, url)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Len())
}

func TestGCSStore_KeyFromURL(t *testing.T) {
	g := &GCSStore{bucket: "b"}
	url := g.url("u1/x.csv")
	assert.Equal(t, "https://storage.googleapis.com/b/u1/x.csv", url)

	key, err := g.key(url)
	require.NoError(t, err)
	assert.Equal(t, "u1/x.csv", key)

	_, err = g.key("https://example.com/u1/x.csv")
	assert.Error(t, err)
}
