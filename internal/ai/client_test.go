package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nrm-schedules/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textReply(t *testing.T, w http.ResponseWriter, text string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{
		"content":     []map[string]string{{"type": "text", "text": text}},
		"stop_reason": "end_turn",
	})
	require.NoError(t, err)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, batch int) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", APIKey: "k", Model: "m", GroupBatch: batch})
}

func TestStandardizeHeaders(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "m", req.Model)
		assert.Contains(t, req.Messages[0].Content, `"qty"`)

		textReply(t, w, "Here you go:\n```json\n{\"mapping\": {\"qty\": \"Quantity\", \"desc\": \" \"}}\n```")
	}, 0)

	mapping, err := c.StandardizeHeaders(context.Background(), []string{"qty", "desc", "Unit"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"qty": "Quantity", "desc": "desc", "Unit": "Unit"}, mapping)
}

func TestStandardizeHeaders_NoHeadersSkipsCall(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected call")
	}, 0)

	mapping, err := c.StandardizeHeaders(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, mapping)
}

func TestComplete_ServiceError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`)
	}, 0)

	_, err := c.StandardizeHeaders(context.Background(), []string{"qty"})
	require.ErrorIs(t, err, ErrService)
	assert.Contains(t, err.Error(), "slow down")
}

func TestComplete_UnparseableReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		textReply(t, w, "I cannot help with that.")
	}, 0)

	_, err := c.StandardizeHeaders(context.Background(), []string{"qty"})
	assert.ErrorIs(t, err, ErrResponse)
}

func TestComplete_TruncatedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"{\"mapping\"`)
	}, 0)

	_, err := c.StandardizeHeaders(context.Background(), []string{"qty"})
	require.ErrorIs(t, err, ErrResponse)
	assert.Contains(t, err.Error(), "decoding response")
	assert.NotContains(t, err.Error(), "no JSON object")
}

func TestGroupRows_BatchesAndMerges(t *testing.T) {
	rows := []models.Row{
		{"Description": "Column C1"},
		{"Description": "Brick wall"},
		{"Description": "Column C2"},
	}

	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req messagesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch {
		case strings.Contains(req.Messages[0].Content, `"index":0`):
			textReply(t, w, `{"groups":[{"section":"2.1 Frame","category":"Columns","rows":[0]},{"section":"2.5 External walls","rows":[1, 7]}]}`)
		default:
			textReply(t, w, `{"groups":[{"section":"2.1 Frame","category":"Columns","rows":[2]}]}`)
		}
	}, 2)

	groups, err := c.GroupRows(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	assert.Equal(t, []models.Group{
		{Section: "2.1 Frame", Category: "Columns", Rows: []models.Row{rows[0], rows[2]}},
		{Section: "2.5 External walls", Rows: []models.Row{rows[1]}},
	}, groups)
}

func TestGroupRows_UnassignedRowsAreUnclassified(t *testing.T) {
	rows := []models.Row{{"Description": "Thing"}, {"Description": "Other"}}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		textReply(t, w, `{"groups":[{"section":"","rows":[0]}]}`)
	}, 10)

	groups, err := c.GroupRows(context.Background(), rows)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, UnclassifiedSection, groups[0].Section)
	assert.Equal(t, rows, groups[0].Rows)
}

func TestExtractJSON(t *testing.T) {
	obj, ok := extractJSON("```json\n{\"a\": {\"b\": 1}}\n```")
	assert.True(t, ok)
	assert.Equal(t, `{"a": {"b": 1}}`, obj)

	_, ok = extractJSON("no json")
	assert.False(t, ok)
}
