package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func messages(ids ...string) []Message {
	out := make([]Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, Message{ID: id, Subject: "subject " + id})
	}
	return out
}

func TestFetchMessages_RequestShape(t *testing.T) {
	var gotPath, gotRawQuery string
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRawQuery = r.URL.RawQuery
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}
		writeJSON(w, http.StatusOK, map[string]any{"value": messages("m1")})
	}))
	defer server.Close()

	box := NewClient(server.Client(), server.URL+"/v1.0/").Mailbox("reports@example.org")
	got, err := box.FetchMessages(context.Background(), FetchOptions{
		Query: And(
			Greater(FieldSentDateTime, Epoch),
			Contains(FieldSubject, "DR 42 Automated Workforce Reports"),
		),
		OrderBy:            OrderBySentDesc,
		Limit:              1,
		IncludeAttachments: true,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)

	assert.Equal(t, "/v1.0/users/reports@example.org/messages", gotPath)
	assert.Equal(t, "sentDateTime gt 1900-01-01T00:00:00Z and contains(subject,'DR 42 Automated Workforce Reports')", gotQuery["$filter"])
	assert.Equal(t, "sentDateTime desc", gotQuery["$orderby"])
	assert.Equal(t, "1", gotQuery["$top"])
	assert.Equal(t, "attachments", gotQuery["$expand"])
	assert.NotContains(t, gotRawQuery, "+", "spaces must be encoded as %20")
	assert.Contains(t, gotRawQuery, "DR%2042%20Automated")
}

func TestFetchMessages_OwnMailboxAndDefaults(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		writeJSON(w, http.StatusOK, map[string]any{"value": []Message{}})
	}))
	defer server.Close()

	got, err := NewClient(server.Client(), server.URL).Mailbox("").FetchMessages(context.Background(), FetchOptions{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Equal(t, "/me/messages", gotPath)
	assert.NotContains(t, gotQuery, "$filter")
	assert.NotContains(t, gotQuery, "$orderby")
	assert.NotContains(t, gotQuery, "$expand")
	assert.Equal(t, []string{fmt.Sprint(MaxPageSize)}, gotQuery["$top"])
}

func TestFetchMessages_Paging(t *testing.T) {
	var server *httptest.Server
	var requests atomic.Int32
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		switch r.URL.Query().Get("page") {
		case "":
			writeJSON(w, http.StatusOK, map[string]any{
				"value":           messages("m1", "m2"),
				"@odata.nextLink": server.URL + "/users/box/messages?page=2",
			})
		case "2":
			writeJSON(w, http.StatusOK, map[string]any{
				"value":           messages("m3", "m4"),
				"@odata.nextLink": server.URL + "/users/box/messages?page=3",
			})
		default:
			writeJSON(w, http.StatusOK, map[string]any{"value": messages("m5")})
		}
	}))
	defer server.Close()

	box := NewClient(server.Client(), server.URL).Mailbox("box")

	t.Run("stops at limit", func(t *testing.T) {
		requests.Store(0)
		got, err := box.FetchMessages(context.Background(), FetchOptions{Limit: 3})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"m1", "m2", "m3"}, []string{got[0].ID, got[1].ID, got[2].ID})
		assert.Equal(t, int32(2), requests.Load())
	})

	t.Run("no limit reads every page", func(t *testing.T) {
		requests.Store(0)
		got, err := box.FetchMessages(context.Background(), FetchOptions{})
		require.NoError(t, err)
		assert.Len(t, got, 5)
		assert.Equal(t, int32(3), requests.Load())
	})
}

func TestFetchMessages_RejectsForeignNextLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"value":           messages("m1"),
			"@odata.nextLink": "https://attacker.example.com/messages?page=2",
		})
	}))
	defer server.Close()

	_, err := NewClient(server.Client(), server.URL).Mailbox("box").FetchMessages(context.Background(), FetchOptions{Limit: 5})
	assert.ErrorContains(t, err, "leaves")
}

func TestFetchMessages_APIErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    string
		wantMessage string
	}{
		{
			name:        "graph envelope",
			status:      http.StatusForbidden,
			body:        `{"error":{"code":"ErrorAccessDenied","message":"Access is denied."}}`,
			wantCode:    "ErrorAccessDenied",
			wantMessage: "Access is denied.",
		},
		{
			name:        "plain body",
			status:      http.StatusServiceUnavailable,
			body:        "try later",
			wantMessage: "503 Service Unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.Client(), server.URL).Mailbox("box").FetchMessages(context.Background(), FetchOptions{})

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "expected *APIError, got %v", err)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			assert.True(t, strings.HasPrefix(apiErr.Error(), "graph API error"))
		})
	}
}

func TestFetchMessages_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	_, err := NewClient(server.Client(), server.URL).Mailbox("box").FetchMessages(context.Background(), FetchOptions{})
	assert.ErrorContains(t, err, "failed to decode graph response")
}
