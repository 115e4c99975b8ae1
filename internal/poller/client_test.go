package poller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coopvalles/asamblea-api/internal/dto"
	"github.com/coopvalles/asamblea-api/internal/models"
)

func TestClientDecodesEnvelopes(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/avisos/mis-avisos":
			w.Write([]byte(`{"data":[{"avisoId":"av-1","body":"Asamblea","kind":"MASS","priority":"HIGH"}]}`))
		case "/avisos/unread-count":
			w.Write([]byte(`{"data":{"unreadCount":4}}`))
		case "/avisos/av-1/leido":
			assert.Equal(t, http.MethodPut, r.Method)
			w.Write([]byte(`{"data":{"success":true,"updated":true}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"code":"NOT_FOUND","message":"resource not found"}}`))
		}
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", "token-123")

	items, err := client.MisAvisos(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "av-1", items[0].AvisoID)
	assert.Equal(t, models.AnnouncementPriorityHigh, items[0].Priority)
	assert.Equal(t, "Bearer token-123", gotAuth)

	count, err := client.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	require.NoError(t, client.MarkRead(context.Background(), "av-1"))
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":{"code":"ALREADY_RESPONDED","message":"a response was already recorded for this delivery"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "token-123")

	err := client.Respond(context.Background(), "av-1", dto.RespondRequest{Tipo: models.ResponseKindWillNotAttend})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALREADY_RESPONDED")
}
