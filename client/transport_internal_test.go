package client

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roostapp/roost-go/credstore/memory"
)

// A full refresh-and-replay cycle walks the recovery states strictly in
// order, and each state only appears once.
func TestRequestStateTransitions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/me":
			if r.Header.Get("Authorization") == "Bearer A2" {
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]any{
					"success": true,
					"data":    map[string]string{"id": "u1"},
				})
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"message": "token expired",
			})
		case "/refresh":
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data":    map[string]string{"accessToken": "A2"},
			})
		}
	}))
	defer srv.Close()

	store := memory.NewStore()
	require.NoError(t, store.SetToken("A1"))
	require.NoError(t, store.SetRefreshToken("R1"))

	c := New(srv.URL, store, WithLogger(slog.New(slog.DiscardHandler)))
	at, ok := c.httpClient.Transport.(*authTransport)
	require.True(t, ok)

	var states []requestState
	at.stateHook = func(s requestState) { states = append(states, s) }

	_, err := c.Me(t.Context())
	require.NoError(t, err)
	assert.Equal(t,
		[]requestState{stateSent, stateAwaitingRefresh, stateRetried, stateDone},
		states)
}

// A request answered without a 401 never leaves the initial state.
func TestRequestStateNoRecovery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]string{"id": "u1"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, memory.NewStore(), WithLogger(slog.New(slog.DiscardHandler)))
	at := c.httpClient.Transport.(*authTransport)

	var states []requestState
	at.stateHook = func(s requestState) { states = append(states, s) }

	_, err := c.Me(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []requestState{stateSent}, states)
}

func TestRequestStateString(t *testing.T) {
	assert.Equal(t, "sent", stateSent.String())
	assert.Equal(t, "awaiting-refresh", stateAwaitingRefresh.String())
	assert.Equal(t, "retried", stateRetried.String())
	assert.Equal(t, "done", stateDone.String())
}
