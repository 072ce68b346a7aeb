package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-key", "/v1/health", nil)
}

func TestGetProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/v1/profiles/user-1", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(Profile{UserID: "user-1", DisplayName: "Ada", PendingPrompt: "a red sun"})
	})

	got, err := client.GetProfile(context.Background(), "user-1")
	require.NoError(t, err)
	require.Equal(t, "user-1", got.UserID)
	require.Equal(t, "a red sun", got.PendingPrompt)
}

func TestGetProfileMissingIsNilNil(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	got, err := client.GetProfile(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCreateProfile(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/profiles", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "user-1", payload["user_id"])
		require.Equal(t, "Ada", payload["display_name"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Profile{UserID: "user-1", DisplayName: "Ada"})
	})

	got, err := client.CreateProfile(context.Background(), "user-1", Seed{DisplayName: "Ada"})
	require.NoError(t, err)
	require.Equal(t, "Ada", got.DisplayName)
}

func TestUpdateProfilePatchesOnlySetFields(t *testing.T) {
	prompt := "a red sun over the sea"
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/v1/profiles/user-1", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, prompt, payload["pending_prompt"])
		require.NotContains(t, payload, "display_name")

		json.NewEncoder(w).Encode(Profile{UserID: "user-1", PendingPrompt: prompt})
	})

	got, err := client.UpdateProfile(context.Background(), "user-1", Patch{PendingPrompt: &prompt})
	require.NoError(t, err)
	require.Equal(t, prompt, got.PendingPrompt)
}

func TestUploadAvatar(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/profiles/user-1/avatar", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("avatar")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "me.png", header.Filename)

		json.NewEncoder(w).Encode(map[string]string{"url": "https://cdn.example/avatars/user-1.png"})
	})

	url, err := client.UploadAvatar(context.Background(), "user-1", "me.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example/avatars/user-1.png", url)
}

func TestServerFailureIsBackendError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "storage offline"})
	})

	_, err := client.GetProfile(context.Background(), "user-1")
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	require.Contains(t, backendErr.Message, "storage offline")
	require.Contains(t, backendErr.Message, "500")
}

func TestUnreachableServiceIsBackendError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", "", "/v1/health", nil)

	_, err := client.GetProfile(context.Background(), "user-1")
	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	require.Contains(t, backendErr.Message, "unreachable")
}

func TestHealth(t *testing.T) {
	seen := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		seen = r.URL.Path == "/v1/health"
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.Health(context.Background()))
	require.True(t, seen)
}
