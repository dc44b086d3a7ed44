package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeAuthServer speaks just enough of the auth API for the manager:
// one hard-coded account, bearer check on the privileged routes.
func fakeAuthServer(t *testing.T) *httptest.Server {
	t.Helper()

	const validToken = "issued-token"

	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}

	mux.HandleFunc("POST /api/auth/signup", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["name"] == "" || req["email"] == "" || req["password"] == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "All fields are required"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"user":  map[string]string{"name": req["name"], "email": req["email"]},
			"token": validToken,
		})
	})

	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["email"] != "ann@x.com" || req["password"] != "secret1" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":  map[string]string{"id": "user-1", "name": "Ann", "email": "ann@x.com"},
			"token": validToken,
		})
	})

	authed := func(r *http.Request) bool {
		return r.Header.Get("Authorization") == "Bearer "+validToken
	}

	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user": map[string]string{"id": "user-1", "name": "Ann", "email": "ann@x.com"},
		})
	})

	mux.HandleFunc("PUT /api/auth/update-password", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid or expired token"})
			return
		}
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["currentPassword"] != "secret1" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Current password is incorrect"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Password updated successfully"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func cacheFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "session.json")
}

func TestManager_LoginPersistsSession(t *testing.T) {
	srv := fakeAuthServer(t)
	path := cacheFile(t)

	manager, err := NewManager(srv.URL, path)
	require.NoError(t, err)
	require.Equal(t, StateAnonymous, manager.State())

	user, err := manager.Login(context.Background(), "ann@x.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "Ann", user.Name)
	require.Equal(t, StateAuthenticated, manager.State())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var cached cachedSession
	require.NoError(t, json.Unmarshal(data, &cached))
	require.Equal(t, "ann@x.com", cached.User.Email)
	require.NotEmpty(t, cached.Token)
}

func TestManager_LoginFailureSurfacesServerMessage(t *testing.T) {
	srv := fakeAuthServer(t)

	manager, err := NewManager(srv.URL, cacheFile(t))
	require.NoError(t, err)

	_, err = manager.Login(context.Background(), "ann@x.com", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)
	require.Equal(t, "Invalid credentials", apiErr.Message)
	require.Equal(t, StateAnonymous, manager.State())
}

func TestManager_RestoredSessionIsProvisionalUntilVerified(t *testing.T) {
	srv := fakeAuthServer(t)
	path := cacheFile(t)

	first, err := NewManager(srv.URL, path)
	require.NoError(t, err)
	_, err = first.Login(context.Background(), "ann@x.com", "secret1")
	require.NoError(t, err)

	restored, err := NewManager(srv.URL, path)
	require.NoError(t, err)
	require.Equal(t, StateProvisional, restored.State())

	user, ok := restored.Current()
	require.True(t, ok)
	require.Equal(t, "ann@x.com", user.Email)

	_, err = restored.Verify(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateAuthenticated, restored.State())
}

func TestManager_RejectedTokenClearsCache(t *testing.T) {
	srv := fakeAuthServer(t)
	path := cacheFile(t)

	stale := cachedSession{
		User:  User{ID: "user-1", Name: "Ann", Email: "ann@x.com"},
		Token: "expired-token",
	}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	manager, err := NewManager(srv.URL, path)
	require.NoError(t, err)
	require.Equal(t, StateProvisional, manager.State())

	_, err = manager.Verify(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.Status)

	require.Equal(t, StateAnonymous, manager.State())
	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestManager_UpdatePasswordRequiresSession(t *testing.T) {
	srv := fakeAuthServer(t)

	manager, err := NewManager(srv.URL, cacheFile(t))
	require.NoError(t, err)

	err = manager.UpdatePassword(context.Background(), "secret1", "secret2")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestManager_LogoutClearsEverything(t *testing.T) {
	srv := fakeAuthServer(t)
	path := cacheFile(t)

	manager, err := NewManager(srv.URL, path)
	require.NoError(t, err)
	_, err = manager.Login(context.Background(), "ann@x.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, manager.Logout())
	require.Equal(t, StateAnonymous, manager.State())

	_, ok := manager.Current()
	require.False(t, ok)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestManager_CorruptCacheStartsAnonymous(t *testing.T) {
	srv := fakeAuthServer(t)
	path := cacheFile(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	manager, err := NewManager(srv.URL, path)
	require.NoError(t, err)
	require.Equal(t, StateAnonymous, manager.State())
}
