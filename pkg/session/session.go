// Package session is the client-side counterpart of the auth API: it
// calls the signup/login/update-password endpoints and caches the
// issued identity token durably, the way the browser front end keeps
// it in local storage.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// State is the manager's view of the cached identity.
//
// A session restored from disk starts Provisional, not Authenticated:
// the token may have expired since it was written, so the first
// verified call decides which way it goes.
type State int

const (
	StateAnonymous State = iota
	StateProvisional
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateProvisional:
		return "provisional"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

var ErrNotAuthenticated = errors.New("not authenticated")

// APIError carries the server's status and user-facing message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.Status)
}

type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Manager struct {
	baseURL string
	client  *http.Client
	store   *fileStore

	mu    sync.Mutex
	state State
	user  User
	token string
}

// NewManager builds a session manager backed by the cache file at
// cachePath. A readable cached session puts the manager in
// StateProvisional; a corrupt or missing cache starts anonymous.
func NewManager(baseURL, cachePath string) (*Manager, error) {
	m := &Manager{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		store:   newFileStore(cachePath),
	}

	cached, err := m.store.load()
	if err != nil {
		return nil, err
	}
	if cached != nil {
		m.state = StateProvisional
		m.user = cached.User
		m.token = cached.Token
	}

	return m, nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the cached identity, valid in both the provisional
// and authenticated states.
func (m *Manager) Current() (User, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, m.state != StateAnonymous
}

func (m *Manager) Signup(ctx context.Context, name, email, password string) (User, error) {
	var resp struct {
		User  User   `json:"user"`
		Token string `json:"token"`
	}
	err := m.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	}, false, &resp)
	if err != nil {
		return User{}, err
	}

	return m.adopt(resp.User, resp.Token)
}

func (m *Manager) Login(ctx context.Context, email, password string) (User, error) {
	var resp struct {
		User  User   `json:"user"`
		Token string `json:"token"`
	}
	err := m.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, false, &resp)
	if err != nil {
		return User{}, err
	}

	return m.adopt(resp.User, resp.Token)
}

// Verify checks the cached token against the server and promotes a
// provisional session to authenticated. An expired or rejected token
// clears the cache and drops back to anonymous.
func (m *Manager) Verify(ctx context.Context) (User, error) {
	var resp struct {
		User User `json:"user"`
	}
	if err := m.do(ctx, http.MethodGet, "/api/auth/me", nil, true, &resp); err != nil {
		return User{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = resp.User
	m.state = StateAuthenticated
	return resp.User, nil
}

func (m *Manager) UpdatePassword(ctx context.Context, currentPassword, newPassword string) error {
	var resp struct {
		Message string `json:"message"`
	}
	err := m.do(ctx, http.MethodPut, "/api/auth/update-password", map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}, true, &resp)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAuthenticated
	return nil
}

// Logout abandons the token locally. The server holds no session
// state, so there is nothing to revoke remotely.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearLocked()
}

func (m *Manager) adopt(user User, token string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.save(&cachedSession{User: user, Token: token}); err != nil {
		return User{}, err
	}

	m.user = user
	m.token = token
	m.state = StateAuthenticated
	return user, nil
}

func (m *Manager) clearLocked() error {
	m.user = User{}
	m.token = ""
	m.state = StateAnonymous
	return m.store.clear()
}

func (m *Manager) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if authed {
		m.mu.Lock()
		token := m.token
		m.mu.Unlock()
		if token == "" {
			return ErrNotAuthenticated
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Message string `json:"message"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&msg); decodeErr == nil {
			apiErr.Message = msg.Message
		}

		// A rejected token on a privileged call is the single
		// transition back to anonymous.
		if authed && resp.StatusCode == http.StatusUnauthorized {
			m.mu.Lock()
			_ = m.clearLocked()
			m.mu.Unlock()
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
