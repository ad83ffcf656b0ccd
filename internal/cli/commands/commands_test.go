package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbo-dev/orbo/internal/cli/auth"
	"github.com/orbo-dev/orbo/internal/cli/client"
	"github.com/orbo-dev/orbo/internal/cli/userconfig"
)

type mockTokenStore struct {
	tokens map[string]string
}

func newMockTokenStore() *mockTokenStore {
	return &mockTokenStore{tokens: map[string]string{}}
}

func (m *mockTokenStore) SaveToken(serverURL, token string) error {
	m.tokens[serverURL] = token
	return nil
}

func (m *mockTokenStore) LoadToken(serverURL string) (string, error) {
	token, ok := m.tokens[serverURL]
	if !ok {
		return "", auth.ErrNotLoggedIn
	}
	return token, nil
}

func (m *mockTokenStore) DeleteToken(serverURL string) error {
	delete(m.tokens, serverURL)
	return nil
}

const validToken = "token-abc"

// fakeServer answers the handful of API routes the CLI calls. Requests for
// org "forbidden" or with a role other than the caller's get 403.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()

	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Authentication required"}`))
			return false
		}
		return true
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req client.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Invalid email or password"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"token": validToken,
			"user":  map[string]any{"id": "u1", "email": req.Email},
		})
	})
	mux.HandleFunc("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "u1", "email": "ada@example.com", "superadmin": true})
	})
	mux.HandleFunc("/api/orgs", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "org-1", "name": "Acme", "role": "admin"},
			{"id": "org-2", "name": "Globex", "role": "guest"},
		})
	})
	mux.HandleFunc("/api/orgs/org-1/access", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		for _, role := range r.URL.Query()["role"] {
			if role == "admin" {
				json.NewEncoder(w).Encode(map[string]any{"org_id": "org-1", "role": "admin"})
				return
			}
		}
		if len(r.URL.Query()["role"]) > 0 {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"Insufficient role"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"org_id": "org-1", "role": "admin"})
	})
	mux.HandleFunc("/api/orgs/forbidden/access", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":"Not a member of this organization"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ORBO_SERVER", "")
	t.Setenv("ORBO_EMAIL", "")
	t.Setenv("ORBO_PASSWORD", "")
}

// loggedIn saves config and token as a completed login would
func loggedIn(t *testing.T, serverURL string) *mockTokenStore {
	t.Helper()
	tokens := newMockTokenStore()
	tokens.tokens[serverURL] = validToken
	require.NoError(t, userconfig.Save(&userconfig.UserConfig{ServerURL: serverURL, Email: "ada@example.com"}))
	return tokens
}

func TestRunLogin(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	tokens := newMockTokenStore()
	var out bytes.Buffer

	err := runLogin("ada@example.com", "correct-horse",
		WithServer(srv.URL+"/"), WithTokenStore(tokens), WithOutput(&out))
	require.NoError(t, err)

	assert.Equal(t, validToken, tokens.tokens[srv.URL])
	assert.Contains(t, out.String(), "Login successful")

	cfg, err := userconfig.Load()
	require.NoError(t, err)
	assert.Equal(t, srv.URL, cfg.ServerURL)
	assert.Equal(t, "ada@example.com", cfg.Email)
}

func TestRunLoginPromptsForPassword(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	tokens := newMockTokenStore()
	prompted := false

	err := runLogin("ada@example.com", "",
		WithServer(srv.URL), WithTokenStore(tokens), WithOutput(&bytes.Buffer{}),
		WithPasswordReader(func() (string, error) {
			prompted = true
			return "correct-horse", nil
		}))
	require.NoError(t, err)
	assert.True(t, prompted)
}

func TestRunLoginUsesEnvironment(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	t.Setenv("ORBO_SERVER", srv.URL)
	t.Setenv("ORBO_EMAIL", "ada@example.com")
	t.Setenv("ORBO_PASSWORD", "correct-horse")
	tokens := newMockTokenStore()

	require.NoError(t, runLogin("", "", WithTokenStore(tokens), WithOutput(&bytes.Buffer{})))
	assert.Equal(t, validToken, tokens.tokens[srv.URL])
}

func TestRunLoginFailures(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)

	err := runLogin("", "x", WithServer(srv.URL), WithTokenStore(newMockTokenStore()))
	assert.ErrorContains(t, err, "email is required")

	err = runLogin("ada@example.com", "x", WithTokenStore(newMockTokenStore()))
	assert.ErrorContains(t, err, "no server configured")

	tokens := newMockTokenStore()
	err = runLogin("ada@example.com", "wrong", WithServer(srv.URL), WithTokenStore(tokens), WithOutput(&bytes.Buffer{}))
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, client.StatusCode(err))
	assert.Empty(t, tokens.tokens)
}

func TestRunLoginClearsSelectionForNewAccount(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	require.NoError(t, userconfig.Save(&userconfig.UserConfig{
		ServerURL: srv.URL, Email: "bob@example.com", SelectedOrgID: "org-1",
	}))

	require.NoError(t, runLogin("ada@example.com", "correct-horse",
		WithTokenStore(newMockTokenStore()), WithOutput(&bytes.Buffer{})))

	cfg, err := userconfig.Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.SelectedOrgID)
}

func TestRunLogout(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	tokens := loggedIn(t, srv.URL)
	var out bytes.Buffer

	require.NoError(t, runLogout(WithTokenStore(tokens), WithOutput(&out)))
	assert.Empty(t, tokens.tokens)
	assert.Contains(t, out.String(), "Logged out")
}

func TestRunWhoami(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	tokens := loggedIn(t, srv.URL)
	var out bytes.Buffer

	require.NoError(t, runWhoami(WithTokenStore(tokens), WithOutput(&out)))
	assert.Contains(t, out.String(), "ada@example.com (u1)")
	assert.Contains(t, out.String(), "Superadmin")
}

func TestRunWhoamiNotLoggedIn(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	require.NoError(t, userconfig.Save(&userconfig.UserConfig{ServerURL: srv.URL}))

	err := runWhoami(WithTokenStore(newMockTokenStore()))
	assert.True(t, errors.Is(err, auth.ErrNotLoggedIn))
}

func TestRunWhoamiExpiredToken(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	tokens := loggedIn(t, srv.URL)
	tokens.tokens[srv.URL] = "stale"

	err := runWhoami(WithTokenStore(tokens), WithOutput(&bytes.Buffer{}))
	assert.ErrorContains(t, err, "not authenticated (401)")
}

func TestRunOrgs(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	tokens := loggedIn(t, srv.URL)
	require.NoError(t, userconfig.Update(func(c *userconfig.UserConfig) { c.SelectedOrgID = "org-2" }))
	var out bytes.Buffer

	require.NoError(t, runOrgs(WithTokenStore(tokens), WithOutput(&out)))
	assert.Contains(t, out.String(), "org-1")
	assert.Contains(t, out.String(), "Acme")
	assert.Regexp(t, `\*\s+org-2\s+Globex\s+guest`, out.String())
}

func TestRunOrgsSelect(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	tokens := loggedIn(t, srv.URL)

	t.Run("by id", func(t *testing.T) {
		require.NoError(t, runOrgsSelect("org-2", WithTokenStore(tokens), WithOutput(&bytes.Buffer{})))
		cfg, err := userconfig.Load()
		require.NoError(t, err)
		assert.Equal(t, "org-2", cfg.SelectedOrgID)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := runOrgsSelect("org-9", WithTokenStore(tokens), WithOutput(&bytes.Buffer{}))
		assert.Error(t, err)
	})

	t.Run("interactive", func(t *testing.T) {
		selector := func(orgs []client.Organization) (*client.Organization, error) {
			require.Len(t, orgs, 2)
			return &orgs[0], nil
		}
		require.NoError(t, runOrgsSelect("", WithTokenStore(tokens), WithOrgSelector(selector), WithOutput(&bytes.Buffer{})))
		cfg, err := userconfig.Load()
		require.NoError(t, err)
		assert.Equal(t, "org-1", cfg.SelectedOrgID)
	})
}

func TestRunAccess(t *testing.T) {
	setupHome(t)
	srv := fakeServer(t)
	tokens := loggedIn(t, srv.URL)

	t.Run("no org selected", func(t *testing.T) {
		err := runAccess("", nil, WithTokenStore(tokens))
		assert.ErrorContains(t, err, "organization id is required")
	})

	t.Run("selected org", func(t *testing.T) {
		require.NoError(t, userconfig.Update(func(c *userconfig.UserConfig) { c.SelectedOrgID = "org-1" }))
		var out bytes.Buffer
		require.NoError(t, runAccess("", nil, WithTokenStore(tokens), WithOutput(&out)))
		assert.Contains(t, out.String(), "Access granted to org-1")
		assert.Contains(t, out.String(), "Role: admin")
	})

	t.Run("allowed role", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runAccess("org-1", []string{"owner", "admin"}, WithTokenStore(tokens), WithOutput(&out)))
		assert.Contains(t, out.String(), "Allowed: owner, admin")
	})

	t.Run("insufficient role", func(t *testing.T) {
		err := runAccess("org-1", []string{"owner"}, WithTokenStore(tokens), WithOutput(&bytes.Buffer{}))
		assert.ErrorContains(t, err, "access denied (403)")
		assert.ErrorContains(t, err, "Insufficient role")
	})

	t.Run("not a member", func(t *testing.T) {
		err := runAccess("forbidden", nil, WithTokenStore(tokens), WithOutput(&bytes.Buffer{}))
		assert.ErrorContains(t, err, "access denied (403)")
	})
}
