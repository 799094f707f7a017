package handler_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/identity"
)

func TestProfileGet(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.seedUser(t, "u1", "alice", "alice@example.com")

	t.Run("anonymous sees public page without email", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/users/alice", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		body := decodeBody(t, rr)
		assert.Equal(t, "alice", body["username"])
		assert.Nil(t, body["email"])
		sections := body["sections"].(map[string]any)
		assert.Equal(t, []any{}, sections["projects"])
	})

	t.Run("owner sees full profile", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/users/alice", "u1", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "alice@example.com", decodeBody(t, rr)["email"])
	})

	t.Run("lookup by id", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/users/u1", "", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "u1", decodeBody(t, rr)["ownerId"])
	})

	t.Run("unknown", func(t *testing.T) {
		rr := env.do(t, http.MethodGet, "/api/users/nobody", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
		assert.Equal(t, "not_found", decodeBody(t, rr)["error"])
	})
}

func TestMe_ProvisionsOnFirstView(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	newdev := "NewDev"
	env.provider.users["user_2new"] = &identity.ProviderUser{ID: "user_2new", Username: &newdev}

	rr := env.do(t, http.MethodGet, "/api/me", "user_2new", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "newdev", decodeBody(t, rr)["username"])

	rr = env.do(t, http.MethodGet, "/api/me", "user_gone", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMe_RequiresSession(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	rr := env.do(t, http.MethodGet, "/api/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_Update(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.seedUser(t, "u1", "alice", "alice@example.com")
	env.seedUser(t, "u2", "bob", "bob@example.com")

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{name: "sanitized username", body: `{"username":"Alice Dev!"}`, wantStatus: http.StatusOK},
		{name: "bad email", body: `{"email":"nope"}`, wantStatus: http.StatusBadRequest, wantMessage: "Invalid email format"},
		{name: "taken username", body: `{"username":"bob"}`, wantStatus: http.StatusConflict, wantMessage: "This username is already taken."},
		{name: "taken email", body: `{"email":"bob@example.com"}`, wantStatus: http.StatusConflict, wantMessage: "This email is already taken."},
		{name: "not json", body: `{"bio":`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPatch, "/api/me", "u1", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			body := decodeBody(t, rr)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, true, body["success"])
			}
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, body["message"])
			}
		})
	}

	u, err := env.store.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice-dev", u.Username)
	assert.Equal(t, "alice@example.com", *u.Email)
}

func TestMe_UpdateBeforeLocalRowExists(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	late := "late"
	env.provider.users["user_2late"] = &identity.ProviderUser{ID: "user_2late", Username: &late}

	t.Run("account unknown everywhere is a no-op", func(t *testing.T) {
		rr := env.do(t, http.MethodPatch, "/api/me", "user_ghost", `{"bio":"hi"}`)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, true, decodeBody(t, rr)["success"])

		_, err := env.store.GetUserByID(context.Background(), "user_ghost")
		assert.Error(t, err)
	})

	t.Run("provider account is provisioned then updated", func(t *testing.T) {
		rr := env.do(t, http.MethodPatch, "/api/me", "user_2late", `{"bio":"hi"}`)
		require.Equal(t, http.StatusOK, rr.Code)

		u, err := env.store.GetUserByID(context.Background(), "user_2late")
		require.NoError(t, err)
		assert.Equal(t, "hi", u.Bio)
	})
}

func TestMe_UpdateMultibyteDisplayName(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.seedUser(t, "u1", "alice", "")

	rr := env.do(t, http.MethodPatch, "/api/me", "u1", `{"displayName":"`+strings.Repeat("名", 30)+`"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	u, err := env.store.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("名", 30), u.DisplayName)
}

func TestProfileGet_VisitorSeesPublicPage(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.seedUser(t, "u1", "alice", "alice@example.com")
	env.seedUser(t, "u2", "bob", "")

	rr := env.do(t, http.MethodGet, "/api/users/alice", "u2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody(t, rr)
	assert.Equal(t, "u1", body["ownerId"])
	assert.Nil(t, body["email"])
}
