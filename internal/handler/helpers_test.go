package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/auth"
	"github.com/devpulse/devpulse/internal/cache"
	"github.com/devpulse/devpulse/internal/handler"
	"github.com/devpulse/devpulse/internal/identity"
	"github.com/devpulse/devpulse/internal/media"
	"github.com/devpulse/devpulse/internal/model"
	"github.com/devpulse/devpulse/internal/repository/sqlite"
	"github.com/devpulse/devpulse/internal/service"
)

const (
	testWebhookSecret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"
	testUserHeader    = "X-Test-User"
	testSignInURL     = "/sign-in"
)

// stubProvider is an identity.Provider that never leaves the process.
type stubProvider struct {
	users     map[string]*identity.ProviderUser
	deleteErr error
	revoked   []string
}

func (p *stubProvider) GetUser(_ context.Context, id string) (*identity.ProviderUser, error) {
	if u, ok := p.users[id]; ok {
		return u, nil
	}
	return nil, identity.ErrNotFound
}

func (p *stubProvider) DeleteUser(_ context.Context, id string) error {
	if p.deleteErr != nil {
		return p.deleteErr
	}
	return nil
}

func (p *stubProvider) RevokeSession(_ context.Context, sessionID string) error {
	p.revoked = append(p.revoked, sessionID)
	return nil
}

type testEnv struct {
	store    *sqlite.DB
	provider *stubProvider
	router   http.Handler
}

type envOptions struct {
	webhookSecret string
	media         media.Config
}

// newTestEnv wires every handler over an in-memory database. Requests
// carrying the X-Test-User header are treated as signed in as that user,
// standing in for auth.RequireAuth.
func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	provider := &stubProvider{users: map[string]*identity.ProviderUser{}}
	pages := cache.Nop{}

	var verifier *identity.Verifier
	if opts.webhookSecret != "" {
		verifier, err = identity.NewVerifier(opts.webhookSecret)
		require.NoError(t, err)
	}

	syncSvc := service.NewSyncService(store, store, pages, logger)
	profileSvc := service.NewProfileService(store, syncSvc, provider, pages, logger)
	profiles := handler.NewProfileHandler(profileSvc, logger)
	sections := handler.NewSectionHandler(service.NewSectionService(store, store, profileSvc, pages, logger), logger)
	accounts := handler.NewAccountHandler(service.NewAccountService(store, provider, pages, logger), testSignInURL, logger)
	settingsH := handler.NewSettingsHandler(service.NewSettingsService(store, store, pages, logger), logger)
	notes := handler.NewNotificationHandler(service.NewNotificationService(store, logger), logger)
	mediaH := handler.NewMediaHandler(media.NewSigner(opts.media), logger)
	health := handler.NewHealthHandler(service.NewHealthService(store, "sqlite"), logger)
	webhook := handler.NewWebhookHandler(verifier, syncSvc, logger)
	sessions := handler.NewSessionHandler(provider, testSignInURL, logger)
	posts := handler.NewPostHandler(service.NewPostService(store, profileSvc, logger), logger)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id := req.Header.Get(testUserHeader); id != "" {
				s := &auth.Session{UserID: id, SessionID: "sess_" + id}
				req = req.WithContext(auth.WithSession(req.Context(), s))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	r.Get("/post-signup", sessions.HandlePostSignup)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.HandleCheck)
		r.Post("/webhooks/clerk", webhook.HandleIdentityEvent)
		r.Get("/users/{identifier}", profiles.HandleGet)
		r.Get("/me", profiles.HandleMe)
		r.Patch("/me", profiles.HandleUpdate)
		r.Post("/sections", sections.HandleSave)
		r.Delete("/sections/{id}", sections.HandleDelete)
		r.Post("/account/delete", accounts.HandleDelete)
		r.Get("/media/signature", mediaH.HandleSignature)
		r.Get("/settings", settingsH.HandleGet)
		r.Patch("/settings", settingsH.HandlePatch)
		r.Get("/notifications", notes.HandleList)
		r.Post("/notifications", notes.HandleCreate)
		r.Patch("/notifications", notes.HandleMarkRead)
		r.Delete("/notifications", notes.HandleClear)
		r.Get("/posts", posts.HandleList)
		r.Post("/posts", posts.HandleCreate)
	})

	return &testEnv{store: store, provider: provider, router: r}
}

// do sends a request as userID ("" for anonymous).
func (e *testEnv) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(testUserHeader, userID)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) seedUser(t *testing.T, id, username, email string) {
	t.Helper()
	u := &model.User{ID: id, Username: username, DisplayName: "Dev " + username}
	if email != "" {
		u.Email = &email
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}
