package handler_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svix "github.com/svix/svix-webhooks/go"

	"github.com/devpulse/devpulse/internal/identity"
)

// postEvent delivers payload to the webhook route, signed unless sign is false.
func postEvent(t *testing.T, env *testEnv, payload string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/clerk", bytes.NewBufferString(payload))
	if sign {
		wh, err := svix.NewWebhook(testWebhookSecret)
		require.NoError(t, err)
		now := time.Now()
		sig, err := wh.Sign("msg_1", now, []byte(payload))
		require.NoError(t, err)
		req.Header.Set(identity.HeaderID, "msg_1")
		req.Header.Set(identity.HeaderTimestamp, strconv.FormatInt(now.Unix(), 10))
		req.Header.Set(identity.HeaderSignature, sig)
	}
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)
	return rr
}

func TestWebhook_CreatedEvent(t *testing.T) {
	env := newTestEnv(t, envOptions{webhookSecret: testWebhookSecret})

	rr := postEvent(t, env, `{"type":"user.created","data":{"id":"u1","username":null,"email_addresses":[]}}`, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, map[string]any{"ok": true, "event": "user.created"}, decodeBody(t, rr))

	u, err := env.store.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "no-email-u1@placeholder.com", *u.Email)
	assert.Equal(t, "user_u1", u.Username)
}

func TestWebhook_RedeliveryIsHarmless(t *testing.T) {
	env := newTestEnv(t, envOptions{webhookSecret: testWebhookSecret})
	payload := `{"type":"user.created","data":{"id":"u1","username":"alice"}}`

	assert.Equal(t, http.StatusOK, postEvent(t, env, payload, true).Code)
	assert.Equal(t, http.StatusOK, postEvent(t, env, payload, true).Code)

	n, err := env.store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWebhook_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		payload    string
		sign       bool
		wantStatus int
	}{
		{
			name:       "no secret configured",
			payload:    `{"type":"user.created","data":{"id":"u1"}}`,
			sign:       true,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "missing headers",
			secret:     testWebhookSecret,
			payload:    `{"type":"user.created","data":{"id":"u1"}}`,
			sign:       false,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing user id",
			secret:     testWebhookSecret,
			payload:    `{"type":"user.deleted","data":{}}`,
			sign:       true,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, envOptions{webhookSecret: tt.secret})

			rr := postEvent(t, env, tt.payload, tt.sign)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			n, _ := env.store.CountUsers(context.Background())
			assert.Zero(t, n)
		})
	}
}

func TestWebhook_TamperedBody(t *testing.T) {
	env := newTestEnv(t, envOptions{webhookSecret: testWebhookSecret})
	signed := postEventHeaders(t, `{"type":"user.created","data":{"id":"u1"}}`)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/clerk",
		bytes.NewBufferString(`{"type":"user.created","data":{"id":"evil"}}`))
	req.Header = signed
	rr := httptest.NewRecorder()
	env.router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid signature", decodeBody(t, rr)["message"])
}

func TestWebhook_UnknownEventAcknowledged(t *testing.T) {
	env := newTestEnv(t, envOptions{webhookSecret: testWebhookSecret})

	rr := postEvent(t, env, `{"type":"session.created","data":{"id":"sess_1"}}`, true)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "session.created", decodeBody(t, rr)["event"])
}

func postEventHeaders(t *testing.T, payload string) http.Header {
	t.Helper()
	wh, err := svix.NewWebhook(testWebhookSecret)
	require.NoError(t, err)
	now := time.Now()
	sig, err := wh.Sign("msg_2", now, []byte(payload))
	require.NoError(t, err)
	h := http.Header{}
	h.Set(identity.HeaderID, "msg_2")
	h.Set(identity.HeaderTimestamp, strconv.FormatInt(now.Unix(), 10))
	h.Set(identity.HeaderSignature, sig)
	return h
}
