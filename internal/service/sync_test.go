package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/cache"
	"github.com/devpulse/devpulse/internal/identity"
	"github.com/devpulse/devpulse/internal/repository"
)

func newTestSync(store *fakeStore, pages *recordingCache) *SyncService {
	return NewSyncService(store, store, pages, testLogger())
}

// event builds a verified event the way Verifier.Verify would return it.
func event(t *testing.T, typ string, data map[string]any) *identity.Event {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return &identity.Event{Type: typ, Data: raw}
}

func TestHandleEvent_CreatedWithoutEmailOrUsername(t *testing.T) {
	store := newFakeStore()
	svc := newTestSync(store, newRecordingCache())

	err := svc.HandleEvent(context.Background(), event(t, identity.EventUserCreated, map[string]any{
		"id":              "u1",
		"username":        nil,
		"email_addresses": []any{},
	}))
	require.NoError(t, err)

	got, err := store.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, got.Email)
	assert.Equal(t, "no-email-u1@placeholder.com", *got.Email)
	assert.Equal(t, "user_u1", got.Username)
	assert.Equal(t, "New Dev", got.DisplayName)
}

func TestHandleEvent_CreatedExtractsFields(t *testing.T) {
	store := newFakeStore()
	svc := newTestSync(store, newRecordingCache())

	err := svc.HandleEvent(context.Background(), event(t, identity.EventUserCreated, map[string]any{
		"id":                       "user_2xyz",
		"username":                 "  Alice Dev ",
		"first_name":               "Alice",
		"last_name":                "Liddell",
		"profile_image_url":        "https://img.example.com/a.png",
		"primary_email_address_id": "idn_2",
		"email_addresses": []any{
			map[string]any{"id": "idn_1", "email_address": "old@example.com"},
			map[string]any{"id": "idn_2", "email_address": " Alice@Example.COM "},
		},
	}))
	require.NoError(t, err)

	got, err := store.GetUserByID(context.Background(), "user_2xyz")
	require.NoError(t, err)
	assert.Equal(t, "alice-dev", got.Username)
	assert.Equal(t, "alice@example.com", *got.Email)
	assert.Equal(t, "Alice Liddell", got.DisplayName)
	assert.Equal(t, "https://img.example.com/a.png", got.Avatar)

	notes, err := store.ListNotifications(context.Background(), "user_2xyz")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Welcome to DevPulse", notes[0].Title)
}

func TestHandleEvent_DoubleDeliveryIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestSync(store, newRecordingCache())
	evt := event(t, identity.EventUserCreated, map[string]any{
		"id":       "u1",
		"username": "alice",
		"email_addresses": []any{
			map[string]any{"id": "e1", "email_address": "alice@example.com"},
		},
	})

	require.NoError(t, svc.HandleEvent(context.Background(), evt))
	require.NoError(t, svc.HandleEvent(context.Background(), evt))

	n, err := store.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, 1, store.creates, "second delivery should not try to insert")
}

func TestHandleEvent_UpdateOnlyWritesPresentFields(t *testing.T) {
	store := newFakeStore()
	pages := newRecordingCache()
	svc := newTestSync(store, pages)
	u := seedUser(store, "u1", "alice", "alice@example.com")
	require.NoError(t, store.UpdateUser(context.Background(), "u1", repository.UserUpdate{Bio: ptr("keep me")}))

	err := svc.HandleEvent(context.Background(), event(t, identity.EventUserUpdated, map[string]any{
		"id":         "u1",
		"username":   "Alice2",
		"first_name": "",
		"image_url":  "",
	}))
	require.NoError(t, err)

	got, err := store.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "alice2", got.Username)
	assert.Equal(t, u.DisplayName, got.DisplayName, "blank name must not clear the display name")
	assert.Equal(t, "alice@example.com", *got.Email, "absent email must not be replaced by a placeholder")
	assert.Equal(t, "keep me", got.Bio)
	assert.ElementsMatch(t, []string{cache.ProfileKey("alice"), cache.ProfileKey("alice2")}, pages.invalidated)
}

func TestHandleEvent_UpdateWithNothingNewSkipsWrite(t *testing.T) {
	store := newFakeStore()
	svc := newTestSync(store, newRecordingCache())
	seedUser(store, "u1", "alice", "alice@example.com")

	err := svc.HandleEvent(context.Background(), event(t, identity.EventUserUpdated, map[string]any{
		"id":       "u1",
		"username": "alice",
	}))
	require.NoError(t, err)
	assert.Equal(t, 0, store.updates)
}

func TestUpsert_CreateConflictsFallBack(t *testing.T) {
	tests := []struct {
		name         string
		seedUsername string
		seedEmail    string
		wantUsername string
		wantEmail    string
	}{
		{
			name:         "username taken uses id fallback",
			seedUsername: "alice",
			seedEmail:    "someone@example.com",
			wantUsername: "user_abcdef",
			wantEmail:    "alice@example.com",
		},
		{
			name:         "email taken uses placeholder",
			seedUsername: "someone",
			seedEmail:    "alice@example.com",
			wantUsername: "alice",
			wantEmail:    "no-email-user_2abcdef@placeholder.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc := newTestSync(store, newRecordingCache())
			seedUser(store, "other", tt.seedUsername, tt.seedEmail)

			got, err := svc.Upsert(context.Background(), &identity.ProviderUser{
				ID:       "user_2abcdef",
				Username: ptr("alice"),
				EmailAddresses: []identity.EmailAddress{
					{ID: "e1", EmailAddress: "Alice@example.com"},
				},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantUsername, got.Username)
			assert.Equal(t, tt.wantEmail, *got.Email)
		})
	}
}

func TestUpsert_UpdateUsernameTakenKeepsCurrent(t *testing.T) {
	store := newFakeStore()
	svc := newTestSync(store, newRecordingCache())
	seedUser(store, "u1", "alice", "")
	seedUser(store, "u2", "bob", "")

	got, err := svc.Upsert(context.Background(), &identity.ProviderUser{
		ID:        "u2",
		Username:  ptr("alice"),
		FirstName: ptr("Bob"),
		LastName:  ptr("Builder"),
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, "Bob Builder", got.DisplayName)
}

func TestUpsert_StoreFailureIsReturned(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("disk full")
	svc := newTestSync(store, newRecordingCache())

	_, err := svc.Upsert(context.Background(), &identity.ProviderUser{ID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestHandleEvent_Deleted(t *testing.T) {
	store := newFakeStore()
	pages := newRecordingCache()
	svc := newTestSync(store, pages)
	seedUser(store, "u1", "alice", "")

	evt := event(t, identity.EventUserDeleted, map[string]any{"id": "u1", "deleted": true})
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
	_, err := store.GetUserByID(context.Background(), "u1")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
	assert.Equal(t, []string{cache.ProfileKey("alice")}, pages.invalidated)

	// Replaying the delete is harmless.
	require.NoError(t, svc.HandleEvent(context.Background(), evt))
}

func TestHandleEvent_MissingID(t *testing.T) {
	for _, typ := range []string{identity.EventUserCreated, identity.EventUserUpdated, identity.EventUserDeleted} {
		t.Run(typ, func(t *testing.T) {
			store := newFakeStore()
			svc := newTestSync(store, newRecordingCache())

			err := svc.HandleEvent(context.Background(), event(t, typ, map[string]any{"username": "ghost"}))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Equal(t, 0, store.creates)
		})
	}
}

func TestHandleEvent_UnknownTypeIgnored(t *testing.T) {
	store := newFakeStore()
	svc := newTestSync(store, newRecordingCache())

	err := svc.HandleEvent(context.Background(), event(t, "session.created", map[string]any{"id": "sess_1"}))
	require.NoError(t, err)
	assert.Equal(t, 0, store.creates)
}
