package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/identity"
	"github.com/devpulse/devpulse/internal/model"
	"github.com/devpulse/devpulse/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory repository.Store. It enforces the same unique
// constraints as the real schema (id, username, email) and reports them the
// same way, so conflict handling is exercised without a database.
type fakeStore struct {
	mu            sync.Mutex
	users         map[string]*model.User
	socials       map[string]*model.Socials
	settings      map[string]map[string]any
	sections      map[string]*model.SectionItem
	notifications map[string]*model.Notification
	posts         []model.Post
	seq           int

	// set to a non-nil error to simulate a database failure
	createErr error
	updateErr error
	deleteErr error
	pingErr   error

	// counters let tests assert that nothing was written
	creates int
	updates int
	finds   int
}

var _ repository.Store = (*fakeStore)(nil)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         make(map[string]*model.User),
		socials:       make(map[string]*model.Socials),
		settings:      make(map[string]map[string]any),
		sections:      make(map[string]*model.SectionItem),
		notifications: make(map[string]*model.Notification),
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

// clash reports which unique column of u collides with another user.
func (f *fakeStore) clash(u *model.User) string {
	for id, other := range f.users {
		if id == u.ID {
			continue
		}
		if other.Username == u.Username {
			return "username"
		}
		if u.Email != nil && other.Email != nil && *u.Email == *other.Email {
			return "email"
		}
	}
	return ""
}

func (f *fakeStore) CreateUser(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[user.ID]; ok {
		return apperror.ConflictField("id", "This account already exists.")
	}
	switch f.clash(user) {
	case "username":
		return apperror.ConflictField("username", "This username is already taken.")
	case "email":
		return apperror.ConflictField("email", "This email is already taken.")
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	f.users[user.ID] = &stored
	f.socials[user.ID] = &model.Socials{}
	f.settings[user.ID] = map[string]any{}
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) FindUser(ctx context.Context, identifier string) (*model.User, error) {
	f.mu.Lock()
	f.finds++
	for _, u := range f.users {
		if u.Username == identifier {
			copied := *u
			f.mu.Unlock()
			return &copied, nil
		}
	}
	f.mu.Unlock()
	return f.GetUserByID(ctx, identifier)
}

func (f *fakeStore) UpdateUser(_ context.Context, id string, upd repository.UserUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	existing, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}

	next := *existing
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&next.Username, upd.Username)
	set(&next.DisplayName, upd.DisplayName)
	set(&next.Avatar, upd.Avatar)
	set(&next.Bio, upd.Bio)
	set(&next.Website, upd.Website)
	if upd.Email != nil {
		e := *upd.Email
		next.Email = &e
	}
	switch f.clash(&next) {
	case "username":
		return apperror.ConflictField("username", "This username is already taken.")
	case "email":
		return apperror.ConflictField("email", "This email is already taken.")
	}

	next.UpdatedAt = time.Now()
	f.users[id] = &next
	if upd.Socials != nil {
		s := *upd.Socials
		f.socials[id] = &s
	}
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	if _, ok := f.users[id]; !ok {
		return 0, nil
	}
	delete(f.users, id)
	delete(f.socials, id)
	delete(f.settings, id)
	for k, it := range f.sections {
		if it.UserID == id {
			delete(f.sections, k)
		}
	}
	for k, n := range f.notifications {
		if n.UserID == id {
			delete(f.notifications, k)
		}
	}
	return 1, nil
}

func (f *fakeStore) CountUsers(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

func (f *fakeStore) GetSocials(_ context.Context, userID string) (*model.Socials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.socials[userID]; ok {
		copied := *s
		return &copied, nil
	}
	return &model.Socials{}, nil
}

func (f *fakeStore) GetSettings(_ context.Context, userID string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.settings[userID]; ok {
		return s, nil
	}
	return map[string]any{}, nil
}

func (f *fakeStore) SaveSettings(_ context.Context, userID string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[userID] = data
	return nil
}

func (f *fakeStore) CreateSection(_ context.Context, item *model.SectionItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	item.ID = f.nextID("item")
	// Strictly increasing timestamps keep newest-first ordering deterministic.
	item.CreatedAt = time.Unix(int64(1700000000+f.seq), 0)
	item.UpdatedAt = item.CreatedAt
	stored := *item
	f.sections[item.ID] = &stored
	return nil
}

func (f *fakeStore) GetSection(_ context.Context, id string) (*model.SectionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	it, ok := f.sections[id]
	if !ok {
		return nil, apperror.NotFound("section item", id)
	}
	copied := *it
	return &copied, nil
}

func (f *fakeStore) UpdateSection(_ context.Context, item *model.SectionItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.sections[item.ID]
	if !ok {
		return apperror.NotFound("section item", item.ID)
	}
	existing.Title = item.Title
	existing.Description = item.Description
	existing.Link = item.Link
	existing.Tags = item.Tags
	existing.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) DeleteSection(_ context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sections[id]; !ok {
		return 0, nil
	}
	delete(f.sections, id)
	return 1, nil
}

func (f *fakeStore) ListSections(_ context.Context, userID string) ([]model.SectionItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := []model.SectionItem{}
	for _, it := range f.sections {
		if it.UserID == userID {
			items = append(items, *it)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) })
	return items, nil
}

func (f *fakeStore) CreateNotification(_ context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = f.nextID("note")
	n.CreatedAt = time.Unix(int64(1700000000+f.seq), 0)
	stored := *n
	f.notifications[n.ID] = &stored
	return nil
}

func (f *fakeStore) ListNotifications(_ context.Context, userID string) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []model.Notification{}
	for _, n := range f.notifications {
		if n.UserID == userID {
			list = append(list, *n)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

func (f *fakeStore) MarkNotificationRead(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.notifications[id]
	if !ok || n.UserID != userID {
		return apperror.NotFound("notification", id)
	}
	n.Read = true
	return nil
}

func (f *fakeStore) ClearNotifications(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for k, n := range f.notifications {
		if n.UserID == userID {
			delete(f.notifications, k)
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CreatePost(_ context.Context, post *model.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.users[post.UserID]; !ok {
		return fmt.Errorf("foreign key violation: %s", post.UserID)
	}
	post.ID = f.nextID("post")
	post.CreatedAt = time.Unix(int64(1700000000+f.seq), 0)
	f.posts = append(f.posts, *post)
	return nil
}

func (f *fakeStore) ListPosts(_ context.Context, limit int) ([]model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := []model.Post{}
	for i := len(f.posts) - 1; i >= 0 && len(list) < limit; i-- {
		p := f.posts[i]
		if u, ok := f.users[p.UserID]; ok {
			p.Username = u.Username
			list = append(list, p)
		}
	}
	return list, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }
func (f *fakeStore) Close() error { return nil }

// fakeProvider is an identity.Provider backed by a map.
type fakeProvider struct {
	users     map[string]*identity.ProviderUser
	getErr    error
	deleteErr error
	deleted   []string
}

var _ identity.Provider = (*fakeProvider)(nil)

func newFakeProvider() *fakeProvider {
	return &fakeProvider{users: make(map[string]*identity.ProviderUser)}
}

func (p *fakeProvider) GetUser(_ context.Context, id string) (*identity.ProviderUser, error) {
	if p.getErr != nil {
		return nil, p.getErr
	}
	u, ok := p.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return u, nil
}

func (p *fakeProvider) DeleteUser(_ context.Context, id string) error {
	p.deleted = append(p.deleted, id)
	if p.deleteErr != nil {
		return p.deleteErr
	}
	if _, ok := p.users[id]; !ok {
		return identity.ErrNotFound
	}
	delete(p.users, id)
	return nil
}

func (p *fakeProvider) RevokeSession(context.Context, string) error { return nil }

// recordingCache is a PageCache that remembers every invalidated key.
type recordingCache struct {
	mu          sync.Mutex
	pages       map[string][]byte
	invalidated []string
	sets        int
	failInval   bool
}

func newRecordingCache() *recordingCache {
	return &recordingCache{pages: make(map[string][]byte)}
}

func (c *recordingCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.pages[key]
	return b, ok, nil
}

func (c *recordingCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.pages[key] = value
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, keys...)
	if c.failInval {
		return errors.New("cache unavailable")
	}
	for _, k := range keys {
		delete(c.pages, k)
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(s string) *string { return &s }

// seedUser stores a user directly, bypassing the services.
func seedUser(f *fakeStore, id, username, email string) *model.User {
	u := &model.User{ID: id, Username: username, DisplayName: "Dev " + username}
	if email != "" {
		u.Email = ptr(email)
	}
	if err := f.CreateUser(context.Background(), u); err != nil {
		panic(err)
	}
	f.creates = 0
	return u
}
