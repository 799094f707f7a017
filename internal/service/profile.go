package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/cache"
	"github.com/devpulse/devpulse/internal/identity"
	"github.com/devpulse/devpulse/internal/model"
	"github.com/devpulse/devpulse/internal/repository"
	"github.com/devpulse/devpulse/internal/settings"
)

const (
	MaxUsernameLength    = 39
	MaxDisplayNameLength = 80
	MaxBioLength         = 1000
)

// ProfileStore is the slice of the store the profile service reads and
// writes.
type ProfileStore interface {
	repository.UserRepository
	repository.SettingsRepository
	repository.SectionRepository
}

// ProfileUpdate is a partial profile change. Nil fields are left alone.
// A non-nil Socials rewrites all four links; links missing from it are
// stored as "".
type ProfileUpdate struct {
	DisplayName *string        `json:"displayName"`
	Avatar      *string        `json:"avatar"`
	Bio         *string        `json:"bio"`
	Website     *string        `json:"website"`
	Username    *string        `json:"username"`
	Email       *string        `json:"email"`
	Socials     *model.Socials `json:"socials"`
}

// ProfileService assembles profile views and applies profile edits.
type ProfileService struct {
	store    ProfileStore
	sync     *SyncService
	provider identity.Provider
	pages    cache.PageCache
	logger   *slog.Logger
}

func NewProfileService(
	store ProfileStore,
	sync *SyncService,
	provider identity.Provider,
	pages cache.PageCache,
	logger *slog.Logger,
) *ProfileService {
	return &ProfileService{store: store, sync: sync, provider: provider, pages: pages, logger: logger}
}

// Get returns the aggregated profile for a username or user ID, or nil if
// nothing matches. It always reads the store.
func (s *ProfileService) Get(ctx context.Context, identifier string) (*model.Profile, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	user, err := s.store.FindUser(ctx, identifier)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding user %s: %w", identifier, err)
	}
	return s.assemble(ctx, user)
}

func (s *ProfileService) assemble(ctx context.Context, user *model.User) (*model.Profile, error) {
	socials, err := s.store.GetSocials(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("loading socials: %w", err)
	}
	raw, err := s.store.GetSettings(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	items, err := s.store.ListSections(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("loading sections: %w", err)
	}

	return &model.Profile{
		User:     *user,
		OwnerID:  user.ID,
		Socials:  *socials,
		Settings: model.Settings(settings.Normalize(raw)),
		Sections: partition(items),
		Stats:    model.Stats{Posts: len(items)},
	}, nil
}

// partition splits items (already newest first) into the four lists.
// Every list is non-nil so it serializes as [].
func partition(items []model.SectionItem) model.Sections {
	sec := model.Sections{
		OpenSource: []model.SectionItem{},
		Projects:   []model.SectionItem{},
		Tutorials:  []model.SectionItem{},
		Articles:   []model.SectionItem{},
	}
	for _, it := range items {
		switch it.Type {
		case model.SectionOpenSource:
			sec.OpenSource = append(sec.OpenSource, it)
		case model.SectionProject:
			sec.Projects = append(sec.Projects, it)
		case model.SectionTutorial:
			sec.Tutorials = append(sec.Tutorials, it)
		case model.SectionArticle:
			sec.Articles = append(sec.Articles, it)
		}
	}
	return sec
}

// PublicPage returns the JSON page payload for anonymous viewers, or nil
// when no profile matches.
func (s *ProfileService) PublicPage(ctx context.Context, identifier string) ([]byte, error) {
	_, page, err := s.View(ctx, identifier, "")
	return page, err
}

// View resolves identifier for viewerID ("" when anonymous). The owner gets
// the full profile; everyone else gets the public page payload, which
// withholds the email when the owner has privacy.hideEmail set. Lookups by
// username go through the page cache. The store is read at most once.
// Both results are nil when no profile matches.
func (s *ProfileService) View(ctx context.Context, identifier, viewerID string) (*model.Profile, []byte, error) {
	key := cache.ProfileKey(identifier)
	if b, ok, err := s.pages.Get(ctx, key); err != nil {
		s.logger.Warn("page cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	} else if ok && (viewerID == "" || pageOwner(b) != viewerID) {
		return nil, b, nil
	}

	p, err := s.Get(ctx, identifier)
	if err != nil || p == nil {
		return nil, nil, err
	}
	if viewerID != "" && p.OwnerID == viewerID {
		return p, nil, nil
	}

	if hideEmail(p.Settings) {
		p.Email = nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding profile %s: %w", p.ID, err)
	}

	if p.Username == identifier {
		if err := s.pages.Set(ctx, key, b); err != nil {
			s.logger.Warn("page cache write failed", slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return nil, b, nil
}

// pageOwner reads the owner ID back out of a cached page payload.
func pageOwner(page []byte) string {
	var head struct {
		OwnerID string `json:"ownerId"`
	}
	if err := json.Unmarshal(page, &head); err != nil {
		return ""
	}
	return head.OwnerID
}

func hideEmail(st model.Settings) bool {
	privacy, _ := st["privacy"].(map[string]any)
	hide, _ := privacy["hideEmail"].(bool)
	return hide
}

// OwnerResolver finds the local user behind a signed-in account, creating
// it from the identity provider's record when the local row is missing.
type OwnerResolver interface {
	ResolveOwner(ctx context.Context, userID string) (*model.User, error)
}

var _ OwnerResolver = (*ProfileService)(nil)

// ResolveOwner returns the local user for userID. A missing row is
// provisioned through the sync bridge; an account the provider does not
// know either is ErrNotFound.
func (s *ProfileService) ResolveOwner(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("loading owner %s: %w", userID, err)
	}

	pu, err := s.provider.GetUser(ctx, userID)
	if errors.Is(err, identity.ErrNotFound) {
		return nil, apperror.NotFound("user", userID)
	}
	if err != nil {
		return nil, apperror.Upstream("Could not load your account from the identity provider.", err)
	}

	user, err = s.sync.Upsert(ctx, pu)
	if err != nil {
		return nil, err
	}
	s.logger.Info("provisioned owner from identity provider", slog.String("user_id", userID))
	return user, nil
}

// EnsureOwner returns the signed-in user's profile, creating the local
// record from the provider's account on first view.
func (s *ProfileService) EnsureOwner(ctx context.Context, userID string) (*model.Profile, error) {
	user, err := s.ResolveOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, user)
}

// Update applies a partial profile change for ownerID.
//
// Blank username, display name, avatar and website values are ignored; bio
// is written whenever present, so it can be cleared. The email is checked
// before anything is written. An owner without a local row is provisioned
// first; one the provider does not know either is left alone.
func (s *ProfileService) Update(ctx context.Context, ownerID string, in ProfileUpdate) error {
	var upd repository.UserUpdate

	if in.Username != nil && strings.TrimSpace(*in.Username) != "" {
		u := SanitizeUsername(*in.Username)
		if u == "" {
			return apperror.ValidationFailed("username", "Username must contain letters or numbers.")
		}
		if utf8.RuneCountInString(u) > MaxUsernameLength {
			return apperror.ValidationFailed("username",
				fmt.Sprintf("Username must be at most %d characters.", MaxUsernameLength))
		}
		upd.Username = &u
	}
	if in.DisplayName != nil {
		if name := strings.TrimSpace(*in.DisplayName); name != "" {
			if utf8.RuneCountInString(name) > MaxDisplayNameLength {
				return apperror.ValidationFailed("displayName",
					fmt.Sprintf("Display name must be at most %d characters.", MaxDisplayNameLength))
			}
			upd.DisplayName = &name
		}
	}
	if in.Avatar != nil {
		if a := strings.TrimSpace(*in.Avatar); a != "" {
			upd.Avatar = &a
		}
	}
	if in.Bio != nil {
		if utf8.RuneCountInString(*in.Bio) > MaxBioLength {
			return apperror.ValidationFailed("bio", fmt.Sprintf("Bio must be at most %d characters.", MaxBioLength))
		}
		bio := *in.Bio
		upd.Bio = &bio
	}
	if in.Website != nil {
		if w := strings.TrimSpace(*in.Website); w != "" {
			upd.Website = &w
		}
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		e := normalizeEmail(*in.Email)
		if !ValidEmail(e) {
			return apperror.ValidationFailed("email", "Invalid email format")
		}
		upd.Email = &e
	}
	if in.Socials != nil {
		soc := model.Socials{
			GitHub:    strings.TrimSpace(in.Socials.GitHub),
			YouTube:   strings.TrimSpace(in.Socials.YouTube),
			LinkedIn:  strings.TrimSpace(in.Socials.LinkedIn),
			Instagram: strings.TrimSpace(in.Socials.Instagram),
		}
		upd.Socials = &soc
	}

	if upd.IsEmpty() {
		return nil
	}
	current, err := s.ResolveOwner(ctx, ownerID)
	if errors.Is(err, apperror.ErrNotFound) {
		s.logger.Info("profile update for unknown account ignored", slog.String("user_id", ownerID))
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.store.UpdateUser(ctx, ownerID, upd); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return conflictMessage(err)
		}
		s.logger.Error("profile update failed", slog.String("user_id", ownerID), slog.String("error", err.Error()))
		return err
	}

	newUsername := current.Username
	if upd.Username != nil {
		newUsername = *upd.Username
	}
	invalidatePages(ctx, s.pages, s.logger, current.Username, newUsername)
	s.logger.Info("profile updated", slog.String("user_id", ownerID))
	return nil
}

// conflictMessage rewrites a store conflict into the message shown to the
// user for the colliding field.
func conflictMessage(err error) error {
	switch apperror.FieldOf(err) {
	case "username":
		return apperror.ConflictField("username", "This username is already taken.")
	case "email":
		return apperror.ConflictField("email", "This email is already taken.")
	}
	return apperror.ConflictField("", "Unique constraint failed.")
}
