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
	"github.com/devpulse/devpulse/internal/model"
	"github.com/devpulse/devpulse/internal/repository"
)

const (
	MaxSectionTitleLength       = 200
	MaxSectionDescriptionLength = 5000
	MaxSectionTags              = 20
)

// sectionKeys maps the profile page's list names to category tags.
var sectionKeys = map[string]model.SectionType{
	"openSource": model.SectionOpenSource,
	"projects":   model.SectionProject,
	"tutorials":  model.SectionTutorial,
	"articles":   model.SectionArticle,
}

// TagList accepts either a JSON array of strings or one comma-separated
// string ("rust, cli, perf").
type TagList []string

func (t *TagList) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = strings.Split(s, ",")
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("tags must be a string or an array of strings")
	}
	*t = list
	return nil
}

// NormalizeTags trims every tag, drops empty ones and keeps only the first
// occurrence of each.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// SectionInput is a create-or-update request. An empty ID creates.
type SectionInput struct {
	ID          string  `json:"id"`
	Key         string  `json:"key"`
	Type        string  `json:"type"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Link        *string `json:"link"`
	Tags        TagList `json:"tags"`
}

// resolveType picks the category: the list key first, then an explicit
// valid type, then PROJECT.
func (in SectionInput) resolveType() model.SectionType {
	if t, ok := sectionKeys[in.Key]; ok {
		return t
	}
	if t := model.SectionType(strings.ToUpper(strings.TrimSpace(in.Type))); t.Valid() {
		return t
	}
	return model.SectionProject
}

type SectionService struct {
	sections repository.SectionRepository
	users    repository.UserRepository
	owners   OwnerResolver
	pages    cache.PageCache
	logger   *slog.Logger
}

func NewSectionService(
	sections repository.SectionRepository,
	users repository.UserRepository,
	owners OwnerResolver,
	pages cache.PageCache,
	logger *slog.Logger,
) *SectionService {
	return &SectionService{sections: sections, users: users, owners: owners, pages: pages, logger: logger}
}

// Save creates a new item for ownerID, or overwrites the editable fields of
// an existing one the owner holds.
func (s *SectionService) Save(ctx context.Context, ownerID string, in SectionInput) (*model.SectionItem, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperror.ValidationFailed("title", "Title is required.")
	}
	if utf8.RuneCountInString(title) > MaxSectionTitleLength {
		return nil, apperror.ValidationFailed("title",
			fmt.Sprintf("Title must be at most %d characters.", MaxSectionTitleLength))
	}
	if utf8.RuneCountInString(in.Description) > MaxSectionDescriptionLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("Description must be at most %d characters.", MaxSectionDescriptionLength))
	}
	tags := NormalizeTags(in.Tags)
	if len(tags) > MaxSectionTags {
		return nil, apperror.ValidationFailed("tags", fmt.Sprintf("At most %d tags are allowed.", MaxSectionTags))
	}

	var link *string
	if in.Link != nil {
		if l := strings.TrimSpace(*in.Link); l != "" {
			link = &l
		}
	}

	var item *model.SectionItem
	if in.ID == "" {
		// The owner row must exist before an item can reference it.
		if _, err := s.owners.ResolveOwner(ctx, ownerID); err != nil {
			return nil, err
		}
		item = &model.SectionItem{
			UserID:      ownerID,
			Type:        in.resolveType(),
			Title:       title,
			Description: in.Description,
			Link:        link,
			Tags:        tags,
		}
		if err := s.sections.CreateSection(ctx, item); err != nil {
			return nil, fmt.Errorf("creating section item: %w", err)
		}
		s.logger.Info("section item created",
			slog.String("id", item.ID),
			slog.String("user_id", ownerID),
			slog.String("type", string(item.Type)),
		)
	} else {
		existing, err := s.sections.GetSection(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		if existing.UserID != ownerID {
			return nil, apperror.Forbidden("You can only edit your own items.")
		}
		existing.Title = title
		existing.Description = in.Description
		existing.Link = link
		existing.Tags = tags
		if err := s.sections.UpdateSection(ctx, existing); err != nil {
			return nil, err
		}
		item = existing
		s.logger.Info("section item updated", slog.String("id", item.ID), slog.String("user_id", ownerID))
	}

	s.invalidateOwner(ctx, ownerID)
	return item, nil
}

// Delete removes an item. An ID that is already gone counts as deleted.
func (s *SectionService) Delete(ctx context.Context, ownerID, id string) error {
	existing, err := s.sections.GetSection(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		s.logger.Info("section item already gone", slog.String("id", id))
		return nil
	}
	if err != nil {
		return err
	}
	if existing.UserID != ownerID {
		return apperror.Forbidden("You can only delete your own items.")
	}

	if _, err := s.sections.DeleteSection(ctx, id); err != nil {
		return fmt.Errorf("deleting section item %s: %w", id, err)
	}

	s.invalidateOwner(ctx, ownerID)
	s.logger.Info("section item deleted", slog.String("id", id), slog.String("user_id", ownerID))
	return nil
}

func (s *SectionService) invalidateOwner(ctx context.Context, ownerID string) {
	u, err := s.users.GetUserByID(ctx, ownerID)
	if err != nil {
		s.logger.Warn("cannot resolve owner for page invalidation",
			slog.String("user_id", ownerID),
			slog.String("error", err.Error()),
		)
		return
	}
	invalidatePages(ctx, s.pages, s.logger, u.Username)
}
