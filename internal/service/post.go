package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/devpulse/devpulse/internal/apperror"
	"github.com/devpulse/devpulse/internal/model"
	"github.com/devpulse/devpulse/internal/repository"
)

const (
	MaxPostLength    = 2000
	DefaultFeedLimit = 50
	MaxFeedLimit     = 100
)

// PostInput is a new feed entry. MediaURL points at an image the client
// already uploaded with a signature from the media endpoint.
type PostInput struct {
	Text     string  `json:"text"`
	MediaURL *string `json:"mediaUrl"`
}

// PostService runs the community feed.
type PostService struct {
	posts  repository.PostRepository
	owners OwnerResolver
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, owners OwnerResolver, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, owners: owners, logger: logger}
}

// List returns the newest posts. A limit outside 1..MaxFeedLimit falls back
// to DefaultFeedLimit.
func (s *PostService) List(ctx context.Context, limit int) ([]model.Post, error) {
	if limit <= 0 || limit > MaxFeedLimit {
		limit = DefaultFeedLimit
	}
	posts, err := s.posts.ListPosts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

// Create publishes a post for authorID. A post needs text, an image or
// both.
func (s *PostService) Create(ctx context.Context, authorID string, in PostInput) (*model.Post, error) {
	text := strings.TrimSpace(in.Text)
	if utf8.RuneCountInString(text) > MaxPostLength {
		return nil, apperror.ValidationFailed("text", fmt.Sprintf("Posts must be at most %d characters.", MaxPostLength))
	}

	var media *string
	if in.MediaURL != nil {
		if m := strings.TrimSpace(*in.MediaURL); m != "" {
			if !validMediaURL(m) {
				return nil, apperror.ValidationFailed("mediaUrl", "Media URL must be an http or https link.")
			}
			media = &m
		}
	}
	if text == "" && media == nil {
		return nil, apperror.ValidationFailed("text", "Write something or attach an image.")
	}

	author, err := s.owners.ResolveOwner(ctx, authorID)
	if err != nil {
		return nil, err
	}

	post := &model.Post{UserID: author.ID, Username: author.Username, Text: text, MediaURL: media}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("creating post: %w", err)
	}
	s.logger.Info("post created", slog.String("id", post.ID), slog.String("user_id", author.ID))
	return post, nil
}

func validMediaURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
