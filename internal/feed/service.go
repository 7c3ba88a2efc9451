// Package feed owns the shared post feed: validation, writes, and the live
// snapshot stream every subscribed client renders from.
package feed

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"verdant/api/internal/live"
	"verdant/api/internal/search"
	"verdant/api/internal/store"
)

// Topic is the change-notification topic for the posts collection.
const Topic = "posts"

var (
	ErrEmptyContent     = errors.New("post cannot be empty")
	ErrTooShort         = errors.New("post must be longer than 3 characters")
	ErrTooLong          = errors.New("post must be fewer than 200 characters")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// ValidatePostContent enforces the feed content bounds on trimmed text:
// non-empty, at least 4 and at most 200 characters.
func ValidatePostContent(content string) error {
	trimmed := strings.TrimSpace(content)
	switch {
	case trimmed == "":
		return ErrEmptyContent
	case len([]rune(trimmed)) < 4:
		return ErrTooShort
	case len([]rune(trimmed)) > 200:
		return ErrTooLong
	}
	return nil
}

// PostStore is the slice of storage the feed needs.
type PostStore interface {
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	InsertPost(ctx context.Context, post store.Post) error
	ListPosts(ctx context.Context) ([]store.Post, error)
}

type Service struct {
	store  PostStore
	hub    *live.Hub
	search *search.Service
	now    func() time.Time
}

func NewService(postStore PostStore, hub *live.Hub, searchService *search.Service) *Service {
	return &Service{
		store:  postStore,
		hub:    hub,
		search: searchService,
		now:    time.Now,
	}
}

// AddPost validates content, stamps the author's stored username and avatar
// onto a new post, and persists it. The caller sees the post once the live
// snapshot catches up; there is no optimistic insert. A failed store write
// is logged and dropped, the user retries by posting again.
func (s *Service) AddPost(ctx context.Context, userID, content string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	if err := ValidatePostContent(content); err != nil {
		return err
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		log.Printf("feed: fetch author profile %s: %v", userID, err)
		return nil
	}

	// Authors without a chosen avatar post with the default one; the
	// snapshot mapping drops posts whose avatar field is missing entirely.
	avatarFile := "default_avatar"
	if user.AvatarFile != nil {
		avatarFile = *user.AvatarFile
	}

	post := store.Post{
		ID:         uuid.NewString(),
		Username:   user.Username,
		AvatarFile: &avatarFile,
		Content:    content,
		Timestamp:  s.now().UnixMilli(),
	}

	if err := s.store.InsertPost(ctx, post); err != nil {
		log.Printf("feed: add post: %v", err)
		return nil
	}

	s.hub.Notify(ctx, Topic)
	if s.search != nil {
		s.search.IndexPost(search.PostRecord{
			ID:        post.ID,
			Username:  post.Username,
			Content:   post.Content,
			Timestamp: post.Timestamp,
		})
	}
	return nil
}

// Posts returns the current feed snapshot: timestamp ascending, posts with
// an unresolved avatar dropped.
func (s *Service) Posts(ctx context.Context) ([]store.Post, error) {
	posts, err := s.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return dropMissingAvatars(posts), nil
}

// Watch opens the live feed subscription. Each change to the posts
// collection replaces the previous snapshot wholesale.
func (s *Service) Watch(ctx context.Context) *live.Subscription[[]store.Post] {
	return live.Watch(ctx, s.hub, Topic, s.Posts)
}

// Search queries the feed via Meilisearch with a Postgres fallback.
func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

func dropMissingAvatars(posts []store.Post) []store.Post {
	kept := make([]store.Post, 0, len(posts))
	for _, post := range posts {
		if post.AvatarFile == nil {
			continue
		}
		kept = append(kept, post)
	}
	return kept
}
