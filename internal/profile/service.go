// Package profile owns the per-user settings document and its live
// subscription. Each setter writes exactly one field; remote snapshots are
// the source of truth and overwrite anything a client applied optimistically.
package profile

import (
	"context"
	"errors"
	"log"

	"verdant/api/internal/live"
	"verdant/api/internal/store"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Topic is the change-notification topic for one user's profile document.
func Topic(userID string) string {
	return "profile:" + userID
}

// Profile is the settings document as served to clients.
type Profile struct {
	Username          string  `json:"username"`
	Email             string  `json:"email"`
	AvatarFile        *string `json:"avatarFile"`
	AccessibilityMode bool    `json:"accessibilityMode"`
	LanguageCode      string  `json:"languageCode"`
}

// ProfileStore is the slice of storage the profile needs.
type ProfileStore interface {
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	UpdateUserAvatar(ctx context.Context, userID, avatarFile string) error
	UpdateUserAccessibility(ctx context.Context, userID string, enabled bool) error
	UpdateUserLanguage(ctx context.Context, userID, code string) error
}

type Service struct {
	store ProfileStore
	hub   *live.Hub
}

func NewService(profileStore ProfileStore, hub *live.Hub) *Service {
	return &Service{store: profileStore, hub: hub}
}

// Get returns the current profile snapshot.
func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	if userID == "" {
		return Profile{}, ErrNotAuthenticated
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return fromUser(user), nil
}

// Watch opens the live profile subscription, so changes made from another
// device reach every observer of this identity.
func (s *Service) Watch(ctx context.Context, userID string) *live.Subscription[Profile] {
	return live.Watch(ctx, s.hub, Topic(userID), func(ctx context.Context) (Profile, error) {
		return s.Get(ctx, userID)
	})
}

// SetAvatar writes the avatar field only.
func (s *Service) SetAvatar(ctx context.Context, userID, avatarFile string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	if err := s.store.UpdateUserAvatar(ctx, userID, avatarFile); err != nil {
		log.Printf("profile: save avatar for %s: %v", userID, err)
		return err
	}
	log.Printf("profile: avatar saved for %s", userID)
	s.hub.Notify(ctx, Topic(userID))
	return nil
}

// SetAccessibility writes the accessibility flag only.
func (s *Service) SetAccessibility(ctx context.Context, userID string, enabled bool) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	if err := s.store.UpdateUserAccessibility(ctx, userID, enabled); err != nil {
		log.Printf("profile: save accessibility for %s: %v", userID, err)
		return err
	}
	log.Printf("profile: accessibility saved for %s: %v", userID, enabled)
	s.hub.Notify(ctx, Topic(userID))
	return nil
}

// SetLanguage writes the language code only.
func (s *Service) SetLanguage(ctx context.Context, userID, code string) error {
	if userID == "" {
		return ErrNotAuthenticated
	}
	if err := s.store.UpdateUserLanguage(ctx, userID, code); err != nil {
		log.Printf("profile: save language for %s: %v", userID, err)
		return err
	}
	log.Printf("profile: language saved for %s: %s", userID, code)
	s.hub.Notify(ctx, Topic(userID))
	return nil
}

func fromUser(user store.User) Profile {
	return Profile{
		Username:          user.Username,
		Email:             user.Email,
		AvatarFile:        user.AvatarFile,
		AccessibilityMode: user.AccessibilityMode,
		LanguageCode:      user.LanguageCode,
	}
}
