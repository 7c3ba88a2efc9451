// Package garden owns each user's plant grid: the live plants snapshot,
// the two-phase add-plant flow, and deletes.
package garden

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"verdant/api/internal/live"
	"verdant/api/internal/store"
	"verdant/api/internal/util"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Topic is the change-notification topic for one owner's plants.
func Topic(ownerEmail string) string {
	return "plants:" + ownerEmail
}

// PlantStore is the slice of storage the garden needs.
type PlantStore interface {
	GetUserByID(ctx context.Context, userID string) (store.User, error)
	InsertPlant(ctx context.Context, plant store.Plant) error
	ListPlantsByOwnerEmail(ctx context.Context, email string) ([]store.Plant, error)
	GetPlant(ctx context.Context, plantID string) (store.Plant, error)
	DeletePlant(ctx context.Context, plantID string) error
}

// CareSource fetches the AI-derived care attributes for a plant name.
type CareSource interface {
	FetchCareInfo(ctx context.Context, plantName string) (store.PlantCare, error)
}

type Service struct {
	store PlantStore
	hub   *live.Hub
	care  CareSource
	now   func() time.Time
}

func NewService(plantStore PlantStore, hub *live.Hub, care CareSource) *Service {
	return &Service{
		store: plantStore,
		hub:   hub,
		care:  care,
		now:   time.Now,
	}
}

// Plants returns the owner's current plants sorted by slot ascending.
func (s *Service) Plants(ctx context.Context, ownerEmail string) ([]store.Plant, error) {
	if ownerEmail == "" {
		return nil, ErrNotAuthenticated
	}
	return s.store.ListPlantsByOwnerEmail(ctx, ownerEmail)
}

// Watch opens the live plants subscription for one owner.
func (s *Service) Watch(ctx context.Context, ownerEmail string) *live.Subscription[[]store.Plant] {
	return live.Watch(ctx, s.hub, Topic(ownerEmail), func(ctx context.Context) ([]store.Plant, error) {
		return s.store.ListPlantsByOwnerEmail(ctx, ownerEmail)
	})
}

// Grid returns the owner's plants placed into the fixed six-slot grid.
func (s *Service) Grid(ctx context.Context, ownerEmail string) ([GridSlots]*store.Plant, error) {
	plants, err := s.Plants(ctx, ownerEmail)
	if err != nil {
		return [GridSlots]*store.Plant{}, err
	}
	return BuildGrid(plants), nil
}

// AddPlant fetches the care attributes for the plant name, joins them with
// the owner's profile fields, and persists the result. The care fetch
// happens exactly once per add; if it fails or does not parse, nothing is
// persisted. Slot assignment is caller-supplied and deliberately not
// conflict-checked, so a concurrent double-assign persists both rows.
func (s *Service) AddPlant(ctx context.Context, userID, name string, slot int) (store.Plant, error) {
	if userID == "" {
		return store.Plant{}, ErrNotAuthenticated
	}

	care, err := s.care.FetchCareInfo(ctx, name)
	if err != nil {
		return store.Plant{}, err
	}

	owner, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return store.Plant{}, fmt.Errorf("fetch owner profile: %w", err)
	}

	plant := store.Plant{
		ID:            util.NewID("plt"),
		Name:          name,
		OwnerID:       owner.ID,
		OwnerEmail:    owner.Email,
		OwnerUsername: owner.Username,
		Slot:          slot,
		Timestamp:     s.now().UnixMilli(),
		Care:          care,
	}

	if err := s.store.InsertPlant(ctx, plant); err != nil {
		return store.Plant{}, err
	}

	s.hub.Notify(ctx, Topic(owner.Email))
	return plant, nil
}

// DeletePlant hard-deletes the plant. No confirmation, no undo; a failed
// delete is logged and dropped.
func (s *Service) DeletePlant(ctx context.Context, plantID string) {
	plant, err := s.store.GetPlant(ctx, plantID)
	if err != nil {
		log.Printf("garden: lookup plant %s for delete: %v", plantID, err)
		return
	}
	if err := s.store.DeletePlant(ctx, plantID); err != nil {
		log.Printf("garden: delete plant %s: %v", plantID, err)
		return
	}
	s.hub.Notify(ctx, Topic(plant.OwnerEmail))
}
