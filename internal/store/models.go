package store

import "time"

type User struct {
	ID                string
	Username          string
	Email             string
	PasswordHash      string
	AvatarFile        *string
	AccessibilityMode bool
	LanguageCode      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Post is immutable once written. Timestamp is unix milliseconds; the feed
// is listed by it ascending and never deleted.
type Post struct {
	ID         string
	Username   string
	AvatarFile *string
	Content    string
	Timestamp  int64
}

// PlantCare holds the AI-derived care-attribute fields attached to a plant.
type PlantCare struct {
	WateringFrequency string
	SunlightHours     string
	SoilType          string
	TemperatureRange  string
	CommonPests       []string
	CareTip           string
}

// Plant occupies one of six grid slots in its owner's garden. Slot values
// are 1-based; nothing enforces uniqueness per (owner, slot).
type Plant struct {
	ID            string
	Name          string
	OwnerID       string
	OwnerEmail    string
	OwnerUsername string
	Slot          int
	Timestamp     int64
	Care          PlantCare
}
