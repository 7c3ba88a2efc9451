package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// --- users ---

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	const insertUser = `
		INSERT INTO users (id, username, email, password_hash, avatar_file, accessibility_mode, language_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.db.ExecContext(ctx, insertUser,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.AvatarFile, user.AccessibilityMode, user.LanguageCode,
	); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return s.getUser(ctx, `WHERE id = $1`, userID)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `WHERE email = $1`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, where string, arg any) (User, error) {
	query := `
		SELECT id, username, email, password_hash, avatar_file, accessibility_mode, language_code, created_at, updated_at
		FROM users ` + where
	var user User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.AvatarFile, &user.AccessibilityMode, &user.LanguageCode,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateUserAvatar writes exactly one profile field, matching the
// field-by-field mutation contract of the profile settings.
func (s *PostgresStore) UpdateUserAvatar(ctx context.Context, userID, avatarFile string) error {
	return s.updateUserField(ctx, userID, `avatar_file`, avatarFile)
}

func (s *PostgresStore) UpdateUserAccessibility(ctx context.Context, userID string, enabled bool) error {
	return s.updateUserField(ctx, userID, `accessibility_mode`, enabled)
}

func (s *PostgresStore) UpdateUserLanguage(ctx context.Context, userID, code string) error {
	return s.updateUserField(ctx, userID, `language_code`, code)
}

func (s *PostgresStore) updateUserField(ctx context.Context, userID, column string, value any) error {
	query := fmt.Sprintf(`UPDATE users SET %s = $1, updated_at = NOW() WHERE id = $2`, column)
	result, err := s.db.ExecContext(ctx, query, value, userID)
	if err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// --- posts ---

func (s *PostgresStore) InsertPost(ctx context.Context, post Post) error {
	const insertPost = `
		INSERT INTO posts (id, username, avatar_file, content, ts)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.db.ExecContext(ctx, insertPost,
		post.ID, post.Username, post.AvatarFile, post.Content, post.Timestamp,
	); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// ListPosts returns the whole feed ordered by timestamp ascending. Clients
// are responsible for display order.
func (s *PostgresStore) ListPosts(ctx context.Context) ([]Post, error) {
	const listPosts = `
		SELECT id, username, avatar_file, content, ts
		FROM posts
		ORDER BY ts ASC
	`
	rows, err := s.db.QueryContext(ctx, listPosts)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		var post Post
		if err := rows.Scan(&post.ID, &post.Username, &post.AvatarFile, &post.Content, &post.Timestamp); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// --- plants ---

func (s *PostgresStore) InsertPlant(ctx context.Context, plant Plant) error {
	pests, err := json.Marshal(plant.Care.CommonPests)
	if err != nil {
		return fmt.Errorf("marshal common pests: %w", err)
	}
	const insertPlant = `
		INSERT INTO plants (
			id, name, owner_id, owner_email, owner_username, slot, ts,
			watering_frequency, sunlight_hours, soil_type, temperature_range, common_pests, care_tip
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if _, err := s.db.ExecContext(ctx, insertPlant,
		plant.ID, plant.Name, plant.OwnerID, plant.OwnerEmail, plant.OwnerUsername,
		plant.Slot, plant.Timestamp,
		plant.Care.WateringFrequency, plant.Care.SunlightHours, plant.Care.SoilType,
		plant.Care.TemperatureRange, pests, plant.Care.CareTip,
	); err != nil {
		return fmt.Errorf("insert plant: %w", err)
	}
	return nil
}

// ListPlantsByOwnerEmail returns the owner's plants sorted by slot
// ascending, with insertion order breaking ties so a later write to the
// same slot lands last.
func (s *PostgresStore) ListPlantsByOwnerEmail(ctx context.Context, email string) ([]Plant, error) {
	const listPlants = `
		SELECT id, name, owner_id, owner_email, owner_username, slot, ts,
			watering_frequency, sunlight_hours, soil_type, temperature_range, common_pests, care_tip
		FROM plants
		WHERE owner_email = $1
		ORDER BY slot ASC, ts ASC
	`
	rows, err := s.db.QueryContext(ctx, listPlants, email)
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	defer rows.Close()

	var plants []Plant
	for rows.Next() {
		var plant Plant
		var pests []byte
		if err := rows.Scan(
			&plant.ID, &plant.Name, &plant.OwnerID, &plant.OwnerEmail, &plant.OwnerUsername,
			&plant.Slot, &plant.Timestamp,
			&plant.Care.WateringFrequency, &plant.Care.SunlightHours, &plant.Care.SoilType,
			&plant.Care.TemperatureRange, &pests, &plant.Care.CareTip,
		); err != nil {
			return nil, fmt.Errorf("scan plant: %w", err)
		}
		if len(pests) > 0 {
			if err := json.Unmarshal(pests, &plant.Care.CommonPests); err != nil {
				return nil, fmt.Errorf("unmarshal common pests: %w", err)
			}
		}
		plants = append(plants, plant)
	}
	return plants, rows.Err()
}

func (s *PostgresStore) GetPlant(ctx context.Context, plantID string) (Plant, error) {
	const getPlant = `
		SELECT id, name, owner_id, owner_email, owner_username, slot, ts,
			watering_frequency, sunlight_hours, soil_type, temperature_range, common_pests, care_tip
		FROM plants
		WHERE id = $1
	`
	var plant Plant
	var pests []byte
	err := s.db.QueryRowContext(ctx, getPlant, plantID).Scan(
		&plant.ID, &plant.Name, &plant.OwnerID, &plant.OwnerEmail, &plant.OwnerUsername,
		&plant.Slot, &plant.Timestamp,
		&plant.Care.WateringFrequency, &plant.Care.SunlightHours, &plant.Care.SoilType,
		&plant.Care.TemperatureRange, &pests, &plant.Care.CareTip,
	)
	if err != nil {
		return Plant{}, err
	}
	if len(pests) > 0 {
		if err := json.Unmarshal(pests, &plant.Care.CommonPests); err != nil {
			return Plant{}, fmt.Errorf("unmarshal common pests: %w", err)
		}
	}
	return plant, nil
}

// DeletePlant is a hard delete. There is no tombstone and no undo.
func (s *PostgresStore) DeletePlant(ctx context.Context, plantID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plants WHERE id = $1`, plantID); err != nil {
		return fmt.Errorf("delete plant: %w", err)
	}
	return nil
}

// --- sessions (Postgres fallback when Redis is not configured) ---

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	const upsert = `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id = $2, expires_at = $3
	`
	if _, err := s.db.ExecContext(ctx, upsert, tokenHash, userID, expiresAt); err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const lookup = `
		SELECT u.id, u.username, u.email, u.password_hash, u.avatar_file, u.accessibility_mode, u.language_code, u.created_at, u.updated_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1 AND rs.expires_at > NOW()
	`
	var user User
	err := s.db.QueryRowContext(ctx, lookup, tokenHash).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.AvatarFile, &user.AccessibilityMode, &user.LanguageCode,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("token not found or expired")
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup refresh session: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeAccessToken(ctx context.Context, jti string, expiresAt time.Time) error {
	const insert = `
		INSERT INTO revoked_access_tokens (jti, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, insert, jti, expiresAt); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

func (s *PostgresStore) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM revoked_access_tokens WHERE jti = $1 AND expires_at > NOW())`, jti,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return exists, nil
}
