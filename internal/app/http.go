package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"verdant/api/internal/auth"
	"verdant/api/internal/authpw"
	"verdant/api/internal/feed"
	"verdant/api/internal/garden"
	"verdant/api/internal/live"
	"verdant/api/internal/openai"
	"verdant/api/internal/profile"
	"verdant/api/internal/search"
	"verdant/api/internal/store"
)

const maxAvatarUploadBytes = 5 << 20

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/register" {
		var body struct {
			Email           string `json:"email"`
			Username        string `json:"username"`
			Password        string `json:"password"`
			ConfirmPassword string `json:"confirmPassword"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Register(r.Context(), authpw.SignUpRequest{
			Email:           body.Email,
			Username:        body.Username,
			Password:        body.Password,
			ConfirmPassword: body.ConfirmPassword,
		})
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, sessionPayload(session))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		var body struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Login(r.Context(), body.Email, body.Password)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
			return
		}
		writeJSON(w, http.StatusOK, sessionPayload(session))
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/logout" {
		session := Session{}
		if token := bearerToken(r); token != "" {
			if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
				session = parsed
			}
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), session, body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "username": nil})
			return
		}
		session, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "username": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userId":        session.UserID,
			"username":      session.Username,
			"email":         session.Email,
		})
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.URL.Path == "/api/feed" {
		s.handleFeed(w, r, session)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/feed/live" {
		sub := s.service.feed.Watch(r.Context())
		streamSSE(w, r, sub, func(posts []store.Post) any { return postsPayload(posts) })
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/feed/search" {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		limit := 20
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
				return
			}
			limit = parsed
		}
		offset := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
				return
			}
			offset = parsed
		}
		writeJSON(w, http.StatusOK, s.service.feed.Search(search.Query{Text: q, Limit: limit, Offset: offset}))
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/garden" {
		plants, err := s.service.garden.Plants(r.Context(), session.Email)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"plants": plantsPayload(plants)})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/garden/grid" {
		grid, err := s.service.garden.Grid(r.Context(), session.Email)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"grid": gridPayload(grid)})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/garden/live" {
		sub := s.service.garden.Watch(r.Context(), session.Email)
		streamSSE(w, r, sub, func(plants []store.Plant) any { return plantsPayload(plants) })
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/garden/plants" {
		var body struct {
			Name string `json:"name"`
			Slot int    `json:"slot"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.Name) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
			return
		}
		plant, err := s.service.garden.AddPlant(r.Context(), session.UserID, body.Name, body.Slot)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, plantPayload(plant))
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "garden" && parts[2] == "plants" {
		if r.Method != http.MethodDelete {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
			return
		}
		s.service.garden.DeletePlant(r.Context(), parts[3])
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "profile" {
		s.handleProfile(w, r, session, parts)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/bot/ask" {
		var body struct {
			Question string `json:"question"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		answer := s.service.AskBot(r.Context(), body.Question)
		writeJSON(w, http.StatusOK, map[string]any{"answer": answer})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleFeed(w http.ResponseWriter, r *http.Request, session Session) {
	if r.Method == http.MethodGet {
		posts, err := s.service.feed.Posts(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load feed", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"posts": postsPayload(posts)})
		return
	}

	if r.Method == http.MethodPost {
		var body struct {
			Content string `json:"content"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.feed.AddPost(r.Context(), session.UserID, body.Content); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) == 2 && r.Method == http.MethodGet {
		p, err := s.service.profile.Get(r.Context(), session.UserID)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, p)
		return
	}

	if len(parts) == 3 && parts[2] == "live" && r.Method == http.MethodGet {
		sub := s.service.profile.Watch(r.Context(), session.UserID)
		streamSSE(w, r, sub, func(p profile.Profile) any { return p })
		return
	}

	if len(parts) == 3 && parts[2] == "avatar" {
		s.handleAvatar(w, r, session)
		return
	}

	if len(parts) == 4 && parts[2] == "avatar" && parts[3] == "upload" && r.Method == http.MethodPost {
		s.handleAvatarUpload(w, r, session)
		return
	}

	if len(parts) == 4 && parts[2] == "avatar" && parts[3] == "url" && r.Method == http.MethodGet {
		s.handleAvatarURL(w, r, session)
		return
	}

	if len(parts) == 3 && parts[2] == "accessibility" && r.Method == http.MethodPut {
		var body struct {
			Enabled bool `json:"enabled"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.profile.SetAccessibility(r.Context(), session.UserID, body.Enabled); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) == 3 && parts[2] == "language" && r.Method == http.MethodPut {
		var body struct {
			Code string `json:"code"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if strings.TrimSpace(body.Code) == "" {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "code is required", nil)
			return
		}
		if err := s.service.profile.SetLanguage(r.Context(), session.UserID, body.Code); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handleAvatar selects one of the built-in avatars by name.
func (s *HTTPServer) handleAvatar(w http.ResponseWriter, r *http.Request, session Session) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	var body struct {
		AvatarFile string `json:"avatarFile"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	if strings.TrimSpace(body.AvatarFile) == "" {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "avatarFile is required", nil)
		return
	}
	if err := s.service.profile.SetAvatar(r.Context(), session.UserID, body.AvatarFile); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "avatarFile": body.AvatarFile})
}

// handleAvatarUpload stores a multipart image in the object store and points
// the profile at the new key.
func (s *HTTPServer) handleAvatarUpload(w http.ResponseWriter, r *http.Request, session Session) {
	if s.service.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "AVATAR_STORAGE_UNAVAILABLE", "Avatar storage not configured", nil)
		return
	}
	if err := r.ParseMultipartForm(maxAvatarUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid multipart body", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "file is required", nil)
		return
	}
	defer file.Close()

	key, err := s.service.avatars.Upload(r.Context(), session.UserID, header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		log.Printf("avatar upload failed for user=%s: %v", session.UserID, err)
		writeError(w, http.StatusBadGateway, "AVATAR_UPLOAD_FAILED", "Could not store avatar", nil)
		return
	}
	if err := s.service.profile.SetAvatar(r.Context(), session.UserID, key); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "avatarFile": key})
}

func (s *HTTPServer) handleAvatarURL(w http.ResponseWriter, r *http.Request, session Session) {
	if s.service.avatars == nil {
		writeError(w, http.StatusServiceUnavailable, "AVATAR_STORAGE_UNAVAILABLE", "Avatar storage not configured", nil)
		return
	}
	p, err := s.service.profile.Get(r.Context(), session.UserID)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	if p.AvatarFile == nil || *p.AvatarFile == "" || *p.AvatarFile == "default_avatar" {
		writeError(w, http.StatusNotFound, "AVATAR_NOT_FOUND", "No uploaded avatar", nil)
		return
	}
	url, err := s.service.avatars.URL(r.Context(), *p.AvatarFile)
	if err != nil {
		log.Printf("avatar presign failed for user=%s: %v", session.UserID, err)
		writeError(w, http.StatusBadGateway, "AVATAR_URL_FAILED", "Could not sign avatar URL", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"url": url})
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

// streamSSE writes one server-sent event per snapshot until the client goes
// away or the subscription ends.
func streamSSE[T any](w http.ResponseWriter, r *http.Request, sub *live.Subscription[T], render func(T) any) {
	defer sub.Close()

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Streaming unsupported", nil)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, open := <-sub.Snapshots():
			if !open {
				return
			}
			data, err := json.Marshal(render(snapshot))
			if err != nil {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func sessionPayload(session Session) map[string]any {
	return map[string]any{
		"token":        session.Token,
		"refreshToken": session.RefreshToken,
		"userId":       session.UserID,
		"username":     session.Username,
		"email":        session.Email,
		"expiresAt":    session.ExpiresAt.Unix(),
	}
}

func postPayload(post store.Post) map[string]any {
	return map[string]any{
		"id":         post.ID,
		"username":   post.Username,
		"avatarFile": post.AvatarFile,
		"content":    post.Content,
		"timestamp":  post.Timestamp,
	}
}

func postsPayload(posts []store.Post) []map[string]any {
	items := make([]map[string]any, 0, len(posts))
	for _, post := range posts {
		items = append(items, postPayload(post))
	}
	return items
}

func plantPayload(plant store.Plant) map[string]any {
	return map[string]any{
		"id":            plant.ID,
		"name":          plant.Name,
		"ownerId":       plant.OwnerID,
		"ownerEmail":    plant.OwnerEmail,
		"ownerUsername": plant.OwnerUsername,
		"slot":          plant.Slot,
		"timestamp":     plant.Timestamp,
		"care": map[string]any{
			"wateringFrequency": plant.Care.WateringFrequency,
			"sunlightHours":     plant.Care.SunlightHours,
			"soilType":          plant.Care.SoilType,
			"temperatureRange":  plant.Care.TemperatureRange,
			"commonPests":       plant.Care.CommonPests,
			"careTip":           plant.Care.CareTip,
		},
	}
}

func plantsPayload(plants []store.Plant) []map[string]any {
	items := make([]map[string]any, 0, len(plants))
	for _, plant := range plants {
		items = append(items, plantPayload(plant))
	}
	return items
}

func gridPayload(grid [garden.GridSlots]*store.Plant) []any {
	items := make([]any, garden.GridSlots)
	for i, plant := range grid {
		if plant == nil {
			continue
		}
		items[i] = plantPayload(*plant)
	}
	return items
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush keeps the recorder usable for event streams.
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, authpw.ErrEmailTaken) {
		return http.StatusConflict, "EMAIL_EXISTS", err.Error(), nil
	}
	if errors.Is(err, authpw.ErrInvalidCredentials) {
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil
	}
	if errors.Is(err, authpw.ErrFieldsRequired) ||
		errors.Is(err, authpw.ErrPasswordTooShort) ||
		errors.Is(err, authpw.ErrPasswordMismatch) ||
		errors.Is(err, feed.ErrEmptyContent) ||
		errors.Is(err, feed.ErrTooShort) ||
		errors.Is(err, feed.ErrTooLong) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	}
	if errors.Is(err, feed.ErrNotAuthenticated) ||
		errors.Is(err, garden.ErrNotAuthenticated) ||
		errors.Is(err, profile.ErrNotAuthenticated) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, garden.ErrBadCareInfo) {
		return http.StatusBadGateway, "CARE_INFO_INVALID", "Care info response could not be parsed", nil
	}
	if errors.Is(err, openai.ErrUnauthorized) {
		return http.StatusServiceUnavailable, "AI_UNAVAILABLE", "AI provider rejected the API key", nil
	}
	var statusErr *openai.StatusError
	if errors.As(err, &statusErr) {
		return http.StatusBadGateway, "AI_FAILED", "AI provider request failed", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
