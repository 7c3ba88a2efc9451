package app

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"verdant/api/internal/garden"
	"verdant/api/internal/naturebot"
	"verdant/api/internal/store"
)

func newTestServer(t *testing.T, fs *fakeStore, care *fakeCare, bot *naturebot.Service) *httptest.Server {
	t.Helper()
	service := newTestService(t, fs, newFakeSessions(), care, bot)
	server := httptest.NewServer(NewHTTPServer(service, "*").Handler())
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) *http.Response {
	t.Helper()
	return doJSON(t, client, http.MethodPost, url, token, body)
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func registerUser(t *testing.T, server *httptest.Server, email, username string) map[string]any {
	t.Helper()
	resp := postJSON(t, server.Client(), server.URL+"/api/auth/register", "", map[string]any{
		"email":           email,
		"username":        username,
		"password":        "hunter2",
		"confirmPassword": "hunter2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	return decodeResponse(t, resp)
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeCare{}, nil)

	resp, err := server.Client().Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	payload := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("unexpected health response: %d %v", resp.StatusCode, payload)
	}
}

func TestRegisterThenSessionCheck(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeCare{}, nil)

	session := registerUser(t, server, "ash@example.com", "ash")
	token, _ := session["token"].(string)
	if token == "" {
		t.Fatalf("missing token in %v", session)
	}

	resp := doJSON(t, server.Client(), http.MethodGet, server.URL+"/api/session", token, nil)
	payload := decodeResponse(t, resp)
	if payload["authenticated"] != true || payload["username"] != "ash" {
		t.Fatalf("unexpected session payload: %v", payload)
	}
}

func TestRegisterValidation(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeCare{}, nil)

	cases := []struct {
		name string
		body map[string]any
		code string
	}{
		{
			name: "short password",
			body: map[string]any{"email": "a@b.c", "username": "a", "password": "abc", "confirmPassword": "abc"},
			code: "VALIDATION_ERROR",
		},
		{
			name: "mismatched passwords",
			body: map[string]any{"email": "a@b.c", "username": "a", "password": "hunter2", "confirmPassword": "hunter3"},
			code: "VALIDATION_ERROR",
		},
		{
			name: "missing email",
			body: map[string]any{"username": "a", "password": "hunter2", "confirmPassword": "hunter2"},
			code: "VALIDATION_ERROR",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, server.Client(), server.URL+"/api/auth/register", "", tc.body)
			payload := decodeResponse(t, resp)
			if resp.StatusCode != http.StatusUnprocessableEntity || payload["code"] != tc.code {
				t.Fatalf("got %d %v", resp.StatusCode, payload)
			}
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeCare{}, nil)

	registerUser(t, server, "ash@example.com", "ash")
	resp := postJSON(t, server.Client(), server.URL+"/api/auth/register", "", map[string]any{
		"email":           "ash@example.com",
		"username":        "other",
		"password":        "hunter2",
		"confirmPassword": "hunter2",
	})
	payload := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusConflict || payload["code"] != "EMAIL_EXISTS" {
		t.Fatalf("got %d %v", resp.StatusCode, payload)
	}
}

func TestFeedRequiresAuth(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeCare{}, nil)

	resp, err := server.Client().Get(server.URL + "/api/feed")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreatePostValidation(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeCare{}, nil)
	session := registerUser(t, server, "ash@example.com", "ash")
	token := session["token"].(string)

	resp := postJSON(t, server.Client(), server.URL+"/api/feed", token, map[string]any{"content": "   "})
	payload := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusUnprocessableEntity || payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("got %d %v", resp.StatusCode, payload)
	}
}

func TestCreateAndListPosts(t *testing.T) {
	fs := newFakeStore()
	server := newTestServer(t, fs, &fakeCare{}, nil)
	session := registerUser(t, server, "ash@example.com", "ash")
	token := session["token"].(string)

	resp := postJSON(t, server.Client(), server.URL+"/api/feed", token, map[string]any{"content": "my monstera unfurled a leaf"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create post status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	listResp := doJSON(t, server.Client(), http.MethodGet, server.URL+"/api/feed", token, nil)
	payload := decodeResponse(t, listResp)
	posts, _ := payload["posts"].([]any)
	if len(posts) != 1 {
		t.Fatalf("expected 1 post, got %v", payload)
	}
	post := posts[0].(map[string]any)
	if post["username"] != "ash" || post["content"] != "my monstera unfurled a leaf" {
		t.Fatalf("unexpected post: %v", post)
	}
	if post["avatarFile"] != "default_avatar" {
		t.Fatalf("expected default avatar stamp, got %v", post["avatarFile"])
	}
}

func TestAddPlantBadCareInfo(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeCare{err: fmt.Errorf("parse care info: %w", garden.ErrBadCareInfo)}, nil)
	session := registerUser(t, server, "ash@example.com", "ash")
	token := session["token"].(string)

	resp := postJSON(t, server.Client(), server.URL+"/api/garden/plants", token, map[string]any{"name": "Monstera", "slot": 1})
	payload := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusBadGateway || payload["code"] != "CARE_INFO_INVALID" {
		t.Fatalf("got %d %v", resp.StatusCode, payload)
	}
}

func TestAddPlantAndGrid(t *testing.T) {
	care := &fakeCare{care: store.PlantCare{
		WateringFrequency: "weekly",
		SunlightHours:     "6",
		SoilType:          "loam",
		TemperatureRange:  "18-27C",
		CommonPests:       []string{"spider mites"},
		CareTip:           "Let the topsoil dry out between waterings.",
	}}
	server := newTestServer(t, newFakeStore(), care, nil)
	session := registerUser(t, server, "ash@example.com", "ash")
	token := session["token"].(string)

	resp := postJSON(t, server.Client(), server.URL+"/api/garden/plants", token, map[string]any{"name": "Monstera", "slot": 2})
	created := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusCreated || created["name"] != "Monstera" {
		t.Fatalf("got %d %v", resp.StatusCode, created)
	}

	gridResp := doJSON(t, server.Client(), http.MethodGet, server.URL+"/api/garden/grid", token, nil)
	payload := decodeResponse(t, gridResp)
	grid, _ := payload["grid"].([]any)
	if len(grid) != 6 {
		t.Fatalf("expected 6 grid cells, got %v", payload)
	}
	if grid[1] == nil {
		t.Fatal("expected slot 2 to land in grid index 1")
	}
	cell := grid[1].(map[string]any)
	careMap := cell["care"].(map[string]any)
	if careMap["careTip"] != "Let the topsoil dry out between waterings." {
		t.Fatalf("unexpected care payload: %v", careMap)
	}
	for i, cell := range grid {
		if i != 1 && cell != nil {
			t.Fatalf("expected empty cell at %d, got %v", i, cell)
		}
	}
}

func TestDeletePlantIsSilent(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeCare{}, nil)
	session := registerUser(t, server, "ash@example.com", "ash")
	token := session["token"].(string)

	resp := doJSON(t, server.Client(), http.MethodDelete, server.URL+"/api/garden/plants/nope", token, nil)
	payload := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("delete should always succeed, got %d %v", resp.StatusCode, payload)
	}
}

func TestProfileLanguageUpdate(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeCare{}, nil)
	session := registerUser(t, server, "ash@example.com", "ash")
	token := session["token"].(string)

	resp := doJSON(t, server.Client(), http.MethodPut, server.URL+"/api/profile/language", token, map[string]any{"code": "sv"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("set language status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	profileResp := doJSON(t, server.Client(), http.MethodGet, server.URL+"/api/profile", token, nil)
	payload := decodeResponse(t, profileResp)
	if payload["languageCode"] != "sv" || payload["accessibilityMode"] != false {
		t.Fatalf("unexpected profile: %v", payload)
	}
}

func TestAvatarUploadUnavailableWithoutStorage(t *testing.T) {
	server := newTestServer(t, newFakeStore(), &fakeCare{}, nil)
	session := registerUser(t, server, "ash@example.com", "ash")
	token := session["token"].(string)

	resp := postJSON(t, server.Client(), server.URL+"/api/profile/avatar/upload", token, nil)
	payload := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusServiceUnavailable || payload["code"] != "AVATAR_STORAGE_UNAVAILABLE" {
		t.Fatalf("got %d %v", resp.StatusCode, payload)
	}
}

func TestBotAskEndpoint(t *testing.T) {
	bot := naturebot.NewService(&fakeCompleter{answer: "Ferns love shade."})
	server := newTestServer(t, newFakeStore(), &fakeCare{}, bot)
	session := registerUser(t, server, "ash@example.com", "ash")
	token := session["token"].(string)

	resp := postJSON(t, server.Client(), server.URL+"/api/bot/ask", token, map[string]any{"question": "how do I care for a fern?"})
	payload := decodeResponse(t, resp)
	if resp.StatusCode != http.StatusOK || payload["answer"] != "Ferns love shade." {
		t.Fatalf("got %d %v", resp.StatusCode, payload)
	}

	resp = postJSON(t, server.Client(), server.URL+"/api/bot/ask", token, map[string]any{"question": ""})
	payload = decodeResponse(t, resp)
	if payload["answer"] != naturebot.MsgEmptyQuestion {
		t.Fatalf("expected validation message, got %v", payload)
	}
}

func TestFeedLiveStreamsInitialSnapshot(t *testing.T) {
	fs := newFakeStore()
	server := newTestServer(t, fs, &fakeCare{}, nil)
	session := registerUser(t, server, "ash@example.com", "ash")
	token := session["token"].(string)

	resp := postJSON(t, server.Client(), server.URL+"/api/feed", token, map[string]any{"content": "first sprout"})
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodGet, server.URL+"/api/feed/live", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	stream, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer stream.Body.Close()

	if got := stream.Header.Get("Content-Type"); !strings.HasPrefix(got, "text/event-stream") {
		t.Fatalf("unexpected content type %q", got)
	}

	scanner := bufio.NewScanner(stream.Body)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: ") {
			event = strings.TrimPrefix(line, "data: ")
			break
		}
	}
	if event == "" {
		t.Fatalf("no event received: %v", scanner.Err())
	}

	var posts []map[string]any
	if err := json.Unmarshal([]byte(event), &posts); err != nil {
		t.Fatalf("decode event %q: %v", event, err)
	}
	if len(posts) != 1 || posts[0]["content"] != "first sprout" {
		t.Fatalf("unexpected snapshot: %v", posts)
	}
}
