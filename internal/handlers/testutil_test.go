package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/myrealm/backend/internal/database"
	"github.com/myrealm/backend/internal/events"
	"github.com/myrealm/backend/internal/middleware"
	"github.com/myrealm/backend/internal/models"
	"github.com/myrealm/backend/internal/services"
	"github.com/myrealm/backend/internal/storage"
	"github.com/myrealm/backend/pkg/logger"
	"github.com/myrealm/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app   *fiber.App
	db    *gorm.DB
	store *memoryStore
}

var testSetupOnce sync.Once

// memoryStore is the in-memory ObjectStore used by handler tests.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	// When set, Delete fails with this error for any object.
	deleteErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string][]byte{}}
}

func (m *memoryStore) Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = data
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.objects[objectName]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(m.objects, objectName)
	return nil
}

func (m *memoryStore) PresignedGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	return "http://storage.test/" + objectName, nil
}

func (m *memoryStore) EnsureBucket(ctx context.Context) error {
	return nil
}

func (m *memoryStore) remove(objectName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName)
}

func (m *memoryStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
		utils.ConfigureJWT("test-secret", 24)
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	store := newMemoryStore()
	hub := events.NewHub()

	friendService := services.NewFriendService(db)
	searchService := services.NewSearchService(db, friendService)
	activityService := services.NewActivityService(db)

	authHandler := NewAuthHandler(db)
	usersHandler := NewUsersHandler(db, searchService)
	friendsHandler := NewFriendsHandler(db, friendService, activityService, hub)
	filesHandler := NewFilesHandler(db, store, hub)
	serversHandler := NewServersHandler(db)
	activitiesHandler := NewActivitiesHandler(db)
	authMiddleware := middleware.NewAuthMiddleware(db)

	app := fiber.New(fiber.Config{BodyLimit: 100 * 1024 * 1024})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS("http://localhost:3001"))
	app.Use(middleware.RequestLogger())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	api.Get("/users/search", authMiddleware.RequireAuth, usersHandler.SearchUsers)

	friendRoutes := api.Group("/friends", authMiddleware.RequireAuth)
	friendRoutes.Get("/", friendsHandler.List)
	friendRoutes.Get("/requests/incoming", friendsHandler.IncomingRequests)
	friendRoutes.Get("/requests/outgoing", friendsHandler.OutgoingRequests)
	friendRoutes.Post("/requests", friendsHandler.SendRequest)
	friendRoutes.Post("/requests/:id/respond", friendsHandler.RespondToRequest)
	friendRoutes.Delete("/requests/:id", friendsHandler.CancelRequest)
	friendRoutes.Delete("/:userID", friendsHandler.RemoveFriend)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth)
	fileRoutes.Post("/upload", filesHandler.Upload)
	fileRoutes.Get("/", filesHandler.List)
	fileRoutes.Get("/:id/download-url", filesHandler.DownloadURL)
	fileRoutes.Delete("/:id", filesHandler.Delete)

	serverRoutes := api.Group("/servers", authMiddleware.RequireAuth)
	serverRoutes.Post("/", serversHandler.Create)
	serverRoutes.Get("/", serversHandler.List)
	serverRoutes.Get("/:id", serversHandler.Get)
	serverRoutes.Put("/:id", serversHandler.Update)
	serverRoutes.Delete("/:id", serversHandler.Delete)

	activityRoutes := api.Group("/activities", authMiddleware.RequireAuth)
	activityRoutes.Get("/", activitiesHandler.List)
	activityRoutes.Get("/unread-count", activitiesHandler.UnreadCount)
	activityRoutes.Put("/read-all", activitiesHandler.MarkAllRead)
	activityRoutes.Put("/:id/read", activitiesHandler.MarkRead)

	return &testEnv{app: app, db: db, store: store}
}

func createTestUser(t *testing.T, db *gorm.DB, email, password, displayName string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		DisplayName:  displayName,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := utils.GenerateToken(user)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}

	return user, token
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}

	return performRequest(t, app, method, path, body, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}

	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertEnvelopeError(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if success, _ := body["success"].(bool); success {
		t.Fatalf("expected success=false, got %+v", body)
	}
	if got, _ := body["error"].(string); got != expected {
		t.Fatalf("expected error %q, got %q", expected, got)
	}
}

// waitFor polls for a condition written by an async worker (activity queue).
func waitFor(t *testing.T, timeout time.Duration, check func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return check()
}
