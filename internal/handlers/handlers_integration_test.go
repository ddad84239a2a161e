package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"storerate/internal/config"
	"storerate/internal/database"
	"storerate/internal/logger"
	"storerate/internal/server"
	"storerate/internal/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

// setupApp builds the full app on an isolated in-memory SQLite database.
func setupApp(t *testing.T, secret string) *fiber.App {
	t.Helper()

	db, err := database.Open(t.Context(), database.Options{
		Driver: "sqlite",
		DSN:    database.MemoryDSN(uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	cfg := &config.Config{
		JWTSecret:        secret,
		BcryptCost:       bcrypt.MinCost,
		MaxUploadBytes:   1 << 20,
		CORSAllowOrigins: "*",
	}
	images, err := storage.NewImageStore(t.TempDir(), cfg.MaxUploadBytes)
	require.NoError(t, err)

	return server.New(server.Options{
		Config: cfg,
		DB:     db,
		Log:    logger.Discard(),
		Images: images,
	})
}

type apiResponse struct {
	status int
	body   map[string]interface{}
}

func (r apiResponse) data() map[string]interface{} {
	d, _ := r.body["data"].(map[string]interface{})
	return d
}

func (r apiResponse) list() []interface{} {
	l, _ := r.body["data"].([]interface{})
	return l
}

func send(t *testing.T, app *fiber.App, req *http.Request, token string) apiResponse {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := apiResponse{status: resp.StatusCode, body: map[string]interface{}{}}
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out.body), string(raw))
	}
	return out
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) apiResponse {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return send(t, app, req, token)
}

type account struct {
	id    string
	token string
}

func register(t *testing.T, app *fiber.App, username string) account {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	user := resp.body["user"].(map[string]interface{})
	return account{id: user["id"].(string), token: resp.body["token"].(string)}
}

func createStore(t *testing.T, app *fiber.App, token, name, category string) string {
	t.Helper()
	resp := doJSON(t, app, http.MethodPost, "/api/stores", token, map[string]string{
		"name":        name,
		"description": "A store",
		"address":     "1 Main St",
		"category":    category,
	})
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	return resp.data()["id"].(string)
}

func createReview(t *testing.T, app *fiber.App, token, storeID string, rating int) apiResponse {
	t.Helper()
	return doJSON(t, app, http.MethodPost, "/api/reviews", token, map[string]interface{}{
		"store_id": storeID,
		"rating":   rating,
		"comment":  "Nice place",
	})
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app := setupApp(t, "test-secret")

	resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, resp.status)
	assert.Equal(t, "User registered successfully", resp.body["message"])
	assert.NotEmpty(t, resp.body["token"])
	user := resp.body["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password_hash")

	t.Run("duplicate email", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
			"username": "alice2",
			"email":    "alice@x.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusBadRequest, resp.status)
		assert.Equal(t, "User already exists with this email or username", resp.body["message"])
	})

	t.Run("wrong password", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "alice@x.com",
			"password": "wrongpass1",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, "Invalid email or password", resp.body["message"])
	})

	t.Run("unknown email", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "nobody@x.com",
			"password": "password123",
		})
		assert.Equal(t, http.StatusUnauthorized, resp.status)
		assert.Equal(t, "Invalid email or password", resp.body["message"])
	})

	t.Run("login", func(t *testing.T) {
		resp := doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
			"email":    "alice@x.com",
			"password": "password123",
		})
		require.Equal(t, http.StatusOK, resp.status)
		assert.Equal(t, "Login successful", resp.body["message"])
		token := resp.body["token"].(string)

		verify := doJSON(t, app, http.MethodPost, "/api/auth/verify-token", token, nil)
		assert.Equal(t, http.StatusOK, verify.status)
		assert.Equal(t, "Token is valid", verify.body["message"])
		verified := verify.body["user"].(map[string]interface{})
		assert.Equal(t, "alice", verified["username"])
		assert.Equal(t, "user", verified["type"])
	})
}

func TestAuthRegisterValidation(t *testing.T) {
	app := setupApp(t, "test-secret")

	resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "al",
		"email":    "not-an-email",
		"password": "short",
	})
	require.Equal(t, http.StatusBadRequest, resp.status)

	fields := map[string]string{}
	for _, e := range resp.body["errors"].([]interface{}) {
		fe := e.(map[string]interface{})
		fields[fe["field"].(string)] = fe["message"].(string)
	}
	assert.Equal(t, "Username must be between 3 and 30 characters", fields["username"])
	assert.Equal(t, "Invalid email format", fields["email"])
	assert.Equal(t, "Password must be at least 8 characters long", fields["password"])
}

func TestAuthWithoutSecret(t *testing.T) {
	app := setupApp(t, "")

	resp := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice",
		"email":    "alice@x.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.status)
	assert.Equal(t, "Server configuration error", resp.body["message"])
}

func TestProfile(t *testing.T) {
	app := setupApp(t, "test-secret")
	alice := register(t, app, "alice")
	register(t, app, "bob")

	resp := doJSON(t, app, http.MethodGet, "/api/auth/profile", alice.token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	user := resp.body["user"].(map[string]interface{})
	assert.Equal(t, "alice@example.com", user["email"])

	resp = doJSON(t, app, http.MethodPut, "/api/auth/profile", alice.token, map[string]string{"username": "bob"})
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "Username is already taken", resp.body["message"])

	resp = doJSON(t, app, http.MethodPut, "/api/auth/profile", alice.token, map[string]string{"username": "alicia"})
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "alicia", resp.body["user"].(map[string]interface{})["username"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := setupApp(t, "test-secret")

	resp := doJSON(t, app, http.MethodPost, "/api/stores", "", map[string]string{"name": "X"})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, false, resp.body["success"])
	assert.Equal(t, "Access token required", resp.body["message"])

	req := httptest.NewRequest(http.MethodPost, "/api/reviews", nil)
	req.Header.Set("Authorization", "Token abc")
	resp = send(t, app, req, "")
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "Authorization header format must be 'Bearer <token>'", resp.body["message"])

	resp = doJSON(t, app, http.MethodGet, "/api/auth/profile", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
}

func TestAuthRoutesUseAuthEnvelopeForTokenErrors(t *testing.T) {
	app := setupApp(t, "test-secret")

	for _, tc := range []struct {
		method, path, token, message string
	}{
		{http.MethodPost, "/api/auth/verify-token", "", "Access token required"},
		{http.MethodGet, "/api/auth/profile", "", "Access token required"},
		{http.MethodPost, "/api/auth/logout", "not.a.token", "Invalid or expired token"},
	} {
		resp := doJSON(t, app, tc.method, tc.path, tc.token, nil)
		assert.Equal(t, http.StatusUnauthorized, resp.status, tc.path)
		assert.Equal(t, tc.message, resp.body["message"], tc.path)
		assert.NotContains(t, resp.body, "success", tc.path)
	}

	resp := doJSON(t, app, http.MethodPost, "/api/stores", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, false, resp.body["success"])
}

func TestReviewWorkflow(t *testing.T) {
	app := setupApp(t, "test-secret")
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")
	storeID := createStore(t, app, alice.token, "Tech World", "Electronics")

	resp := createReview(t, app, bob.token, storeID, 5)
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	assert.Equal(t, "Review created successfully", resp.body["message"])
	review := resp.data()
	reviewID := review["id"].(string)
	assert.Equal(t, "bob", review["username"])
	assert.Equal(t, "Tech World", review["store_name"])

	resp = doJSON(t, app, http.MethodPut, "/api/reviews/"+reviewID, "", map[string]int{"rating": 1})
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "Access token required", resp.body["message"])
	resp = doJSON(t, app, http.MethodDelete, "/api/reviews/"+reviewID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.status)
	assert.Equal(t, "Access token required", resp.body["message"])

	resp = createReview(t, app, bob.token, storeID, 4)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "You have already reviewed this store", resp.body["message"])

	resp = createReview(t, app, alice.token, storeID, 6)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	assert.Equal(t, "Rating must be between 1 and 5", resp.body["message"])

	resp = createReview(t, app, alice.token, "missing-store", 3)
	assert.Equal(t, http.StatusNotFound, resp.status)

	resp = doJSON(t, app, http.MethodPut, "/api/reviews/"+reviewID, alice.token, map[string]int{"rating": 1})
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Equal(t, "You can only update your own reviews", resp.body["message"])

	resp = doJSON(t, app, http.MethodPut, "/api/reviews/"+reviewID, bob.token, map[string]int{"rating": 3})
	require.Equal(t, http.StatusOK, resp.status)
	assert.EqualValues(t, 3, resp.data()["rating"])
	assert.Equal(t, "Nice place", resp.data()["comment"])

	resp = doJSON(t, app, http.MethodGet, "/api/reviews/store/"+storeID+"?sort=rating_high", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.list(), 1)
	pagination := resp.body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 1, pagination["total_reviews"])
	assert.EqualValues(t, 1, pagination["current_page"])
	stats := resp.body["rating_stats"].(map[string]interface{})
	assert.EqualValues(t, 3, stats["average_rating"])
	assert.EqualValues(t, 1, stats["three_star"])

	resp = doJSON(t, app, http.MethodGet, "/api/stores/"+storeID, "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	store := resp.data()["store"].(map[string]interface{})
	assert.EqualValues(t, 3, store["average_rating"])
	assert.EqualValues(t, 1, store["review_count"])
	assert.Len(t, resp.data()["recent_reviews"], 1)

	resp = doJSON(t, app, http.MethodGet, "/api/reviews/user/"+bob.id, alice.token, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Equal(t, "Access denied", resp.body["message"])

	resp = doJSON(t, app, http.MethodGet, "/api/reviews/user/"+bob.id, bob.token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.list(), 1)

	resp = doJSON(t, app, http.MethodDelete, "/api/reviews/"+reviewID, alice.token, nil)
	assert.Equal(t, http.StatusForbidden, resp.status)
	assert.Equal(t, "You can only delete your own reviews", resp.body["message"])

	resp = doJSON(t, app, http.MethodDelete, "/api/reviews/"+reviewID, bob.token, nil)
	assert.Equal(t, http.StatusOK, resp.status)

	resp = doJSON(t, app, http.MethodGet, "/api/reviews/"+reviewID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "Review not found", resp.body["message"])
}

func TestListAllReviewsPaginates(t *testing.T) {
	app := setupApp(t, "test-secret")
	alice := register(t, app, "alice")
	for i := 0; i < 3; i++ {
		storeID := createStore(t, app, alice.token, fmt.Sprintf("Store %d", i), "Books")
		require.Equal(t, http.StatusCreated, createReview(t, app, alice.token, storeID, 4).status)
	}

	resp := doJSON(t, app, http.MethodGet, "/api/reviews?page=2&limit=2", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.list(), 1)
	pagination := resp.body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 3, pagination["total_reviews"])
	assert.EqualValues(t, 2, pagination["total_pages"])
	assert.Equal(t, false, pagination["has_next"])
	assert.Equal(t, true, pagination["has_prev"])
}

func TestStoreDeleteCascadesReviews(t *testing.T) {
	app := setupApp(t, "test-secret")
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")
	storeID := createStore(t, app, alice.token, "Fashion Hub", "Clothing")

	first := createReview(t, app, alice.token, storeID, 4)
	require.Equal(t, http.StatusCreated, first.status)
	require.Equal(t, http.StatusCreated, createReview(t, app, bob.token, storeID, 2).status)

	resp := doJSON(t, app, http.MethodDelete, "/api/stores/"+storeID, bob.token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.EqualValues(t, 2, resp.data()["reviews_removed"])

	resp = doJSON(t, app, http.MethodGet, "/api/stores/"+storeID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "Store not found", resp.body["message"])

	resp = doJSON(t, app, http.MethodGet, "/api/reviews/"+first.data()["id"].(string), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestStoreUpdateByAnyUser(t *testing.T) {
	app := setupApp(t, "test-secret")
	alice := register(t, app, "alice")
	bob := register(t, app, "bob")
	storeID := createStore(t, app, alice.token, "Book Corner", "Books")

	resp := doJSON(t, app, http.MethodPut, "/api/stores/"+storeID, bob.token, map[string]string{"name": "Book Nook"})
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "Book Nook", resp.data()["name"])
	assert.Equal(t, "Books", resp.data()["category"])
	assert.Nil(t, resp.data()["average_rating"])

	resp = doJSON(t, app, http.MethodPut, "/api/stores/missing", bob.token, map[string]string{"name": "Nope"})
	assert.Equal(t, http.StatusNotFound, resp.status)
}

func TestStoreSearchAndCategory(t *testing.T) {
	app := setupApp(t, "test-secret")
	alice := register(t, app, "alice")
	createStore(t, app, alice.token, "Tech World", "Electronics")
	createStore(t, app, alice.token, "Book Corner", "Books")
	coffee := createStore(t, app, alice.token, "Coffee Beans", "Food & Beverage")
	require.Equal(t, http.StatusCreated, createReview(t, app, alice.token, coffee, 5).status)

	resp := doJSON(t, app, http.MethodGet, "/api/stores/search/tech", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	require.Len(t, resp.list(), 1)
	assert.Equal(t, "Tech World", resp.list()[0].(map[string]interface{})["name"])

	resp = doJSON(t, app, http.MethodGet, "/api/stores/search?q=corner", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.list(), 1)

	resp = doJSON(t, app, http.MethodGet, "/api/stores/search?q=zzz", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.NotNil(t, resp.body["data"])
	assert.Empty(t, resp.list())

	resp = doJSON(t, app, http.MethodGet, "/api/stores/search?q=", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.status)

	resp = doJSON(t, app, http.MethodGet, "/api/stores/search?q=_", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Empty(t, resp.list())

	resp = doJSON(t, app, http.MethodGet, "/api/stores/search/%25", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Empty(t, resp.list())

	resp = doJSON(t, app, http.MethodGet, "/api/stores/category/Food%20%26%20Beverage", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	require.Len(t, resp.list(), 1)
	assert.EqualValues(t, 5, resp.list()[0].(map[string]interface{})["average_rating"])

	resp = doJSON(t, app, http.MethodGet, "/api/stores?limit=2", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Len(t, resp.list(), 2)
	pagination := resp.body["pagination"].(map[string]interface{})
	assert.EqualValues(t, 3, pagination["total_stores"])
	assert.Equal(t, true, pagination["has_next"])
}

func multipartStore(t *testing.T, method, path, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", "Pixel Shop"))
	require.NoError(t, w.WriteField("address", "2 Side St"))
	require.NoError(t, w.WriteField("category", "Electronics"))
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func fetch(t *testing.T, app *fiber.App, path string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestStoreImageUpload(t *testing.T) {
	app := setupApp(t, "test-secret")
	alice := register(t, app, "alice")

	resp := send(t, app, multipartStore(t, http.MethodPost, "/api/stores", "shop.png", pngHeader), alice.token)
	require.Equal(t, http.StatusCreated, resp.status, resp.body)
	imageURL, _ := resp.data()["image_url"].(string)
	require.True(t, strings.HasPrefix(imageURL, "/uploads/"), imageURL)
	assert.Equal(t, "Pixel Shop", resp.data()["name"])

	storeID := resp.data()["id"].(string)

	resp = send(t, app, multipartStore(t, http.MethodPut, "/api/stores/"+storeID, "new.png", pngHeader), alice.token)
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	newURL, _ := resp.data()["image_url"].(string)
	require.NotEqual(t, imageURL, newURL)
	assert.Equal(t, http.StatusNotFound, fetch(t, app, imageURL))

	other := send(t, app, multipartStore(t, http.MethodPost, "/api/stores", "other.png", pngHeader), alice.token)
	require.Equal(t, http.StatusCreated, other.status)
	assert.Equal(t, http.StatusOK, fetch(t, app, other.data()["image_url"].(string)))

	resp = doJSON(t, app, http.MethodDelete, "/api/stores/"+storeID, alice.token, nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, http.StatusNotFound, fetch(t, app, newURL))

	resp = send(t, app, multipartStore(t, http.MethodPost, "/api/stores", "notes.txt", []byte("plain text, not an image")), alice.token)
	assert.Equal(t, http.StatusBadRequest, resp.status)
	require.NotEmpty(t, resp.body["errors"])
	fe := resp.body["errors"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Only image files (jpeg, png, gif, webp) are allowed", fe["message"])
}

func TestHealthMetricsAndUnknownRoute(t *testing.T) {
	app := setupApp(t, "test-secret")

	resp := doJSON(t, app, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, resp.status)
	assert.Equal(t, "healthy", resp.body["status"])
	assert.Equal(t, "up", resp.body["database"])

	resp = doJSON(t, app, http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.status)
	assert.Equal(t, "Route not found", resp.body["message"])

	metrics, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	defer metrics.Body.Close()
	body, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
	assert.Contains(t, string(body), "storerate_http_requests_total")
}
