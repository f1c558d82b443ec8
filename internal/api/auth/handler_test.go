//nolint:noctx // Test file uses http.NewRequest for simplicity
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/civicquest/civicquest-api/internal/models"
	authsvc "github.com/civicquest/civicquest-api/internal/service/auth"
	"github.com/civicquest/civicquest-api/pkg/logger"
)

// Mock Auth Service
type mockAuthService struct {
	users  map[string]string // username -> password
	tokens map[string]string // token -> username
}

func newMockAuthService() *mockAuthService {
	return &mockAuthService{
		users:  make(map[string]string),
		tokens: make(map[string]string),
	}
}

func (m *mockAuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if _, exists := m.users[username]; exists {
		return nil, authsvc.ErrUsernameTaken
	}
	m.users[username] = password
	return &models.User{ID: uint(len(m.users)), Username: username, Email: email, Role: models.RoleUser}, nil
}

func (m *mockAuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	stored, exists := m.users[username]
	if !exists || stored != password {
		return "", nil, authsvc.ErrInvalidCredentials
	}
	token := "token-" + username
	m.tokens[token] = username
	return token, &models.User{ID: 1, Username: username}, nil
}

func (m *mockAuthService) Logout(ctx context.Context, token string) error {
	delete(m.tokens, token)
	return nil
}

// Test Setup
func setupTestHandler() (*Handler, *mockAuthService) {
	service := newMockAuthService()
	log := logger.New("debug", "text", "stdout")
	return NewHandlerWithInterfaces(service, log), service
}

func setupRouter(handler *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	api := router.Group("/api/v1")
	api.POST("/auth/register", handler.Register)
	api.POST("/auth/login", handler.Login)
	api.POST("/auth/logout", handler.Logout)

	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Tests

func TestRegister_Success(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler)

	w := postJSON(router, "/api/v1/auth/register", gin.H{
		"username": "alice",
		"password": "correct horse",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)

	user := response["user"].(map[string]interface{})
	assert.Equal(t, "alice", user["username"])
	assert.NotContains(t, user, "password_hash")
}

func TestRegister_MissingFields(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler)

	w := postJSON(router, "/api/v1/auth/register", gin.H{"username": "alice"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler)

	postJSON(router, "/api/v1/auth/register", gin.H{"username": "alice", "password": "one password"})
	w := postJSON(router, "/api/v1/auth/register", gin.H{"username": "alice", "password": "two password"})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_Success(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.users["alice"] = "correct horse"

	w := postJSON(router, "/api/v1/auth/login", gin.H{"username": "alice", "password": "correct horse"})

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.NotEmpty(t, response["token"])
	assert.NotNil(t, response["user"])
}

func TestLogin_WrongPassword(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.users["alice"] = "correct horse"

	w := postJSON(router, "/api/v1/auth/login", gin.H{"username": "alice", "password": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_RemovesToken(t *testing.T) {
	handler, service := setupTestHandler()
	router := setupRouter(handler)

	service.tokens["token-alice"] = "alice"

	raw, _ := json.Marshal(gin.H{})
	req, _ := http.NewRequest("POST", "/api/v1/auth/logout", bytes.NewReader(raw))
	req.Header.Set("Authorization", "Bearer token-alice")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, service.tokens, "token-alice")
}
