package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"solveit/config"
	"solveit/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func createTestAuthConfig() *config.Config {
	return &config.Config{
		Secret:        "test-secret-key-longer-than-32-bytes",
		TokenLifetime: time.Hour,
		BcryptCost:    bcrypt.MinCost,
	}
}

func createTestUser() models.User {
	return models.User{
		ID:       "20240101120000000001",
		Username: "alice",
		Email:    "alice@example.com",
	}
}

// --- Password Hashing ---

func TestHashPassword_SaltsEachCall(t *testing.T) {
	password := "mysecretpassword"

	hash, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEmpty(t, hash)

	hash2, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2, "Expected different hashes for the same password due to salt")
}

func TestCheckPasswordHash(t *testing.T) {
	password := "mysecretpassword"

	hash, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, CheckPasswordHash(password, hash))
	assert.False(t, CheckPasswordHash("wrongpassword", hash))
	assert.False(t, CheckPasswordHash(password, "invalidhashstring"))
}

// --- Bearer Tokens ---

func TestGenerateAndValidateToken(t *testing.T) {
	cfg := createTestAuthConfig()
	user := createTestUser()

	tokenString, err := GenerateToken(user, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := ValidateToken(tokenString, cfg)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Username, claims.Username)
	assert.Equal(t, "solveit", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	cfg := createTestAuthConfig()
	tokenString, err := GenerateToken(createTestUser(), cfg)
	require.NoError(t, err)

	otherCfg := createTestAuthConfig()
	otherCfg.Secret = "a-completely-different-secret-key"
	_, err = ValidateToken(tokenString, otherCfg)
	assert.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := createTestAuthConfig()
	cfg.TokenLifetime = -time.Minute // Already expired when issued

	tokenString, err := GenerateToken(createTestUser(), cfg)
	require.NoError(t, err)

	_, err = ValidateToken(tokenString, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateToken_Garbage(t *testing.T) {
	cfg := createTestAuthConfig()
	_, err := ValidateToken("not.a.token", cfg)
	assert.Error(t, err)
}

func TestGenerateToken_NoSecret(t *testing.T) {
	cfg := createTestAuthConfig()
	cfg.Secret = ""
	_, err := GenerateToken(createTestUser(), cfg)
	assert.Error(t, err)
}

// --- Sessions and the Route Guard ---

// loginAndCaptureCookies establishes a session through a throwaway route and
// returns the cookies the server set.
func loginAndCaptureCookies(t *testing.T, cfg *config.Config, user models.User) []*http.Cookie {
	t.Helper()
	store := NewSessionStore(cfg)

	router := gin.New()
	router.POST("/session", func(c *gin.Context) {
		require.NoError(t, EstablishSession(c, store, user))
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/session", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.NotEmpty(t, cookies, "Establishing a session should set a cookie")
	return cookies
}

func buildGuardedRouter(cfg *config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	sessionStore := NewSessionStore(cfg)
	guarded := router.Group("/")
	guarded.Use(AuthRequired(sessionStore, cfg))
	guarded.GET("/api/whoami", func(c *gin.Context) {
		id, _ := AuthedUserID(c)
		c.JSON(http.StatusOK, gin.H{"user_id": id})
	})
	guarded.GET("/page", func(c *gin.Context) {
		c.String(http.StatusOK, "page")
	})
	return router
}

func TestAuthRequired_SessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := createTestAuthConfig()
	user := createTestUser()
	cookies := loginAndCaptureCookies(t, cfg, user)

	router := buildGuardedRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, user.ID, body["user_id"])
}

func TestAuthRequired_BearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := createTestAuthConfig()
	user := createTestUser()

	tokenString, err := GenerateToken(user, cfg)
	require.NoError(t, err)

	router := buildGuardedRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, user.ID, body["user_id"])
}

func TestAuthRequired_InvalidBearerToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := createTestAuthConfig()

	router := buildGuardedRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthRequired_APIRequestGets401(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := createTestAuthConfig()

	router := buildGuardedRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	var body APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Authentication required", body.Error)
}

func TestAuthRequired_BrowserRequestRedirects(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := createTestAuthConfig()

	router := buildGuardedRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/page", nil)
	req.Header.Set("Accept", "text/html")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
}

func TestAuthRequired_TamperedCookieRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := createTestAuthConfig()
	cookies := loginAndCaptureCookies(t, cfg, createTestUser())

	// Signing with a different secret invalidates the cookie.
	otherCfg := createTestAuthConfig()
	otherCfg.Secret = "a-completely-different-secret-key"

	router := buildGuardedRouter(otherCfg)
	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestClearSession_Idempotent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := createTestAuthConfig()
	store := NewSessionStore(cfg)

	router := gin.New()
	router.POST("/logout", func(c *gin.Context) {
		ClearSession(c, store)
		c.Status(http.StatusOK)
	})

	// No session at all: still succeeds.
	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
