package utils

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"solveit/config"
	"solveit/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"
)

// SessionName is the cookie name for browser sessions.
const SessionName = "solveit_session"

// Session value keys.
const (
	sessionKeyUserID   = "user_id"
	sessionKeyUsername = "username"
)

// ContextUserID is the gin context key under which the authenticated user's
// ID is stored by AuthRequired.
const ContextUserID = "userID"

// --- Password Hashing ---

// HashPassword generates a bcrypt hash for the given password using the cost
// from config. Each call salts independently, so hashing the same password
// twice yields different digests.
func HashPassword(password string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		log.Printf("ERROR: Failed to hash password: %v", err)
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash compares a plain text password with a stored bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// --- Sessions ---

// NewSessionStore builds the signed-cookie session store. The cookie carries
// only the user's ID and username; tampering is prevented by the HMAC the
// store applies with cfg.Secret.
func NewSessionStore(cfg *config.Config) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.TokenLifetime / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// EstablishSession records the user in the client's session cookie.
// Both login and signup call this; signup implies login.
func EstablishSession(c *gin.Context, store *sessions.CookieStore, user models.User) error {
	session, err := store.Get(c.Request, SessionName)
	if err != nil {
		// A stale or tampered cookie still yields a fresh session; overwrite it.
		log.Printf("WARN: Replacing undecodable session cookie: %v", err)
	}
	session.Values[sessionKeyUserID] = user.ID
	session.Values[sessionKeyUsername] = user.Username
	if err := session.Save(c.Request, c.Writer); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// ClearSession drops the client's session. Safe to call when no session
// exists.
func ClearSession(c *gin.Context, store *sessions.CookieStore) {
	session, _ := store.Get(c.Request, SessionName)
	session.Options.MaxAge = -1
	for key := range session.Values {
		delete(session.Values, key)
	}
	if err := session.Save(c.Request, c.Writer); err != nil {
		log.Printf("WARN: Failed to clear session: %v", err)
	}
}

// SessionUserID extracts the authenticated user's ID from the session
// cookie, if one is present and decodable.
func SessionUserID(c *gin.Context, store *sessions.CookieStore) (string, bool) {
	session, err := store.Get(c.Request, SessionName)
	if err != nil {
		return "", false
	}
	id, ok := session.Values[sessionKeyUserID].(string)
	return id, ok && id != ""
}

// --- Bearer Tokens ---

// Claims defines the structure of the bearer token claims.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed bearer token for a user. Machine clients
// can present it instead of the session cookie.
func GenerateToken(user models.User, cfg *config.Config) (string, error) {
	if cfg.Secret == "" {
		return "", errors.New("signing secret is not configured")
	}

	expirationTime := time.Now().Add(cfg.TokenLifetime)
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "solveit",
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		log.Printf("ERROR: Failed to sign bearer token: %v", err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken parses and validates a bearer token string.
// Returns the claims if valid, otherwise an error.
func ValidateToken(tokenString string, cfg *config.Config) (*Claims, error) {
	if cfg.Secret == "" {
		return nil, errors.New("signing secret is not configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.New("token has expired")
		}
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// --- Route Guard ---

// AuthRequired gates problem and profile routes. It accepts either a valid
// session cookie (browser clients) or a bearer token (machine clients).
// Unauthenticated API requests get a 401; browser requests are redirected to
// the login page. The gating condition is identical for both.
func AuthRequired(store *sessions.CookieStore, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, ok := SessionUserID(c, store); ok {
			c.Set(ContextUserID, id)
			c.Next()
			return
		}

		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				if claims, err := ValidateToken(parts[1], cfg); err == nil {
					c.Set(ContextUserID, claims.UserID)
					c.Next()
					return
				} else {
					GinUnauthorized(c, fmt.Sprintf("Invalid token: %v", err))
					return
				}
			}
		}

		if wantsJSON(c) {
			GinUnauthorized(c, "Authentication required")
			return
		}
		c.Redirect(http.StatusFound, "/login")
		c.Abort()
	}
}

// wantsJSON reports whether the client should receive a structured error
// rather than a redirect. API paths and JSON requests count as machine
// clients, mirroring the browser/API split of the frontend.
func wantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.ContentType() == "application/json"
}

// AuthedUserID pulls the user ID that AuthRequired stored in the context.
// A missing value means the middleware was not applied, which is a wiring
// bug, not a client error.
func AuthedUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return "", false
	}
	id, ok := userID.(string)
	return id, ok && id != ""
}
