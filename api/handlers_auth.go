package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"solveit/config"
	"solveit/db"
	"solveit/models"
	"solveit/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
)

// minPasswordLength applies to signup and password changes.
const minPasswordLength = 6

// SignupRequest is the expected body for POST /signup.
type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupHandler registers a new account and logs it in immediately.
// @Summary      Sign Up
// @Description  Creates an account. Username and email must be unique; the password must be at least 6 characters. A successful signup establishes a session right away, so no separate login is needed.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body SignupRequest true "New account details."
// @Success      201  {object}  map[string]interface{} "Account created and session established. Includes the public profile and a bearer token for machine clients."
// @Failure      400  {object}  utils.APIError "Missing fields, short password, or username/email already taken."
// @Router       /signup [post]
func SignupHandler(c *gin.Context, users *db.UserStore, store *sessions.CookieStore, cfg *config.Config) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if username == "" || email == "" || req.Password == "" {
		utils.GinBadRequest(c, "Username, email, and password are required")
		return
	}
	if len(req.Password) < minPasswordLength {
		utils.GinBadRequest(c, "Password must be at least 6 characters")
		return
	}

	hash, err := utils.HashPassword(req.Password, cfg.BcryptCost)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to process password")
		return
	}

	user, err := users.Save(models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		switch {
		case errors.Is(err, db.ErrUsernameTaken):
			utils.GinBadRequest(c, "Username already exists")
		case errors.Is(err, db.ErrEmailTaken):
			utils.GinBadRequest(c, "Email already exists")
		default:
			utils.GinInternalServerError(c, fmt.Sprintf("Failed to create user: %v", err))
		}
		return
	}

	// Signup implies login.
	if err := utils.EstablishSession(c, store, user); err != nil {
		utils.GinInternalServerError(c, "Account created but session could not be established")
		return
	}
	token, err := utils.GenerateToken(user, cfg)
	if err != nil {
		utils.GinInternalServerError(c, "Account created but token could not be issued")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Signup successful",
		"user":    gin.H{"id": user.ID, "username": user.Username},
		"token":   token,
	})
}

// LoginRequest is the expected body for POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginHandler authenticates a user by username and password.
// @Summary      Log In
// @Description  Verifies credentials and establishes a session. An unknown username and a wrong password produce the same error, so usernames cannot be enumerated.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Username and password."
// @Success      200  {object}  map[string]interface{} "Session established. Includes the public profile and a bearer token for machine clients."
// @Failure      400  {object}  utils.APIError "Username or password missing."
// @Failure      401  {object}  utils.APIError "Invalid username or password."
// @Router       /login [post]
func LoginHandler(c *gin.Context, users *db.UserStore, store *sessions.CookieStore, cfg *config.Config) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		utils.GinBadRequest(c, "Username and password are required")
		return
	}

	// Same response for "no such user" and "wrong password".
	user, found := users.GetByUsername(username)
	if !found || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		utils.GinUnauthorized(c, "Invalid username or password")
		return
	}

	if err := utils.EstablishSession(c, store, user); err != nil {
		utils.GinInternalServerError(c, "Failed to establish session")
		return
	}
	token, err := utils.GenerateToken(user, cfg)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to issue token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    gin.H{"id": user.ID, "username": user.Username},
		"token":   token,
	})
}

// LogoutHandler clears the session. Idempotent: logging out without a
// session is still a success.
// @Summary      Log Out
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  map[string]string "Session cleared."
// @Router       /logout [post]
func LogoutHandler(c *gin.Context, store *sessions.CookieStore) {
	utils.ClearSession(c, store)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// CurrentUserHandler returns the authenticated user's profile.
// @Summary      Get Current User
// @Tags         Auth
// @Produce      json
// @Success      200  {object}  models.PublicUser "The caller's profile."
// @Failure      401  {object}  utils.APIError "Not authenticated."
// @Failure      404  {object}  utils.APIError "Session references a user that no longer exists; the session is cleared."
// @Router       /api/user [get]
func CurrentUserHandler(c *gin.Context, users *db.UserStore, store *sessions.CookieStore) {
	userID, ok := utils.AuthedUserID(c)
	if !ok {
		utils.GinInternalServerError(c, "User ID not found in context. Middleware issue?")
		return
	}

	user, found := users.GetByID(userID)
	if !found {
		// The account was deleted while the session was still live.
		utils.ClearSession(c, store)
		utils.GinNotFound(c, "User not found")
		return
	}

	c.JSON(http.StatusOK, user.Public())
}

// ChangePasswordRequest is the expected body for PUT /api/user/password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePasswordHandler replaces the caller's password hash after
// re-verifying the current password.
// @Summary      Change Password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        passwords body ChangePasswordRequest true "Current and new password."
// @Success      200  {object}  map[string]string "Password changed."
// @Failure      400  {object}  utils.APIError "Missing fields or new password too short."
// @Failure      401  {object}  utils.APIError "Current password is incorrect."
// @Router       /api/user/password [put]
func ChangePasswordHandler(c *gin.Context, users *db.UserStore, cfg *config.Config) {
	userID, ok := utils.AuthedUserID(c)
	if !ok {
		utils.GinInternalServerError(c, "User ID not found in context. Middleware issue?")
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if req.CurrentPassword == "" || req.NewPassword == "" {
		utils.GinBadRequest(c, "Current password and new password are required")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		utils.GinBadRequest(c, "New password must be at least 6 characters")
		return
	}

	user, found := users.GetByID(userID)
	if !found || !utils.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		utils.GinUnauthorized(c, "Current password is incorrect")
		return
	}

	hash, err := utils.HashPassword(req.NewPassword, cfg.BcryptCost)
	if err != nil {
		utils.GinInternalServerError(c, "Failed to process password")
		return
	}
	if _, err := users.UpdatePassword(userID, hash); err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to update password: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}
