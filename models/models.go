package models

import "time"

// DefaultCategory is applied to problems created or loaded without an
// explicit category.
const DefaultCategory = "General"

// Problem is one recorded problem/solution entry.
type Problem struct {
	ID        string    `json:"id"`         // Time-derived, unique within the collection
	Problem   string    `json:"problem"`    // What went wrong
	Solution  string    `json:"solution"`   // How it was solved (or the plan to)
	Category  string    `json:"category"`   // Defaults to DefaultCategory
	Timestamp time.Time `json:"timestamp"`  // Creation time (UTC)
	UpdatedAt time.Time `json:"updated_at"` // Last modification time, never before Timestamp
	UserID    string    `json:"user_id"`    // Owning user's ID; stamped by the store
}

// User is a registered account.
// PasswordHash is a bcrypt digest; the plaintext password is never persisted.
type User struct {
	ID           string    `json:"id"` // Time-derived, unique
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// PublicUser is the profile shape exposed by the API. No credential data.
type PublicUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Public strips the user down to the fields safe to return to clients.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Statistics summarizes one user's problem collection. Categories with no
// problems are absent from the map rather than listed with a zero count.
type Statistics struct {
	TotalProblems   int            `json:"total_problems"`
	Categories      map[string]int `json:"categories"`
	TotalCategories int            `json:"total_categories"`
}
