package db

import (
	"errors"
	"fmt"
	"log"
	"time"

	"solveit/config"
	"solveit/models"
	"solveit/utils"
)

// Uniqueness violations surfaced by UserStore.Save. Handlers map these to
// 400 responses naming the colliding field.
var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

// UserStore owns the users collection. Same whole-file read/rewrite model as
// ProblemStore.
type UserStore struct {
	filePath string
}

// NewUserStore creates the store and ensures its backing file exists.
func NewUserStore(cfg *config.Config) (*UserStore, error) {
	s := &UserStore{filePath: cfg.UsersFilePath}
	if err := ensureFile(s.filePath); err != nil {
		return nil, fmt.Errorf("initializing user store: %w", err)
	}
	return s, nil
}

// LoadAll reads the full users collection.
func (s *UserStore) LoadAll() []models.User {
	return readCollection[models.User](s.filePath)
}

func (s *UserStore) saveAll(users []models.User) error {
	return writeCollection(s.filePath, users)
}

// Save appends a user after checking that neither the username nor the email
// is already taken. The username check runs before the email check for each
// existing record, so a double collision reports whichever field the earlier
// record matched. The check and the append are not atomic against concurrent
// writers; a single writer process is assumed.
func (s *UserStore) Save(u models.User) (models.User, error) {
	users := s.LoadAll()
	for _, existing := range users {
		if existing.Username == u.Username {
			return models.User{}, ErrUsernameTaken
		}
		if existing.Email == u.Email {
			return models.User{}, ErrEmailTaken
		}
	}

	if u.ID == "" {
		u.ID = utils.GenerateTimeID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	users = append(users, u)
	if err := s.saveAll(users); err != nil {
		return models.User{}, err
	}
	log.Printf("INFO: Created user %s (username '%s')", u.ID, u.Username)
	return u, nil
}

// GetByUsername returns the first user with the given username.
func (s *UserStore) GetByUsername(username string) (models.User, bool) {
	for _, u := range s.LoadAll() {
		if u.Username == username {
			return u, true
		}
	}
	return models.User{}, false
}

// GetByEmail returns the first user with the given email.
func (s *UserStore) GetByEmail(email string) (models.User, bool) {
	for _, u := range s.LoadAll() {
		if u.Email == email {
			return u, true
		}
	}
	return models.User{}, false
}

// GetByID returns the user with the given ID.
func (s *UserStore) GetByID(id string) (models.User, bool) {
	for _, u := range s.LoadAll() {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// UpdatePassword replaces the stored hash for the given user and rewrites
// the collection. The boolean reports whether the user was found.
func (s *UserStore) UpdatePassword(userID, passwordHash string) (bool, error) {
	users := s.LoadAll()
	for i := range users {
		if users[i].ID == userID {
			users[i].PasswordHash = passwordHash
			if err := s.saveAll(users); err != nil {
				return false, err
			}
			log.Printf("INFO: Updated password hash for user %s", userID)
			return true, nil
		}
	}
	return false, nil
}

// Delete removes the user with the given ID. The file is only rewritten when
// something was actually removed.
func (s *UserStore) Delete(id string) (bool, error) {
	users := s.LoadAll()
	remaining := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.ID != id {
			remaining = append(remaining, u)
		}
	}
	if len(remaining) == len(users) {
		return false, nil
	}
	if err := s.saveAll(remaining); err != nil {
		return false, err
	}
	log.Printf("INFO: Deleted user %s", id)
	return true, nil
}
