package db

import (
	"fmt"
	"log"
	"time"

	"solveit/config"
	"solveit/models"
	"solveit/utils"
)

// ProblemStore owns the problems collection. All query, update, and delete
// operations come in user-scoped variants that filter on the (record ID,
// user ID) pair, so one user can never read or mutate another's records.
// The scoping lives here, not in the handlers, and the store is also the one
// place that stamps UserID onto records.
type ProblemStore struct {
	filePath string
}

// NewProblemStore creates the store and ensures its backing file exists.
func NewProblemStore(cfg *config.Config) (*ProblemStore, error) {
	s := &ProblemStore{filePath: cfg.ProblemsFilePath}
	if err := ensureFile(s.filePath); err != nil {
		return nil, fmt.Errorf("initializing problem store: %w", err)
	}
	return s, nil
}

// LoadAll reads the full problems collection. Records persisted without a
// category (older shapes) get the default applied here, in one place.
func (s *ProblemStore) LoadAll() []models.Problem {
	problems := readCollection[models.Problem](s.filePath)
	for i := range problems {
		if problems[i].Category == "" {
			problems[i].Category = models.DefaultCategory
		}
	}
	return problems
}

func (s *ProblemStore) saveAll(problems []models.Problem) error {
	return writeCollection(s.filePath, problems)
}

// GetByID returns the problem with the given ID regardless of owner.
func (s *ProblemStore) GetByID(id string) (models.Problem, bool) {
	for _, p := range s.LoadAll() {
		if p.ID == id {
			return p, true
		}
	}
	return models.Problem{}, false
}

// Save appends a problem to the collection. ID and timestamps are stamped
// here if the caller left them unset.
func (s *ProblemStore) Save(p models.Problem) (models.Problem, error) {
	if p.Category == "" {
		p.Category = models.DefaultCategory
	}
	if p.ID == "" {
		p.ID = utils.GenerateTimeID()
	}
	now := time.Now().UTC()
	if p.Timestamp.IsZero() {
		p.Timestamp = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.Timestamp
	}

	problems := s.LoadAll()
	problems = append(problems, p)
	if err := s.saveAll(problems); err != nil {
		return models.Problem{}, err
	}
	return p, nil
}

// Delete removes the problem with the given ID regardless of owner. The file
// is only rewritten when something was actually removed; the return value
// reports whether a deletion occurred.
func (s *ProblemStore) Delete(id string) (bool, error) {
	problems := s.LoadAll()
	remaining := make([]models.Problem, 0, len(problems))
	for _, p := range problems {
		if p.ID != id {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == len(problems) {
		return false, nil
	}
	if err := s.saveAll(remaining); err != nil {
		return false, err
	}
	return true, nil
}

// GetUserProblems returns all problems owned by the given user, in insertion
// order. The result is never nil, so an empty collection serializes as [].
func (s *ProblemStore) GetUserProblems(userID string) []models.Problem {
	owned := make([]models.Problem, 0)
	for _, p := range s.LoadAll() {
		if p.UserID == userID {
			owned = append(owned, p)
		}
	}
	return owned
}

// GetUserProblem returns the problem with the given ID if the user owns it.
// A record owned by someone else is indistinguishable from a missing one.
func (s *ProblemStore) GetUserProblem(id, userID string) (models.Problem, bool) {
	for _, p := range s.LoadAll() {
		if p.ID == id && p.UserID == userID {
			return p, true
		}
	}
	return models.Problem{}, false
}

// SaveUserProblem stamps identity, ownership, and timestamps on the record
// and appends it. At creation UpdatedAt equals Timestamp exactly.
func (s *ProblemStore) SaveUserProblem(p models.Problem, userID string) (models.Problem, error) {
	if p.Category == "" {
		p.Category = models.DefaultCategory
	}
	now := time.Now().UTC()
	p.ID = utils.GenerateTimeID()
	p.Timestamp = now
	p.UpdatedAt = now
	p.UserID = userID

	problems := s.LoadAll()
	problems = append(problems, p)
	if err := s.saveAll(problems); err != nil {
		return models.Problem{}, err
	}
	log.Printf("INFO: Created problem %s (category '%s') for user %s", p.ID, p.Category, userID)
	return p, nil
}

// ProblemPatch carries the optional fields of a partial update. A nil field
// leaves the stored value unchanged.
type ProblemPatch struct {
	Problem  *string
	Solution *string
	Category *string
}

// UpdateUserProblem applies a partial patch to the user's problem, advances
// UpdatedAt, and rewrites the file. The boolean reports whether a matching
// owned record was found.
func (s *ProblemStore) UpdateUserProblem(id, userID string, patch ProblemPatch) (models.Problem, bool, error) {
	problems := s.LoadAll()
	for i := range problems {
		if problems[i].ID != id || problems[i].UserID != userID {
			continue
		}
		if patch.Problem != nil {
			problems[i].Problem = *patch.Problem
		}
		if patch.Solution != nil {
			problems[i].Solution = *patch.Solution
		}
		if patch.Category != nil {
			problems[i].Category = *patch.Category
		}
		problems[i].UpdatedAt = time.Now().UTC()
		if err := s.saveAll(problems); err != nil {
			return models.Problem{}, false, err
		}
		log.Printf("INFO: Updated problem %s for user %s", id, userID)
		return problems[i], true, nil
	}
	return models.Problem{}, false, nil
}

// DeleteUserProblem removes the problem if the user owns it. The file is
// only rewritten when the filtered collection is shorter than before.
func (s *ProblemStore) DeleteUserProblem(id, userID string) (bool, error) {
	problems := s.LoadAll()
	remaining := make([]models.Problem, 0, len(problems))
	for _, p := range problems {
		if p.ID == id && p.UserID == userID {
			continue
		}
		remaining = append(remaining, p)
	}
	if len(remaining) == len(problems) {
		return false, nil
	}
	if err := s.saveAll(remaining); err != nil {
		return false, err
	}
	log.Printf("INFO: Deleted problem %s for user %s", id, userID)
	return true, nil
}

// GetUserStatistics computes totals for a user's problems in a single pass.
// Categories with zero problems are absent from the map.
func (s *ProblemStore) GetUserStatistics(userID string) models.Statistics {
	problems := s.GetUserProblems(userID)
	categories := make(map[string]int)
	for _, p := range problems {
		categories[p.Category]++
	}
	return models.Statistics{
		TotalProblems:   len(problems),
		Categories:      categories,
		TotalCategories: len(categories),
	}
}
