package recipes

import (
	"errors"
	"sync"
)

var (
	// ErrNoRecipes is returned when a city has no recipe sequence at all.
	ErrNoRecipes = errors.New("no recipes for city")
	// ErrRecipeNotFound is returned when the city has recipes but none with the given id.
	ErrRecipeNotFound = errors.New("recipe not found")
)

// Recipe is a user-submitted text entry attached to a city.
type Recipe struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
}

// Store keeps recipes in memory, grouped by city identifier.
// Identifiers come from a single counter shared by every city and are never reused.
type Store struct {
	mu     sync.Mutex
	lastID int64
	byCity map[string][]Recipe
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{byCity: make(map[string][]Recipe)}
}

// Create appends a new recipe to the city's sequence and returns the stored record.
func (s *Store) Create(cityID, content string) Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastID++
	rec := Recipe{ID: s.lastID, Content: content}
	s.byCity[cityID] = append(s.byCity[cityID], rec)

	return rec
}

// List returns a copy of the city's recipes in insertion order.
// A city without recipes yields an empty, non-nil slice.
func (s *Store) List(cityID string) []Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Recipe, len(s.byCity[cityID]))
	copy(out, s.byCity[cityID])
	return out
}

// Delete removes the recipe with the given id from the city's sequence.
// Returns ErrNoRecipes when the city has no sequence and ErrRecipeNotFound
// when the sequence holds no matching entry.
func (s *Store) Delete(cityID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, ok := s.byCity[cityID]
	if !ok {
		return ErrNoRecipes
	}

	for i, rec := range seq {
		if rec.ID != id {
			continue
		}
		seq = append(seq[:i:i], seq[i+1:]...)
		if len(seq) == 0 {
			delete(s.byCity, cityID)
		} else {
			s.byCity[cityID] = seq
		}
		return nil
	}

	return ErrRecipeNotFound
}

// Count returns the number of recipes held across all cities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, seq := range s.byCity {
		n += len(seq)
	}
	return n
}
