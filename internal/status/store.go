package status

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Repository persists status documents per user.
type Repository interface {
	Load(ctx context.Context, userID int64) (Document, bool, error)
	Save(ctx context.Context, userID int64, doc Document) error
}

// Store is the mutable, per-user status configuration. Edits stay local until Save.
type Store struct {
	mu       sync.RWMutex
	repo     Repository
	userID   int64
	config   Config
	statuses []string
}

// NewStore returns a store initialised with the built-in defaults.
func NewStore(repo Repository, userID int64) *Store {
	return &Store{
		repo:     repo,
		userID:   userID,
		config:   DefaultConfig(),
		statuses: DefaultStatuses(),
	}
}

// Load overrides the defaults with the user's saved document, if any.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	doc, ok, err := s.repo.Load(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("status: load config: %w", err)
	}
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = doc.Config.Clone()
	s.statuses = mergeStatuses(DefaultStatuses(), doc.Statuses)
	return nil
}

// Save persists the current configuration and known statuses.
func (s *Store) Save(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	s.mu.RLock()
	doc := Document{Config: s.config.Clone(), Statuses: slices.Clone(s.statuses)}
	s.mu.RUnlock()
	if err := s.repo.Save(ctx, s.userID, doc); err != nil {
		return fmt.Errorf("status: save config: %w", err)
	}
	return nil
}

// Classify runs the current configuration against a raw status.
func (s *Store) Classify(raw string) Classification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Classify(raw)
}

// Snapshot returns an independent copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config.Clone()
}

// Statuses returns every selectable status string.
func (s *Store) Statuses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.statuses)
}

// Update adds status to, or removes it from, a single category.
func (s *Store) Update(cat Category, status string, included bool) error {
	if _, err := ParseCategory(string(cat)); err != nil {
		return err
	}
	status = strings.TrimSpace(status)
	if status == "" {
		return ErrEmptyStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.config.List(cat)
	has := slices.Contains(list, status)
	switch {
	case included && !has:
		list = append(slices.Clone(list), status)
	case !included && has:
		list = slices.DeleteFunc(slices.Clone(list), func(v string) bool { return v == status })
	default:
		return nil
	}
	s.config.set(cat, list)
	return nil
}

// Reset restores the default categorization. Custom statuses remain selectable.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = DefaultConfig()
}

// AddCustomStatus registers a new selectable status without assigning a category.
func (s *Store) AddCustomStatus(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.statuses, name) {
		return fmt.Errorf("%w: %q", ErrStatusExists, name)
	}
	s.statuses = append(s.statuses, name)
	return nil
}

func mergeStatuses(base, extra []string) []string {
	out := slices.Clone(base)
	for _, v := range extra {
		v = strings.TrimSpace(v)
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
