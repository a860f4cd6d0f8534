package keys

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/lcalzada-xor/cellwatch/internal/core/ports"
)

var (
	ErrUnknownKey = errors.New("unknown registration key")
	ErrKeyExists  = errors.New("key id already exists")
	ErrEmptyKey   = errors.New("empty registration key")
)

// Service validates device registration keys. Keys are stored hashed; the
// plaintext only travels in the registration message.
type Service struct {
	repo ports.KeyRepository

	mu     sync.RWMutex
	hashes map[string]string
}

var _ ports.KeyService = (*Service)(nil)

// NewService loads the known key set from the repository. A nil repository
// yields an in-memory-only service.
func NewService(repo ports.KeyRepository) (*Service, error) {
	s := &Service{
		repo:   repo,
		hashes: make(map[string]string),
	}
	if repo != nil {
		stored, err := repo.All()
		if err != nil {
			return nil, fmt.Errorf("failed to load registration keys: %w", err)
		}
		for id, hash := range stored {
			s.hashes[id] = hash
		}
	}
	return s, nil
}

// VerifyKey checks a presented key against every known hash and returns the
// matching key ID. All failures collapse to ErrUnknownKey to avoid leaking
// which IDs exist.
func (s *Service) VerifyKey(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ErrUnknownKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, hash := range s.hashes {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err == nil {
			return id, nil
		}
	}
	return "", ErrUnknownKey
}

// CreateKey hashes and stores a new key under the given ID.
func (s *Service) CreateKey(ctx context.Context, id, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.hashes[id]; ok {
		return ErrKeyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash key: %w", err)
	}

	if s.repo != nil {
		if err := s.repo.Save(id, string(hash)); err != nil {
			return fmt.Errorf("failed to persist key: %w", err)
		}
	}
	s.hashes[id] = string(hash)
	return nil
}

// InstallKey hashes and stores a key under the given ID, replacing any
// previous hash. Used for the statically configured registration key, which
// must win over whatever an earlier run persisted.
func (s *Service) InstallKey(ctx context.Context, id, key string) error {
	if key == "" {
		return ErrEmptyKey
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repo != nil {
		if err := s.repo.Save(id, string(hash)); err != nil {
			return fmt.Errorf("failed to persist key: %w", err)
		}
	}
	s.hashes[id] = string(hash)
	return nil
}

// HasKeys reports whether any key is loaded.
func (s *Service) HasKeys() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.hashes) > 0
}
