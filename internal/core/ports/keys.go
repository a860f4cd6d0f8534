package ports

import "context"

// KeyService defines the business logic for device registration keys.
type KeyService interface {
	// VerifyKey checks a presented key against the known key set and
	// returns the key ID it matched.
	VerifyKey(ctx context.Context, key string) (string, error)
	// CreateKey registers a new key under the given ID.
	CreateKey(ctx context.Context, id, key string) error
}

// KeyRepository defines the persistence layer for hashed keys.
type KeyRepository interface {
	// Save stores a key hash under its ID.
	Save(id string, hash string) error
	// All returns every stored (id, hash) pair.
	All() (map[string]string, error)
}
