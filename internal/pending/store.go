// Package pending stores the approval requests that are waiting for a reaction.
//
// Records are keyed by the chat message timestamp. A record exists exactly as
// long as its approval message does, so every backend is create-only and
// offers an atomic Take for the terminal transitions.
package pending

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/fyrsmithlabs/standupd/internal/standup"
)

var (
	// ErrExists is returned by Put when the key already holds a record.
	ErrExists = errors.New("pending update already exists")
	// ErrInvalidKey is returned for keys the backends cannot store.
	ErrInvalidKey = errors.New("invalid pending update key")
)

// Store persists pending updates.
type Store interface {
	// Put creates the record for key. It never overwrites.
	Put(ctx context.Context, key string, rec standup.PendingUpdate) error
	// Get returns the record for key. found is false when there is none.
	Get(ctx context.Context, key string) (rec standup.PendingUpdate, found bool, err error)
	// Delete removes the record for key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Take removes and returns the record for key. When two callers race,
	// at most one sees found == true.
	Take(ctx context.Context, key string) (rec standup.PendingUpdate, found bool, err error)
	// List returns every stored record by key.
	List(ctx context.Context) (map[string]standup.PendingUpdate, error)
	Close() error
}

var keyPattern = regexp.MustCompile(`^[-/_=.a-zA-Z0-9]+$`)

// ValidateKey checks key against the character set every backend accepts.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
