// Package storage declares the server-side persistence contracts. The sqlite
// and firestore subpackages implement them.
package storage

import (
	"context"
	"strings"

	"github.com/becomeliminal/nim-wallet/core"
)

// ContactRepository persists contacts. Lookups that find nothing return a
// *core.NotFoundError; a second contact with the same nickname key for one
// owner returns a *core.DuplicateNicknameError where the backend can enforce it.
type ContactRepository interface {
	Create(ctx context.Context, contact *core.Contact) error
	ListByOwner(ctx context.Context, ownerID string) ([]core.Contact, error)
	FindByNickname(ctx context.Context, ownerID, nickname string) (*core.Contact, error)
	FindByOwnerAndValue(ctx context.Context, ownerID, value string) (*core.Contact, error)
	Get(ctx context.Context, id string) (*core.Contact, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository persists user profiles keyed by Google user ID.
type UserRepository interface {
	Upsert(ctx context.Context, profile *core.UserProfile) error
	Get(ctx context.Context, userID string) (*core.UserProfile, error)
	FindByEmail(ctx context.Context, email string) (*core.UserProfile, error)
	FindByAddress(ctx context.Context, address string) (*core.UserProfile, error)
	Update(ctx context.Context, profile *core.UserProfile) error
}

// NicknameKey is the case-insensitive form nicknames are unique on.
func NicknameKey(nickname string) string {
	return strings.ToLower(strings.TrimSpace(nickname))
}

// ValueKey normalizes a contact value for lookups: addresses and emails
// compare case-insensitively.
func ValueKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
