// Package resolver turns whatever the user typed as a recipient (address,
// email or contact nickname) into a wallet address.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/becomeliminal/nim-wallet/core"
)

// Kind tells which rule matched the recipient text.
type Kind string

const (
	KindAddress  Kind = "address"
	KindEmail    Kind = "email"
	KindNickname Kind = "nickname"
	KindUnknown  Kind = "unknown"
)

// Resolution is the outcome of resolving a recipient. Address is empty when
// the recipient could not be resolved.
type Resolution struct {
	Address       string `json:"address,omitempty"`
	Kind          Kind   `json:"type"`
	OriginalValue string `json:"originalValue"`
	TargetUserID  string `json:"targetUserId,omitempty"`
}

// Resolved reports whether an address was found.
func (r Resolution) Resolved() bool {
	return r.Address != ""
}

// ContactFinder looks up the owner's saved contacts.
type ContactFinder interface {
	FindByNickname(ctx context.Context, ownerID, nickname string) (*core.Contact, error)
	FindByOwnerAndValue(ctx context.Context, ownerID, value string) (*core.Contact, error)
}

// UserFinder looks up registered users.
type UserFinder interface {
	Get(ctx context.Context, userID string) (*core.UserProfile, error)
	FindByEmail(ctx context.Context, email string) (*core.UserProfile, error)
}

// Resolver applies the recipient rules in order: literal address, email
// (saved contact first, then registered user), contact nickname.
type Resolver struct {
	contacts ContactFinder
	users    UserFinder
}

// New creates a Resolver.
func New(contacts ContactFinder, users UserFinder) *Resolver {
	return &Resolver{contacts: contacts, users: users}
}

// Resolve maps text to an address on network for ownerID. Lookups that find
// nothing produce a KindUnknown resolution, not an error; only backend
// failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, ownerID, text string, network core.Network) (Resolution, error) {
	value := strings.TrimSpace(text)
	res := Resolution{Kind: KindUnknown, OriginalValue: value}
	if value == "" {
		return res, nil
	}

	if core.IsAddress(value) {
		res.Kind = KindAddress
		res.Address = value
		return res, nil
	}

	if core.IsEmail(value) {
		res.Kind = KindEmail
		return r.resolveEmail(ctx, ownerID, core.NormalizeEmail(value), network, res)
	}

	contact, err := r.contacts.FindByNickname(ctx, ownerID, value)
	if err != nil {
		if errors.Is(err, &core.NotFoundError{}) {
			return res, nil
		}
		return res, fmt.Errorf("find contact by nickname: %w", err)
	}

	res.Kind = KindNickname
	switch contact.Type {
	case core.ContactAddress:
		res.Address = contact.Value
		return res, nil
	case core.ContactEmail:
		if contact.TargetUserID != "" {
			return r.resolveUserID(ctx, contact.TargetUserID, network, res)
		}
		return r.resolveRegisteredEmail(ctx, core.NormalizeEmail(contact.Value), network, res)
	}
	return res, nil
}

func (r *Resolver) resolveEmail(ctx context.Context, ownerID, email string, network core.Network, res Resolution) (Resolution, error) {
	contact, err := r.contacts.FindByOwnerAndValue(ctx, ownerID, email)
	switch {
	case err == nil && contact.TargetUserID != "":
		return r.resolveUserID(ctx, contact.TargetUserID, network, res)
	case err != nil && !errors.Is(err, &core.NotFoundError{}):
		return res, fmt.Errorf("find contact by email: %w", err)
	}
	return r.resolveRegisteredEmail(ctx, email, network, res)
}

func (r *Resolver) resolveRegisteredEmail(ctx context.Context, email string, network core.Network, res Resolution) (Resolution, error) {
	user, err := r.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, &core.NotFoundError{}) {
			return res, nil
		}
		return res, fmt.Errorf("find user by email: %w", err)
	}
	res.TargetUserID = user.GoogleUserID
	res.Address = user.WalletAddress(network)
	return res, nil
}

func (r *Resolver) resolveUserID(ctx context.Context, userID string, network core.Network, res Resolution) (Resolution, error) {
	user, err := r.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, &core.NotFoundError{}) {
			return res, nil
		}
		return res, fmt.Errorf("get user: %w", err)
	}
	res.TargetUserID = user.GoogleUserID
	res.Address = user.WalletAddress(network)
	return res, nil
}
