// Package users manages signed-in users, their registered wallets and the
// testnet faucet.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/storage"
)

// Service owns user profiles and their per-network wallet addresses.
type Service struct {
	users  storage.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewService(users storage.UserRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{users: users, logger: logger, now: time.Now}
}

// Login creates the profile on first sign-in and refreshes email and name
// on later ones.
func (s *Service) Login(ctx context.Context, identity core.GoogleIdentity) (*core.UserProfile, error) {
	if identity.Subject == "" {
		return nil, &core.InvalidArgumentsError{Msg: "identity has no subject"}
	}
	now := s.now().UTC()

	profile, err := s.users.Get(ctx, identity.Subject)
	if errors.Is(err, &core.NotFoundError{}) {
		profile = &core.UserProfile{
			GoogleUserID: identity.Subject,
			Email:        core.NormalizeEmail(identity.Email),
			Name:         identity.Name,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Upsert(ctx, profile); err != nil {
			return nil, err
		}
		s.logger.Info("user registered", zap.String("user", profile.GoogleUserID))
		return profile, nil
	}
	if err != nil {
		return nil, err
	}

	profile.Email = core.NormalizeEmail(identity.Email)
	if identity.Name != "" {
		profile.Name = identity.Name
	}
	profile.UpdatedAt = now
	if err := s.users.Update(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// SaveWallet registers address as the user's wallet on network.
func (s *Service) SaveWallet(ctx context.Context, userID string, network core.Network, address string) (*core.UserProfile, error) {
	address = strings.TrimSpace(address)
	if !core.IsAddress(address) {
		return nil, &core.InvalidArgumentsError{Msg: fmt.Sprintf("invalid wallet address %q", address)}
	}

	profile, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile.SetWalletAddress(network, address)
	profile.UpdatedAt = s.now().UTC()
	if err := s.users.Update(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("wallet saved", zap.String("user", userID), zap.String("network", string(network)))
	return profile, nil
}

// WalletAddress returns the user's address on network.
func (s *Service) WalletAddress(ctx context.Context, userID string, network core.Network) (string, error) {
	profile, err := s.users.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	address := profile.WalletAddress(network)
	if address == "" {
		return "", &core.NotFoundError{Msg: fmt.Sprintf("user %s has no %s wallet", userID, network)}
	}
	return address, nil
}

// CheckAddress reports whether address belongs to a registered user.
func (s *Service) CheckAddress(ctx context.Context, address string) (bool, error) {
	if !core.IsAddress(address) {
		return false, &core.InvalidArgumentsError{Msg: fmt.Sprintf("invalid wallet address %q", address)}
	}
	_, err := s.users.FindByAddress(ctx, address)
	if errors.Is(err, &core.NotFoundError{}) {
		return false, nil
	}
	return err == nil, err
}

// ByAddress returns the user that registered address.
func (s *Service) ByAddress(ctx context.Context, address string) (*core.UserProfile, error) {
	if !core.IsAddress(address) {
		return nil, &core.InvalidArgumentsError{Msg: fmt.Sprintf("invalid wallet address %q", address)}
	}
	return s.users.FindByAddress(ctx, address)
}

func (s *Service) Profile(ctx context.Context, userID string) (*core.UserProfile, error) {
	return s.users.Get(ctx, userID)
}
