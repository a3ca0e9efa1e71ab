// Package contacts manages each user's saved recipients.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/storage"
)

const maxNicknameLen = 32

var nicknameRe = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} ._\-]*$`)

// Service validates and stores address-book entries for their owners.
type Service struct {
	contacts storage.ContactRepository
	users    storage.UserRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewService returns a Service. A nil logger disables logging.
func NewService(contacts storage.ContactRepository, users storage.UserRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{contacts: contacts, users: users, logger: logger, now: time.Now}
}

// AddAddress saves a wallet address under nickname.
func (s *Service) AddAddress(ctx context.Context, ownerID, nickname, address string) (*core.Contact, error) {
	address = strings.TrimSpace(address)
	if !core.IsAddress(address) {
		return nil, &core.InvalidArgumentsError{Msg: fmt.Sprintf("invalid wallet address %q", address)}
	}
	return s.create(ctx, ownerID, nickname, core.ContactAddress, address, "")
}

// AddEmail saves an email under nickname. When a registered user owns the
// email the contact is linked to them so it resolves to their wallet.
func (s *Service) AddEmail(ctx context.Context, ownerID, nickname, email string) (*core.Contact, error) {
	if !core.IsEmail(email) {
		return nil, &core.InvalidArgumentsError{Msg: fmt.Sprintf("invalid email %q", strings.TrimSpace(email))}
	}
	email = core.NormalizeEmail(email)

	var targetUserID string
	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		targetUserID = user.GoogleUserID
	case errors.Is(err, &core.NotFoundError{}):
	default:
		return nil, err
	}

	return s.create(ctx, ownerID, nickname, core.ContactEmail, email, targetUserID)
}

// List returns every contact owned by ownerID.
func (s *Service) List(ctx context.Context, ownerID string) ([]core.Contact, error) {
	return s.contacts.ListByOwner(ctx, ownerID)
}

// GetByNickname looks up one contact for the contacts API.
func (s *Service) GetByNickname(ctx context.Context, ownerID, nickname string) (*core.Contact, error) {
	return s.contacts.FindByNickname(ctx, ownerID, nickname)
}

// FindByNickname looks up a contact by case-insensitive nickname. The
// resolver uses it to turn a nickname into a wallet address.
func (s *Service) FindByNickname(ctx context.Context, ownerID, nickname string) (*core.Contact, error) {
	return s.contacts.FindByNickname(ctx, ownerID, nickname)
}

// FindByOwnerAndValue returns the contact of ownerID saved with value.
func (s *Service) FindByOwnerAndValue(ctx context.Context, ownerID, value string) (*core.Contact, error) {
	return s.contacts.FindByOwnerAndValue(ctx, ownerID, value)
}

// Delete removes a contact. Contacts of other owners are reported as not found.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	contact, err := s.contacts.Get(ctx, id)
	if err != nil {
		return err
	}
	if contact.OwnerID != ownerID {
		return &core.NotFoundError{Msg: fmt.Sprintf("contact %s not found", id)}
	}
	return s.contacts.Delete(ctx, id)
}

func (s *Service) create(ctx context.Context, ownerID, nickname string, kind core.ContactType, value, targetUserID string) (*core.Contact, error) {
	nickname, err := validateNickname(nickname)
	if err != nil {
		return nil, err
	}

	existing, err := s.contacts.FindByNickname(ctx, ownerID, nickname)
	if err == nil && existing != nil {
		return nil, &core.DuplicateNicknameError{Msg: fmt.Sprintf("nickname %q is already in use", nickname)}
	}
	if err != nil && !errors.Is(err, &core.NotFoundError{}) {
		return nil, err
	}

	now := s.now().UTC()
	contact := &core.Contact{
		ID:           uuid.New().String(),
		OwnerID:      ownerID,
		Nickname:     nickname,
		NicknameKey:  storage.NicknameKey(nickname),
		Type:         kind,
		Value:        value,
		TargetUserID: targetUserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, err
	}

	s.logger.Info("contact created",
		zap.String("owner", ownerID),
		zap.String("type", string(kind)),
		zap.Bool("linked", targetUserID != ""),
	)
	return contact, nil
}

func validateNickname(nickname string) (string, error) {
	nickname = strings.TrimSpace(nickname)
	n := utf8.RuneCountInString(nickname)
	if n == 0 || n > maxNicknameLen {
		return "", &core.InvalidArgumentsError{Msg: fmt.Sprintf("nickname must be 1 to %d characters", maxNicknameLen)}
	}
	if !nicknameRe.MatchString(nickname) {
		return "", &core.InvalidArgumentsError{Msg: "nickname may contain letters, digits, spaces, '.', '_' and '-'"}
	}
	return nickname, nil
}
