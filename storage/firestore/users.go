package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/becomeliminal/nim-wallet/core"
)

type userDoc struct {
	Email                   string     `firestore:"email"`
	EmailKey                string     `firestore:"emailKey"`
	Name                    string     `firestore:"name"`
	WalletAddressMainnet    string     `firestore:"walletAddressMainnet"`
	WalletAddressMainnetKey string     `firestore:"walletAddressMainnetKey"`
	WalletAddressTestnet    string     `firestore:"walletAddressTestnet"`
	WalletAddressTestnetKey string     `firestore:"walletAddressTestnetKey"`
	FaucetLastUsedAt        *time.Time `firestore:"faucetLastUsedAt"`
	FaucetUseCount          int        `firestore:"faucetUseCount"`
	CreatedAt               time.Time  `firestore:"createdAt"`
	UpdatedAt               time.Time  `firestore:"updatedAt"`
}

func toUserDoc(u *core.UserProfile) userDoc {
	return userDoc{
		Email:                   u.Email,
		EmailKey:                core.NormalizeEmail(u.Email),
		Name:                    u.Name,
		WalletAddressMainnet:    u.WalletAddressMainnet,
		WalletAddressMainnetKey: strings.ToLower(u.WalletAddressMainnet),
		WalletAddressTestnet:    u.WalletAddressTestnet,
		WalletAddressTestnetKey: strings.ToLower(u.WalletAddressTestnet),
		FaucetLastUsedAt:        u.FaucetLastUsedAt,
		FaucetUseCount:          u.FaucetUseCount,
		CreatedAt:               u.CreatedAt,
		UpdatedAt:               u.UpdatedAt,
	}
}

func fromUserSnapshot(doc *firestore.DocumentSnapshot) (*core.UserProfile, error) {
	var d userDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
	}
	return &core.UserProfile{
		GoogleUserID:         doc.Ref.ID,
		Email:                d.Email,
		Name:                 d.Name,
		WalletAddressMainnet: d.WalletAddressMainnet,
		WalletAddressTestnet: d.WalletAddressTestnet,
		FaucetLastUsedAt:     d.FaucetLastUsedAt,
		FaucetUseCount:       d.FaucetUseCount,
		CreatedAt:            d.CreatedAt,
		UpdatedAt:            d.UpdatedAt,
	}, nil
}

type UsersRepository struct {
	client *firestore.Client
}

func NewUsersRepository(client *firestore.Client) *UsersRepository {
	return &UsersRepository{client: client}
}

func (r *UsersRepository) col() *firestore.CollectionRef {
	return r.client.Collection(usersCollection)
}

// Upsert writes the profile, keeping createdAt of an existing document.
func (r *UsersRepository) Upsert(ctx context.Context, u *core.UserProfile) error {
	ref := r.col().Doc(u.GoogleUserID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc := toUserDoc(u)
		existing, err := tx.Get(ref)
		if err != nil && !isNotFound(err) {
			return err
		}
		if err == nil {
			if created, cerr := existing.DataAt("createdAt"); cerr == nil {
				if t, ok := created.(time.Time); ok {
					doc.CreatedAt = t
				}
			}
		}
		return tx.Set(ref, doc)
	})
}

func (r *UsersRepository) Update(ctx context.Context, u *core.UserProfile) error {
	ref := r.col().Doc(u.GoogleUserID)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if isNotFound(err) {
				return &core.NotFoundError{Msg: fmt.Sprintf("user %s not found", u.GoogleUserID)}
			}
			return err
		}
		return tx.Set(ref, toUserDoc(u))
	})
}

func (r *UsersRepository) Get(ctx context.Context, userID string) (*core.UserProfile, error) {
	doc, err := getDoc(ctx, r.col().Doc(userID))
	if isNotFound(err) {
		return nil, &core.NotFoundError{Msg: fmt.Sprintf("user %s not found", userID)}
	}
	if err != nil {
		return nil, err
	}
	return fromUserSnapshot(doc)
}

func (r *UsersRepository) FindByEmail(ctx context.Context, email string) (*core.UserProfile, error) {
	doc, err := first(ctx, r.col().Where("emailKey", "==", core.NormalizeEmail(email)))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &core.NotFoundError{Msg: "user with email " + email + " not found"}
	}
	return fromUserSnapshot(doc)
}

func (r *UsersRepository) FindByAddress(ctx context.Context, address string) (*core.UserProfile, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	for _, field := range []string{"walletAddressMainnetKey", "walletAddressTestnetKey"} {
		doc, err := first(ctx, r.col().Where(field, "==", key))
		if err != nil {
			return nil, err
		}
		if doc != nil {
			return fromUserSnapshot(doc)
		}
	}
	return nil, &core.NotFoundError{Msg: "user with address " + address + " not found"}
}
