package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/becomeliminal/nim-wallet/core"
)

const userColumns = `google_user_id, email, name, wallet_address_mainnet, wallet_address_testnet,
	faucet_last_used_at, faucet_use_count, created_at, updated_at`

type UsersRepository struct {
	db *sql.DB
}

func NewUsersRepository(db *sql.DB) *UsersRepository {
	return &UsersRepository{db: db}
}

// Upsert inserts the profile or replaces every field of an existing one
// except created_at.
func (r *UsersRepository) Upsert(ctx context.Context, u *core.UserProfile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(google_user_id) DO UPDATE SET
		   email = excluded.email,
		   name = excluded.name,
		   wallet_address_mainnet = excluded.wallet_address_mainnet,
		   wallet_address_testnet = excluded.wallet_address_testnet,
		   faucet_last_used_at = excluded.faucet_last_used_at,
		   faucet_use_count = excluded.faucet_use_count,
		   updated_at = excluded.updated_at`,
		userArgs(u)...,
	)
	return err
}

func (r *UsersRepository) Update(ctx context.Context, u *core.UserProfile) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, name = ?, wallet_address_mainnet = ?, wallet_address_testnet = ?,
		   faucet_last_used_at = ?, faucet_use_count = ?, updated_at = ?
		 WHERE google_user_id = ?`,
		u.Email, u.Name, u.WalletAddressMainnet, u.WalletAddressTestnet,
		nullableTime(u), u.FaucetUseCount, formatTime(u.UpdatedAt), u.GoogleUserID,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return &core.NotFoundError{Msg: fmt.Sprintf("user %s not found", u.GoogleUserID)}
	}
	return nil
}

func (r *UsersRepository) Get(ctx context.Context, userID string) (*core.UserProfile, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE google_user_id = ?`, userID)
	return userOrNotFound(row, "user "+userID)
}

func (r *UsersRepository) FindByEmail(ctx context.Context, email string) (*core.UserProfile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = ? LIMIT 1`, core.NormalizeEmail(email))
	return userOrNotFound(row, "user with email "+email)
}

func (r *UsersRepository) FindByAddress(ctx context.Context, address string) (*core.UserProfile, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE lower(wallet_address_mainnet) = ? OR lower(wallet_address_testnet) = ? LIMIT 1`, key, key)
	return userOrNotFound(row, "user with address "+address)
}

func userArgs(u *core.UserProfile) []any {
	return []any{
		u.GoogleUserID, u.Email, u.Name, u.WalletAddressMainnet, u.WalletAddressTestnet,
		nullableTime(u), u.FaucetUseCount, formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
	}
}

func nullableTime(u *core.UserProfile) sql.NullString {
	if u.FaucetLastUsedAt == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*u.FaucetLastUsedAt), Valid: true}
}

func userOrNotFound(row *sql.Row, what string) (*core.UserProfile, error) {
	var (
		u                    core.UserProfile
		faucetLastUsed       sql.NullString
		createdAt, updatedAt string
	)
	err := row.Scan(&u.GoogleUserID, &u.Email, &u.Name, &u.WalletAddressMainnet, &u.WalletAddressTestnet,
		&faucetLastUsed, &u.FaucetUseCount, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Msg: what + " not found"}
	}
	if err != nil {
		return nil, err
	}
	if faucetLastUsed.Valid {
		t := parseTime(faucetLastUsed.String)
		u.FaucetLastUsedAt = &t
	}
	u.CreatedAt = parseTime(createdAt)
	u.UpdatedAt = parseTime(updatedAt)
	return &u, nil
}
