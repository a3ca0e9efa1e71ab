package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/storage"
)

const contactColumns = `id, owner_id, nickname, nickname_key, type, value, target_user_id, created_at, updated_at`

type ContactsRepository struct {
	db *sql.DB
}

func NewContactsRepository(db *sql.DB) *ContactsRepository {
	return &ContactsRepository{db: db}
}

func (r *ContactsRepository) Create(ctx context.Context, c *core.Contact) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (id, owner_id, nickname, nickname_key, type, value, value_key, target_user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Nickname, storage.NicknameKey(c.Nickname), string(c.Type), c.Value,
		storage.ValueKey(c.Value), c.TargetUserID, formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return &core.DuplicateNicknameError{Msg: fmt.Sprintf("nickname %q is already in use", c.Nickname)}
	}
	return err
}

func (r *ContactsRepository) ListByOwner(ctx context.Context, ownerID string) ([]core.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE owner_id = ? ORDER BY nickname_key ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := []core.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func (r *ContactsRepository) FindByNickname(ctx context.Context, ownerID, nickname string) (*core.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE owner_id = ? AND nickname_key = ?`,
		ownerID, storage.NicknameKey(nickname))
	return contactOrNotFound(row, "contact "+nickname)
}

func (r *ContactsRepository) FindByOwnerAndValue(ctx context.Context, ownerID, value string) (*core.Contact, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE owner_id = ? AND value_key = ? ORDER BY created_at ASC LIMIT 1`,
		ownerID, storage.ValueKey(value))
	return contactOrNotFound(row, "contact for "+value)
}

func (r *ContactsRepository) Get(ctx context.Context, id string) (*core.Contact, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	return contactOrNotFound(row, "contact "+id)
}

func (r *ContactsRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return &core.NotFoundError{Msg: fmt.Sprintf("contact %s not found", id)}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(s scanner) (*core.Contact, error) {
	var (
		c                    core.Contact
		contactType          string
		createdAt, updatedAt string
	)
	err := s.Scan(&c.ID, &c.OwnerID, &c.Nickname, &c.NicknameKey, &contactType, &c.Value,
		&c.TargetUserID, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Type = core.ContactType(contactType)
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}

func contactOrNotFound(row *sql.Row, what string) (*core.Contact, error) {
	c, err := scanContact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &core.NotFoundError{Msg: what + " not found"}
	}
	return c, err
}
