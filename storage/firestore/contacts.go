package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/retry"
	"github.com/becomeliminal/nim-wallet/storage"
)

type contactDoc struct {
	OwnerID      string    `firestore:"ownerId"`
	Nickname     string    `firestore:"nickname"`
	NicknameKey  string    `firestore:"nicknameKey"`
	Type         string    `firestore:"type"`
	Value        string    `firestore:"value"`
	ValueKey     string    `firestore:"valueKey"`
	TargetUserID string    `firestore:"targetUserId,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func toContactDoc(c *core.Contact) contactDoc {
	return contactDoc{
		OwnerID:      c.OwnerID,
		Nickname:     c.Nickname,
		NicknameKey:  storage.NicknameKey(c.Nickname),
		Type:         string(c.Type),
		Value:        c.Value,
		ValueKey:     storage.ValueKey(c.Value),
		TargetUserID: c.TargetUserID,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func fromContactSnapshot(doc *firestore.DocumentSnapshot) (*core.Contact, error) {
	var d contactDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode contact %s: %w", doc.Ref.ID, err)
	}
	return &core.Contact{
		ID:           doc.Ref.ID,
		OwnerID:      d.OwnerID,
		Nickname:     d.Nickname,
		NicknameKey:  d.NicknameKey,
		Type:         core.ContactType(d.Type),
		Value:        d.Value,
		TargetUserID: d.TargetUserID,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

type ContactsRepository struct {
	client *firestore.Client
}

func NewContactsRepository(client *firestore.Client) *ContactsRepository {
	return &ContactsRepository{client: client}
}

func (r *ContactsRepository) col() *firestore.CollectionRef {
	return r.client.Collection(contactsCollection)
}

// Create checks nickname uniqueness and writes the contact in one transaction.
func (r *ContactsRepository) Create(ctx context.Context, c *core.Contact) error {
	doc := toContactDoc(c)
	ref := r.col().Doc(c.ID)
	dup := r.col().Where("ownerId", "==", c.OwnerID).Where("nicknameKey", "==", doc.NicknameKey).Limit(1)

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		existing, err := tx.Documents(dup).GetAll()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return &core.DuplicateNicknameError{Msg: fmt.Sprintf("nickname %q is already in use", c.Nickname)}
		}
		return tx.Create(ref, doc)
	})
}

func (r *ContactsRepository) ListByOwner(ctx context.Context, ownerID string) ([]core.Contact, error) {
	docs, err := retry.Do(ctx, readRetry, func(ctx context.Context) ([]*firestore.DocumentSnapshot, error) {
		docs, err := r.col().Where("ownerId", "==", ownerID).OrderBy("nicknameKey", firestore.Asc).Documents(ctx).GetAll()
		if err != nil {
			return nil, classify(err)
		}
		return docs, nil
	})
	if err != nil {
		return nil, err
	}

	contacts := make([]core.Contact, 0, len(docs))
	for _, doc := range docs {
		c, err := fromContactSnapshot(doc)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, nil
}

func (r *ContactsRepository) FindByNickname(ctx context.Context, ownerID, nickname string) (*core.Contact, error) {
	q := r.col().Where("ownerId", "==", ownerID).Where("nicknameKey", "==", storage.NicknameKey(nickname))
	return r.findOne(ctx, q, "contact "+nickname)
}

func (r *ContactsRepository) FindByOwnerAndValue(ctx context.Context, ownerID, value string) (*core.Contact, error) {
	q := r.col().Where("ownerId", "==", ownerID).Where("valueKey", "==", storage.ValueKey(value))
	return r.findOne(ctx, q, "contact for "+value)
}

func (r *ContactsRepository) Get(ctx context.Context, id string) (*core.Contact, error) {
	doc, err := getDoc(ctx, r.col().Doc(id))
	if isNotFound(err) {
		return nil, &core.NotFoundError{Msg: fmt.Sprintf("contact %s not found", id)}
	}
	if err != nil {
		return nil, err
	}
	return fromContactSnapshot(doc)
}

func (r *ContactsRepository) Delete(ctx context.Context, id string) error {
	_, err := r.col().Doc(id).Delete(ctx, firestore.Exists)
	if isNotFound(err) {
		return &core.NotFoundError{Msg: fmt.Sprintf("contact %s not found", id)}
	}
	return err
}

func (r *ContactsRepository) findOne(ctx context.Context, q firestore.Query, what string) (*core.Contact, error) {
	doc, err := first(ctx, q)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, &core.NotFoundError{Msg: what + " not found"}
	}
	return fromContactSnapshot(doc)
}
