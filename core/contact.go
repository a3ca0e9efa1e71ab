package core

import "time"

// ContactType tells how a contact's Value should be interpreted.
type ContactType string

const (
	ContactAddress ContactType = "address"
	ContactEmail   ContactType = "email"
)

// Contact is a nickname a user saved for a wallet address or an email.
// Nicknames are unique per owner.
type Contact struct {
	ID           string      `json:"id" firestore:"-"`
	OwnerID      string      `json:"ownerId" firestore:"ownerId"`
	Nickname     string      `json:"nickname" firestore:"nickname"`
	NicknameKey  string      `json:"-" firestore:"nicknameKey"`
	Type         ContactType `json:"type" firestore:"type"`
	Value        string      `json:"value" firestore:"value"`
	TargetUserID string      `json:"targetUserId,omitempty" firestore:"targetUserId,omitempty"`
	CreatedAt    time.Time   `json:"createdAt" firestore:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt" firestore:"updatedAt"`
}
