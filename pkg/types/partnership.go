package types

import "time"

// PartnershipStatus is the lifecycle status of a partnership link.
type PartnershipStatus string

const (
	PartnershipPending   PartnershipStatus = "pending"
	PartnershipActive    PartnershipStatus = "active"
	PartnershipDissolved PartnershipStatus = "dissolved"
)

// Partnership is a bidirectional link between two user accounts enabling
// shared memory and insight visibility. Shared records are only ever written
// while the status is active.
type Partnership struct {
	ID        string            `json:"id"`
	UserAID   string            `json:"user_a_id"`
	UserBID   string            `json:"user_b_id"`
	Status    PartnershipStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// PartnerOf returns the other member of the partnership, or "" when userID
// is not a member.
func (p *Partnership) PartnerOf(userID string) string {
	switch userID {
	case p.UserAID:
		return p.UserBID
	case p.UserBID:
		return p.UserAID
	}
	return ""
}

// HasMember reports whether userID is one of the two linked accounts.
func (p *Partnership) HasMember(userID string) bool {
	return userID == p.UserAID || userID == p.UserBID
}
