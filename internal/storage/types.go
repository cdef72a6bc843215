package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// MemoryUpdate carries the mutable fields of a memory record. Nil fields are
// left untouched.
type MemoryUpdate struct {
	Confidence *float64
	IsActive   *bool
	Content    *string
	Category   *string
}

// InsightUpdate carries the mutable fields of an insight. Nil fields are left
// untouched.
type InsightUpdate struct {
	Title      *string
	Content    *string
	Confidence *float64
	IsActive   *bool
}

// Float64Ptr returns a pointer to v. Convenience for building updates.
func Float64Ptr(v float64) *float64 { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }

// Backends groups the store implementations one storage engine provides.
type Backends struct {
	Memories      MemoryStore
	Insights      InsightStore
	Profiles      ProfileStore
	Partnerships  PartnershipStore
	Conversations ConversationStore
}

// Close releases every store in the group. The first error wins; remaining
// stores are still closed.
func (b *Backends) Close() error {
	var first error
	for _, c := range []interface{ Close() error }{
		b.Memories, b.Insights, b.Profiles, b.Partnerships, b.Conversations,
	} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
