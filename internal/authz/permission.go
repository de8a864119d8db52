// Package authz implements the permission matrix and the authorized access
// pipeline: token verification, instance-level checks and per-field
// filtering, in that order and with no backward transitions.
package authz

import "strings"

// Mask is a 4-bit CRUD permission bitmask.
type Mask uint8

const (
	Create Mask = 1 << 3
	Read   Mask = 1 << 2
	Update Mask = 1 << 1
	Delete Mask = 1 << 0
)

// Has reports whether every bit of desired is present in m.
func (m Mask) Has(desired Mask) bool { return m&desired == desired }

// String renders the mask in the "CRUD" positional form, e.g. "-R--".
func (m Mask) String() string {
	var b strings.Builder
	for _, bit := range [...]struct {
		mask Mask
		char byte
	}{{Create, 'C'}, {Read, 'R'}, {Update, 'U'}, {Delete, 'D'}} {
		if m.Has(bit.mask) {
			b.WriteByte(bit.char)
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}

// ParseMask reads the positional "CRUD" form back into a mask. Unknown
// characters count as unset bits.
func ParseMask(s string) Mask {
	var m Mask
	for _, r := range s {
		switch r {
		case 'C':
			m |= Create
		case 'R':
			m |= Read
		case 'U':
			m |= Update
		case 'D':
			m |= Delete
		}
	}
	return m
}

// Group is a permission tier. Other is the lowest-privilege tier and the
// default for unauthenticated callers; Owner is a pseudo-group consulted
// only when the caller verifiably owns the specific instance.
type Group int

const (
	GroupOther Group = iota
	GroupOwner
	GroupGuest
	GroupUser
	GroupAdmin

	NumGroups = 5
)

func (g Group) String() string {
	switch g {
	case GroupOther:
		return "other"
	case GroupOwner:
		return "owner"
	case GroupGuest:
		return "guest"
	case GroupUser:
		return "user"
	case GroupAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Params is the caller's resolved identity for one request. UserID and
// OwnerField must both be present for owner-tier checks to activate.
type Params struct {
	Group      Group
	UserID     *int64
	OwnerField string
}

func (p Params) ownerEligible() bool {
	return p.UserID != nil && p.OwnerField != ""
}

// WithoutOwner returns a copy with owner-tier eligibility removed.
func (p Params) WithoutOwner() Params {
	p.UserID = nil
	p.OwnerField = ""
	return p
}

// WithoutGroup returns a copy demoted to the lowest-privilege group.
func (p Params) WithoutGroup() Params {
	p.Group = GroupOther
	return p
}
