package todoapi

import "github.com/google/uuid"

// Decision is the outcome of an authorization check
type Decision int

const (
	// Deny blocks access, the zero value so a forgotten check fails closed
	Deny Decision = iota
	// Allow grants access
	Allow
)

// Allowed reports whether the decision grants access
func (d Decision) Allowed() bool {
	return d == Allow
}

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// OwnershipGuard decides record access by strict owner equality.
// There are no roles or shared records, the owner is the only
// principal a todo grants anything to.
type OwnershipGuard struct{}

// NewOwnershipGuard creates a guard
func NewOwnershipGuard() OwnershipGuard {
	return OwnershipGuard{}
}

// Authorize compares the identity against the record owner. Any
// malformed or zero id denies, it never errors.
func (g OwnershipGuard) Authorize(identity Identity, ownerID uuid.UUID) Decision {
	if identity == nil || ownerID == uuid.Nil {
		return Deny
	}

	id, err := uuid.Parse(identity.ID())
	if err != nil || id == uuid.Nil {
		return Deny
	}

	if id != ownerID {
		return Deny
	}

	return Allow
}

// RequireOwner maps a Deny to ErrForbidden so handlers can return it
// directly after the record has been confirmed to exist.
func (g OwnershipGuard) RequireOwner(identity Identity, ownerID uuid.UUID) error {
	if g.Authorize(identity, ownerID).Allowed() {
		return nil
	}
	return ErrForbidden
}
