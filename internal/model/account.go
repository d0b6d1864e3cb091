package model

import "strings"

// JointAccount is the literal account value for the shared household
// pseudo-account. The server may redistribute transactions entered
// against it across individual member accounts.
const JointAccount = "joint"

// AccountRef is a resolved account reference: either a named member
// account or the joint pseudo-account. Resolving once at the boundary
// replaces repeated case-insensitive string comparisons downstream.
type AccountRef struct {
	name  string
	joint bool
}

// ParseAccountRef resolves a raw account string. The joint literal is
// matched case-insensitively; anything else is treated as a member name.
func ParseAccountRef(s string) AccountRef {
	if strings.EqualFold(strings.TrimSpace(s), JointAccount) {
		return AccountRef{joint: true}
	}
	return AccountRef{name: strings.TrimSpace(s)}
}

// Member returns a reference to a named member account.
func Member(name string) AccountRef {
	return AccountRef{name: name}
}

// Joint returns a reference to the joint pseudo-account.
func Joint() AccountRef {
	return AccountRef{joint: true}
}

// IsJoint reports whether the reference is the joint pseudo-account.
func (a AccountRef) IsJoint() bool {
	return a.joint
}

// IsZero reports whether the reference was parsed from an empty string.
func (a AccountRef) IsZero() bool {
	return !a.joint && a.name == ""
}

// String returns the canonical account value for requests and cache keys.
func (a AccountRef) String() string {
	if a.joint {
		return JointAccount
	}
	return a.name
}

// Equal reports whether two references name the same account.
func (a AccountRef) Equal(b AccountRef) bool {
	return a.joint == b.joint && a.name == b.name
}
