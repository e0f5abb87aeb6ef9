package types

import (
	"fmt"
	"strings"
)

// ParticipantKind tags the two disjoint account kinds.
type ParticipantKind string

const (
	ParticipantKindSupplier ParticipantKind = "supplier"
	ParticipantKindClient   ParticipantKind = "client"
)

func (k ParticipantKind) String() string {
	return string(k)
}

func (k ParticipantKind) Valid() bool {
	switch k {
	case ParticipantKindSupplier, ParticipantKindClient:
		return true
	}
	return false
}

// Participant is a resolved account reference.
// Resolve it once through the identity resolver and pass it along.
type Participant struct {
	ID   string          `json:"id" db:"id"`
	Kind ParticipantKind `json:"kind" db:"kind"`
}

func (p Participant) IsZero() bool {
	return p.ID == "" && p.Kind == ""
}

// Profile holds the basic fields shared by both account kinds.
type Profile struct {
	ID     string          `json:"id" db:"id"`
	Kind   ParticipantKind `json:"kind" db:"kind"`
	Name   string          `json:"name" db:"name"`
	Email  string          `json:"email" db:"email"`
	Phone  string          `json:"phone" db:"phone"`
	Avatar *string         `json:"avatar" db:"avatar"`
}

func (p Profile) Participant() Participant {
	return Participant{ID: p.ID, Kind: p.Kind}
}

// Principal is the verified caller supplied by the auth layer.
type Principal struct {
	UserID string
	Kind   ParticipantKind
}

// String encodes the principal as the token payload "<kind>:<userID>".
func (p Principal) String() string {
	return p.Kind.String() + ":" + p.UserID
}

func ParsePrincipal(s string) (Principal, error) {
	kind, userID, ok := strings.Cut(s, ":")
	if !ok || userID == "" {
		return Principal{}, fmt.Errorf("malformed principal %q", s)
	}

	p := Principal{UserID: userID, Kind: ParticipantKind(kind)}
	if !p.Kind.Valid() {
		return Principal{}, fmt.Errorf("unknown participant kind %q", kind)
	}

	return p, nil
}
