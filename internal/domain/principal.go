package domain

import "time"

// PrincipalKind discriminates the closed set of caller identities.
type PrincipalKind string

const (
	KindAnonymous PrincipalKind = "anonymous"
	KindUser      PrincipalKind = "user"
	KindToken     PrincipalKind = "token"
	KindAdmin     PrincipalKind = "admin"
)

// AdminID is the fixed identifier of the built-in admin principal. The admin
// is configured, never stored, and bypasses all permission checks.
const AdminID = "_admin"

// Principal is a resolved caller identity. Exactly four kinds exist:
// Anonymous, User, Token, and Admin.
type Principal interface {
	Kind() PrincipalKind
}

// Permissioned is a principal that can hold stored grants, directly or
// through group membership. Anonymous and Admin are not Permissioned.
type Permissioned interface {
	Principal
	PrincipalID() string
	GroupIDs() []string
}

// Anonymous is an unauthenticated caller. It holds no grants.
type Anonymous struct{}

func (Anonymous) Kind() PrincipalKind { return KindAnonymous }

// Admin is the configured superuser. Every permission check passes for it.
type Admin struct {
	Username string
}

func (Admin) Kind() PrincipalKind { return KindAdmin }

// User is a stored account that authenticates with a password.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	PasswordSalt string
	Groups       []string
	CreatedAt    time.Time
}

func (*User) Kind() PrincipalKind   { return KindUser }
func (u *User) PrincipalID() string { return u.ID }
func (u *User) GroupIDs() []string  { return u.Groups }

// Token is a bearer credential, optionally linked to a user. A linked token
// keeps working after its user is deleted; only the link is cleared.
type Token struct {
	ID          string
	Secret      string
	Description string
	LinkedUser  *string
	Groups      []string
	CreatedAt   time.Time
}

func (*Token) Kind() PrincipalKind  { return KindToken }
func (t *Token) PrincipalID() string { return t.ID }
func (t *Token) GroupIDs() []string  { return t.Groups }

// Group is a named set of principals. Grants against a group are inherited
// by every member. Groups do not nest.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
	CreatedAt   time.Time `json:"-"`
}

// RedactedPrincipal is the secret-free projection of a principal returned by
// the API. Linked identities are projected one level deep.
type RedactedPrincipal struct {
	ID     *string            `json:"id"`
	Type   PrincipalKind      `json:"type"`
	Name   *string            `json:"name"`
	Groups []Group            `json:"groups"`
	Linked *RedactedPrincipal `json:"linked,omitempty"`
}
