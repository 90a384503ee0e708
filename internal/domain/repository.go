package domain

import (
	"context"
	"time"
)

// UserRepository persists user accounts. Delete removes the user together
// with its direct grants and group memberships in one transaction; linked
// tokens survive with their link cleared.
type UserRepository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	UpdatePassword(ctx context.Context, id, hash, salt string) error
	Delete(ctx context.Context, id string) error
}

// TokenRepository persists bearer tokens.
type TokenRepository interface {
	Create(ctx context.Context, t *Token) (*Token, error)
	GetByID(ctx context.Context, id string) (*Token, error)
	GetBySecret(ctx context.Context, secret string) (*Token, error)
	ListForUser(ctx context.Context, userID string) ([]*Token, error)
	Delete(ctx context.Context, id string) error
}

// GroupRepository persists groups and their memberships. Deleting a group
// removes its memberships and grants in one transaction.
type GroupRepository interface {
	Create(ctx context.Context, g *Group) (*Group, error)
	GetByID(ctx context.Context, id string) (*Group, error)
	GetByName(ctx context.Context, name string) (*Group, error)
	GetByIDs(ctx context.Context, ids []string) ([]Group, error)
	List(ctx context.Context) ([]Group, error)
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, groupID, memberType, memberID string) error
	RemoveMember(ctx context.Context, groupID, memberType, memberID string) error
	IDsForMember(ctx context.Context, memberType, memberID string) ([]string, error)
	Members(ctx context.Context, groupID string) ([]GroupMember, error)
}

// GroupMember is one membership row.
type GroupMember struct {
	MemberType string `json:"member_type"`
	MemberID   string `json:"member_id"`
}

// GrantRepository persists permission grants.
type GrantRepository interface {
	Insert(ctx context.Context, g *Grant) (*Grant, error)
	// DeleteByTuple removes the grant matching the exact tuple and reports
	// whether a row existed.
	DeleteByTuple(ctx context.Context, targetType, targetID string, p Permission, project *string) (bool, error)
	ListForTarget(ctx context.Context, targetType, targetID string) ([]Grant, error)
	ListForTargets(ctx context.Context, targetType string, targetIDs []string) ([]Grant, error)
}

// AuditRepository persists the audit log.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, page PageRequest) ([]AuditEntry, int64, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
