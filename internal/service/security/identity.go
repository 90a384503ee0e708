package security

import (
	"context"
	"crypto/subtle"

	"pkgindex/internal/domain"
)

// AdminAccount is the configured built-in admin. When disabled the admin
// cannot authenticate and is hidden from listings.
type AdminAccount struct {
	Enabled  bool
	Username string
	Password string
}

// Credentials carries one set of request credentials. At most one of
// Username/Password and Token is set.
type Credentials struct {
	Username string
	Password string
	Token    string
}

// IdentityService resolves request credentials to principals and projects
// them into their secret-free API form.
type IdentityService struct {
	users  domain.UserRepository
	tokens domain.TokenRepository
	groups domain.GroupRepository
	admin  AdminAccount
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(users domain.UserRepository, tokens domain.TokenRepository, groups domain.GroupRepository, admin AdminAccount) *IdentityService {
	return &IdentityService{users: users, tokens: tokens, groups: groups, admin: admin}
}

// Admin returns the configured admin account.
func (s *IdentityService) Admin() AdminAccount { return s.admin }

// Resolve maps credentials to a principal. Absent credentials resolve to
// Anonymous; present but unverifiable credentials are an authentication
// error, never a silent downgrade.
func (s *IdentityService) Resolve(ctx context.Context, creds Credentials) (domain.Principal, error) {
	switch {
	case creds.Token != "":
		t, err := s.tokens.GetBySecret(ctx, creds.Token)
		if err != nil {
			return nil, domain.ErrUnauthenticated("invalid token")
		}
		return t, nil

	case creds.Username != "":
		if s.admin.Enabled && creds.Username == s.admin.Username {
			if subtle.ConstantTimeCompare([]byte(creds.Password), []byte(s.admin.Password)) == 1 {
				return domain.Admin{Username: s.admin.Username}, nil
			}
			return nil, domain.ErrUnauthenticated("invalid credentials")
		}
		u, err := s.users.GetByUsername(ctx, creds.Username)
		if err != nil {
			return nil, domain.ErrUnauthenticated("invalid credentials")
		}
		if !VerifyPassword(creds.Password, u.PasswordHash, u.PasswordSalt) {
			return nil, domain.ErrUnauthenticated("invalid credentials")
		}
		return u, nil

	default:
		return domain.Anonymous{}, nil
	}
}

// ResolveID maps a stored principal id (a session token subject) back to a
// principal.
func (s *IdentityService) ResolveID(ctx context.Context, id string) (domain.Principal, error) {
	if id == domain.AdminID {
		if !s.admin.Enabled {
			return nil, domain.ErrUnauthenticated("admin account is disabled")
		}
		return domain.Admin{Username: s.admin.Username}, nil
	}
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrUnauthenticated("unknown principal")
	}
	return u, nil
}

// Lookup finds a user principal by "name" or "id". The admin username and id
// resolve to the Admin principal when the account is enabled.
func (s *IdentityService) Lookup(ctx context.Context, method, value string) (domain.Principal, error) {
	switch method {
	case "name":
		if s.admin.Enabled && value == s.admin.Username {
			return domain.Admin{Username: s.admin.Username}, nil
		}
		u, err := s.users.GetByUsername(ctx, value)
		if err != nil {
			return nil, domain.ErrNotFound("unknown username %q", value)
		}
		return u, nil
	case "id":
		if s.admin.Enabled && value == domain.AdminID {
			return domain.Admin{Username: s.admin.Username}, nil
		}
		u, err := s.users.GetByID(ctx, value)
		if err != nil {
			return nil, domain.ErrNotFound("unknown user id %q", value)
		}
		return u, nil
	default:
		return nil, domain.ErrValidation("unknown lookup method %q", method)
	}
}

// Redacted projects a principal into its secret-free API form. Group ids are
// resolved to full groups; a token's linked user is included one level deep.
func (s *IdentityService) Redacted(ctx context.Context, p domain.Principal) (*domain.RedactedPrincipal, error) {
	switch v := p.(type) {
	case domain.Admin:
		id := domain.AdminID
		name := v.Username
		return &domain.RedactedPrincipal{ID: &id, Type: domain.KindAdmin, Name: &name, Groups: []domain.Group{}}, nil

	case *domain.User:
		groups, err := s.groups.GetByIDs(ctx, v.Groups)
		if err != nil {
			return nil, err
		}
		if groups == nil {
			groups = []domain.Group{}
		}
		id, name := v.ID, v.Username
		return &domain.RedactedPrincipal{ID: &id, Type: domain.KindUser, Name: &name, Groups: groups}, nil

	case *domain.Token:
		groups, err := s.groups.GetByIDs(ctx, v.Groups)
		if err != nil {
			return nil, err
		}
		if groups == nil {
			groups = []domain.Group{}
		}
		id, name := v.ID, v.Description
		r := &domain.RedactedPrincipal{ID: &id, Type: domain.KindToken, Name: &name, Groups: groups}
		if v.LinkedUser != nil {
			if u, err := s.users.GetByID(ctx, *v.LinkedUser); err == nil {
				if r.Linked, err = s.Redacted(ctx, u); err != nil {
					return nil, err
				}
			}
		}
		return r, nil

	default:
		return &domain.RedactedPrincipal{Type: domain.KindAnonymous, Groups: []domain.Group{}}, nil
	}
}
