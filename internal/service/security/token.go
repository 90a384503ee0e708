package security

import (
	"context"

	"pkgindex/internal/domain"
)

// TokenService manages bearer token lifecycle.
type TokenService struct {
	tokens domain.TokenRepository
	perms  *PermissionService
	audit  domain.AuditRepository
}

// NewTokenService creates a new TokenService.
func NewTokenService(tokens domain.TokenRepository, perms *PermissionService, audit domain.AuditRepository) *TokenService {
	return &TokenService{tokens: tokens, perms: perms, audit: audit}
}

// Create mints a token linked to the calling user. The secret is only
// returned here; listings never include it.
func (s *TokenService) Create(ctx context.Context, caller domain.Principal, description string) (*domain.Token, error) {
	user, ok := caller.(*domain.User)
	if !ok {
		return nil, domain.ErrValidation("only users can mint tokens")
	}
	secret, err := NewTokenSecret()
	if err != nil {
		return nil, err
	}
	tok, err := s.tokens.Create(ctx, &domain.Token{
		Secret:      secret,
		Description: description,
		LinkedUser:  &user.ID,
	})
	if err != nil {
		return nil, err
	}
	s.log(ctx, caller, "token.create", tok.ID, domain.AuditOK)
	return tok, nil
}

// ListOwn returns the tokens linked to the calling user.
func (s *TokenService) ListOwn(ctx context.Context, caller domain.Principal) ([]*domain.Token, error) {
	user, ok := caller.(*domain.User)
	if !ok {
		return nil, domain.ErrValidation("only users own tokens")
	}
	return s.tokens.ListForUser(ctx, user.ID)
}

// Delete revokes a token. Callers may revoke their own tokens; revoking
// anyone else's requires meta.admin.
func (s *TokenService) Delete(ctx context.Context, caller domain.Principal, id string) error {
	tok, err := s.tokens.GetByID(ctx, id)
	if err != nil {
		return err
	}

	own := false
	if u, ok := caller.(*domain.User); ok && tok.LinkedUser != nil && *tok.LinkedUser == u.ID {
		own = true
	}
	if t, ok := caller.(*domain.Token); ok && t.ID == tok.ID {
		own = true
	}
	if !own {
		ok, err := s.perms.Has(ctx, caller, domain.PermMetaAdmin, nil)
		if err != nil {
			return err
		}
		if !ok {
			s.log(ctx, caller, "token.delete", id, domain.AuditDenied)
			return domain.ErrNotAuthorized("revoking another principal's token requires %s", domain.PermMetaAdmin)
		}
	}
	if err := s.tokens.Delete(ctx, tok.ID); err != nil {
		return err
	}
	s.log(ctx, caller, "token.delete", tok.ID, domain.AuditOK)
	return nil
}

func (s *TokenService) log(ctx context.Context, caller domain.Principal, action, detail, status string) {
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: domain.PrincipalName(caller),
		Action:    action,
		Detail:    detail,
		Status:    status,
	})
}
