package auth

import (
	"context"
	"crypto/subtle"

	"objbase.io/objbase/internal/domain"
	apperrors "objbase.io/objbase/internal/pkg/errors"
	"objbase.io/objbase/internal/repository"
)

// Session is the outcome of a successful login: both token encodings plus
// the derived XSRF value.
type Session struct {
	Identity Identity
	// Token is the legacy opaque token stored against the user.
	Token string
	// Structured is the self-verifying structured token.
	Structured string
	XSRF       string
}

// Service wires credential checks and account management to the Repo.
type Service struct {
	repo   repository.Repo
	tokens *TokenManager
}

// NewService creates the auth service.
func NewService(repo repository.Repo, tokens *TokenManager) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// Login verifies (username, password) and rotates the stored opaque token.
func (s *Service) Login(ctx context.Context, ns, username, password string) (Session, error) {
	digest, err := PasswordDigest(username, password, ns)
	if err != nil {
		return Session{}, err
	}

	user, err := s.repo.Users().GetByName(ctx, ns, username)
	if err != nil {
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.Code == apperrors.CodeUserNotFound {
			return Session{}, apperrors.Unauthorized(apperrors.CodeAuthFailed, "bad credentials")
		}
		return Session{}, err
	}
	if subtle.ConstantTimeCompare([]byte(user.Digest), []byte(digest)) != 1 {
		return Session{}, apperrors.Unauthorized(apperrors.CodeAuthFailed, "bad credentials")
	}

	token := OpaqueToken()
	if err := s.repo.Users().SetToken(ctx, ns, user.ID, token); err != nil {
		return Session{}, err
	}

	id := Identity{Namespace: ns, UserID: user.ID, Name: user.Name, Role: Role(user.Role)}
	structured, _, err := s.tokens.Issue(id)
	if err != nil {
		return Session{}, err
	}
	xsrf, err := XSRFToken(token, ns)
	if err != nil {
		return Session{}, err
	}

	return Session{Identity: id, Token: token, Structured: structured, XSRF: xsrf}, nil
}

// Logout clears the stored opaque token.
func (s *Service) Logout(ctx context.Context, id Identity) error {
	return s.repo.Users().SetToken(ctx, id.Namespace, id.UserID, "")
}

// Resolve maps a presented token to an identity. Structured tokens verify
// locally; anything else is looked up as a stored opaque token.
func (s *Service) Resolve(ctx context.Context, ns, token string) (Identity, error) {
	if token == "" {
		return Identity{}, apperrors.Unauthorized(apperrors.CodeTokenInvalid, "empty token")
	}
	if id, err := s.tokens.Verify(token, ns); err == nil {
		return id, nil
	}
	user, err := s.repo.Users().GetByToken(ctx, ns, token)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Namespace: ns, UserID: user.ID, Name: user.Name, Role: Role(user.Role)}, nil
}

// CheckXSRF verifies an XSRF value against the presented token.
func (s *Service) CheckXSRF(ns, token, xsrf string) error {
	want, err := XSRFToken(token, ns)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(xsrf)) != 1 {
		return apperrors.Forbidden(apperrors.CodeBadXSRF, "bad xsrf value")
	}
	return nil
}

// AddUser creates an account with the given role.
func (s *Service) AddUser(ctx context.Context, ns, username, password string, role Role) (int64, error) {
	if _, ok := roleRank[role]; !ok {
		return 0, apperrors.InvalidArgument(apperrors.CodeBadRequest, "bad role: "+string(role))
	}
	digest, err := PasswordDigest(username, password, ns)
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.repo.WithTx(ctx, func(tx repository.Repo) error {
		var err error
		id, err = tx.Objects().NextID(ctx, ns)
		if err != nil {
			return err
		}
		return tx.Users().Insert(ctx, ns, repository.User{
			ID:     id,
			Name:   username,
			Digest: digest,
			Role:   string(role),
		})
	})
	return id, err
}

// SetPassword replaces a user's stored digest.
func (s *Service) SetPassword(ctx context.Context, ns, username, password string) error {
	digest, err := PasswordDigest(username, password, ns)
	if err != nil {
		return err
	}
	user, err := s.repo.Users().GetByName(ctx, ns, username)
	if err != nil {
		return err
	}
	return s.repo.Users().SetDigest(ctx, ns, user.ID, digest)
}

// CreateBase provisions a namespace together with its admin account.
func (s *Service) CreateBase(ctx context.Context, ns, adminUser, adminPassword string) error {
	if !domain.ValidNamespace(ns) {
		return apperrors.ErrBadNamespace(ns)
	}
	digest, err := PasswordDigest(adminUser, adminPassword, ns)
	if err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(tx repository.Repo) error {
		if err := tx.Namespaces().Create(ctx, ns); err != nil {
			return err
		}
		id, err := tx.Objects().NextID(ctx, ns)
		if err != nil {
			return err
		}
		return tx.Users().Insert(ctx, ns, repository.User{
			ID:     id,
			Name:   adminUser,
			Digest: digest,
			Role:   string(RoleAdmin),
		})
	})
}
