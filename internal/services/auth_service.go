package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"zenbank/internal/accounts"
	"zenbank/internal/core"
	"zenbank/internal/log"
	"zenbank/internal/session"
)

// AuthService creates accounts and opens or closes sessions.
type AuthService struct {
	repo     accounts.Repository
	sessions *session.Manager
	logger   *log.Logger
	now      func() time.Time
}

func NewAuthService(repo accounts.Repository, sessions *session.Manager, logger *log.Logger) *AuthService {
	if logger == nil {
		logger = log.Discard()
	}
	return &AuthService{
		repo:     repo,
		sessions: sessions,
		logger:   logger.WithComponent(log.ComponentAuth),
		now:      time.Now,
	}
}

// Signup validates d, stores a new account and logs it in.
func (s *AuthService) Signup(ctx context.Context, d core.SignupData) (core.User, *session.Session, error) {
	if err := d.Validate(); err != nil {
		return core.User{}, nil, err
	}
	// Cheap check before hashing; Put enforces uniqueness again.
	if _, err := s.repo.GetByUsername(ctx, d.Username); err == nil {
		return core.User{}, nil, core.ErrUsernameTaken
	} else if !errors.Is(err, core.ErrUserNotFound) {
		return core.User{}, nil, err
	}

	u, err := core.NewUser(d, s.now())
	if err != nil {
		return core.User{}, nil, err
	}
	if err := s.repo.Put(ctx, u); err != nil {
		if errors.Is(err, core.ErrUsernameTaken) {
			return core.User{}, nil, err
		}
		return core.User{}, nil, fmt.Errorf("store account: %w", err)
	}
	s.logger.InfoContext(ctx, "Account created",
		log.FieldOperation, log.OpSignup,
		log.FieldUserID, u.ID,
		log.FieldUsername, u.Username)

	sess, err := s.sessions.Create(u.ID, u.Username)
	if err != nil {
		return core.User{}, nil, err
	}
	return u, sess, nil
}

// Login returns core.ErrInvalidCredentials for an unknown username and for a
// wrong password alike.
func (s *AuthService) Login(ctx context.Context, username, password string) (core.User, *session.Session, error) {
	u, err := s.repo.GetByUsername(ctx, username)
	if errors.Is(err, core.ErrUserNotFound) {
		s.logger.InfoContext(ctx, "Login for unknown username", log.FieldOperation, log.OpLogin)
		return core.User{}, nil, core.ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, nil, err
	}
	if !u.VerifyPassword(password) {
		s.logger.WarnContext(ctx, "Login with wrong password",
			log.FieldOperation, log.OpLogin,
			log.FieldUserID, u.ID)
		return core.User{}, nil, core.ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(u.ID, u.Username)
	if err != nil {
		return core.User{}, nil, err
	}
	s.logger.InfoContext(ctx, "User logged in",
		log.FieldOperation, log.OpLogin,
		log.FieldUserID, u.ID)
	return u, sess, nil
}

// Logout ends the session; it reports false for unknown tokens.
func (s *AuthService) Logout(ctx context.Context, token string) bool {
	ok := s.sessions.Destroy(token)
	if ok {
		s.logger.InfoContext(ctx, "User logged out", log.FieldOperation, log.OpLogout)
	}
	return ok
}
