package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ropbridge/ropbridge/internal/common"
	"github.com/ropbridge/ropbridge/internal/logging"
	"github.com/ropbridge/ropbridge/internal/server/models"
	"github.com/ropbridge/ropbridge/internal/server/password"
	"github.com/ropbridge/ropbridge/internal/server/repositories/repomanager"
)

// UserService handles registration and credential verification. Successful
// logins delegate to TokenService for the actual pair.
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *TokenService
	logger      logging.Logger
	hashParams  password.Params
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *TokenService, logger logging.Logger) *UserService {
	return &UserService{
		db:          db,
		repomanager: m,
		tokens:      tokens,
		logger:      logger,
		hashParams:  password.DefaultParams,
	}
}

// Register creates a new user with the given username, password and roles.
func (s *UserService) Register(ctx context.Context, username, plainPassword string, roles []string) (*models.User, error) {
	hash, err := password.Hash(plainPassword, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %v", err)
	}

	user := &models.User{UserName: username, PasswordHash: hash, Roles: roles}
	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %v", err)
	}
	return u, nil
}

// Login verifies the credentials and, on success, returns a new token pair.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, plainPassword, clientAddr string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn comparable time so absent users don't answer faster
			_ = password.VerifyDummy(plainPassword, s.hashParams)
			return nil, common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	ok, err := password.Verify(plainPassword, user.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "password verification failed", "user_id", user.ID, "error", err)
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	return s.tokens.Issue(ctx, user, clientAddr)
}
