package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bank-cards/internal/core/domain"
	"bank-cards/internal/core/ports"
	"bank-cards/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	clients  ports.ClientRepository
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	log      zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	clients ports.ClientRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		clients:  clients,
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		log:      log,
	}
}

// Register creates a ROLE_USER client and logs it in.
func (s *AuthServiceImpl) Register(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	client, err := s.createClient(ctx, username, password, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.issue(client)
}

// Login validates credentials and returns a JWT token.
func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*ports.AuthResult, error) {
	client, err := s.clients.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find client: %w", err))
	}
	if client == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	valid, err := s.hashSvc.Verify(password, client.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return nil, apperror.ErrInvalidCredentials()
	}
	if client.Locked {
		return nil, apperror.ErrClientLocked()
	}

	return s.issue(client)
}

// Authenticate resolves a bearer token to a Principal. The role is taken
// from the stored client, not from the token.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, token string) (domain.Principal, error) {
	claims, err := s.tokenSvc.Validate(token)
	if err != nil {
		return domain.Principal{}, apperror.ErrInvalidToken()
	}

	client, err := s.clients.GetByID(ctx, claims.ClientID)
	if err != nil {
		return domain.Principal{}, apperror.InternalError(fmt.Errorf("find client: %w", err))
	}
	if client == nil {
		return domain.Principal{}, apperror.ErrInvalidToken()
	}
	if client.Locked {
		return domain.Principal{}, apperror.ErrClientLocked()
	}

	return domain.Principal{
		ClientID: client.ID,
		Username: client.Username,
		Role:     client.Role,
	}, nil
}

// EnsureAdmin creates the bootstrap administrator unless a client with
// that username already exists. An empty username disables bootstrapping.
func (s *AuthServiceImpl) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}

	existing, err := s.clients.GetByUsername(ctx, username)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find admin: %w", err))
	}
	if existing != nil {
		if !existing.IsAdmin() {
			s.log.Warn().Str("username", username).Msg("bootstrap admin username belongs to a non-admin client")
		}
		return nil
	}

	client, err := s.createClient(ctx, username, password, domain.RoleAdmin)
	if err != nil {
		return err
	}
	s.log.Info().Str("client_id", client.ID.String()).Str("username", username).Msg("bootstrap admin created")
	return nil
}

func (s *AuthServiceImpl) createClient(ctx context.Context, username, password string, role domain.Role) (*domain.Client, error) {
	if username == "" || password == "" {
		return nil, apperror.ErrInvalidRequest("Username and password are required")
	}

	existing, err := s.clients.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check username: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrUsernameExists()
	}

	passwordHash, err := s.hashSvc.Hash(password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	client := &domain.Client{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.clients.Create(ctx, client); err != nil {
		if errors.Is(err, ports.ErrDuplicate) {
			return nil, apperror.ErrUsernameExists()
		}
		return nil, apperror.InternalError(fmt.Errorf("create client: %w", err))
	}
	return client, nil
}

func (s *AuthServiceImpl) issue(client *domain.Client) (*ports.AuthResult, error) {
	token, expiresAt, err := s.tokenSvc.Generate(client)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return &ports.AuthResult{
		ClientID:  client.ID,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
