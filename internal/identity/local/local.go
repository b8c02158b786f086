// Package local implements the identity collaborator against the service's
// own SQLite file, with JWT session tokens.
package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/manimate/passkey/internal/identity"
	apperrors "github.com/manimate/passkey/internal/platform/errors"
	"github.com/manimate/passkey/internal/platform/id"
)

// Config controls session token issuance.
type Config struct {
	Issuer     string
	SigningKey []byte
	SessionTTL time.Duration
}

// Service stores accounts in the shared SQLite file and signs HS256 session
// tokens.
type Service struct {
	sqlDB       *sql.DB
	config      Config
	clock       func() time.Time
	idGenerator func() (string, error)
}

// New returns a local identity service over an open database handle.
func New(sqlDB *sql.DB, config Config) (*Service, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("sql db is required")
	}
	if len(config.SigningKey) == 0 {
		return nil, fmt.Errorf("session signing key is required")
	}
	if strings.TrimSpace(config.Issuer) == "" {
		config.Issuer = "manimate-auth"
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}
	return &Service{
		sqlDB:       sqlDB,
		config:      config,
		clock:       time.Now,
		idGenerator: id.NewID,
	}, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// CreateAccount creates an identity record keyed by the derived email handle.
func (s *Service) CreateAccount(ctx context.Context, input identity.CreateAccountInput) (identity.Account, error) {
	if err := ctx.Err(); err != nil {
		return identity.Account{}, err
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return identity.Account{}, apperrors.New(apperrors.CodeIdentityCreationFailed, "account email is required")
	}

	accountID, err := s.idGenerator()
	if err != nil {
		return identity.Account{}, fmt.Errorf("generate account id: %w", err)
	}
	now := s.clock().UTC()
	account := identity.Account{
		ID:          accountID,
		Email:       email,
		Username:    strings.TrimSpace(input.Username),
		DisplayName: strings.TrimSpace(input.DisplayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO accounts (id, email, username, display_name, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`,
		account.ID,
		account.Email,
		account.Username,
		account.DisplayName,
		toMillis(account.CreatedAt),
		toMillis(account.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return identity.Account{}, apperrors.Wrap(apperrors.CodeIdentityCreationFailed, "account identifier already exists", err)
		}
		return identity.Account{}, apperrors.Wrap(apperrors.CodeIdentityCreationFailed, "create account", err)
	}
	return account, nil
}

// GetAccount fetches an account by id.
func (s *Service) GetAccount(ctx context.Context, accountID string) (identity.Account, error) {
	if err := ctx.Err(); err != nil {
		return identity.Account{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, email, username, display_name, created_at, updated_at
FROM accounts
WHERE id = ?
`, accountID)

	var account identity.Account
	var createdAt, updatedAt int64
	if err := row.Scan(&account.ID, &account.Email, &account.Username, &account.DisplayName, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return identity.Account{}, apperrors.New(apperrors.CodeIdentityCreationFailed, "account not found")
		}
		return identity.Account{}, fmt.Errorf("get account: %w", err)
	}
	account.CreatedAt = fromMillis(createdAt)
	account.UpdatedAt = fromMillis(updatedAt)
	return account, nil
}

// DeleteAccount removes an account record.
func (s *Service) DeleteAccount(ctx context.Context, accountID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(accountID) == "" {
		return fmt.Errorf("account id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, accountID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

// sessionClaims carries the account identity inside the session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AuthMethod  string `json:"auth_method"`
}

// IssueSession signs a session token for an authenticated account.
func (s *Service) IssueSession(ctx context.Context, account identity.Account) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(account.ID) == "" {
		return "", fmt.Errorf("account id is required")
	}

	tokenID, err := s.idGenerator()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	now := s.clock().UTC()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   account.ID,
			ID:        tokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.SessionTTL)),
		},
		Username:    account.Username,
		DisplayName: account.DisplayName,
		AuthMethod:  "passkey",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.config.SigningKey)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// ParseSession validates a session token and returns the account id and
// username it was issued for.
func (s *Service) ParseSession(tokenString string) (accountID string, username string, err error) {
	claims := &sessionClaims{}
	_, err = jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.config.SigningKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(func() time.Time { return s.clock().UTC() }),
	)
	if err != nil {
		return "", "", fmt.Errorf("parse session token: %w", err)
	}
	return claims.Subject, claims.Username, nil
}

var _ identity.Service = (*Service)(nil)
