// Package identity describes the external identity-account collaborator.
//
// The passkey core does not own user records or sessions; it consumes a
// service that can create an account, delete it again as a compensating
// action, and issue session tokens.
package identity

import (
	"context"
	"time"
)

// Account is an identity record held by the collaborator.
type Account struct {
	ID          string
	Email       string
	Username    string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateAccountInput describes the metadata needed to create an account.
type CreateAccountInput struct {
	Email       string
	Username    string
	DisplayName string
}

// Service is the identity-account collaborator contract.
type Service interface {
	// CreateAccount creates an identity record. Duplicate derived identifiers
	// are rejected with CodeIdentityCreationFailed.
	CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error)

	// DeleteAccount removes an account. Registration uses it as the
	// compensating action when the credential insert fails after the account
	// was created.
	DeleteAccount(ctx context.Context, accountID string) error

	// IssueSession returns an opaque session token for an authenticated
	// account.
	IssueSession(ctx context.Context, account Account) (string, error)
}
