// Package register validates newly created credentials and commits them
// together with a new identity.
package register

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/manimate/passkey/internal/credential"
	"github.com/manimate/passkey/internal/identity"
	"github.com/manimate/passkey/internal/platform/b64url"
	apperrors "github.com/manimate/passkey/internal/platform/errors"
	"github.com/manimate/passkey/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Input is one registration submission in wire text form.
type Input struct {
	Username     string
	DisplayName  string
	CredentialID string
	PublicKey    string
	UserHandle   string
}

// Result describes the created identity.
type Result struct {
	UserID      string
	Username    string
	DisplayName string
}

// Service commits new credentials atomically with identity creation.
type Service struct {
	accounts identity.Service
	store    storage.CredentialStore
	clock    func() time.Time
	tracer   trace.Tracer
}

// New returns a registration service over the given collaborators.
func New(accounts identity.Service, store storage.CredentialStore) *Service {
	return &Service{
		accounts: accounts,
		store:    store,
		clock:    time.Now,
		tracer:   otel.Tracer("register"),
	}
}

// Register validates a submission, creates the identity record, and inserts
// the credential with its counter at zero.
//
// Identity and credential creation are one atomic unit from the caller's
// perspective: if the credential insert fails the account creation is
// compensated, so no identity record references a missing credential.
func (s *Service) Register(ctx context.Context, in Input) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "passkey.register")
	defer span.End()

	username := credential.NormalizeUsername(in.Username)
	displayName := strings.TrimSpace(in.DisplayName)
	if username == "" {
		return Result{}, apperrors.New(apperrors.CodeInvalidInput, "username is required")
	}
	if displayName == "" {
		return Result{}, apperrors.New(apperrors.CodeInvalidInput, "display name is required")
	}
	credentialID := strings.TrimSpace(in.CredentialID)
	if credentialID == "" {
		return Result{}, apperrors.New(apperrors.CodeInvalidInput, "credential id is required")
	}

	// Decode every wire handle up front so malformed submissions never touch
	// the identity service.
	if _, err := b64url.Decode(credentialID); err != nil {
		return Result{}, err
	}
	publicKey, err := b64url.Decode(in.PublicKey)
	if err != nil {
		return Result{}, err
	}
	if len(publicKey) == 0 {
		return Result{}, apperrors.New(apperrors.CodeInvalidInput, "public key is required")
	}
	if _, err := b64url.Decode(in.UserHandle); err != nil {
		return Result{}, err
	}

	email, err := credential.DeriveAccountEmail(username)
	if err != nil {
		return Result{}, err
	}

	account, err := s.accounts.CreateAccount(ctx, identity.CreateAccountInput{
		Email:       email,
		Username:    username,
		DisplayName: displayName,
	})
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeIdentityCreationFailed {
			return Result{}, err
		}
		return Result{}, apperrors.Wrap(apperrors.CodeIdentityCreationFailed, "create account", err)
	}

	record := credential.Record{
		CredentialID: credentialID,
		UserID:       account.ID,
		Username:     username,
		DisplayName:  displayName,
		PublicKey:    publicKey,
		Counter:      0,
		CreatedAt:    s.clock().UTC(),
	}
	if err := s.store.InsertCredential(ctx, record); err != nil {
		// Compensate so the identity record never outlives a failed insert.
		if delErr := s.accounts.DeleteAccount(ctx, account.ID); delErr != nil {
			return Result{}, apperrors.Wrap(apperrors.CodeCredentialPersistFailed,
				fmt.Sprintf("store credential (compensating delete also failed: %v)", delErr), err)
		}
		if apperrors.CodeOf(err) == apperrors.CodeCredentialPersistFailed {
			return Result{}, err
		}
		return Result{}, apperrors.Wrap(apperrors.CodeCredentialPersistFailed, "store credential", err)
	}

	return Result{
		UserID:      account.ID,
		Username:    username,
		DisplayName: displayName,
	}, nil
}
