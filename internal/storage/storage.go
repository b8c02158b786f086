// Package storage defines persistence contracts for registered credentials.
package storage

import (
	"context"

	"github.com/manimate/passkey/internal/credential"
	apperrors "github.com/manimate/passkey/internal/platform/errors"
)

// ErrNotFound indicates a requested credential is missing.
var ErrNotFound = apperrors.New(apperrors.CodeUnknownCredential, "credential not found")

// ErrDuplicateCredential indicates an insert reusing an existing credential id.
// The existing record is never overwritten.
var ErrDuplicateCredential = apperrors.New(apperrors.CodeCredentialPersistFailed, "credential id already registered")

// ErrCounterConflict indicates a counter advance whose guard value no longer
// matches the stored counter, either a replayed assertion or a lost race.
var ErrCounterConflict = apperrors.New(apperrors.CodeReplayDetected, "stored counter moved past expected value")

// CredentialStore is the single source of truth for registered authenticators.
type CredentialStore interface {
	// InsertCredential persists a new credential. Fails with
	// ErrDuplicateCredential when the id is already registered.
	InsertCredential(ctx context.Context, record credential.Record) error

	// GetCredential fetches a credential by its id. Fails with ErrNotFound
	// when absent.
	GetCredential(ctx context.Context, credentialID string) (credential.Record, error)

	// AdvanceCounter moves the stored counter from one value to a strictly
	// greater one as a single conditional write. Fails with ErrCounterConflict
	// when the stored counter no longer equals from, so two racing
	// authentications cannot both pass a stale check.
	AdvanceCounter(ctx context.Context, credentialID string, from, to uint32) error
}
