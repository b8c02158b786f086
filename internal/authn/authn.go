// Package authn verifies signed assertions and issues sessions.
package authn

import (
	"context"
	"strings"

	"github.com/manimate/passkey/internal/assertion"
	"github.com/manimate/passkey/internal/identity"
	"github.com/manimate/passkey/internal/platform/b64url"
	apperrors "github.com/manimate/passkey/internal/platform/errors"
	"github.com/manimate/passkey/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Input is one authentication submission in wire text form.
type Input struct {
	CredentialID      string
	Signature         string
	AuthenticatorData string
	ClientDataJSON    string
	Challenge         string
}

// Result describes a verified authentication.
type Result struct {
	UserID       string
	Username     string
	DisplayName  string
	SessionToken string
}

// Service authenticates assertions against stored credentials.
type Service struct {
	store    storage.CredentialStore
	accounts identity.Service
	rp       assertion.RelyingParty
	tracer   trace.Tracer
}

// New returns an authentication service scoped to the given relying party.
func New(store storage.CredentialStore, accounts identity.Service, rp assertion.RelyingParty) *Service {
	return &Service{
		store:    store,
		accounts: accounts,
		rp:       rp,
		tracer:   otel.Tracer("authn"),
	}
}

// Authenticate looks up the claimed credential, verifies the assertion,
// advances the anti-replay counter, and issues a session.
//
// No state is mutated until every check has passed, and the counter advance is
// a conditional write so two racing authentications cannot both succeed on a
// stale counter.
func (s *Service) Authenticate(ctx context.Context, in Input) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "passkey.authenticate")
	defer span.End()

	credentialID := strings.TrimSpace(in.CredentialID)
	if credentialID == "" {
		return Result{}, apperrors.New(apperrors.CodeInvalidInput, "credential id is required")
	}
	if strings.TrimSpace(in.Challenge) == "" {
		return Result{}, apperrors.New(apperrors.CodeInvalidInput, "challenge is required")
	}

	record, err := s.store.GetCredential(ctx, credentialID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeUnknownCredential {
			return Result{}, err
		}
		return Result{}, apperrors.Wrap(apperrors.CodeInternal, "load credential", err)
	}

	signature, err := b64url.Decode(in.Signature)
	if err != nil {
		return Result{}, err
	}
	authenticatorData, err := b64url.Decode(in.AuthenticatorData)
	if err != nil {
		return Result{}, err
	}
	clientDataJSON, err := b64url.Decode(in.ClientDataJSON)
	if err != nil {
		return Result{}, err
	}

	verified, err := assertion.Verify(s.rp, assertion.Input{
		PublicKey:         record.PublicKey,
		Signature:         signature,
		AuthenticatorData: authenticatorData,
		ClientDataJSON:    clientDataJSON,
		Challenge:         in.Challenge,
	})
	if err != nil {
		return Result{}, err
	}

	if err := s.advanceCounter(ctx, record.CredentialID, record.Counter, verified); err != nil {
		return Result{}, err
	}

	token, err := s.accounts.IssueSession(ctx, identity.Account{
		ID:          record.UserID,
		Username:    record.Username,
		DisplayName: record.DisplayName,
	})
	if err != nil {
		return Result{}, apperrors.Wrap(apperrors.CodeInternal, "issue session", err)
	}

	return Result{
		UserID:       record.UserID,
		Username:     record.Username,
		DisplayName:  record.DisplayName,
		SessionToken: token,
	}, nil
}

// advanceCounter enforces the strictly-increasing counter contract.
//
// Authenticators that never implement a counter report zero forever; for those
// the mandatory user-verification flag stands in as the anti-clone signal and
// the stored counter stays at zero. Once a positive counter has been stored,
// any regression is a replay or a cloned authenticator.
func (s *Service) advanceCounter(ctx context.Context, credentialID string, stored uint32, verified assertion.Result) error {
	if verified.Counter == 0 && stored == 0 {
		if !verified.UserVerified {
			return apperrors.New(apperrors.CodeReplayDetected, "counter-less assertion without user verification")
		}
		return nil
	}
	if verified.Counter <= stored {
		return apperrors.New(apperrors.CodeReplayDetected, "authenticator counter did not increase")
	}
	if err := s.store.AdvanceCounter(ctx, credentialID, stored, verified.Counter); err != nil {
		if apperrors.CodeOf(err) == apperrors.CodeReplayDetected {
			return err
		}
		return apperrors.Wrap(apperrors.CodeInternal, "advance counter", err)
	}
	return nil
}
