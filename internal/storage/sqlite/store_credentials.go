package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/manimate/passkey/internal/credential"
	"github.com/manimate/passkey/internal/storage"
)

// InsertCredential persists a new passkey credential. An insert that reuses an
// existing credential id fails and never overwrites the stored record.
func (s *Store) InsertCredential(ctx context.Context, record credential.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.CredentialID) == "" {
		return fmt.Errorf("credential id is required")
	}
	if strings.TrimSpace(record.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	if len(record.PublicKey) == 0 {
		return fmt.Errorf("public key is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO passkey_credentials (
	credential_id,
	user_id,
	username,
	display_name,
	public_key,
	counter,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		record.CredentialID,
		record.UserID,
		record.Username,
		record.DisplayName,
		record.PublicKey,
		int64(record.Counter),
		toMillis(record.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrDuplicateCredential
		}
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetCredential fetches a stored credential by its id.
func (s *Store) GetCredential(ctx context.Context, credentialID string) (credential.Record, error) {
	if err := ctx.Err(); err != nil {
		return credential.Record{}, err
	}
	if s == nil || s.sqlDB == nil {
		return credential.Record{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(credentialID) == "" {
		return credential.Record{}, fmt.Errorf("credential id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT credential_id, user_id, username, display_name, public_key, counter, created_at
FROM passkey_credentials
WHERE credential_id = ?
`, credentialID)

	var record credential.Record
	var counter int64
	var createdAt int64
	if err := row.Scan(
		&record.CredentialID,
		&record.UserID,
		&record.Username,
		&record.DisplayName,
		&record.PublicKey,
		&counter,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return credential.Record{}, storage.ErrNotFound
		}
		return credential.Record{}, fmt.Errorf("get credential: %w", err)
	}
	record.Counter = uint32(counter)
	record.CreatedAt = fromMillis(createdAt)
	return record, nil
}

// AdvanceCounter moves the stored counter with a compare-and-set write.
//
// The guard on the previous value serializes concurrent authentications for
// the same credential: the loser of a race sees zero affected rows.
func (s *Store) AdvanceCounter(ctx context.Context, credentialID string, from, to uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(credentialID) == "" {
		return fmt.Errorf("credential id is required")
	}
	if to <= from {
		return storage.ErrCounterConflict
	}

	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE passkey_credentials
SET counter = ?
WHERE credential_id = ? AND counter = ?
`, int64(to), credentialID, int64(from))
	if err != nil {
		return fmt.Errorf("advance counter: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("advance counter rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrCounterConflict
	}
	return nil
}

var _ storage.CredentialStore = (*Store)(nil)
