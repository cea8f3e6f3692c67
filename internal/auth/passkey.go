package auth

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/go-webauthn/webauthn/webauthn"

	"onsight/internal/user"
)

// PasskeyUser implements webauthn.User for an account.
type PasskeyUser struct {
	user        *user.User
	credentials []webauthn.Credential
}

// NewPasskeyUser wraps an account with its stored credentials.
func NewPasskeyUser(u *user.User, credentials []webauthn.Credential) *PasskeyUser {
	return &PasskeyUser{user: u, credentials: credentials}
}

// WebAuthnID returns a stable byte ID derived from the account ID.
func (u *PasskeyUser) WebAuthnID() []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(u.user.ID))
	return b
}

// WebAuthnName returns the username.
func (u *PasskeyUser) WebAuthnName() string { return u.user.Username }

// WebAuthnDisplayName returns the username.
func (u *PasskeyUser) WebAuthnDisplayName() string { return u.user.Username }

// WebAuthnCredentials returns the stored credentials.
func (u *PasskeyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

// PasskeyStore manages passkey credentials in SQLite.
type PasskeyStore struct {
	db *sql.DB
}

// NewPasskeyStore creates a passkey store.
func NewPasskeyStore(db *sql.DB) *PasskeyStore {
	return &PasskeyStore{db: db}
}

// StoredCredential is a passkey credential with metadata.
type StoredCredential struct {
	ID         string
	UserID     int64
	Name       string
	Credential webauthn.Credential
}

// Save stores a new passkey credential for the user.
func (s *PasskeyStore) Save(userID int64, name string, cred *webauthn.Credential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshaling credential: %w", err)
	}

	id := fmt.Sprintf("%x", cred.ID)
	if _, err := s.db.Exec(
		"INSERT INTO passkey_credentials (id, user_id, name, credential_json) VALUES (?, ?, ?, ?)",
		id, userID, name, string(data),
	); err != nil {
		return fmt.Errorf("storing credential: %w", err)
	}

	return nil
}

// ListByUserID returns all credentials for the user.
func (s *PasskeyStore) ListByUserID(userID int64) (result []StoredCredential, err error) {
	rows, err := s.db.Query(
		"SELECT id, user_id, name, credential_json FROM passkey_credentials WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying credentials: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var sc StoredCredential
		var data string
		if err := rows.Scan(&sc.ID, &sc.UserID, &sc.Name, &data); err != nil {
			return nil, fmt.Errorf("scanning credential: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &sc.Credential); err != nil {
			return nil, fmt.Errorf("unmarshaling credential: %w", err)
		}
		result = append(result, sc)
	}

	return result, rows.Err()
}

// WebAuthnCredentials returns just the webauthn.Credential slice for the user.
func (s *PasskeyStore) WebAuthnCredentials(userID int64) ([]webauthn.Credential, error) {
	stored, err := s.ListByUserID(userID)
	if err != nil {
		return nil, err
	}

	creds := make([]webauthn.Credential, len(stored))
	for i, sc := range stored {
		creds[i] = sc.Credential
	}

	return creds, nil
}

// Delete removes a credential owned by the user.
func (s *PasskeyStore) Delete(id string, userID int64) error {
	result, err := s.db.Exec(
		"DELETE FROM passkey_credentials WHERE id = ? AND user_id = ?",
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("credential not found")
	}

	return nil
}
