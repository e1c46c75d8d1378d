package vault

import (
	"encoding/json"
	"fmt"

	"github.com/fernet/fernet-go"
)

// CryptoError signals a vault integrity violation: tampered ciphertext,
// a token produced under another key, or an undecodable payload. It is
// fatal and never retried.
type CryptoError struct {
	Reason string
}

func (e *CryptoError) Error() string {
	return "vault: " + e.Reason
}

// Vault encrypts and decrypts small structured secrets with a
// process-wide Fernet key. It has no side effects.
type Vault struct {
	key *fernet.Key
}

// New builds a vault from a base64url-encoded 32-byte key.
func New(encodedKey string) (*Vault, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("vault: decode key: %w", err)
	}
	return &Vault{key: key}, nil
}

// Encrypt serializes the secret map as JSON and seals it into a Fernet
// token. The token is ASCII-safe and can be stored as text.
func (v *Vault) Encrypt(secret map[string]string) (string, error) {
	plain, err := json.Marshal(secret)
	if err != nil {
		return "", fmt.Errorf("vault: marshal secret: %w", err)
	}
	token, err := fernet.EncryptAndSign(plain, v.key)
	if err != nil {
		return "", fmt.Errorf("vault: encrypt: %w", err)
	}
	return string(token), nil
}

// Decrypt verifies and opens a token produced by Encrypt. Any failure
// is a CryptoError; tokens do not expire.
func (v *Vault) Decrypt(token string) (map[string]string, error) {
	plain := fernet.VerifyAndDecrypt([]byte(token), 0, []*fernet.Key{v.key})
	if plain == nil {
		return nil, &CryptoError{Reason: "invalid or tampered credential token"}
	}
	var secret map[string]string
	if err := json.Unmarshal(plain, &secret); err != nil {
		return nil, &CryptoError{Reason: "credential payload is not a string map"}
	}
	return secret, nil
}
