// Package credential persists login state on disk and turns it into
// authenticated platform sessions. Files are JSON, optionally sealed with a
// passphrase; Load auto-detects the encrypted form.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/bilistream/bilistream/pkg/bili"
)

// ErrPassphraseRequired is returned when an encrypted credential file is
// loaded without a passphrase.
var ErrPassphraseRequired = errors.New("credential file is encrypted, passphrase required")

// Load reads a credential file. The I/O error path wraps the underlying os
// error so callers can tell a missing file from a rejected credential.
func Load(path, passphrase string) (*bili.Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open credential file %s: %w", path, err)
	}

	if isEncrypted(data) {
		if passphrase == "" {
			return nil, fmt.Errorf("%s: %w", path, ErrPassphraseRequired)
		}
		data, err = decrypt(data, passphrase)
		if err != nil {
			return nil, fmt.Errorf("decrypt credential file %s: %w", path, err)
		}
	}

	var cred bili.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("parse credential file %s: %w", path, err)
	}
	return &cred, nil
}

// Save writes a credential file, sealed when a passphrase is given.
func Save(path string, cred *bili.Credential, passphrase string) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}

	if passphrase != "" {
		if data, err = encrypt(data, passphrase); err != nil {
			return fmt.Errorf("encrypt credential: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write credential file %s: %w", path, err)
	}
	return nil
}

// LoginByCookies loads a persisted credential and validates it against the
// platform. Failure modes stay distinguishable: wrapped os errors for I/O,
// domain.ErrInvalidCredential for a rejected login.
func LoginByCookies(ctx context.Context, path, passphrase string, cfg bili.ClientConfig) (*bili.Session, error) {
	cred, err := Load(path, passphrase)
	if err != nil {
		return nil, err
	}

	sess := bili.NewSession(cred, cfg)
	if err := sess.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate credential %s: %w", path, err)
	}
	return sess, nil
}
