package keystore

import (
	"encoding/hex"
	"errors"
	"os"
	"strings"
)

// Static is a simple in-memory keystore for audit entry signing.
// Keys never change at runtime; rotation happens by restarting with a
// new active key id while old ids stay resolvable for verification.
type Static struct {
	keys     map[string][]byte
	activeID string
}

// NewFromEnv builds a keystore from environment variables.
// AUDIT_SIGNING_KEYS format: "keyId:hex,keyId2:hex".
// AUDIT_SIGNING_KEY_ID selects the active key id.
// AUDIT_SIGNING_KEY is a single-key shorthand registered under "default".
func NewFromEnv() (*Static, error) {
	keys := make(map[string][]byte)
	raw := os.Getenv("AUDIT_SIGNING_KEYS")
	if raw != "" {
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			parts := strings.SplitN(p, ":", 2)
			if len(parts) != 2 {
				return nil, errors.New("invalid AUDIT_SIGNING_KEYS format")
			}
			b, err := hex.DecodeString(parts[1])
			if err != nil {
				return nil, err
			}
			keys[parts[0]] = b
		}
	}

	if single := os.Getenv("AUDIT_SIGNING_KEY"); single != "" {
		b, err := hex.DecodeString(single)
		if err != nil {
			return nil, err
		}
		keys["default"] = b
	}

	activeID := os.Getenv("AUDIT_SIGNING_KEY_ID")
	if activeID == "" {
		if _, ok := keys["default"]; ok {
			activeID = "default"
		}
	}
	if activeID != "" {
		if _, ok := keys[activeID]; !ok {
			return nil, errors.New("active signing key id not present in key set")
		}
	}

	return &Static{keys: keys, activeID: activeID}, nil
}

// ActiveKey returns the signing key entries are signed with, or nil when
// signing is disabled.
func (s *Static) ActiveKey() []byte {
	if s.activeID == "" {
		return nil
	}
	return s.keys[s.activeID]
}

// Key resolves a key by id for verifying historical entries.
func (s *Static) Key(id string) ([]byte, bool) {
	b, ok := s.keys[id]
	return b, ok
}
