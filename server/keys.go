package server

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// keys are the independent keys derived from the configured session secret.
type keys struct {
	csrf         []byte
	sessionHash  []byte
	sessionBlock []byte
}

func deriveKeys(secret string) (keys, error) {
	var k keys
	var err error
	if k.csrf, err = deriveKey(secret, "activityboard csrf", 32); err != nil {
		return keys{}, err
	}
	if k.sessionHash, err = deriveKey(secret, "activityboard session hash", 64); err != nil {
		return keys{}, err
	}
	if k.sessionBlock, err = deriveKey(secret, "activityboard session block", 32); err != nil {
		return keys{}, err
	}
	return k, nil
}

func deriveKey(secret, info string, size int) ([]byte, error) {
	key := make([]byte, size)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("deriving %s key: %w", info, err)
	}
	return key, nil
}
