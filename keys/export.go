package keys

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

func formatPublicKey(alg string, raw []byte) string {
	return alg + ":" + base64.StdEncoding.EncodeToString(raw)
}

// ParsePublicKey splits "<alg>:<base64>" into its algorithm and key bytes.
func ParsePublicKey(s string) (alg string, raw []byte, err error) {
	alg, b64, ok := strings.Cut(s, ":")
	if !ok || alg == "" {
		return "", nil, fmt.Errorf("keys: public key %q has no algorithm prefix", s)
	}
	raw, err = base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", nil, fmt.Errorf("keys: public key is not base64: %w", err)
	}
	return alg, raw, nil
}

// PublicKeyFromSeed returns the Ed25519 public key string for seed.
func PublicKeyFromSeed(seed []byte) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", fmt.Errorf("keys: ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	pub := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	return formatPublicKey(AlgEd25519, pub), nil
}
