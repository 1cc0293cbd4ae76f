package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// Hash algorithms accepted for message digests.
const (
	HashSHA256   = "sha256"
	HashSHA512   = "sha512"
	HashSHA3_256 = "sha3-256"
)

// ErrBadSignature is returned by Verify when a signature does not match.
var ErrBadSignature = errors.New("keys: signature does not verify")

// Signer signs receipt messages.
type Signer interface {
	// Alg names the signature algorithm ("ed25519" or "dilithium3").
	Alg() string
	// HashAlg names the message digest signed.
	HashAlg() string
	// PublicKey returns "<alg>:" + base64(public key).
	PublicKey() string
	// Sign returns the base64 signature over the digest of msg.
	Sign(msg []byte) (string, error)
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case HashSHA256:
		s := sha256.Sum256(message)
		return s[:], nil
	case HashSHA512:
		s := sha512.Sum512(message)
		return s[:], nil
	case HashSHA3_256:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("keys: unsupported hash algorithm: %q", hashAlg)
	}
}

type ed25519Signer struct {
	priv    ed25519.PrivateKey
	hashAlg string
}

// NewEd25519Signer returns a signer for the Ed25519 key derived from seed.
// hashAlg defaults to sha256.
func NewEd25519Signer(seed []byte, hashAlg string) (Signer, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("keys: ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	if hashAlg == "" {
		hashAlg = HashSHA256
	}
	if _, err := digestFor(hashAlg, nil); err != nil {
		return nil, err
	}
	return &ed25519Signer{priv: ed25519.NewKeyFromSeed(seed), hashAlg: hashAlg}, nil
}

func (s *ed25519Signer) Alg() string     { return AlgEd25519 }
func (s *ed25519Signer) HashAlg() string { return s.hashAlg }

func (s *ed25519Signer) PublicKey() string {
	return formatPublicKey(AlgEd25519, s.priv.Public().(ed25519.PublicKey))
}

func (s *ed25519Signer) Sign(msg []byte) (string, error) {
	digest, err := digestFor(s.hashAlg, msg)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.priv, digest)), nil
}

type dilithium3Signer struct {
	pub     *mode3.PublicKey
	priv    *mode3.PrivateKey
	hashAlg string
}

// NewDilithium3Signer generates a Dilithium3 keypair from rand. hashAlg
// defaults to sha3-256.
func NewDilithium3Signer(rand io.Reader, hashAlg string) (Signer, error) {
	if hashAlg == "" {
		hashAlg = HashSHA3_256
	}
	if _, err := digestFor(hashAlg, nil); err != nil {
		return nil, err
	}
	pub, priv, err := mode3.GenerateKey(rand)
	if err != nil {
		return nil, fmt.Errorf("keys: dilithium3 keygen: %w", err)
	}
	return &dilithium3Signer{pub: pub, priv: priv, hashAlg: hashAlg}, nil
}

func (s *dilithium3Signer) Alg() string     { return AlgDilithium3 }
func (s *dilithium3Signer) HashAlg() string { return s.hashAlg }

func (s *dilithium3Signer) PublicKey() string {
	return formatPublicKey(AlgDilithium3, s.pub.Bytes())
}

func (s *dilithium3Signer) Sign(msg []byte) (string, error) {
	digest, err := digestFor(s.hashAlg, msg)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks a base64 signature produced by a Signer with the given public
// key string and hash algorithm.
func Verify(publicKey, hashAlg string, msg []byte, sigB64 string) error {
	alg, raw, err := ParsePublicKey(publicKey)
	if err != nil {
		return err
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return fmt.Errorf("keys: signature is not base64: %w", err)
	}
	digest, err := digestFor(hashAlg, msg)
	if err != nil {
		return err
	}

	switch alg {
	case AlgEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return fmt.Errorf("keys: ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
		if !ed25519.Verify(ed25519.PublicKey(raw), digest, sig) {
			return ErrBadSignature
		}
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(raw); err != nil {
			return fmt.Errorf("keys: dilithium3 public key: %w", err)
		}
		if !mode3.Verify(&pk, digest, sig) {
			return ErrBadSignature
		}
	default:
		return fmt.Errorf("keys: unsupported signature algorithm %q", alg)
	}
	return nil
}
