package shard

import (
	"bytes"
	"encoding/hex"
	"strings"

	"xdao.co/shard/keystream"
)

// IdentifierPrefix precedes the hex digest in an identifier's string form.
const IdentifierPrefix = "0x"

// Identifier is the content reference of a shard: the digest of the shard's
// bit-string characters.
type Identifier struct {
	Hash   keystream.Hash
	Digest []byte
}

// Identify hashes the ASCII bytes of bits (not the bits they denote) with h's
// default digest length.
func Identify(h keystream.Hash, bits string) Identifier {
	return Identifier{Hash: h, Digest: h.Sum([]byte(bits), h.Size())}
}

// String returns "0x" followed by the lowercase hex digest.
func (id Identifier) String() string {
	return IdentifierPrefix + hex.EncodeToString(id.Digest)
}

func (id Identifier) IsZero() bool { return len(id.Digest) == 0 }

func (id Identifier) Equal(o Identifier) bool {
	return id.Hash == o.Hash && bytes.Equal(id.Digest, o.Digest)
}

// ParseIdentifier decodes the string form produced by String. Upper-case hex is
// accepted; the digest length must match h.
func ParseIdentifier(s string, h keystream.Hash) (Identifier, error) {
	if !h.Valid() {
		return Identifier{}, newError(KindIdentifier, "SHARD-ID-005", "unsupported identifier hash "+h.String())
	}
	if !strings.HasPrefix(s, IdentifierPrefix) {
		return Identifier{}, newError(KindIdentifier, "SHARD-ID-002", "identifier must start with 0x")
	}
	digest, err := hex.DecodeString(s[len(IdentifierPrefix):])
	if err != nil {
		return Identifier{}, &Error{Kind: KindIdentifier, RuleID: "SHARD-ID-003", Message: "identifier is not hex", Cause: err}
	}
	if len(digest) != h.Size() {
		return Identifier{}, newError(KindIdentifier, "SHARD-ID-004", "identifier digest length does not match "+h.String())
	}
	return Identifier{Hash: h, Digest: digest}, nil
}

// Verify recomputes the identifier of bits and compares it with id.
func Verify(bits string, id Identifier) error {
	if !id.Hash.Valid() {
		return newError(KindIdentifier, "SHARD-ID-005", "unsupported identifier hash "+id.Hash.String())
	}
	if !Identify(id.Hash, bits).Equal(id) {
		return newError(KindIdentifier, "SHARD-ID-001", "identifier does not match shard")
	}
	return nil
}
