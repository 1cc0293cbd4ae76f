// Package shard turns payloads into binary shards and content identifiers.
//
// Encoding canonicalizes the payload, XORs each serialized byte i with the
// folded key byte of matrix row i mod 8, renders every output byte as eight
// '0'/'1' characters (most significant bit first) and hashes the characters of
// that bit string to form the identifier.
//
// The transform is a repeating 8-byte XOR. It is deterministic and reversible by
// anyone holding the seed, and leaks plaintext relationships between shards. It
// provides no confidentiality.
package shard
