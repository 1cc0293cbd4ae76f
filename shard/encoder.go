package shard

import (
	"go.uber.org/zap"

	"xdao.co/shard/keystream"
	"xdao.co/shard/payload"
)

// Shard is the result of encoding one payload.
type Shard struct {
	// Bits holds eight '0'/'1' characters per serialized payload byte.
	Bits string
	ID   Identifier
}

// Len returns the number of bit characters.
func (s *Shard) Len() int { return len(s.Bits) }

// Bytes returns the transformed bytes the bit string denotes. A malformed bit
// string yields the ParseBits error.
func (s *Shard) Bytes() ([]byte, error) {
	return ParseBits(s.Bits)
}

// Encoder encodes payloads with a fixed matrix. It is immutable after
// construction and safe for concurrent use.
type Encoder struct {
	matrix keystream.Matrix
	keys   [keystream.Rows]byte
	hash   keystream.Hash
	logger *zap.Logger
}

type Option func(*Encoder)

// WithHash selects the hash used for identifiers. Encoders built with New also
// derive their matrix with it.
func WithHash(h keystream.Hash) Option {
	return func(e *Encoder) { e.hash = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Encoder) {
		if l != nil {
			e.logger = l
		}
	}
}

// New derives the matrix for seed and returns an encoder.
func New(seed []byte, opts ...Option) *Encoder {
	e := newEncoder(opts)
	e.setMatrix(keystream.DeriveWith(e.hash, seed))
	return e
}

// NewFromMatrix returns an encoder for an already derived matrix.
func NewFromMatrix(m keystream.Matrix, opts ...Option) *Encoder {
	e := newEncoder(opts)
	e.setMatrix(m)
	return e
}

func newEncoder(opts []Option) *Encoder {
	e := &Encoder{hash: keystream.DefaultHash, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	if !e.hash.Valid() {
		e.hash = keystream.DefaultHash
	}
	return e
}

func (e *Encoder) setMatrix(m keystream.Matrix) {
	e.matrix = m
	e.keys = m.KeyBytes()
}

// Matrix returns a copy of the encoder's matrix.
func (e *Encoder) Matrix() keystream.Matrix { return e.matrix }

func (e *Encoder) Hash() keystream.Hash { return e.hash }

// Encode serializes v canonically and encodes the result. Serialization failures
// are returned as *payload.Error with KindSerialization; no shard is produced.
func (e *Encoder) Encode(v payload.Value) (*Shard, error) {
	data, err := payload.Canonicalize(v)
	if err != nil {
		return nil, err
	}
	return e.EncodeBytes(data), nil
}

// EncodeGo converts x with payload.FromGo and encodes it.
func (e *Encoder) EncodeGo(x any) (*Shard, error) {
	v, err := payload.FromGo(x)
	if err != nil {
		return nil, err
	}
	return e.Encode(v)
}

// EncodeBytes encodes an already serialized payload.
func (e *Encoder) EncodeBytes(data []byte) *Shard {
	bits := RenderBits(e.Transform(data))
	s := &Shard{Bits: bits, ID: Identify(e.hash, bits)}
	e.logger.Debug("encoded shard",
		zap.Int("bytes", len(data)),
		zap.Int("bits", len(bits)),
		zap.Stringer("id", s.ID))
	return s
}

// Transform XORs byte i of data with the key byte of row i mod 8 and returns a
// new slice. Applying it twice returns the original bytes.
func (e *Encoder) Transform(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ e.keys[i%keystream.Rows]
	}
	return out
}

// Decode reverses the encoding of bits and returns the canonical serialization.
func (e *Encoder) Decode(bits string) ([]byte, error) {
	raw, err := ParseBits(bits)
	if err != nil {
		return nil, err
	}
	return e.Transform(raw), nil
}

// DecodeValue decodes bits and parses the serialization back into a Value.
// Big integers come back as their "<digits>n" strings.
func (e *Encoder) DecodeValue(bits string) (payload.Value, error) {
	data, err := e.Decode(bits)
	if err != nil {
		return payload.Value{}, err
	}
	return payload.ParseJSON(data)
}

// Identify computes the identifier of bits with the encoder's hash.
func (e *Encoder) Identify(bits string) Identifier { return Identify(e.hash, bits) }
