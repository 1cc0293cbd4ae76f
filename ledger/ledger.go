// Package ledger registers encoded shards and resolves them by identifier.
//
// Registration encodes a payload with the ledger seed, optionally stores the
// bit string in a content-addressed store and signs the identifier. The chain
// transaction itself is outside this package; the receipt's TxID is the shard
// identifier a chain adapter would submit.
package ledger

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/keys"
	"xdao.co/shard/keystream"
	"xdao.co/shard/model"
	"xdao.co/shard/payload"
	"xdao.co/shard/shard"
	"xdao.co/shard/storage"
)

// DefaultSeed is the static seed used when no seed is configured.
const DefaultSeed = "5a17a78732e6c8e34e62687c125e982c7f5c53b1b1a0670876f23f1f7d3d2c8f"

// Registrar turns payloads into registered shards. It is safe for concurrent
// use when its store and signer are.
type Registrar struct {
	seed   []byte
	hash   keystream.Hash
	enc    *shard.Encoder
	store  storage.CAS
	signer keys.Signer
	logger *zap.Logger
}

type Option func(*Registrar)

// WithSeed replaces DefaultSeed.
func WithSeed(seed []byte) Option {
	return func(r *Registrar) { r.seed = append([]byte(nil), seed...) }
}

func WithHash(h keystream.Hash) Option {
	return func(r *Registrar) { r.hash = h }
}

// WithStore keeps every registered bit string in cas.
func WithStore(cas storage.CAS) Option {
	return func(r *Registrar) { r.store = cas }
}

// WithSigner signs the identifier of every registration.
func WithSigner(s keys.Signer) Option {
	return func(r *Registrar) { r.signer = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registrar) {
		if l != nil {
			r.logger = l
		}
	}
}

func New(opts ...Option) *Registrar {
	r := &Registrar{
		seed:   []byte(DefaultSeed),
		hash:   keystream.DefaultHash,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.enc = shard.New(r.seed, shard.WithHash(r.hash), shard.WithLogger(r.logger))
	return r
}

// Encoder returns the encoder used for registrations.
func (r *Registrar) Encoder() *shard.Encoder { return r.enc }

// Register encodes v and records the shard. A serialization failure returns
// before anything is logged, stored or signed.
func (r *Registrar) Register(ctx context.Context, v payload.Value) (model.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return model.Receipt{}, err
	}
	s, err := r.enc.Encode(v)
	if err != nil {
		return model.Receipt{}, err
	}
	return r.record(ctx, s)
}

// RegisterGo converts x with payload.FromGo and registers it.
func (r *Registrar) RegisterGo(ctx context.Context, x any) (model.Receipt, error) {
	v, err := payload.FromGo(x)
	if err != nil {
		return model.Receipt{}, err
	}
	return r.Register(ctx, v)
}

// RegisterAll encodes values concurrently and records them in input order. No
// shard is recorded when any value fails to serialize, and no receipts are
// returned when a store or sign step fails. Shards stored before such a
// failure stay in the store; Put is idempotent, so a retry is safe.
func (r *Registrar) RegisterAll(ctx context.Context, values []payload.Value, limit int) ([]model.Receipt, error) {
	shards, err := r.enc.EncodeAll(ctx, values, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Receipt, 0, len(shards))
	for _, s := range shards {
		rec, err := r.record(ctx, s)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Registrar) record(ctx context.Context, s *shard.Shard) (model.Receipt, error) {
	r.logger.Info("registering shard",
		zap.Int("bits", s.Len()),
		zap.Stringer("id", s.ID))

	rec := model.Receipt{
		TxID:      s.ID.String(),
		ShardSize: s.Len(),
		Hash:      s.ID.Hash.String(),
	}

	if r.store != nil {
		if err := ctx.Err(); err != nil {
			return model.Receipt{}, err
		}
		id, err := r.store.Put([]byte(s.Bits))
		if err != nil {
			return model.Receipt{}, fmt.Errorf("ledger: store shard %s: %w", rec.TxID, err)
		}
		want, err := cidutil.CIDv1RawCID([]byte(s.Bits))
		if err != nil {
			return model.Receipt{}, err
		}
		if !id.Equals(want) {
			return model.Receipt{}, fmt.Errorf("ledger: store returned %s for %s: %w", id, want, storage.ErrCIDMismatch)
		}
		rec.CID = id.String()
	}

	if r.signer != nil {
		sig, err := r.signer.Sign([]byte(rec.TxID))
		if err != nil {
			return model.Receipt{}, fmt.Errorf("ledger: sign %s: %w", rec.TxID, err)
		}
		rec.Signature = &model.Signature{
			Alg:       r.signer.Alg(),
			HashAlg:   r.signer.HashAlg(),
			PublicKey: r.signer.PublicKey(),
			Value:     sig,
		}
	}
	return rec, nil
}

// Lookup fetches the shard registered under txID, verifies its identifier and
// returns it with the decoded canonical payload.
func (r *Registrar) Lookup(ctx context.Context, txID string) (*shard.Shard, []byte, error) {
	if r.store == nil {
		return nil, nil, fmt.Errorf("ledger: lookup %s: %w", txID, storage.ErrNoBackends)
	}
	if r.hash != keystream.BLAKE2b {
		// Stores address bits by BLAKE2b-512; other identifiers carry no CID.
		return nil, nil, fmt.Errorf("ledger: lookup %s: %s identifiers are not store addresses", txID, r.hash)
	}
	id, err := shard.ParseIdentifier(txID, r.hash)
	if err != nil {
		return nil, nil, err
	}
	c, err := cidutil.FromIdentifier(id)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	b, err := r.store.Get(c)
	if err != nil {
		return nil, nil, fmt.Errorf("ledger: lookup %s: %w", txID, err)
	}

	bits := string(b)
	if err := shard.Verify(bits, id); err != nil {
		return nil, nil, err
	}
	plain, err := r.enc.Decode(bits)
	if err != nil {
		return nil, nil, err
	}
	r.logger.Debug("resolved shard", zap.String("txId", txID), zap.Int("bits", len(bits)))
	return &shard.Shard{Bits: bits, ID: id}, plain, nil
}

// VerifyReceipt checks a receipt's signature over its TxID.
func VerifyReceipt(rec model.Receipt) error {
	if rec.Signature == nil {
		return fmt.Errorf("ledger: receipt %s is unsigned", rec.TxID)
	}
	sig := rec.Signature
	return keys.Verify(sig.PublicKey, sig.HashAlg, []byte(rec.TxID), sig.Value)
}
