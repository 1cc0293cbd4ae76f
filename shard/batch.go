package shard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"xdao.co/shard/payload"
)

// EncodeAll encodes values concurrently with at most limit workers (limit <= 0
// means one per value). Results are in input order. The first error cancels the
// remaining work and is returned without partial results.
func (e *Encoder) EncodeAll(ctx context.Context, values []payload.Value, limit int) ([]*Shard, error) {
	out := make([]*Shard, len(values))
	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range values {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			s, err := e.Encode(values[i])
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
