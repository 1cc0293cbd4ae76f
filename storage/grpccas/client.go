package grpccas

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ipfs/go-cid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/storage"
)

// Client implements storage.CAS against a remote shard store. Replies are
// verified locally; the server is not trusted to hash correctly.
type Client struct {
	cc     *grpc.ClientConn
	client CASClient
	logger *zap.Logger

	// Timeout applies per attempt when non-zero.
	Timeout time.Duration
	// MaxRetries bounds retries of Unavailable failures. Zero disables retries.
	MaxRetries uint64
}

var _ storage.CAS = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration
	// MaxMsgBytes sets both send and receive limits when non-zero.
	MaxMsgBytes int
	// MaxRetries is copied to Client.MaxRetries.
	MaxRetries uint64
	Logger     *zap.Logger
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	c := NewClient(cc, opts.Logger)
	c.MaxRetries = opts.MaxRetries
	return c, nil
}

// NewClient wraps an existing connection. Close closes cc.
func NewClient(cc *grpc.ClientConn, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cc: cc, client: NewCASClient(cc), logger: logger}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Put(data []byte) (cid.Cid, error) {
	expected, err := cidutil.CIDv1RawCID(data)
	if err != nil {
		return cid.Undef, err
	}

	var reply *wrapperspb.StringValue
	err = c.call("Put", func(ctx context.Context) (err error) {
		reply, err = c.client.Put(ctx, wrapperspb.Bytes(data))
		return err
	})
	if err != nil {
		return cid.Undef, mapRPC(err)
	}
	id, err := cid.Decode(reply.GetValue())
	if err != nil || !id.Defined() {
		return cid.Undef, storage.ErrInvalidCID
	}
	if !id.Equals(expected) {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return id, nil
}

func (c *Client) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	var reply *wrapperspb.BytesValue
	err := c.call("Get", func(ctx context.Context) (err error) {
		reply, err = c.client.Get(ctx, wrapperspb.String(id.String()))
		return err
	})
	if err != nil {
		return nil, mapRPC(err)
	}
	b := reply.GetValue()
	if err := cidutil.Verify(id, b); err != nil {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *Client) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	var reply *wrapperspb.BoolValue
	err := c.call("Has", func(ctx context.Context) (err error) {
		reply, err = c.client.Has(ctx, wrapperspb.String(id.String()))
		return err
	})
	if err != nil {
		return false
	}
	return reply.GetValue()
}

// call runs fn, retrying Unavailable failures with exponential backoff. Any
// other status is permanent.
func (c *Client) call(method string, fn func(ctx context.Context) error) error {
	op := func() error {
		ctx, cancel := c.ctx()
		defer cancel()
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if status.Code(err) != codes.Unavailable {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("retrying shard store call",
			zap.String("method", method),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.MaxRetries)
	return backoff.RetryNotify(op, b, notify)
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
