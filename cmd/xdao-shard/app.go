package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"xdao.co/shard/keystream"
	"xdao.co/shard/ledger"
	"xdao.co/shard/shard"
	"xdao.co/shard/storage"
	"xdao.co/shard/storage/casconfig"
	"xdao.co/shard/storage/casregistry"
)

const envPrefix = "XDAO_SHARD"

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// app carries the per-invocation state shared by all commands.
type app struct {
	v      *viper.Viper
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	logger *zap.Logger
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return &app{v: v, in: in, out: out, errOut: errOut, logger: zap.NewNop()}
}

// setup reads the optional config file and builds the logger. It runs before
// every command.
func (a *app) setup(cmd *cobra.Command) error {
	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	}

	level, err := zapcore.ParseLevel(a.v.GetString("log_level"))
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	if a.v.GetBool("verbose") {
		level = zapcore.DebugLevel
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(zapcore.AddSync(a.errOut)), level)
	a.logger = zap.New(core).With(zap.String("cmd", cmd.Name()))
	return nil
}

func (a *app) hash() (keystream.Hash, error) {
	return keystream.ParseHash(a.v.GetString("hash"))
}

func (a *app) encoder() (*shard.Encoder, error) {
	h, err := a.hash()
	if err != nil {
		return nil, err
	}
	return shard.New([]byte(a.v.GetString("seed")), shard.WithHash(h), shard.WithLogger(a.logger)), nil
}

func (a *app) registrar(opts ...ledger.Option) (*ledger.Registrar, error) {
	h, err := a.hash()
	if err != nil {
		return nil, err
	}
	base := []ledger.Option{
		ledger.WithSeed([]byte(a.v.GetString("seed"))),
		ledger.WithHash(h),
		ledger.WithLogger(a.logger),
	}
	return ledger.New(append(base, opts...)...), nil
}

// openStore opens the configured store. Without --cas-config or --backend it
// returns a nil store and no error.
func (a *app) openStore() (storage.CAS, func() error, error) {
	backend := a.v.GetString("backend")
	if path := a.v.GetString("cas_config"); path != "" {
		cfg, err := casconfig.LoadFile(path)
		if err != nil {
			return nil, nil, err
		}
		return cfg.Open(casregistry.UsageCLI, backend)
	}
	if backend == "" {
		return nil, nil, nil
	}
	return casregistry.Open(backend, casregistry.UsageCLI)
}

func (a *app) requireStore() (storage.CAS, func() error, error) {
	cas, closeFn, err := a.openStore()
	if err != nil {
		return nil, nil, err
	}
	if cas == nil {
		return nil, nil, fmt.Errorf("no store configured (use --backend or --cas-config): %w", storage.ErrNoBackends)
	}
	return cas, closeFn, nil
}

// readInput reads a file, or stdin for "" and "-".
func (a *app) readInput(name string) ([]byte, error) {
	if name == "" || name == "-" {
		return io.ReadAll(a.in)
	}
	return os.ReadFile(name)
}

// readBits reads a bit string and drops surrounding whitespace.
func (a *app) readBits(name string) (string, error) {
	b, err := a.readInput(name)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(b)), nil
}

func (a *app) writeJSON(v any) error {
	b, err := jsonAPI.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

func closeQuietly(closeFn func() error) {
	if closeFn != nil {
		_ = closeFn()
	}
}
