// Command xdao-casgrpcd serves a shard store over gRPC.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/shard/storage"
	"xdao.co/shard/storage/casconfig"
	"xdao.co/shard/storage/casregistry"
	"xdao.co/shard/storage/grpccas"

	_ "xdao.co/shard/storage/ipfs"
	_ "xdao.co/shard/storage/localfs"
	_ "xdao.co/shard/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil))
}

// run parses args and serves until ctx is done. ready, when non-nil, receives
// the bound listen address once the server accepts connections.
func run(ctx context.Context, args []string, out, errOut io.Writer, ready chan<- string) int {
	fs := pflag.NewFlagSet("xdao-casgrpcd", pflag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7777", "listen address")
	backend := fs.String("backend", "localfs", "CAS backend name")
	configPath := fs.String("cas-config", "", "YAML/JSON casconfig file (overrides --backend)")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	verbose := fs.BoolP("verbose", "v", false, "Debug logging")

	casregistry.RegisterFlags(fs, casregistry.UsageDaemon)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		for _, b := range casregistry.List(casregistry.UsageDaemon) {
			if b.Description == "" {
				_, _ = fmt.Fprintf(out, "%s\n", b.Name)
				continue
			}
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	cas, closeFn, err := openStore(*configPath, *backend)
	if err != nil {
		logger.Error("open store", zap.Error(err))
		return 2
	}
	if closeFn != nil {
		defer func() { _ = closeFn() }()
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		logger.Error("listen", zap.String("addr", *listen), zap.Error(err))
		return 1
	}

	s := grpc.NewServer()
	grpccas.RegisterCASServer(s, &grpccas.Server{CAS: cas, Logger: logger.Named("grpccas")})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		s.GracefulStop()
	}()

	logger.Info("listening",
		zap.String("addr", lis.Addr().String()),
		zap.String("backend", *backend),
		zap.String("config", *configPath))
	if ready != nil {
		ready <- lis.Addr().String()
	}
	if err := s.Serve(lis); err != nil {
		logger.Error("serve", zap.Error(err))
		return 1
	}
	return 0
}

func openStore(configPath, backend string) (storage.CAS, func() error, error) {
	if configPath == "" {
		return casregistry.Open(backend, casregistry.UsageDaemon)
	}
	cfg, err := casconfig.LoadFile(configPath)
	if err != nil {
		return nil, nil, err
	}
	return cfg.Open(casregistry.UsageDaemon, "")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
