package main

import (
	"strings"

	"github.com/spf13/cobra"

	"xdao.co/shard/ledger"
	"xdao.co/shard/storage/casregistry"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "xdao-shard",
		Short:         "Encode JSON payloads into identified binary shards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.logger.Sync()
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file (yaml, json or toml)")
	pf.String("seed", ledger.DefaultSeed, "matrix seed")
	pf.String("hash", "blake2b", "hash for matrix and identifiers (blake2b|blake3)")
	pf.String("backend", "", "storage backend name (see 'backends')")
	pf.String("cas-config", "", "casconfig file for multi-backend storage")
	pf.String("log-level", "warn", "log level (debug|info|warn|error)")
	pf.BoolP("verbose", "v", false, "debug logging")
	for _, name := range []string{"config", "seed", "hash", "backend", "cas-config", "log-level", "verbose"} {
		_ = a.v.BindPFlag(strings.ReplaceAll(name, "-", "_"), pf.Lookup(name))
	}
	casregistry.RegisterFlags(pf, casregistry.UsageCLI)

	root.AddCommand(
		newMatrixCmd(a),
		newEncodeCmd(a),
		newDecodeCmd(a),
		newIDCmd(a),
		newVerifyCmd(a),
		newRegisterCmd(a),
		newLookupCmd(a),
		newBundleCmd(a),
		newBackendsCmd(a),
	)
	return root
}
