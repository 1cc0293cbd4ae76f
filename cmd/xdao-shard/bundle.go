package main

import (
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/shard"
	"xdao.co/shard/storage/bundle"
	"xdao.co/shard/storage/casregistry"
)

func cidForTx(a *app, txID string) (cid.Cid, error) {
	h, err := a.hash()
	if err != nil {
		return cid.Undef, err
	}
	id, err := shard.ParseIdentifier(txID, h)
	if err != nil {
		return cid.Undef, err
	}
	return cidutil.FromIdentifier(id)
}

func newBundleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "Move stored shards between stores as TAR bundles",
	}
	cmd.AddCommand(newBundleExportCmd(a), newBundleImportCmd(a))
	return cmd
}

func newBundleExportCmd(a *app) *cobra.Command {
	var (
		outPath string
		zstd    bool
		noIndex bool
	)
	cmd := &cobra.Command{
		Use:   "export <txId>...",
		Short: "Write the shards for the given identifiers to a bundle",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]cid.Cid, 0, len(args))
			for _, tx := range args {
				c, err := cidForTx(a, tx)
				if err != nil {
					return fmt.Errorf("%s: %w", tx, err)
				}
				ids = append(ids, c)
			}

			cas, closeFn, err := a.requireStore()
			if err != nil {
				return err
			}
			defer closeQuietly(closeFn)

			opts := bundle.ExportOptions{IncludeIndex: !noIndex}
			if zstd {
				opts.Compression = bundle.CompressionZstd
			}

			var w io.Writer = a.out
			if outPath != "" && outPath != "-" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := bundle.Export(w, cas, ids, opts); err != nil {
				return err
			}
			a.logger.Info("exported bundle", zap.Int("shards", len(ids)), zap.String("out", outPath))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file")
	cmd.Flags().BoolVar(&zstd, "zstd", false, "compress with zstd")
	cmd.Flags().BoolVar(&noIndex, "no-index", false, "omit index.json")
	return cmd
}

func newBundleImportCmd(a *app) *cobra.Command {
	var ignoreUnknown bool
	cmd := &cobra.Command{
		Use:   "import [file|-]",
		Short: "Import a bundle into the configured store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cas, closeFn, err := a.requireStore()
			if err != nil {
				return err
			}
			defer closeQuietly(closeFn)

			var r io.Reader = a.in
			if name := argOr(args, "-"); name != "-" {
				f, err := os.Open(name)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			imported, err := bundle.ImportWithOptions(r, cas, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
			if err != nil {
				return err
			}
			for _, c := range imported {
				id, err := cidutil.ToIdentifier(c)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, id.String())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&ignoreUnknown, "ignore-unknown", false, "skip entries outside the bundle layout")
	return cmd
}

func newBackendsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List linked storage backends",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, b := range casregistry.List(casregistry.UsageCLI) {
				fmt.Fprintf(a.out, "%s\t%s\n", b.Name, b.Description)
			}
			return nil
		},
	}
}
