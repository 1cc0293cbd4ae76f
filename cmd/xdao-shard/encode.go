package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"xdao.co/shard/cidutil"
	"xdao.co/shard/model"
	"xdao.co/shard/payload"
	"xdao.co/shard/shard"
	"xdao.co/shard/storage"
)

func newMatrixCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "matrix",
		Short: "Print the key matrix derived from the seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc, err := a.encoder()
			if err != nil {
				return err
			}
			m := enc.Matrix()
			view := model.MatrixView{Hash: enc.Hash().String()}
			for _, row := range m.Rows() {
				view.Rows = append(view.Rows, hex.EncodeToString(row))
			}
			for _, k := range m.KeyBytes() {
				view.KeyBytes = append(view.KeyBytes, int(k))
			}
			return a.writeJSON(view)
		},
	}
}

func newEncodeCmd(a *app) *cobra.Command {
	var (
		withCanonical bool
		store         bool
		jobs          int
	)
	cmd := &cobra.Command{
		Use:   "encode [file|-]...",
		Short: "Encode JSON payloads into shards",
		Long: "Encode reads JSON (comments and trailing commas allowed), serializes it\n" +
			"canonically and prints the shard bits and identifier. Several files are\n" +
			"encoded concurrently and printed as a JSON array in argument order.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}
			enc, err := a.encoder()
			if err != nil {
				return err
			}

			values := make([]payload.Value, 0, len(args))
			for _, name := range args {
				b, err := a.readInput(name)
				if err != nil {
					return err
				}
				v, err := payload.ParseJSON(b)
				if err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				values = append(values, v)
			}

			shards, err := enc.EncodeAll(cmd.Context(), values, jobs)
			if err != nil {
				return err
			}

			var cas storage.CAS
			if store {
				var closeFn func() error
				cas, closeFn, err = a.requireStore()
				if err != nil {
					return err
				}
				defer closeQuietly(closeFn)
			}

			results := make([]model.EncodeResult, 0, len(shards))
			for i, s := range shards {
				r := model.EncodeResult{Bits: s.Bits, ID: s.ID.String(), ShardSize: s.Len()}
				if withCanonical {
					data, err := enc.Decode(s.Bits)
					if err != nil {
						return err
					}
					r.Canonical = string(data)
				}
				if c, err := cidutil.ForShard(s); err == nil {
					r.CID = c.String()
				}
				if cas != nil {
					if _, err := cas.Put([]byte(s.Bits)); err != nil {
						return fmt.Errorf("%s: %w", args[i], err)
					}
				}
				results = append(results, r)
			}
			if len(results) == 1 {
				return a.writeJSON(results[0])
			}
			return a.writeJSON(results)
		},
	}
	cmd.Flags().BoolVar(&withCanonical, "canonical", false, "include the canonical serialization")
	cmd.Flags().BoolVar(&store, "store", false, "write shards to the configured store")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "concurrent encoders (0 = one per input)")
	return cmd
}

func newDecodeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decode [bits-file|-]",
		Short: "Recover the canonical serialization from shard bits",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bits, err := a.readBits(argOr(args, "-"))
			if err != nil {
				return err
			}
			enc, err := a.encoder()
			if err != nil {
				return err
			}
			data, err := enc.Decode(bits)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, string(data))
			return err
		},
	}
}

func newIDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "id [bits-file|-]",
		Short: "Print the identifier of shard bits",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bits, err := a.readBits(argOr(args, "-"))
			if err != nil {
				return err
			}
			if _, err := shard.ParseBits(bits); err != nil {
				return err
			}
			h, err := a.hash()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, shard.Identify(h, bits).String())
			return err
		},
	}
}

func newVerifyCmd(a *app) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "verify --id 0x... [bits-file|-]",
		Short: "Check shard bits against an identifier",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := a.hash()
			if err != nil {
				return err
			}
			want, err := shard.ParseIdentifier(id, h)
			if err != nil {
				return err
			}
			bits, err := a.readBits(argOr(args, "-"))
			if err != nil {
				return err
			}
			if err := shard.Verify(bits, want); err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, "ok")
			return err
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "expected identifier")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func argOr(args []string, def string) string {
	if len(args) == 0 {
		return def
	}
	return args[0]
}
