package main

import (
	"crypto/rand"
	"fmt"

	"github.com/spf13/cobra"

	"xdao.co/shard/keys"
	"xdao.co/shard/ledger"
	"xdao.co/shard/model"
	"xdao.co/shard/payload"
)

func newRegisterCmd(a *app) *cobra.Command {
	var (
		signAlg  string
		signSeed string
		signRole string
		signHash string
	)
	cmd := &cobra.Command{
		Use:   "register [file|-]",
		Short: "Encode a payload, store it and print the registration receipt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.readInput(argOr(args, "-"))
			if err != nil {
				return err
			}
			v, err := payload.ParseJSON(b)
			if err != nil {
				return err
			}

			var opts []ledger.Option
			cas, closeFn, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeQuietly(closeFn)
			if cas != nil {
				opts = append(opts, ledger.WithStore(cas))
			}

			signer, err := newSigner(signAlg, signSeed, signRole, signHash)
			if err != nil {
				return err
			}
			if signer != nil {
				opts = append(opts, ledger.WithSigner(signer))
			}

			r, err := a.registrar(opts...)
			if err != nil {
				return err
			}
			rec, err := r.Register(cmd.Context(), v)
			if err != nil {
				return err
			}
			return a.writeJSON(rec)
		},
	}
	f := cmd.Flags()
	f.StringVar(&signAlg, "sign", "", "sign the receipt (ed25519|dilithium3)")
	f.StringVar(&signSeed, "sign-seed-hex", "", "32-byte root seed for ed25519 signing")
	f.StringVar(&signRole, "sign-role", "registrar", "role used to derive the ed25519 signing seed")
	f.StringVar(&signHash, "sign-hash", "", "message digest (sha256|sha512|sha3-256)")
	return cmd
}

func newSigner(alg, seedHex, role, hashAlg string) (keys.Signer, error) {
	switch alg {
	case "":
		return nil, nil
	case keys.AlgEd25519:
		if seedHex == "" {
			return nil, model.NewError(model.ErrInvalidRequest, "--sign=ed25519 requires --sign-seed-hex")
		}
		root, err := keys.ParseSeedHex(seedHex)
		if err != nil {
			return nil, err
		}
		seed, err := keys.DeriveSigningSeed(root, role)
		if err != nil {
			return nil, err
		}
		return keys.NewEd25519Signer(seed, hashAlg)
	case keys.AlgDilithium3:
		return keys.NewDilithium3Signer(rand.Reader, hashAlg)
	default:
		return nil, model.NewError(model.ErrInvalidRequest, fmt.Sprintf("unsupported --sign %q", alg))
	}
}

func newLookupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <txId>",
		Short: "Fetch a registered shard, verify it and print the payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cas, closeFn, err := a.requireStore()
			if err != nil {
				return err
			}
			defer closeQuietly(closeFn)

			r, err := a.registrar(ledger.WithStore(cas))
			if err != nil {
				return err
			}
			s, plain, err := r.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res := model.LookupResult{TxID: s.ID.String(), ShardSize: s.Len(), Canonical: string(plain)}
			if c, err := cidForTx(a, args[0]); err == nil {
				res.CID = c.String()
			}
			return a.writeJSON(res)
		},
	}
}
