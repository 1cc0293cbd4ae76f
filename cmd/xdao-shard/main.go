// Command xdao-shard encodes JSON payloads into identified binary shards and
// registers, stores and resolves them.
package main

import (
	"fmt"
	"io"
	"os"

	"xdao.co/shard/model"

	_ "xdao.co/shard/storage/grpccas"
	_ "xdao.co/shard/storage/ipfs"
	_ "xdao.co/shard/storage/localfs"
	_ "xdao.co/shard/storage/memory"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, in io.Reader, out, errOut io.Writer) int {
	a := newApp(in, out, errOut)
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.Execute(); err != nil {
		ce := model.FromError(err)
		if ce.RuleID != "" {
			fmt.Fprintf(errOut, "xdao-shard: %s [%s]\n", ce.Error(), ce.RuleID)
		} else {
			fmt.Fprintf(errOut, "xdao-shard: %s\n", ce.Error())
		}
		return 1
	}
	return 0
}
