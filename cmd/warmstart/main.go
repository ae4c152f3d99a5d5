// Command warmstart inspects checkpoints and initializes networks from
// pretrained weights.
//
//	warmstart inspect pretrained.born
//	warmstart plan  --target init.born --source pretrained.born --mode lenient
//	warmstart apply --target init.born --source pretrained.born --out warm.born
package main

import (
	"context"
	"flag"
	"os"
	"strconv"

	"github.com/urfave/cli/v3"
	"k8s.io/klog/v2"
)

const version = "v0.1.0-dev"

func main() {
	klogFlags := flag.NewFlagSet("klog", flag.ExitOnError)
	klog.InitFlags(klogFlags)
	defer klog.Flush()

	var verbosity int
	cmd := &cli.Command{
		Name:    "warmstart",
		Usage:   "Transfer pretrained parameters between checkpoints",
		Version: version,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "verbosity", Usage: "klog verbosity level", Destination: &verbosity},
		},
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			return ctx, klogFlags.Set("v", strconv.Itoa(verbosity))
		},
		Commands: []*cli.Command{
			inspectCmd(),
			planCmd(),
			applyCmd(),
		},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		klog.Exitf("warmstart: %v", err)
	}
}
