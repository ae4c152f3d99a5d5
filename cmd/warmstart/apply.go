package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	"k8s.io/klog/v2"

	"github.com/born-ml/warmstart/internal/checkpoint"
	"github.com/born-ml/warmstart/internal/transfer"
)

func applyCmd() *cli.Command {
	f := &transferFlags{}
	var (
		out     string
		verbose bool
	)

	return &cli.Command{
		Name:  "apply",
		Usage: "Initialize the target network from pretrained weights and save it as a new checkpoint",
		Flags: append(f.flags(),
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "checkpoint to write", Destination: &out, Required: true},
			&cli.BoolFlag{Name: "verbose", Usage: "list every transferred key", Destination: &verbose},
		),
		Action: func(_ context.Context, c *cli.Command) error {
			opts, err := f.options(c)
			if err != nil {
				return exitf(2, "%v", err)
			}
			opts.Report = os.Stdout
			opts.Verbose = opts.Verbose || verbose

			network, err := f.loadTarget(opts.Device)
			if err != nil {
				return exitf(1, "%v", err)
			}
			res, err := transfer.LoadPretrained(network, f.source, opts)
			if err != nil {
				return exitf(1, "%v", err)
			}

			ckpt := checkpoint.New(network)
			ckpt.Metadata = map[string]any{
				"pretrained":  f.source,
				"mode":        res.Mode.String(),
				"transferred": len(res.Matched),
			}
			if err := ckpt.Save(out); err != nil {
				return exitf(1, "%v", err)
			}
			klog.Infof("Wrote %s (run %s)", out, ckpt.RunID)
			return nil
		},
	}
}
