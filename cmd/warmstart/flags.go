package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"k8s.io/klog/v2"

	"github.com/born-ml/warmstart/internal/checkpoint"
	"github.com/born-ml/warmstart/internal/nn"
	"github.com/born-ml/warmstart/internal/tensor"
	"github.com/born-ml/warmstart/internal/transfer"
)

// transferFlags are shared by plan and apply.
type transferFlags struct {
	target        string
	targetField   string
	source        string
	mode          string
	exclude       []string
	rules         string
	field         string
	device        string
	stripPrefixes bool
	skipChecksum  bool
}

func (f *transferFlags) flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "checkpoint holding the freshly initialized network", Destination: &f.target, Required: true},
		&cli.StringFlag{Name: "target-field", Usage: "field of the network weights in --target", Value: checkpoint.NetworkWeightsField, Destination: &f.targetField},
		&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "pretrained weights", Destination: &f.source, Required: true},
		&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Usage: "strict or lenient", Value: transfer.Strict.String(), Destination: &f.mode},
		&cli.StringSliceFlag{Name: "exclude", Usage: "exclusion substring, repeatable (replaces the mode defaults)", Destination: &f.exclude},
		&cli.StringFlag{Name: "rules", Usage: "YAML transfer rules; explicit flags take precedence", Destination: &f.rules},
		&cli.StringFlag{Name: "field", Usage: "field of the network weights in --source (empty = whole file)", Value: checkpoint.NetworkWeightsField, Destination: &f.field},
		&cli.StringFlag{Name: "device", Usage: "device receiving the pretrained tensors", Value: tensor.CPU.String(), Destination: &f.device},
		&cli.BoolFlag{Name: "strip-prefixes", Usage: "remove \"module.\" and \"_orig_mod.\" from pretrained keys", Destination: &f.stripPrefixes},
		&cli.BoolFlag{Name: "skip-checksum", Usage: "do not verify .born checksums", Destination: &f.skipChecksum},
	}
}

// options builds the transfer options: rules file first, then flags set on
// the command line.
func (f *transferFlags) options(c *cli.Command) (transfer.Options, error) {
	mode, err := transfer.ParseMode(f.mode)
	if err != nil {
		return transfer.Options{}, err
	}
	opts := transfer.DefaultOptions(mode)
	if f.rules != "" {
		rules, err := transfer.LoadRules(f.rules)
		if err != nil {
			return opts, err
		}
		if opts, err = rules.Options(); err != nil {
			return opts, err
		}
		if c.IsSet("mode") {
			opts.Mode = mode
			if rules.Exclude == nil {
				opts.Exclusions = transfer.DefaultExclusions(mode)
			}
		}
	}
	if c.IsSet("exclude") {
		opts.Exclusions = f.exclude
	}
	if f.rules == "" || c.IsSet("field") {
		opts.Field = f.field
	}
	if f.rules == "" || c.IsSet("device") {
		if opts.Device, err = tensor.ParseDevice(f.device); err != nil {
			return opts, err
		}
	}
	if c.IsSet("strip-prefixes") {
		opts.StripPrefixes = f.stripPrefixes
	}
	opts.SkipChecksum = f.skipChecksum
	klog.V(1).Infof("Transfer options: mode=%s exclusions=%q field=%q device=%s strip=%v",
		opts.Mode, opts.Exclusions, opts.Field, opts.Device, opts.StripPrefixes)
	return opts, nil
}

// loadTarget builds a module from the network weights stored in the target file.
func (f *transferFlags) loadTarget(device tensor.Device) (*nn.StateModule, error) {
	weights, err := checkpoint.ReadField(f.target, f.targetField, checkpoint.ReadOptions{
		Device:       device,
		SkipChecksum: f.skipChecksum,
	})
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load target network")
	}
	return nn.NewStateModule(weights), nil
}

func exitf(code int, format string, args ...any) error {
	return cli.Exit(fmt.Sprintf("error: "+format, args...), code)
}
