package main

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/warmstart/internal/transfer"
)

func planCmd() *cli.Command {
	f := &transferFlags{}
	var hideMatched bool

	return &cli.Command{
		Name:  "plan",
		Usage: "Show which tensors a transfer would copy, without writing anything",
		Flags: append(f.flags(),
			&cli.BoolFlag{Name: "hide-matched", Usage: "only list keys that would not be transferred", Destination: &hideMatched},
		),
		Action: func(_ context.Context, c *cli.Command) error {
			opts, err := f.options(c)
			if err != nil {
				return exitf(2, "%v", err)
			}
			network, err := f.loadTarget(opts.Device)
			if err != nil {
				return exitf(1, "%v", err)
			}
			source, err := transfer.LoadSource(f.source, opts)
			if err != nil {
				return exitf(1, "%v", err)
			}

			// Classify leniently for display; strictness is checked afterwards.
			display := opts
			display.Mode = transfer.Lenient
			res, err := transfer.Plan(network, source, display)
			if err != nil {
				return exitf(1, "%v", err)
			}

			fmt.Println(titleStyle.Render("Plan"))
			summary := newTable(nil, lipgloss.Right, lipgloss.Left)
			summary.Row(false, "target", f.target)
			summary.Row(false, "source", f.source)
			summary.Row(false, "mode", opts.Mode.String())
			summary.Row(false, "exclusions", fmt.Sprintf("%q", opts.Exclusions))
			summary.Row(false, "matched", humanize.Comma(int64(len(res.Matched))))
			summary.Row(len(res.ShapeMismatched) > 0, "mismatched", humanize.Comma(int64(len(res.ShapeMismatched))))
			summary.Row(len(res.Missing) > 0, "missing", humanize.Comma(int64(len(res.Missing))))
			summary.Row(false, "excluded", humanize.Comma(int64(len(res.Excluded))))
			summary.Row(false, "bytes", humanize.Bytes(uint64(res.Bytes))) //nolint:gosec // G115: sizes are non-negative
			fmt.Println(summary.Render())

			fmt.Println(titleStyle.Render("Keys"))
			targetSD := network.StateDict()
			table := newTable([]string{"Key", "Status", "Network", "Pretrained"})
			rows := planRows(res, hideMatched)
			for _, row := range rows {
				key := row[0]
				pretrained := "-"
				if raw, ok := source[key]; ok {
					pretrained = raw.String()
				}
				table.Row(row[1] == "mismatched" || row[1] == "missing",
					key, row[1], targetSD[key].String(), pretrained)
			}
			fmt.Println(table.Render())

			if opts.Mode == transfer.Strict {
				if _, err := transfer.Plan(network, source, opts); err != nil {
					var incompatible *transfer.IncompatibilityError
					if errors.As(err, &incompatible) {
						return exitf(1, "strict transfer is not possible: %v", err)
					}
					return exitf(1, "%v", err)
				}
			}
			return nil
		},
	}
}

// planRows returns (key, status) pairs in key order.
func planRows(res *transfer.Result, hideMatched bool) [][2]string {
	status := make(map[string]string)
	if !hideMatched {
		for _, key := range res.Matched {
			status[key] = "matched"
		}
	}
	for _, m := range res.ShapeMismatched {
		status[m.Key] = "mismatched"
	}
	for _, key := range res.Missing {
		status[key] = "missing"
	}
	for _, key := range res.Excluded {
		status[key] = "excluded"
	}
	keys := make([]string, 0, len(status))
	for key := range status {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	rows := make([][2]string, len(keys))
	for i, key := range keys {
		rows[i] = [2]string{key, status[key]}
	}
	return rows
}
