package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/born-ml/warmstart/internal/checkpoint"
	"github.com/born-ml/warmstart/internal/serialization"
	"github.com/born-ml/warmstart/internal/tensor"
)

func inspectCmd() *cli.Command {
	var (
		field        string
		filter       string
		limit        int
		skipChecksum bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "List the tensors of a checkpoint or SafeTensors file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "field", Usage: "only list tensors under this field (empty = whole file)", Destination: &field},
			&cli.StringFlag{Name: "filter", Usage: "substring filter for tensor keys", Destination: &filter},
			&cli.IntFlag{Name: "limit", Usage: "limit tensor listing (0 = no limit)", Destination: &limit},
			&cli.BoolFlag{Name: "skip-checksum", Usage: "do not verify .born checksums", Destination: &skipChecksum},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			if c.Args().Len() != 1 {
				return exitf(2, "inspect takes exactly one file")
			}
			path := c.Args().First()
			stat, err := os.Stat(path)
			if err != nil {
				return exitf(1, "%v", err)
			}

			info, err := serialization.ReadInfo(path, serialization.ReadOptions{SkipChecksum: skipChecksum})
			if err != nil {
				return exitf(1, "read %q: %v", path, err)
			}
			all := make(map[string]serialization.TensorMeta, len(info.Tensors))
			for _, meta := range info.Tensors {
				all[meta.Name] = meta
			}
			tensors, err := checkpoint.ExtractField(all, field)
			if err != nil {
				return exitf(1, "%v", err)
			}

			fmt.Println(titleStyle.Render("Summary"))
			summary := newTable(nil, lipgloss.Right, lipgloss.Left)
			summary.Row(false, "file", path)
			format := info.Format.String()
			if info.Version > 0 {
				format += fmt.Sprintf(" v%d", info.Version)
			}
			summary.Row(false, "format", format)
			summary.Row(false, "size", humanize.Bytes(uint64(stat.Size()))) //nolint:gosec // G115: file sizes are non-negative
			summary.Row(false, "fields", strings.Join(checkpoint.FieldsOf(all), ", "))
			if meta := info.Checkpoint; meta != nil {
				summary.Row(false, "run id", meta.RunID)
				summary.Row(false, "epoch", humanize.Comma(int64(meta.Epoch)))
				summary.Row(false, "step", humanize.Comma(meta.Step))
				summary.Row(false, "loss", fmt.Sprintf("%.6g", meta.Loss))
			}

			var numElements, numBytes int64
			for _, meta := range tensors {
				numElements += int64(tensor.Shape(meta.Shape).NumElements())
				numBytes += meta.Size
			}
			summary.Row(false, "# tensors", humanize.Comma(int64(len(tensors))))
			summary.Row(false, "# parameters", humanize.Comma(numElements))
			summary.Row(false, "# bytes", humanize.Bytes(uint64(numBytes))) //nolint:gosec // G115: sizes are non-negative
			fmt.Println(summary.Render())

			fmt.Println(titleStyle.Render("Tensors"))
			table := newTable([]string{"Key", "DType", "Shape", "Size", "Bytes"},
				lipgloss.Left, lipgloss.Left, lipgloss.Left, lipgloss.Right)
			for _, row := range inspectRows(tensors, filter, limit) {
				table.Row(false, row...)
			}
			fmt.Println(table.Render())
			return nil
		},
	}
}

// inspectRows returns the table rows of the tensors whose key contains filter,
// in key order, cut after limit rows (0 = no limit) with a "..." row.
func inspectRows(tensors map[string]serialization.TensorMeta, filter string, limit int) [][]string {
	var rows [][]string
	for _, key := range slices.Sorted(maps.Keys(tensors)) {
		if filter != "" && !strings.Contains(key, filter) {
			continue
		}
		if limit > 0 && len(rows) == limit {
			rows = append(rows, []string{"...", "", "", "", ""})
			break
		}
		meta := tensors[key]
		shape := tensor.Shape(meta.Shape)
		rows = append(rows, []string{key, meta.DType, shape.String(),
			humanize.Comma(int64(shape.NumElements())), humanize.Bytes(uint64(meta.Size))}) //nolint:gosec // G115: sizes are non-negative
	}
	return rows
}
