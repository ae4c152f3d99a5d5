package transfer

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/born-ml/warmstart/internal/tensor"
)

const banner = "###################"

// writeReport prints the outcome of a transfer the way training logs show it.
// The per-key listing is only written when verbose.
func writeReport(w io.Writer, res *Result, source map[string]*tensor.RawTensor, verbose bool) {
	from := res.Source
	if from == "" {
		from = "<memory>"
	}

	if res.Mode == Strict {
		fmt.Fprintf(w, "%s Loading pretrained weights from file %s %s\n", banner, from, banner)
		if verbose {
			fmt.Fprintln(w, "Below is the list of overlapping blocks in pretrained model and network architecture:")
			for _, key := range res.Matched {
				fmt.Fprintf(w, "%s shape %v\n", key, source[key].Shape())
			}
			fmt.Fprintf(w, "%s Done: %d tensors, %s %s\n", banner, len(res.Matched), humanize.Bytes(uint64(res.Bytes)), banner) //nolint:gosec // G115: sizes are non-negative
		}
		return
	}

	if verbose {
		fmt.Fprintln(w, "==== Matched Keys ====")
		for _, key := range res.Matched {
			fmt.Fprintf(w, "✓ %s\n", key)
		}
		fmt.Fprintln(w, "\n==== Unmatched Keys ====")
		for _, m := range res.ShapeMismatched {
			if m.ShapeDiffers() {
				fmt.Fprintf(w, "✗ %s: model shape %v, pretrained shape %v\n", m.Key, m.TargetShape, m.SourceShape)
			} else {
				fmt.Fprintf(w, "✗ %s: model dtype %s, pretrained dtype %s\n", m.Key, m.TargetDType, m.SourceDType)
			}
		}
		fmt.Fprintln(w, "\n==== Missing Keys in Pretrained ====")
		for _, key := range res.Missing {
			fmt.Fprintf(w, "⚠️ %s\n", key)
		}
	}
	fmt.Fprintf(w, "✅ Successfully loaded %d tensors (%s) from: %s\n",
		len(res.Matched), humanize.Bytes(uint64(res.Bytes)), from) //nolint:gosec // G115: sizes are non-negative
}
