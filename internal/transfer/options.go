package transfer

import (
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/warmstart/internal/checkpoint"
	"github.com/born-ml/warmstart/internal/tensor"
)

// Mode selects how incompatibilities between the network and the pretrained
// weights are handled.
type Mode int

const (
	// Strict requires every non-excluded key of the network to be present in
	// the pretrained weights with the same shape, and fails otherwise.
	Strict Mode = iota

	// Lenient transfers the keys that match and leaves everything else alone.
	Lenient
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode converts "strict" or "lenient" (any case) to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	}
	return Strict, errors.Errorf("unknown transfer mode %q, expected \"strict\" or \"lenient\"", s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *Mode) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	mode, err := ParseMode(s)
	if err != nil {
		return errors.Wrapf(err, "line %d", value.Line)
	}
	*m = mode
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m Mode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// DefaultExclusions returns the exclusion substrings used by a mode unless
// overridden. Strict mode only skips segmentation heads; lenient mode also
// skips decoders and the projection/prediction heads of self-supervised
// pretraining, so only the shared backbone is transferred.
func DefaultExclusions(mode Mode) []string {
	if mode == Lenient {
		return []string{".seg_layers.", "decoder", "projector", "predictor"}
	}
	return []string{".seg_layers."}
}

// Options configures a transfer.
type Options struct {
	Mode Mode

	// Exclusions are substrings; a target key containing any of them is
	// never transferred.
	Exclusions []string

	// Field is the checkpoint field holding the network weights. Empty means
	// the whole file is the parameter mapping.
	Field string

	// Device receives the loaded tensors.
	Device tensor.Device

	// Verbose lists the transferred keys in the report.
	Verbose bool

	// Report receives the human readable report. Nil disables it.
	Report io.Writer

	// StripPrefixes removes data-parallel and compiled wrapper prefixes from
	// the pretrained keys before matching.
	StripPrefixes bool

	// SkipChecksum disables checksum verification of .born files.
	SkipChecksum bool
}

// DefaultOptions returns the options of mode: its default exclusions, the
// "network_weights" field, host memory and a report on standard output.
func DefaultOptions(mode Mode) Options {
	return Options{
		Mode:       mode,
		Exclusions: DefaultExclusions(mode),
		Field:      checkpoint.NetworkWeightsField,
		Device:     tensor.CPU,
		Report:     os.Stdout,
	}
}

// Rules is the on-disk form of the transfer configuration:
//
//	mode: lenient
//	exclude: [".seg_layers.", "decoder"]
//	field: network_weights
//	strip_prefixes: true
//	device: CPU
//
// Omitted entries keep the defaults of the mode.
type Rules struct {
	Mode          Mode     `yaml:"mode"`
	Exclude       []string `yaml:"exclude"`
	Field         *string  `yaml:"field"`
	StripPrefixes bool     `yaml:"strip_prefixes"`
	Device        string   `yaml:"device"`
	Verbose       bool     `yaml:"verbose"`
}

// ParseRules decodes YAML rules. Unknown entries are rejected.
func ParseRules(r io.Reader) (*Rules, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	rules := &Rules{}
	if err := dec.Decode(rules); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "failed to parse transfer rules")
	}
	return rules, nil
}

// LoadRules reads YAML rules from path.
func LoadRules(path string) (*Rules, error) {
	//nolint:gosec // G304: path is provided by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open rules file")
	}
	defer func() { _ = f.Close() }()
	rules, err := ParseRules(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "rules file %q", path)
	}
	return rules, nil
}

// Options returns DefaultOptions(r.Mode) overridden by the rules.
func (r *Rules) Options() (Options, error) {
	opts := DefaultOptions(r.Mode)
	if r.Exclude != nil {
		opts.Exclusions = slices.Clone(r.Exclude)
	}
	if r.Field != nil {
		opts.Field = *r.Field
	}
	if r.Device != "" {
		device, err := tensor.ParseDevice(r.Device)
		if err != nil {
			return opts, errors.Wrap(err, "invalid device in transfer rules")
		}
		opts.Device = device
	}
	opts.StripPrefixes = r.StripPrefixes
	opts.Verbose = r.Verbose
	return opts, nil
}
