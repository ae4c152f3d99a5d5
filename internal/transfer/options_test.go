package transfer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/warmstart/internal/tensor"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions(Lenient)
	assert.Equal(t, Lenient, opts.Mode)
	assert.Equal(t, []string{".seg_layers.", "decoder", "projector", "predictor"}, opts.Exclusions)
	assert.Equal(t, "network_weights", opts.Field)
	assert.Equal(t, tensor.CPU, opts.Device)
	assert.Equal(t, os.Stdout, opts.Report)
	assert.False(t, opts.Verbose)

	// Callers get their own slice.
	opts.Exclusions[0] = "x"
	assert.Equal(t, ".seg_layers.", DefaultExclusions(Lenient)[0])
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Lenient ")
	require.NoError(t, err)
	assert.Equal(t, Lenient, m)
	_, err = ParseMode("loose")
	require.Error(t, err)
	assert.Equal(t, "strict", Strict.String())
	assert.Equal(t, "Mode(7)", Mode(7).String())
}

func TestRules(t *testing.T) {
	rules, err := ParseRules(strings.NewReader(`
mode: lenient
exclude: ["head", ".seg_layers."]
field: ""
strip_prefixes: true
device: CUDA
`))
	require.NoError(t, err)
	opts, err := rules.Options()
	require.NoError(t, err)
	assert.Equal(t, Lenient, opts.Mode)
	assert.Equal(t, []string{"head", ".seg_layers."}, opts.Exclusions)
	assert.Equal(t, "", opts.Field)
	assert.Equal(t, tensor.CUDA, opts.Device)
	assert.True(t, opts.StripPrefixes)

	// Omitted entries keep the defaults of the mode.
	rules, err = ParseRules(strings.NewReader("mode: strict\n"))
	require.NoError(t, err)
	opts, err = rules.Options()
	require.NoError(t, err)
	assert.Equal(t, DefaultExclusions(Strict), opts.Exclusions)
	assert.Equal(t, "network_weights", opts.Field)

	// An explicit empty list disables exclusions.
	rules, err = ParseRules(strings.NewReader("exclude: []\n"))
	require.NoError(t, err)
	opts, err = rules.Options()
	require.NoError(t, err)
	assert.Empty(t, opts.Exclusions)

	// Empty document.
	rules, err = ParseRules(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Strict, rules.Mode)
}

func TestRulesErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"mode":    "mode: loose\n",
		"unknown": "excludes: [a]\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules(strings.NewReader(doc))
			require.Error(t, err)
		})
	}

	rules, err := ParseRules(strings.NewReader("device: TPU\n"))
	require.NoError(t, err)
	_, err = rules.Options()
	require.Error(t, err)

	_, err = LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadRulesRoundTrip(t *testing.T) {
	field := "state_dict"
	data, err := yaml.Marshal(&Rules{Mode: Lenient, Exclude: []string{"head"}, Field: &field})
	require.NoError(t, err)
	assert.Contains(t, string(data), "mode: lenient")

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, Lenient, rules.Mode)
	assert.Equal(t, "state_dict", *rules.Field)
}
