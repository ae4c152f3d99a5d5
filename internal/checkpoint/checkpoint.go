// Package checkpoint reads and writes training checkpoints.
//
// A checkpoint is a single tensor container whose keys are grouped under
// top-level fields: the network parameters live under "network_weights.",
// the optimizer buffers under "optimizer_state.". Training progress (epoch,
// step, loss) and a run identifier are kept in the file header.
//
// Checkpoints are written in the .born format. Reading also accepts
// SafeTensors files, whose keys are then grouped the same way.
package checkpoint

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/born-ml/warmstart/internal/nn"
	"github.com/born-ml/warmstart/internal/serialization"
	"github.com/born-ml/warmstart/internal/tensor"
)

// Well-known checkpoint fields.
const (
	NetworkWeightsField = "network_weights"
	OptimizerStateField = "optimizer_state"
)

// ModelType is stored in the header of every checkpoint written by Save.
const ModelType = "Checkpoint"

// ErrFieldNotFound is returned when a checkpoint holds no tensor under the requested field.
var ErrFieldNotFound = errors.New("field not found in checkpoint")

// OptimizerState is an optimizer that can export its buffers.
type OptimizerState interface {
	StateDict() map[string]*tensor.RawTensor
}

// Checkpoint is a training state snapshot.
//
// Example:
//
//	ckpt := checkpoint.New(network)
//	ckpt.Epoch, ckpt.Step, ckpt.Loss = 10, 5000, 0.123
//	err := ckpt.Save("checkpoint_epoch_10.born")
type Checkpoint struct {
	RunID          string                       // Identifier of the training run
	Epoch          int                          // Training epoch number
	Step           int64                        // Training step number
	Loss           float64                      // Loss value at this checkpoint
	OptimizerType  string                       // Optimizer name, if any
	Metadata       map[string]any               // Additional training metadata
	CreatedAt      time.Time                    // When the checkpoint was created
	NetworkWeights map[string]*tensor.RawTensor // Stored under NetworkWeightsField
	OptimizerState map[string]*tensor.RawTensor // Stored under OptimizerStateField
}

// New creates a checkpoint holding the current parameters of network, with a fresh run id.
func New(network nn.Module) *Checkpoint {
	return &Checkpoint{
		RunID:          uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		NetworkWeights: network.StateDict(),
	}
}

// WithOptimizer records the optimizer's buffers and returns the checkpoint.
func (c *Checkpoint) WithOptimizer(name string, opt OptimizerState) *Checkpoint {
	c.OptimizerType = name
	c.OptimizerState = opt.StateDict()
	return c
}

// Fields returns the fields that Save will write, in order.
func (c *Checkpoint) Fields() []string {
	fields := []string{NetworkWeightsField}
	if len(c.OptimizerState) > 0 {
		fields = append(fields, OptimizerStateField)
	}
	return fields
}

// Save writes the checkpoint to a .born file (format v2, with checksum).
func (c *Checkpoint) Save(path string) error {
	combined := make(map[string]*tensor.RawTensor, len(c.NetworkWeights)+len(c.OptimizerState))
	for key, raw := range c.NetworkWeights {
		combined[JoinField(NetworkWeightsField, key)] = raw
	}
	for key, raw := range c.OptimizerState {
		combined[JoinField(OptimizerStateField, key)] = raw
	}

	runID := c.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	header := serialization.Header{
		ModelType: ModelType,
		CreatedAt: c.CreatedAt,
		CheckpointMeta: &serialization.CheckpointMeta{
			IsCheckpoint:  true,
			RunID:         runID,
			Fields:        c.Fields(),
			Epoch:         c.Epoch,
			Step:          c.Step,
			Loss:          c.Loss,
			OptimizerType: c.OptimizerType,
			TrainingMeta:  c.Metadata,
		},
	}
	if err := serialization.WriteFile(path, combined, header); err != nil {
		return errors.Wrapf(err, "failed to save checkpoint to %q", path)
	}
	return nil
}

// ReadOptions configures reading checkpoints.
type ReadOptions struct {
	// Device receives every loaded tensor. The zero value is tensor.CPU.
	Device tensor.Device

	// SkipChecksum disables the SHA-256 verification of .born v2 files.
	SkipChecksum bool
}

// Load reads a checkpoint written by Save, or any tensor file laid out with
// the same fields. Training progress is only available for .born checkpoints.
func Load(path string, opts ReadOptions) (*Checkpoint, error) {
	file, err := readFile(path, opts)
	if err != nil {
		return nil, err
	}

	network, err := ExtractField(file.Tensors, NetworkWeightsField)
	if err != nil {
		if !hasField(file, NetworkWeightsField) {
			return nil, errors.WithMessagef(err, "checkpoint %q", path)
		}
		network = map[string]*tensor.RawTensor{}
	}
	optimizer, _ := ExtractField(file.Tensors, OptimizerStateField)

	c := &Checkpoint{NetworkWeights: network, OptimizerState: optimizer}
	if meta := file.Checkpoint; meta != nil {
		c.RunID = meta.RunID
		c.Epoch = meta.Epoch
		c.Step = meta.Step
		c.Loss = meta.Loss
		c.OptimizerType = meta.OptimizerType
		c.Metadata = meta.TrainingMeta
	}
	return c, nil
}

// ReadField reads path and returns the tensors stored under field, with the
// field prefix removed. An empty field returns every tensor in the file.
func ReadField(path, field string, opts ReadOptions) (map[string]*tensor.RawTensor, error) {
	file, err := readFile(path, opts)
	if err != nil {
		return nil, err
	}
	tensors, err := ExtractField(file.Tensors, field)
	if err != nil {
		// A checkpoint of a parameterless network still declares its field.
		if hasField(file, field) {
			return map[string]*tensor.RawTensor{}, nil
		}
		return nil, errors.WithMessagef(err, "checkpoint %q", path)
	}
	return tensors, nil
}

// ExtractField selects the entries whose key starts with "<field>." and
// strips that prefix. An empty field returns tensors unchanged. Values may be
// tensors or header entries describing them.
func ExtractField[V any](tensors map[string]V, field string) (map[string]V, error) {
	if field == "" {
		return tensors, nil
	}
	prefix := field + "."
	extracted := make(map[string]V)
	for key, raw := range tensors {
		if rest, ok := strings.CutPrefix(key, prefix); ok && rest != "" {
			extracted[rest] = raw
		}
	}
	if len(extracted) == 0 {
		return nil, errors.Wrapf(ErrFieldNotFound, "no tensor under %q", field)
	}
	return extracted, nil
}

// JoinField returns the key under which a tensor of field is stored.
func JoinField(field, key string) string {
	if field == "" {
		return key
	}
	return field + "." + key
}

// FieldsOf lists the top-level fields present in tensors, sorted.
func FieldsOf[V any](tensors map[string]V) []string {
	seen := make(map[string]bool)
	for key := range tensors {
		if field, _, ok := strings.Cut(key, "."); ok {
			seen[field] = true
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

func readFile(path string, opts ReadOptions) (*serialization.File, error) {
	file, err := serialization.ReadFile(path, serialization.ReadOptions{
		Device:          opts.Device,
		ValidationLevel: serialization.ValidationStrict,
		SkipChecksum:    opts.SkipChecksum,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read checkpoint %q", path)
	}
	return file, nil
}

func hasField(file *serialization.File, field string) bool {
	return file.Checkpoint != nil && slices.Contains(file.Checkpoint.Fields, field)
}
