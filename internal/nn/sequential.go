package nn

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/born-ml/warmstart/internal/tensor"
)

type child struct {
	name   string
	module Module
}

// Container is a module made of named child modules. A child's parameters
// appear in the state dict under "<child name>.<child key>", so nesting
// containers produces the usual dotted layer paths ("encoder.stages.0.weight").
//
// Example:
//
//	net := nn.NewContainer().
//	    Add("encoder", encoder).
//	    Add("seg_layers", nn.NewConv(32, 2, 1, 1, 1))
type Container struct {
	children []child
}

// NewContainer creates an empty Container.
func NewContainer() *Container {
	return &Container{}
}

// Add appends a named child and returns the container for chaining.
// Panics if the name is empty, contains a dot, or is already used.
func (c *Container) Add(name string, module Module) *Container {
	if name == "" || strings.Contains(name, ".") {
		panic("Container.Add: invalid child name " + strconv.Quote(name))
	}
	if c.Child(name) != nil {
		panic("Container.Add: duplicated child name " + strconv.Quote(name))
	}
	c.children = append(c.children, child{name: name, module: module})
	return c
}

// Child returns the child with the given name, or nil.
func (c *Container) Child(name string) Module {
	for _, ch := range c.children {
		if ch.name == name {
			return ch.module
		}
	}
	return nil
}

// Names returns the child names in insertion order.
func (c *Container) Names() []string {
	names := make([]string, len(c.children))
	for i, ch := range c.children {
		names[i] = ch.name
	}
	return names
}

// Parameters returns the parameters of all children in order.
func (c *Container) Parameters() []*Parameter {
	var params []*Parameter
	for _, ch := range c.children {
		params = append(params, ch.module.Parameters()...)
	}
	return params
}

// StateDict returns the children's state dicts with keys prefixed by the child name.
func (c *Container) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for _, ch := range c.children {
		for key, raw := range ch.module.StateDict() {
			stateDict[ch.name+"."+key] = raw
		}
	}
	return stateDict
}

// LoadStateDict validates the whole dict first, then dispatches each child's
// share with the prefix removed.
func (c *Container) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	if err := loadCheck(c.StateDict(), stateDict); err != nil {
		return err
	}
	for _, ch := range c.children {
		prefix := ch.name + "."
		sub := make(map[string]*tensor.RawTensor)
		for key, raw := range stateDict {
			if rest, ok := strings.CutPrefix(key, prefix); ok {
				sub[rest] = raw
			}
		}
		if err := ch.module.LoadStateDict(sub); err != nil {
			return errors.WithMessagef(err, "failed to load module %q", ch.name)
		}
	}
	return nil
}

// Sequential is a Container whose children are named by position
// ("0", "1", ...), matching the keys of sequential blocks in other frameworks.
type Sequential struct {
	Container
}

// NewSequential creates a new Sequential container.
func NewSequential(modules ...Module) *Sequential {
	s := &Sequential{}
	for _, m := range modules {
		s.Add(m)
	}
	return s
}

// Add appends a module to the sequence.
func (s *Sequential) Add(module Module) {
	s.Container.Add(strconv.Itoa(len(s.children)), module)
}

// Len returns the number of modules in the sequence.
func (s *Sequential) Len() int {
	return len(s.children)
}

// Module returns the module at the given index.
//
// Panics if index is out of bounds.
func (s *Sequential) Module(index int) Module {
	if index < 0 || index >= len(s.children) {
		panic("Sequential.Module: index out of bounds")
	}
	return s.children[index].module
}
