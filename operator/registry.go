package operator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/meikuraledutech/netgen"
)

// Registry holds the operators known to a translation, keyed by block type.
// A populated Registry is read-only and safe for concurrent use.
type Registry struct {
	operators map[string]Operator
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{operators: make(map[string]Operator)}
}

// Register adds op, replacing any operator already registered for its type.
func (r *Registry) Register(op Operator) {
	r.operators[op.Type()] = op
}

// Lookup returns the operator for tag.
func (r *Registry) Lookup(tag string) (Operator, error) {
	op, ok := r.operators[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, tag)
	}
	return op, nil
}

// Types returns the registered block types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.operators))
	for t := range r.operators {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Declaration returns the declaration fragment for b.
func (r *Registry) Declaration(b *netgen.Block, name string) (string, error) {
	op, err := r.Lookup(b.Type)
	if err != nil {
		return "", fmt.Errorf("block %q: %w", b.ID, err)
	}
	return op.Declaration(b, name)
}

// Call returns the call fragment for b.
func (r *Registry) Call(b *netgen.Block, name string, inputs []string) (string, error) {
	op, err := r.Lookup(b.Type)
	if err != nil {
		return "", fmt.Errorf("block %q: %w", b.ID, err)
	}
	return op.Call(b, name, inputs)
}

// Validate checks every catalog-defined operator and the presence of an
// operator for the Input block.
func (r *Registry) Validate() error {
	var errs []string
	if _, ok := r.operators[netgen.InputType]; !ok {
		errs = append(errs, fmt.Sprintf("no operator for '%s' blocks", netgen.InputType))
	}
	for _, t := range r.Types() {
		if m, ok := r.operators[t].(*Module); ok {
			errs = append(errs, m.validate()...)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrInvalidOperator, strings.Join(errs, "\n- "))
	}
	return nil
}

// Info describes a registered operator.
type Info struct {
	Type        string            `json:"type"`
	Module      string            `json:"module,omitempty"`
	Function    string            `json:"function,omitempty"`
	Arguments   []string          `json:"arguments"`
	Defaults    map[string]string `json:"defaults,omitempty"`
	Description string            `json:"description,omitempty"`
}

// Describe lists the registered operators sorted by type. Operators that are
// not catalog modules report only their type.
func (r *Registry) Describe() []Info {
	infos := make([]Info, 0, len(r.operators))
	for _, t := range r.Types() {
		info := Info{Type: t, Arguments: []string{}}
		if m, ok := r.operators[t].(*Module); ok {
			info.Module = m.Class
			info.Function = m.Function
			info.Arguments = append(info.Arguments, m.Arguments...)
			info.Defaults = m.Defaults
			info.Description = m.Description
		}
		infos = append(infos, info)
	}
	return infos
}
