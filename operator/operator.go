// Package operator maps block types to the code fragments that declare and
// call them in the generated model.
package operator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/meikuraledutech/netgen"
)

var (
	ErrUnknownOperator = errors.New("operator: unknown operator")
	ErrMissingArgument = errors.New("operator: missing argument")
	ErrInvalidOperator = errors.New("operator: invalid operator definition")
)

// Operator produces the code fragments for one block type.
type Operator interface {
	// Type is the block type tag the operator handles.
	Type() string
	// Declaration returns the statement binding the operator's state to name,
	// or "" when the operator has no state to declare.
	Declaration(b *netgen.Block, name string) (string, error)
	// Call returns the statement applying the operator to inputs and binding the
	// result to name.
	Call(b *netgen.Block, name string, inputs []string) (string, error)
}

// Module is an Operator described by a catalog entry.
//
// A Module with a Class is declared as a member (name = Class(args...)) and
// called through that member. A Module with a Function has nothing to declare;
// it is called as Function(inputs..., args...).
type Module struct {
	Tag         string
	Class       string
	Function    string
	Arguments   []string
	Defaults    map[string]string
	PackInputs  bool // pass inputs as one tuple instead of positionally
	Description string
}

var _ Operator = (*Module)(nil)

func (m *Module) Type() string { return m.Tag }

func (m *Module) Declaration(b *netgen.Block, name string) (string, error) {
	args, err := m.resolve(b)
	if err != nil {
		return "", err
	}
	if m.Function != "" {
		return "", nil
	}
	return name + " = " + m.Class + "(" + joinArgs(args) + ")", nil
}

func (m *Module) Call(b *netgen.Block, name string, inputs []string) (string, error) {
	if m.Function == "" {
		if b.DeclaredName == "" {
			return "", fmt.Errorf("operator: block %q (%s) called before it was declared", b.ID, m.Tag)
		}
		return name + " = " + b.DeclaredName + "(" + strings.Join(inputs, ", ") + ")", nil
	}

	args, err := m.resolve(b)
	if err != nil {
		return "", err
	}
	var params []string
	switch {
	case m.PackInputs && len(inputs) == 1:
		params = append(params, "("+inputs[0]+",)")
	case m.PackInputs:
		params = append(params, "("+strings.Join(inputs, ", ")+")")
	default:
		params = append(params, inputs...)
	}
	if s := joinArgs(args); s != "" {
		params = append(params, s)
	}
	return name + " = " + m.Function + "(" + strings.Join(params, ", ") + ")", nil
}

// resolve looks up every required argument on b, falling back to the module defaults.
func (m *Module) resolve(b *netgen.Block) ([]netgen.Arg, error) {
	args := make([]netgen.Arg, 0, len(m.Arguments))
	for _, key := range m.Arguments {
		v, ok := b.Arg(key)
		if !ok {
			v, ok = m.Defaults[key]
		}
		if !ok {
			return nil, fmt.Errorf("%w: block %q (%s) has no %q", ErrMissingArgument, b.ID, m.Tag, key)
		}
		args = append(args, netgen.Arg{Key: key, Value: v})
	}
	return args, nil
}

func joinArgs(args []netgen.Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Key + "=" + a.Value
	}
	return strings.Join(parts, ", ")
}

// validate reports every problem with the definition.
func (m *Module) validate() []string {
	var errs []string
	if m.Tag == "" {
		return []string{"operator with empty type"}
	}
	switch {
	case m.Class == "" && m.Function == "":
		errs = append(errs, fmt.Sprintf("operator '%s': one of module or function is required", m.Tag))
	case m.Class != "" && m.Function != "":
		errs = append(errs, fmt.Sprintf("operator '%s': module and function are mutually exclusive", m.Tag))
	}
	if m.PackInputs && m.Function == "" {
		errs = append(errs, fmt.Sprintf("operator '%s': pack_inputs requires a function", m.Tag))
	}

	declared := make(map[string]struct{}, len(m.Arguments))
	for _, key := range m.Arguments {
		if _, dup := declared[key]; dup {
			errs = append(errs, fmt.Sprintf("operator '%s': argument '%s' listed twice", m.Tag, key))
		}
		declared[key] = struct{}{}
	}
	for key := range m.Defaults {
		if _, ok := declared[key]; !ok {
			errs = append(errs, fmt.Sprintf("operator '%s': default for undeclared argument '%s'", m.Tag, key))
		}
	}
	return errs
}
