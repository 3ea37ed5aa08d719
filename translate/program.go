package translate

import "strings"

// Program is the output of one translation run.
type Program struct {
	// Declarations are the member declarations, in declaration order.
	Declarations []string `json:"declarations"`
	// Calls are the forward-evaluation statements, in evaluation order.
	Calls []string `json:"calls"`
	// Outputs are the evaluation names of the terminal blocks, in the order
	// they were reached.
	Outputs []string `json:"outputs"`
}

// Return is the statement returning the outputs.
func (p *Program) Return() string {
	if len(p.Outputs) == 1 {
		return "return " + p.Outputs[0]
	}
	return "return (" + strings.Join(p.Outputs, ", ") + ")"
}

// Forward is the body of the forward method: the calls followed by the return statement.
func (p *Program) Forward() []string {
	lines := make([]string, 0, len(p.Calls)+1)
	lines = append(lines, p.Calls...)
	return append(lines, p.Return())
}
