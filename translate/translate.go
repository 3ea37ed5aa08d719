// Package translate turns a block graph into the statements of a model class:
// member declarations in one breadth-first pass, forward-evaluation calls in a
// second.
//
// Both passes release a block once every one of its predecessors has been
// handled in that pass, so a block is emitted after all of its inputs no
// matter how the fan-in edges are ordered.
package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/meikuraledutech/netgen"
	"github.com/meikuraledutech/netgen/operator"
	"k8s.io/klog/v2"
)

// InputBinding is the name of the value passed to the generated forward method.
const InputBinding = "input"

// Translator assigns names and collects code fragments for one graph at a time.
// It is not safe for concurrent use; create one per goroutine.
type Translator struct {
	registry *operator.Registry

	declared  int
	evaluated int
}

// New creates a Translator that takes its fragments from reg.
func New(reg *operator.Registry) *Translator {
	return &Translator{registry: reg}
}

// Translate runs both passes over g. Names from any earlier run on g are
// discarded first, so repeated runs give identical output. On error no
// Program is returned.
func (t *Translator) Translate(ctx context.Context, g *netgen.Graph) (*Program, error) {
	log := klog.FromContext(ctx)

	t.declared, t.evaluated = 0, 0
	g.Reset()
	for _, id := range g.Unreachable {
		log.Info("skipping block not reachable from input", "block", id)
	}

	p := &Program{}
	if err := t.declare(ctx, g, p); err != nil {
		return nil, fmt.Errorf("declaring blocks: %w", err)
	}
	if err := t.evaluate(ctx, g, p); err != nil {
		return nil, fmt.Errorf("evaluating blocks: %w", err)
	}

	log.V(2).Info("translated graph", "blocks", len(g.Blocks)-len(g.Unreachable), "declarations", len(p.Declarations), "outputs", len(p.Outputs))
	return p, nil
}

func (t *Translator) declare(ctx context.Context, g *netgen.Graph, p *Program) error {
	log := klog.FromContext(ctx)

	return schedule(g, func(i int) error {
		b := &g.Blocks[i]
		t.declared++
		b.DeclaredName = fmt.Sprintf("self.%s_var_%d", identifier(b.Type), t.declared)

		code, err := t.registry.Declaration(b, b.DeclaredName)
		if err != nil {
			return err
		}
		if code != "" {
			p.Declarations = append(p.Declarations, code)
		}
		log.V(3).Info("declared block", "block", b.ID, "name", b.DeclaredName)
		return nil
	})
}

func (t *Translator) evaluate(ctx context.Context, g *netgen.Graph, p *Program) error {
	log := klog.FromContext(ctx)

	return schedule(g, func(i int) error {
		b := &g.Blocks[i]

		inputs := make([]string, 0, len(b.Preds))
		if i == g.Input {
			inputs = append(inputs, InputBinding)
		}
		for _, pred := range b.Preds {
			inputs = append(inputs, g.Blocks[pred].EvalName)
		}

		t.evaluated++
		b.EvalName = fmt.Sprintf("out%d", t.evaluated)

		code, err := t.registry.Call(b, b.EvalName, inputs)
		if err != nil {
			return err
		}
		p.Calls = append(p.Calls, code)
		if len(b.Succs) == 0 {
			p.Outputs = append(p.Outputs, b.EvalName)
		}
		log.V(3).Info("evaluated block", "block", b.ID, "name", b.EvalName, "inputs", inputs)
		return nil
	})
}

// schedule calls visit for each block reachable from g.Input in breadth-first
// order, once all of the block's predecessors have been visited. A block is
// queued when its count of unvisited predecessors reaches zero.
func schedule(g *netgen.Graph, visit func(i int) error) error {
	pending := make([]int, len(g.Blocks))
	for i := range g.Blocks {
		pending[i] = len(g.Blocks[i].Preds)
	}

	queue := []int{g.Input}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if err := visit(cur); err != nil {
			return err
		}
		for _, next := range g.Blocks[cur].Succs {
			pending[next]--
			if pending[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return nil
}

// identifier lowercases tag and replaces anything that can't appear in a
// Python identifier. A leading digit gets a "_" prefix.
func identifier(tag string) string {
	id := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, tag)
	if id == "" || (id[0] >= '0' && id[0] <= '9') {
		id = "_" + id
	}
	return id
}

// FromDAG builds the graph for d and translates it with a fresh Translator.
func FromDAG(ctx context.Context, reg *operator.Registry, d *netgen.DAG) (*Program, error) {
	g, err := netgen.NewGraph(d)
	if err != nil {
		return nil, err
	}
	return New(reg).Translate(ctx, g)
}
