package netgen

import (
	"errors"
	"fmt"
)

// InputType is the operator tag of the block that receives the model input.
const InputType = "Input"

var ErrGraphIntegrity = errors.New("netgen: graph integrity violated")

// Block is a vertex of a Graph. Preds and Succs are indices into Graph.Blocks,
// kept in edge order.
//
// DeclaredName and EvalName are empty until a translation run assigns them.
type Block struct {
	ID    string
	Type  string
	Text  string
	Args  []Arg
	Preds []int
	Succs []int

	DeclaredName string
	EvalName     string
}

// Arg returns the value for key and whether it was present. A repeated key
// takes its last value.
func (b *Block) Arg(key string) (string, bool) {
	for i := len(b.Args) - 1; i >= 0; i-- {
		if b.Args[i].Key == key {
			return b.Args[i].Value, true
		}
	}
	return "", false
}

// Graph is the arena form of a DAG used for translation.
type Graph struct {
	Blocks []Block
	// Input is the index of the single Input block.
	Input int
	// Unreachable lists the IDs of blocks not reachable from Input, in DAG order.
	// They take no part in translation.
	Unreachable []string
}

// NewGraph builds the adjacency of d and checks the properties translation relies on:
// unique block keys, edges between known blocks, exactly one Input block with no
// predecessors, no cycles, and no reachable block fed by an unreachable one.
//
// Blocks are keyed by ID, or by Ref when the ID is not assigned yet. Edges
// resolve the same way Prepare resolves them: by node ID when set, otherwise
// by ref.
func NewGraph(d *DAG) (*Graph, error) {
	g := &Graph{Blocks: make([]Block, len(d.Nodes)), Input: -1}

	ids := make(map[string]int, len(d.Nodes))
	refs := make(map[string]int, len(d.Nodes))
	for i, n := range d.Nodes {
		key := n.ID
		if key == "" {
			key = n.Ref
		}
		if key == "" {
			return nil, fmt.Errorf("%w: node %d has neither id nor ref", ErrGraphIntegrity, i)
		}
		if n.ID != "" {
			if _, dup := ids[n.ID]; dup {
				return nil, fmt.Errorf("%w: duplicate node %q", ErrGraphIntegrity, n.ID)
			}
			ids[n.ID] = i
		}
		if n.Ref != "" {
			if _, dup := refs[n.Ref]; dup {
				return nil, fmt.Errorf("%w: duplicate node ref %q", ErrGraphIntegrity, n.Ref)
			}
			refs[n.Ref] = i
		}
		g.Blocks[i] = Block{ID: key, Type: n.Type, Text: n.Text, Args: n.Args}
	}

	for _, e := range d.Edges {
		from, err := edgeEnd(ids, refs, e.FromNodeID, e.FromNodeRef)
		if err != nil {
			return nil, err
		}
		to, err := edgeEnd(ids, refs, e.ToNodeID, e.ToNodeRef)
		if err != nil {
			return nil, err
		}
		if from == to {
			return nil, fmt.Errorf("%w: self-loop on %q", ErrGraphIntegrity, g.Blocks[from].ID)
		}
		g.Blocks[from].Succs = append(g.Blocks[from].Succs, to)
		g.Blocks[to].Preds = append(g.Blocks[to].Preds, from)
	}

	for i := range g.Blocks {
		if g.Blocks[i].Type != InputType {
			continue
		}
		if g.Input >= 0 {
			return nil, fmt.Errorf("%w: multiple %s blocks (%q, %q)", ErrGraphIntegrity, InputType, g.Blocks[g.Input].ID, g.Blocks[i].ID)
		}
		g.Input = i
	}
	if g.Input < 0 {
		return nil, fmt.Errorf("%w: no %s block", ErrGraphIntegrity, InputType)
	}
	if len(g.Blocks[g.Input].Preds) > 0 {
		return nil, fmt.Errorf("%w: %s block %q has predecessors", ErrGraphIntegrity, InputType, g.Blocks[g.Input].ID)
	}

	if err := g.checkReachable(); err != nil {
		return nil, err
	}
	return g, nil
}

func edgeEnd(ids, refs map[string]int, id, ref string) (int, error) {
	if id != "" {
		i, ok := ids[id]
		if !ok {
			return 0, fmt.Errorf("%w: edge references unknown node %q", ErrGraphIntegrity, id)
		}
		return i, nil
	}
	i, ok := refs[ref]
	if !ok {
		return 0, fmt.Errorf("%w: edge references unknown node ref %q", ErrGraphIntegrity, ref)
	}
	return i, nil
}

// checkReachable marks what the Input block reaches, rejects reachable blocks with
// unreachable predecessors, then runs Kahn's algorithm over the reachable part to
// find cycles.
func (g *Graph) checkReachable() error {
	reachable := make([]bool, len(g.Blocks))
	reachable[g.Input] = true
	queue := []int{g.Input}
	count := 1
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range g.Blocks[cur].Succs {
			if !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
				count++
			}
		}
	}

	for i := range g.Blocks {
		b := &g.Blocks[i]
		if !reachable[i] {
			g.Unreachable = append(g.Unreachable, b.ID)
			continue
		}
		for _, p := range b.Preds {
			if !reachable[p] {
				return fmt.Errorf("%w: block %q depends on unreachable block %q", ErrGraphIntegrity, b.ID, g.Blocks[p].ID)
			}
		}
	}

	pending := make([]int, len(g.Blocks))
	for i := range g.Blocks {
		pending[i] = len(g.Blocks[i].Preds)
	}
	queue = []int{g.Input}
	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range g.Blocks[cur].Succs {
			pending[next]--
			if pending[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	if visited < count {
		return fmt.Errorf("%w: cycle among blocks reachable from %q", ErrGraphIntegrity, g.Blocks[g.Input].ID)
	}
	return nil
}

// Reset clears the names assigned by a previous translation run.
func (g *Graph) Reset() {
	for i := range g.Blocks {
		g.Blocks[i].DeclaredName = ""
		g.Blocks[i].EvalName = ""
	}
}
