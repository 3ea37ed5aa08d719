package netgen

// DAG is a block diagram: operator blocks and the data-flow edges between them.
type DAG struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one operator block as supplied by a loader or a store.
// Ref is a temporary key used only for edge wiring before IDs exist; it is never persisted.
type Node struct {
	ID   string `json:"id,omitempty"`
	Ref  string `json:"ref,omitempty"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Args []Arg  `json:"args,omitempty"`
}

// Arg is a single block argument. Value is literal code text.
type Arg struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Edge represents a directed data-flow connection between two nodes.
// FromNodeRef / ToNodeRef are temporary keys resolved on create and never persisted.
type Edge struct {
	ID          string `json:"id,omitempty"`
	FromNodeID  string `json:"from_node_id,omitempty"`
	ToNodeID    string `json:"to_node_id,omitempty"`
	FromNodeRef string `json:"from_node_ref,omitempty"`
	ToNodeRef   string `json:"to_node_ref,omitempty"`
}
