package api

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

type (
	// NodeKind distinguishes trigger nodes (seed data only) from app
	// nodes (page target, selectors, prompt template)
	NodeKind string

	// SelectorSet holds the CSS selectors an app node uses to drive its
	// target page
	SelectorSet struct {
		Input  string `json:"input"`
		Submit string `json:"submit"`
		Result string `json:"result"`
		Copy   string `json:"copy"`
	}

	// SeedValue is one key/value pair of trigger seed data. Seed data is
	// stored as an ordered slice so "first value" substitution is
	// deterministic across serialization
	SeedValue struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	}

	// Node is a single step in a workflow graph
	Node struct {
		ID             NodeID       `json:"id"`
		ModuleID       ModuleID     `json:"module_id,omitempty"`
		Kind           NodeKind     `json:"kind"`
		Label          string       `json:"label,omitempty"`
		TargetURL      string       `json:"target_url,omitempty"`
		PromptTemplate string       `json:"prompt_template,omitempty"`
		CustomPrompt   string       `json:"custom_prompt,omitempty"`
		Selectors      *SelectorSet `json:"selectors,omitempty"`
		SeedData       []SeedValue  `json:"seed_data,omitempty"`
		X              float64      `json:"x"`
		Y              float64      `json:"y"`
	}

	// Edge is an ordered connection between two nodes
	Edge struct {
		ID     EdgeID `json:"id"`
		Source NodeID `json:"source"`
		Target NodeID `json:"target"`
	}

	// Workflow is a node set, an edge set, and a display name
	Workflow struct {
		ID           WorkflowID `json:"id"`
		Name         string     `json:"name"`
		Nodes        []*Node    `json:"nodes"`
		Edges        []*Edge    `json:"edges"`
		LastModified time.Time  `json:"last_modified"`
	}
)

const (
	NodeKindTrigger NodeKind = "trigger"
	NodeKindApp     NodeKind = "app"
)

var (
	ErrWorkflowIDEmpty  = errors.New("workflow ID empty")
	ErrNodeIDEmpty      = errors.New("node ID empty")
	ErrInvalidNodeKind  = errors.New("invalid node kind")
	ErrEdgeNodeMissing  = errors.New("edge references unknown node")
	ErrDuplicateNodeID  = errors.New("duplicate node ID")
	ErrTriggerSelectors = errors.New("trigger node cannot have selectors")
)

// EffectivePrompt returns the node's prompt text: the custom prompt if
// present, else the template. Both may be empty
func (n *Node) EffectivePrompt() string {
	if n.CustomPrompt != "" {
		return n.CustomPrompt
	}
	return n.PromptTemplate
}

// SelectorSetOrEmpty returns the node's selector set, or a zero set for
// nodes without one
func (n *Node) SelectorSetOrEmpty() SelectorSet {
	if n.Selectors == nil {
		return SelectorSet{}
	}
	return *n.Selectors
}

// SeedLookup returns the seed value for a key
func (n *Node) SeedLookup(key string) (string, bool) {
	for _, sv := range n.SeedData {
		if sv.Key == key {
			return sv.Value, true
		}
	}
	return "", false
}

// FirstSeedValue returns the first seed value in insertion order
func (n *Node) FirstSeedValue() (string, bool) {
	if len(n.SeedData) == 0 {
		return "", false
	}
	return n.SeedData[0].Value, true
}

// FindNode returns the node with the given id
func (w *Workflow) FindNode(id NodeID) (*Node, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// StartNode selects the entry point for a run: the first trigger node,
// else the first node in insertion order. Returns false for an empty
// workflow
func (w *Workflow) StartNode() (*Node, bool) {
	for _, n := range w.Nodes {
		if n.Kind == NodeKindTrigger {
			return n, true
		}
	}
	if len(w.Nodes) == 0 {
		return nil, false
	}
	return w.Nodes[0], true
}

// AddEdge appends an edge unless one with the same (source, target)
// pair already exists. Returns true when the edge set changed
func (w *Workflow) AddEdge(e *Edge) bool {
	for _, existing := range w.Edges {
		if existing.Source == e.Source && existing.Target == e.Target {
			return false
		}
	}
	w.Edges = append(w.Edges, e)
	return true
}

// RemoveNode removes a node and every edge touching it
func (w *Workflow) RemoveNode(id NodeID) {
	w.Nodes = slices.DeleteFunc(w.Nodes, func(n *Node) bool {
		return n.ID == id
	})
	w.Edges = slices.DeleteFunc(w.Edges, func(e *Edge) bool {
		return e.Source == id || e.Target == id
	})
}

// OutgoingEdge returns the successor edge for a node. When a node has
// more than one outgoing edge, the edge with the lowest id wins, so
// traversal is deterministic regardless of insertion order
func (w *Workflow) OutgoingEdge(id NodeID) (*Edge, bool) {
	var res *Edge
	for _, e := range w.Edges {
		if e.Source != id {
			continue
		}
		if res == nil || e.ID < res.ID {
			res = e
		}
	}
	return res, res != nil
}

// IncomingEdge returns the first edge targeting a node
func (w *Workflow) IncomingEdge(id NodeID) (*Edge, bool) {
	for _, e := range w.Edges {
		if e.Target == id {
			return e, true
		}
	}
	return nil, false
}

// Validate checks structural invariants of the workflow document
func (w *Workflow) Validate() error {
	if w.ID == "" {
		return ErrWorkflowIDEmpty
	}
	seen := map[NodeID]bool{}
	for _, n := range w.Nodes {
		if n.ID == "" {
			return ErrNodeIDEmpty
		}
		if seen[n.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}
		seen[n.ID] = true
		switch n.Kind {
		case NodeKindTrigger:
			if n.Selectors != nil {
				return fmt.Errorf("%w: %s", ErrTriggerSelectors, n.ID)
			}
		case NodeKindApp:
		default:
			return fmt.Errorf("%w: %q", ErrInvalidNodeKind, n.Kind)
		}
	}
	for _, e := range w.Edges {
		if !seen[e.Source] || !seen[e.Target] {
			return fmt.Errorf("%w: %s -> %s",
				ErrEdgeNodeMissing, e.Source, e.Target)
		}
	}
	return nil
}
