package api

import "errors"

// Module is a reusable app definition. Dropping a module onto a
// workflow copies its data into the node, so nodes stay usable after
// the module changes or disappears
type Module struct {
	ID             ModuleID     `json:"id"`
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	Kind           NodeKind     `json:"kind"`
	TargetURL      string       `json:"target_url,omitempty"`
	Selectors      *SelectorSet `json:"selectors,omitempty"`
	PromptTemplate string       `json:"prompt_template,omitempty"`
	SeedData       []SeedValue  `json:"seed_data,omitempty"`
	Color          string       `json:"color,omitempty"`
	Preset         bool         `json:"preset,omitempty"`
}

var (
	ErrModuleIDEmpty   = errors.New("module ID empty")
	ErrModuleNameEmpty = errors.New("module name empty")
)

// Validate checks required module fields
func (m *Module) Validate() error {
	if m.ID == "" {
		return ErrModuleIDEmpty
	}
	if m.Name == "" {
		return ErrModuleNameEmpty
	}
	if m.Kind == "" {
		m.Kind = NodeKindApp
	}
	return nil
}

// NewNode instantiates a workflow node from the module, copying its
// data so the node is independent of the module afterward
func (m *Module) NewNode(id NodeID, x, y float64) *Node {
	n := &Node{
		ID:             id,
		ModuleID:       m.ID,
		Kind:           m.Kind,
		Label:          m.Name,
		TargetURL:      m.TargetURL,
		PromptTemplate: m.PromptTemplate,
		X:              x,
		Y:              y,
	}
	if m.Selectors != nil && m.Kind == NodeKindApp {
		sel := *m.Selectors
		n.Selectors = &sel
	}
	if m.Kind == NodeKindTrigger {
		n.SeedData = append([]SeedValue(nil), m.SeedData...)
	}
	return n
}
