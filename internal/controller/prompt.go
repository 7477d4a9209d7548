package controller

import (
	"strings"

	"github.com/auraflow/auraflow/pkg/api"
)

const inputPlaceholder = "{{input}}"

// resolvePrompt expands the node's prompt template against the seed
// data of its immediate upstream trigger. Named placeholders resolve
// first, then any remaining {{input}} takes the trigger's first seed
// value. Placeholders with no matching seed are left alone
func (r *Controller) resolvePrompt(node *api.Node) string {
	prompt := node.EffectivePrompt()

	r.mu.Lock()
	trigger := r.upstreamTrigger(node.ID)
	r.mu.Unlock()
	if trigger == nil {
		return prompt
	}

	for _, sv := range trigger.SeedData {
		prompt = strings.ReplaceAll(
			prompt, "{{"+sv.Key+"}}", sv.Value,
		)
	}

	if strings.Contains(prompt, inputPlaceholder) {
		if first, ok := trigger.FirstSeedValue(); ok {
			prompt = strings.ReplaceAll(
				prompt, inputPlaceholder, first,
			)
		}
	}
	return prompt
}

// upstreamTrigger finds a trigger node one hop upstream of the given
// node. Callers hold the lock
func (r *Controller) upstreamTrigger(id api.NodeID) *api.Node {
	if r.workflow == nil {
		return nil
	}
	edge, ok := r.workflow.IncomingEdge(id)
	if !ok {
		return nil
	}
	source, ok := r.workflow.FindNode(edge.Source)
	if !ok || source.Kind != api.NodeKindTrigger {
		return nil
	}
	return source
}
