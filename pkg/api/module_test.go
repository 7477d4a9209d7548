package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auraflow/auraflow/pkg/api"
)

func TestModuleValidate(t *testing.T) {
	m := &api.Module{ID: "m1", Name: "One"}
	require.NoError(t, m.Validate())
	assert.Equal(t, api.NodeKindApp, m.Kind)

	assert.ErrorIs(t,
		(&api.Module{Name: "no id"}).Validate(),
		api.ErrModuleIDEmpty)
	assert.ErrorIs(t,
		(&api.Module{ID: "no-name"}).Validate(),
		api.ErrModuleNameEmpty)
}

func TestModuleNewNodeCopiesData(t *testing.T) {
	m := &api.Module{
		ID:             "gpt",
		Name:           "ChatGPT",
		Kind:           api.NodeKindApp,
		TargetURL:      "https://chatgpt.com/",
		PromptTemplate: "Summarize {{input}}",
		Selectors:      &api.SelectorSet{Input: "#prompt-textarea"},
	}

	n := m.NewNode("n1", 100, 40)
	assert.Equal(t, api.NodeID("n1"), n.ID)
	assert.Equal(t, m.ID, n.ModuleID)
	assert.Equal(t, "ChatGPT", n.Label)
	require.NotNil(t, n.Selectors)

	// The node keeps its own selector copy
	m.Selectors.Input = "#changed"
	assert.Equal(t, "#prompt-textarea", n.Selectors.Input)
}

func TestModuleNewNodeTriggerSeeds(t *testing.T) {
	m := &api.Module{
		ID:   "start",
		Name: "Start",
		Kind: api.NodeKindTrigger,
		SeedData: []api.SeedValue{
			{Key: "input", Value: "hello"},
		},
	}

	n := m.NewNode("n1", 0, 0)
	assert.Nil(t, n.Selectors)
	require.Len(t, n.SeedData, 1)

	m.SeedData[0].Value = "changed"
	assert.Equal(t, "hello", n.SeedData[0].Value)
}
