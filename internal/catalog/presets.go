package catalog

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/auraflow/auraflow/pkg/api"
)

// PresetModules are the modules every installation starts with. They
// are seeded once and cannot be modified or deleted afterward
var PresetModules = []*api.Module{
	{
		ID:          "preset-start",
		Name:        "Start",
		Description: "Trigger that seeds the run with initial values",
		Kind:        api.NodeKindTrigger,
		Color:       "#22c55e",
		Preset:      true,
		SeedData: []api.SeedValue{
			{Key: "input", Value: ""},
		},
	},
	{
		ID:          "preset-chatgpt-summarize",
		Name:        "ChatGPT Summarizer",
		Description: "Summarizes the incoming text with ChatGPT",
		Kind:        api.NodeKindApp,
		TargetURL:   "https://chatgpt.com/",
		Color:       "#10a37f",
		Preset:      true,
		PromptTemplate: "Summarize the following text in a few " +
			"concise sentences:\n\n{{input}}",
		Selectors: &api.SelectorSet{
			Input:  "#prompt-textarea",
			Submit: "button[data-testid=\"send-button\"]",
			Result: "[data-message-author-role=\"assistant\"]",
			Copy:   "button[aria-label=\"Copy\"]",
		},
	},
	{
		ID:          "preset-gemini-translate",
		Name:        "Gemini Translator",
		Description: "Translates the incoming text with Gemini",
		Kind:        api.NodeKindApp,
		TargetURL:   "https://gemini.google.com/app",
		Color:       "#4285f4",
		Preset:      true,
		PromptTemplate: "Translate the following text to English:" +
			"\n\n{{input}}",
		Selectors: &api.SelectorSet{
			Input:  ".ql-editor",
			Submit: "button[aria-label=\"Send message\"]",
			Result: ".model-response-text",
			Copy:   "button[data-test-id=\"copy-button\"]",
		},
	},
}

// SeedPresets inserts any preset module not already present. Existing
// presets are left untouched
func (c *Catalog) SeedPresets(ctx context.Context) error {
	for _, m := range PresetModules {
		_, err := c.GetModule(ctx, m.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrModuleNotFound) {
			return err
		}
		if err := c.putModuleRecord(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// putModuleRecord writes a module without the preset immutability
// check. Seeding uses it to install the presets themselves
func (c *Catalog) putModuleRecord(
	ctx context.Context, m *api.Module,
) error {
	if err := m.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, c.moduleKey(m.ID), data, 0)
	pipe.SAdd(ctx, c.indexKey("modules"), string(m.ID))
	_, err = pipe.Exec(ctx)
	return err
}
