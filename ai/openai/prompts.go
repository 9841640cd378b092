package openai

import (
	_ "embed"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
	"gopkg.in/yaml.v3"
)

const (
	promptSummary    = "Summary"
	promptSummaryAll = "SummaryAll"
)

//go:embed prompts.yaml
var defaultPrompts []byte

// promptSpec is one entry of the prompt file.
type promptSpec struct {
	Prompt string `yaml:"prompt"`
	Input  string `yaml:"input"`
}

// chatPrompt renders a system and a human message.
type chatPrompt struct {
	system prompts.PromptTemplate
	human  prompts.PromptTemplate
}

// promptBook holds the compiled prompts by name.
type promptBook map[string]chatPrompt

// loadPrompts parses a prompt file. Every key in required must be present.
func loadPrompts(data []byte, required ...string) (promptBook, error) {
	var specs map[string]promptSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}

	book := make(promptBook, len(specs))
	for name, spec := range specs {
		if spec.Prompt == "" {
			return nil, fmt.Errorf("prompt %s: system prompt is empty", name)
		}
		input := spec.Input
		if input == "" {
			input = "{{.text}}"
		}
		book[name] = chatPrompt{
			system: prompts.NewPromptTemplate(spec.Prompt, nil),
			human:  prompts.NewPromptTemplate(input, []string{"text"}),
		}
	}

	for _, name := range required {
		if _, ok := book[name]; !ok {
			return nil, fmt.Errorf("prompt %s is missing", name)
		}
	}
	return book, nil
}

// messages renders the named prompt around text.
func (b promptBook) messages(name, text string) ([]llms.MessageContent, error) {
	p, ok := b[name]
	if !ok {
		return nil, fmt.Errorf("prompt %s is missing", name)
	}

	system, err := p.system.Format(map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt %s: %w", name, err)
	}
	human, err := p.human.Format(map[string]any{"text": text})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt %s: %w", name, err)
	}

	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(human)},
		},
	}, nil
}
