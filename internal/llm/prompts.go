package llm

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts
var promptFiles embed.FS

// Prompt names shipped with the binary.
const (
	PromptClassifyIntent  = "classify_intent"
	PromptExtractCompany  = "extract_company"
	PromptExtractLocation = "extract_location"
	PromptAdvisorPersona  = "advisor_persona"
	PromptAdvisorContext  = "advisor_context"
)

// LoadPrompt loads a prompt from the embedded markdown files
func LoadPrompt(name string) (string, error) {
	content, err := promptFiles.ReadFile(fmt.Sprintf("prompts/%s.md", name))
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// MustLoadPrompt is LoadPrompt for the names above, which are always present.
func MustLoadPrompt(name string) string {
	p, err := LoadPrompt(name)
	if err != nil {
		panic(err)
	}
	return p
}
