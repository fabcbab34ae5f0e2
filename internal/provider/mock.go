package provider

import (
	"context"
	"fmt"
)

// mockPromptPreview is the number of prompt characters echoed back.
const mockPromptPreview = 50

// Mock answers with canned text that echoes the start of the prompt. It is
// used for demos and offline development.
type Mock struct {
	// Model selects the canned response style.
	Model string
}

// NewMock creates a Mock answering in the generic style.
func NewMock() *Mock {
	return &Mock{Model: ModelMock}
}

// Generate implements Provider.
func (m *Mock) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return generateMock(m.Model, prompt), nil
}

func generateMock(model, prompt string) string {
	preview := []rune(prompt)
	if len(preview) > mockPromptPreview {
		preview = preview[:mockPromptPreview]
	}
	switch model {
	case ModelOpenAI:
		return fmt.Sprintf("OpenAI GPT response to: '%s...' - This is a comprehensive response that follows your prompt instructions carefully.", string(preview))
	case ModelClaude:
		return fmt.Sprintf("Claude response to: '%s...' - I'll provide a thoughtful and detailed response based on your specific requirements.", string(preview))
	case ModelGemini:
		return fmt.Sprintf("Gemini response to: '%s...' - Here's my response following the guidelines and constraints you've specified.", string(preview))
	default:
		return "Model response generated successfully."
	}
}
