package llm

import "context"

type Provider interface {
	Generate(ctx context.Context, question string, contextText string, messageHistory []string) (string, error)
}
