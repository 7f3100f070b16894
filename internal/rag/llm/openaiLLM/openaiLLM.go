package openaiLLM

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/customHttpClient"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/llm"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	api       openai.Client
	modelName string
}

var logger *logger_i.Logger
var openaiClient *llmClient
var once sync.Once

func GetOpenAIClient(modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_openai")
		if apikey == "" {
			logger.Error("OpenAI API key missing, LLM client not created")
			return
		}
		openaiClient = &llmClient{
			api: openai.NewClient(
				option.WithAPIKey(apikey),
				option.WithHTTPClient(customHttpClient.GetPooledClient()),
			),
			modelName: modelName,
		}
		logger.Info("OpenAI client created", "model", modelName)
	})

	if openaiClient == nil {
		return nil
	}
	return openaiClient
}

func (c *llmClient) Generate(ctx context.Context, question string, contextText string, messageHistory []string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	var b strings.Builder
	if len(messageHistory) > 0 {
		b.WriteString("Conversation so far, earlier question and answer pairs:\n")
		b.WriteString(strings.Join(messageHistory, "\n"))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Context:\n%s\n\nUser Question: %s", contextText, question)

	res, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.modelName),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(config.ModelContext),
			openai.UserMessage(b.String()),
		},
		Temperature: openai.Float(float64(config.ModelTemperature)),
		MaxTokens:   openai.Int(int64(config.LLMMaxTokens)),
	})
	if err != nil {
		log.Error("Error generating answer with OpenAI", "error", err.Error())
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return res.Choices[0].Message.Content, nil
}
