package llm

import (
	"context"
	"fmt"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
)

type OpenAI struct {
	client openai.Client
	opts   Options
}

func NewOpenAI(client openai.Client, opts Options) *OpenAI {
	return &OpenAI{client: client, opts: opts}
}

func (o *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    params,
		Model:       openai.ChatModel(o.opts.Model),
		Temperature: openai.Float(o.opts.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	content := resp.Choices[0].Message.Content
	log.Debug("Completion", "model", o.opts.Model, "chars", len(content))

	return content, nil
}
