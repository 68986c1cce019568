package llm

import (
	"context"
	"io"

	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/chat"
)

// OpenAI talks to any OpenAI compatible chat completion API.
// It has no file storage, so subjects cannot be grounded by a textbook with it.
type OpenAI struct {
	client *openai.Client
	model  string
}

var _ Provider = (*OpenAI)(nil)

func NewOpenAI(conf core.LLMConfig) (*OpenAI, error) {
	if conf.APIKey == "" {
		return nil, errors.New("openai: api key not set")
	}
	cfg := openai.DefaultConfig(conf.APIKey)
	if conf.BaseURL != "" {
		cfg.BaseURL = conf.BaseURL
	}
	model := conf.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

func (o *OpenAI) Generate(ctx context.Context, prompt chat.Prompt) (string, error) {
	req, err := toChatRequest(o.model, prompt)
	if err != nil {
		return "", err
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "openai: creating chat completion")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (o *OpenAI) UploadFile(context.Context, string, string, io.Reader) (string, error) {
	return "", errors.Wrap(ErrUnsupported, "openai: file upload")
}

func (o *OpenAI) Close() error { return nil }

func toChatRequest(model string, prompt chat.Prompt) (openai.ChatCompletionRequest, error) {
	content := make([]openai.ChatMessagePart, 0, len(prompt.Parts))
	for _, p := range prompt.Parts {
		switch p := p.(type) {
		case chat.Text:
			content = append(content, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: string(p)})
		case chat.InlineData:
			content = append(content, openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: "data:" + p.MIMEType + ";base64," + p.Data},
			})
		case chat.FileRef:
			return openai.ChatCompletionRequest{}, errors.Wrap(ErrUnsupported, "openai: file references")
		default:
			return openai.ChatCompletionRequest{}, errors.Errorf("openai: unknown part %T", p)
		}
	}
	return openai.ChatCompletionRequest{
		Model:       model,
		Temperature: prompt.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.SystemInstruction},
			{Role: openai.ChatMessageRoleUser, MultiContent: content},
		},
	}, nil
}
