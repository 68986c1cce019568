package llm

import (
	"context"
	"encoding/base64"
	"io"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/chat"
)

const defaultGeminiModel = "gemini-1.5-flash"

// filePollInterval is how often an uploaded file is checked until it becomes usable.
var filePollInterval = time.Second

type Gemini struct {
	client *genai.Client
	model  string
}

var _ Provider = (*Gemini)(nil)

func NewGemini(ctx context.Context, conf core.LLMConfig) (*Gemini, error) {
	if conf.APIKey == "" {
		return nil, errors.New("gemini: api key not set")
	}
	opts := []option.ClientOption{option.WithAPIKey(conf.APIKey)}
	if conf.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(conf.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "gemini: creating client")
	}
	model := conf.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt chat.Prompt) (string, error) {
	parts, err := toGenaiParts(prompt.Parts)
	if err != nil {
		return "", err
	}

	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(prompt.SystemInstruction)}}
	model.SetTemperature(prompt.Temperature)

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", errors.Wrap(err, "gemini: generating content")
	}
	return responseText(resp)
}

// UploadFile stores r in the Gemini file API and waits until it can be referenced.
func (g *Gemini) UploadFile(ctx context.Context, name, mimeType string, r io.Reader) (string, error) {
	file, err := g.client.UploadFile(ctx, "", r, &genai.UploadFileOptions{
		MIMEType:    mimeType,
		DisplayName: name,
	})
	if err != nil {
		return "", errors.Wrap(err, "gemini: uploading file")
	}

	for file.State == genai.FileStateProcessing {
		select {
		case <-ctx.Done():
			return "", errors.Wrap(ctx.Err(), "gemini: waiting for file")
		case <-time.After(filePollInterval):
		}
		if file, err = g.client.GetFile(ctx, file.Name); err != nil {
			return "", errors.Wrap(err, "gemini: getting file")
		}
	}
	if file.State == genai.FileStateFailed {
		return "", errors.Errorf("gemini: processing of file %s failed", file.Name)
	}
	return file.URI, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

func toGenaiParts(parts []chat.Part) ([]genai.Part, error) {
	out := make([]genai.Part, 0, len(parts))
	for _, p := range parts {
		switch p := p.(type) {
		case chat.Text:
			out = append(out, genai.Text(p))
		case chat.InlineData:
			data, err := base64.StdEncoding.DecodeString(p.Data)
			if err != nil {
				return nil, errors.Wrap(err, "gemini: decoding inline data")
			}
			out = append(out, genai.Blob{MIMEType: p.MIMEType, Data: data})
		case chat.FileRef:
			out = append(out, genai.FileData{MIMEType: p.MIMEType, URI: p.URI})
		default:
			return nil, errors.Errorf("gemini: unknown part %T", p)
		}
	}
	return out, nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: no candidates")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("gemini: no text in response")
	}
	return b.String(), nil
}
