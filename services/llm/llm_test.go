package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/chat"
)

var testParts = []chat.Part{
	chat.InlineData{MIMEType: "image/png", Data: "YQ=="},
	chat.FileRef{MIMEType: "application/pdf", URI: "https://files/abc"},
	chat.Text("Объяснить"),
}

func TestToGenaiParts(t *testing.T) {
	got, err := toGenaiParts(testParts)
	require.NoError(t, err)
	assert.Equal(t, []genai.Part{
		genai.Blob{MIMEType: "image/png", Data: []byte("a")},
		genai.FileData{MIMEType: "application/pdf", URI: "https://files/abc"},
		genai.Text("Объяснить"),
	}, got)

	_, err = toGenaiParts([]chat.Part{chat.InlineData{MIMEType: "image/png", Data: "%%%"}})
	assert.Error(t, err)
}

func TestResponseText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "nil", wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name: "text parts are joined",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Text("$x^2$"), genai.Text(" = 4")}}},
			}},
			want: "$x^2$ = 4",
		},
		{
			name: "no text",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}}}},
			}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := responseText(tt.resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("responseText() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToChatRequest(t *testing.T) {
	prompt := chat.Prompt{
		SystemInstruction: "rules",
		Parts:             []chat.Part{chat.InlineData{MIMEType: "image/png", Data: "YQ=="}, chat.Text("Итог")},
		Temperature:       chat.Temperature,
	}
	req, err := toChatRequest("m", prompt)
	require.NoError(t, err)
	assert.Equal(t, "m", req.Model)
	assert.Equal(t, chat.Temperature, req.Temperature)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	assert.Equal(t, "rules", req.Messages[0].Content)
	assert.Equal(t, "data:image/png;base64,YQ==", req.Messages[1].MultiContent[0].ImageURL.URL)
	assert.Equal(t, "Итог", req.Messages[1].MultiContent[1].Text)

	_, err = toChatRequest("m", chat.Prompt{Parts: testParts})
	assert.Equal(t, ErrUnsupported, errors.Cause(err))
}

func TestDummy(t *testing.T) {
	ctx := context.Background()
	d := NewDummy()

	text, err := d.Generate(ctx, chat.Prompt{Parts: testParts})
	require.NoError(t, err)
	assert.Equal(t, "Объяснить\n\n(images: 1, textbooks: 1)", text)

	uri, err := d.UploadFile(ctx, "a.pdf", "application/pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "dummy://files/"))
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	p, err := New(ctx, core.LLMConfig{Provider: "dummy"})
	require.NoError(t, err)
	assert.IsType(t, Dummy{}, p)

	_, err = New(ctx, core.LLMConfig{Provider: "gemini"})
	assert.Error(t, err, "api key is required")

	_, err = New(ctx, core.LLMConfig{Provider: "lol"})
	assert.Error(t, err)
}
