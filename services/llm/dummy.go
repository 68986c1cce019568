package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/maktab/core/chat"
)

// Dummy answers without calling any provider; used in development and tests.
type Dummy struct{}

var _ Provider = Dummy{}

func NewDummy() Dummy { return Dummy{} }

// Generate echoes the last text part with a summary of the grounding it was given.
func (Dummy) Generate(_ context.Context, prompt chat.Prompt) (string, error) {
	var images, files int
	var text string
	for _, p := range prompt.Parts {
		switch p := p.(type) {
		case chat.InlineData:
			images++
		case chat.FileRef:
			files++
		case chat.Text:
			text = string(p)
		}
	}
	return fmt.Sprintf("%s\n\n(images: %d, textbooks: %d)", strings.TrimSpace(text), images, files), nil
}

func (Dummy) UploadFile(_ context.Context, _, _ string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	return "dummy://files/" + uuid.New().String(), nil
}

func (Dummy) Close() error { return nil }
