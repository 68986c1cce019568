// Package llm adapts hosted model providers to chat.Model and chat.FileStore.
package llm

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/maktab/core"
	"github.com/trezcool/maktab/core/chat"
)

var ErrUnsupported = errors.New("not supported by this provider")

// Provider is a model provider with its file storage.
type Provider interface {
	chat.Model
	chat.FileStore
	Close() error
}

// New returns the provider selected by conf.Provider.
func New(ctx context.Context, conf core.LLMConfig) (Provider, error) {
	switch conf.Provider {
	case "gemini":
		g, err := NewGemini(ctx, conf)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "openai":
		o, err := NewOpenAI(conf)
		if err != nil {
			return nil, err
		}
		return o, nil
	case "dummy":
		return NewDummy(), nil
	default:
		return nil, errors.Errorf("unknown llm provider %q", conf.Provider)
	}
}
