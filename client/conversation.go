package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/maktab/core/chat"
)

var (
	ErrBusy         = errors.New("a reply is already in flight")
	ErrEmptyMessage = errors.New("message is empty")
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Message struct {
	ID        string
	Role      string // user | model
	Text      string
	Timestamp time.Time
}

// Replier sends one chat turn. *Client implements it.
type Replier interface {
	Chat(ctx context.Context, req chat.Request) (string, error)
}

var _ Replier = (*Client)(nil)

// Conversation is the in-memory chat log of one subject. Only one turn may be in flight.
type Conversation struct {
	api  Replier
	base chat.Request
	now  func() time.Time

	mu       sync.Mutex
	busy     bool
	messages []Message
}

// NewConversation starts an empty log; base carries the subject, role, grade and language of every turn.
func NewConversation(api Replier, base chat.Request) *Conversation {
	return &Conversation{api: api, base: base, now: time.Now}
}

func (c *Conversation) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Message(nil), c.messages...)
}

func (c *Conversation) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Send relays free text typed by the user.
func (c *Conversation) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	req := c.base
	req.Message = text
	return c.turn(ctx, text, req)
}

// Do runs a quick action. The log shows its label.
func (c *Conversation) Do(ctx context.Context, action chat.ActionItem) (Message, error) {
	req := c.base
	req.ActionKey = string(action.Key)
	req.Message = action.Label
	return c.turn(ctx, action.Label, req)
}

// turn returns the model message. It is logged even when err is set, carrying the localized error text.
func (c *Conversation) turn(ctx context.Context, shown string, req chat.Request) (Message, error) {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.busy = true
	c.messages = append(c.messages, c.message(RoleUser, shown))
	c.mu.Unlock()

	text, err := c.api.Chat(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	reply := c.message(RoleModel, text)
	c.messages = append(c.messages, reply)
	return reply, err
}

func (c *Conversation) message(role, text string) Message {
	return Message{ID: uuid.NewString(), Role: role, Text: text, Timestamp: c.now()}
}
