// Package chat is the outbound boundary to the chat platform.
package chat

import (
	"context"
	"errors"

	"github.com/bakkerme/manifest-watch/internal/core"
)

var (
	// ErrForbidden means the bot lacks access to the destination.
	ErrForbidden = errors.New("missing access to channel")
	// ErrNotFound means the destination channel or message does not exist.
	ErrNotFound = errors.New("channel or message not found")
)

const (
	ColorBlurple = 0x5865F2
	ColorGreen   = 0x57F287
)

type Embed struct {
	Title       string
	Description string
	Color       int
	ImageURL    string
	Footer      string
}

// File is an attachment. Embeds reference it as attachment://<Name>.
type File struct {
	Name string
	Data []byte
}

type Message struct {
	Content string
	Embed   *Embed
	Files   []File
}

// MessageRef identifies a posted message so it can be edited later.
type MessageRef struct {
	ChannelID core.ChannelID
	MessageID string
}

type Sender interface {
	Send(ctx context.Context, channel core.ChannelID, message Message) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, message Message) error
}
