package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
)

type Sent struct {
	Channel core.ChannelID
	Message chat.Message
}

type Edited struct {
	Ref     chat.MessageRef
	Message chat.Message
}

// Sender records every call. ErrByChannel fails sends to specific channels.
type Sender struct {
	mu           sync.Mutex
	Sent         []Sent
	Edited       []Edited
	ErrByChannel map[core.ChannelID]error
	EditErr      error
	Attempts     int
}

func (s *Sender) Send(ctx context.Context, channel core.ChannelID, message chat.Message) (chat.MessageRef, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Attempts++
	if err, ok := s.ErrByChannel[channel]; ok {
		return chat.MessageRef{}, err
	}
	s.Sent = append(s.Sent, Sent{Channel: channel, Message: message})
	return chat.MessageRef{ChannelID: channel, MessageID: fmt.Sprintf("m%d", len(s.Sent))}, nil
}

func (s *Sender) Edit(ctx context.Context, ref chat.MessageRef, message chat.Message) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.EditErr != nil {
		return s.EditErr
	}
	s.Edited = append(s.Edited, Edited{Ref: ref, Message: message})
	return nil
}

// Titles returns the embed titles of every sent message in order.
func (s *Sender) Titles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.Sent))
	for _, sent := range s.Sent {
		if sent.Message.Embed != nil {
			out = append(out, sent.Message.Embed.Title)
		}
	}
	return out
}
