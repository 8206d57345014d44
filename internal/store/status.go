package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/jsonfile"
	"github.com/bakkerme/manifest-watch/internal/retry"
)

// StatusBinding is one guild's status channel.
type StatusBinding struct {
	GuildID string
	Channel core.ChannelID
}

// StatusBindings persists the guild -> status channel map in its own file.
type StatusBindings struct {
	path  string
	retry retry.Config

	mu       sync.RWMutex
	channels map[string]core.ChannelID
}

func OpenStatusBindings(path string) (*StatusBindings, error) {
	channels := map[string]core.ChannelID{}
	if _, err := jsonfile.Load(path, &channels); err != nil {
		return nil, fmt.Errorf("load status bindings: %w", err)
	}
	return &StatusBindings{
		path:     path,
		retry:    retry.Config{Attempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second},
		channels: channels,
	}, nil
}

// All returns the bindings ordered by guild id.
func (b *StatusBindings) All() []StatusBinding {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]StatusBinding, 0, len(b.channels))
	for guild, channel := range b.channels {
		out = append(out, StatusBinding{GuildID: guild, Channel: channel})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out
}

func (b *StatusBindings) Bind(ctx context.Context, guildID string, channel core.ChannelID) error {
	if guildID == "" {
		return fmt.Errorf("guild id is required")
	}
	if channel == 0 {
		return fmt.Errorf("channel id is required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	next := make(map[string]core.ChannelID, len(b.channels)+1)
	for k, v := range b.channels {
		next[k] = v
	}
	next[guildID] = channel
	err := retry.Do(ctx, b.retry, func() error {
		return jsonfile.Save(b.path, next)
	})
	if err != nil {
		return fmt.Errorf("persist status bindings: %w", err)
	}
	b.channels = next
	return nil
}
