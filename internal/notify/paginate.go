package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
)

// Paginate splits lines into pages of at most size lines. A page also closes
// before a line that would push its joined text past the embed description
// limit, so every line reaches a page intact. A single line longer than the limit gets a
// page of its own and is shortened on a rune boundary.
func Paginate(lines []string, size int) [][]string {
	if len(lines) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(lines)
	}
	var pages [][]string
	var page []string
	used := 0
	for _, line := range lines {
		n := utf8.RuneCountInString(line)
		if n > maxDescription {
			line = truncate(line)
			n = maxDescription
		}
		need := n
		if len(page) > 0 {
			need++ // newline joining it to the previous line
		}
		if len(page) == size || (len(page) > 0 && used+need > maxDescription) {
			pages = append(pages, page)
			page, used, need = nil, 0, n
		}
		page = append(page, line)
		used += need
	}
	return append(pages, page)
}

// PageWriter posts the first page and replaces it with each following page.
type PageWriter interface {
	Send(ctx context.Context, message chat.Message) error
	Edit(ctx context.Context, message chat.Message) error
}

// Paginator shows pages one after another in a single message, waiting a fixed
// delay between edits to stay under platform rate limits.
type Paginator struct {
	delay  time.Duration
	logger *slog.Logger
}

func NewPaginator(delay time.Duration, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Paginator{delay: delay, logger: logger}
}

// Run sends pages[0] and edits it with the rest. A failed first send is returned;
// a failed edit is logged and the next page is still attempted.
func (p *Paginator) Run(ctx context.Context, w PageWriter, pages []chat.Message) error {
	if len(pages) == 0 {
		return nil
	}
	limit := rate.Inf
	if p.delay > 0 {
		limit = rate.Every(p.delay)
	}
	limiter := rate.NewLimiter(limit, 1)

	limiter.Allow()
	if err := w.Send(ctx, pages[0]); err != nil {
		return fmt.Errorf("send first page: %w", err)
	}
	for i, page := range pages[1:] {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
		if err := w.Edit(ctx, page); err != nil {
			p.logger.Warn("failed to edit paginated message", "page", i+2, "error", err)
		}
	}
	return nil
}

// ChannelPages writes pages to a channel through a chat.Sender.
type ChannelPages struct {
	Sender    chat.Sender
	ChannelID core.ChannelID

	ref chat.MessageRef
}

func (c *ChannelPages) Send(ctx context.Context, message chat.Message) error {
	ref, err := c.Sender.Send(ctx, c.ChannelID, message)
	if err != nil {
		return err
	}
	c.ref = ref
	return nil
}

func (c *ChannelPages) Edit(ctx context.Context, message chat.Message) error {
	return c.Sender.Edit(ctx, c.ref, message)
}
