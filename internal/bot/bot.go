// Package bot connects the command handlers and the runner to the Discord gateway.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sourcegraph/conc"

	"github.com/bakkerme/manifest-watch/internal/commands"
	"github.com/bakkerme/manifest-watch/internal/notify"
	"github.com/bakkerme/manifest-watch/internal/observability/metrics"
)

const (
	ownerOnlyMessage   = "❌ Only the server owner can use this command."
	interactionTimeout = 10 * time.Minute
)

// NewSession creates a bot session with the guild intent the owner check needs.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	return session, nil
}

type Options struct {
	GuildID   string
	Handlers  *commands.Handlers
	Paginator *notify.Paginator
	Metrics   *metrics.Metrics
	Health    *metrics.Health
	Logger    *slog.Logger
}

type Bot struct {
	session *discordgo.Session
	opts    Options
	routes  map[string]route

	ready     chan struct{}
	readyOnce sync.Once

	baseCtx context.Context
	wg      conc.WaitGroup
}

func New(session *discordgo.Session, opts Options) *Bot {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Paginator == nil {
		opts.Paginator = notify.NewPaginator(2*time.Second, opts.Logger)
	}
	b := &Bot{
		session: session,
		opts:    opts,
		routes:  routes(opts.Handlers),
		ready:   make(chan struct{}),
		baseCtx: context.Background(),
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onDisconnect)
	session.AddHandler(b.onResumed)
	session.AddHandler(b.onInteraction)
	return b
}

// Ready is closed once the gateway session is up and commands are registered.
func (b *Bot) Ready() <-chan struct{} {
	return b.ready
}

// Run opens the gateway connection and blocks until ctx is done. The gateway is
// closed first so no new interactions arrive, then in-flight ones are awaited.
func (b *Bot) Run(ctx context.Context) error {
	b.baseCtx = ctx
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	b.opts.Logger.Info("discord session opened")
	<-ctx.Done()

	err := b.session.Close()
	b.opts.Health.SetConnected(false)
	b.wg.Wait()
	if err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}
	registered, err := s.ApplicationCommandBulkOverwrite(appID, b.opts.GuildID, Definitions())
	if err != nil {
		b.opts.Logger.Error("failed to register slash commands", "guild_id", b.opts.GuildID, "error", err)
	} else {
		b.opts.Logger.Info("slash commands registered", "guild_id", b.opts.GuildID, "count", len(registered))
	}
	b.opts.Health.SetConnected(true)
	b.opts.Logger.Info("bot is online", "user", r.User.String())
	b.readyOnce.Do(func() { close(b.ready) })
}

func (b *Bot) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	b.opts.Health.SetConnected(false)
	b.opts.Logger.Warn("discord gateway disconnected")
}

func (b *Bot) onResumed(_ *discordgo.Session, _ *discordgo.Resumed) {
	b.opts.Health.SetConnected(true)
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	name := i.ApplicationCommandData().Name
	r, ok := b.routes[name]
	if !ok {
		b.opts.Logger.Warn("unknown command", "command", name)
		return
	}
	b.wg.Go(func() {
		ctx, cancel := context.WithTimeout(b.baseCtx, interactionTimeout)
		defer cancel()
		b.handle(ctx, s, i, name, r)
	})
}

func (b *Bot) handle(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, name string, r route) {
	logger := b.opts.Logger.With("command", name, "guild_id", i.GuildID)

	if r.ownerOnly && !b.isOwner(ctx, s, i) {
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: ownerOnlyMessage,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		}, discordgo.WithContext(ctx))
		if err != nil {
			logger.Warn("failed to answer interaction", "error", err)
		}
		return
	}

	deferred := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if r.ephemeral {
		deferred.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := s.InteractionRespond(i.Interaction, deferred, discordgo.WithContext(ctx)); err != nil {
		logger.Warn("failed to defer interaction", "error", err)
		return
	}

	reply, err := r.run(ctx, newInvocation(i))
	b.opts.Metrics.ObserveCommand(name, err)
	if err != nil {
		logger.Warn("command failed", "error", err)
	}

	writer := &followups{session: s, interaction: i.Interaction, ephemeral: r.ephemeral}
	if reply.Paged {
		if err := b.opts.Paginator.Run(ctx, writer, reply.Messages); err != nil {
			logger.Warn("failed to page reply", "error", err)
		}
		return
	}
	for _, message := range reply.Messages {
		if err := writer.Send(ctx, message); err != nil {
			logger.Warn("failed to send reply", "error", err)
		}
	}
}

func (b *Bot) isOwner(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	if i.Member == nil || i.Member.User == nil || i.GuildID == "" {
		return false
	}
	guild, err := s.State.Guild(i.GuildID)
	if err != nil {
		guild, err = s.Guild(i.GuildID, discordgo.WithContext(ctx))
		if err != nil {
			b.opts.Logger.Warn("failed to load guild for owner check", "guild_id", i.GuildID, "error", err)
			return false
		}
	}
	return guild.OwnerID == i.Member.User.ID
}
