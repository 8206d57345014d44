package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/bakkerme/manifest-watch/internal/commands"
	"github.com/bakkerme/manifest-watch/internal/core"
)

// invocation is the part of an interaction a command handler needs.
type invocation struct {
	GuildID string
	Options map[string]*discordgo.ApplicationCommandInteractionDataOption
}

func (inv invocation) String(name string) string {
	opt, ok := inv.Options[name]
	if !ok {
		return ""
	}
	return opt.StringValue()
}

func (inv invocation) Channel(name string) (core.ChannelID, error) {
	opt, ok := inv.Options[name]
	if !ok {
		return 0, fmt.Errorf("option %s is required", name)
	}
	raw, ok := opt.Value.(string)
	if !ok {
		return 0, fmt.Errorf("option %s is not a channel", name)
	}
	return core.ParseChannelID(raw)
}

func newInvocation(i *discordgo.InteractionCreate) invocation {
	data := i.ApplicationCommandData()
	options := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(data.Options))
	for _, opt := range data.Options {
		options[opt.Name] = opt
	}
	return invocation{GuildID: i.GuildID, Options: options}
}

type route struct {
	ownerOnly bool
	ephemeral bool
	run       func(ctx context.Context, inv invocation) (commands.Reply, error)
}

func routes(h *commands.Handlers) map[string]route {
	return map[string]route{
		"gamesetup": {ownerOnly: true, ephemeral: true, run: func(ctx context.Context, inv invocation) (commands.Reply, error) {
			channel, err := inv.Channel("channel")
			if err != nil {
				return commands.Text("❌ Please pick a channel."), err
			}
			return h.Bind(ctx, inv.String("feature"), channel)
		}},
		"testgamealerts": {ownerOnly: true, ephemeral: true, run: func(ctx context.Context, _ invocation) (commands.Reply, error) {
			return h.TestAlerts(ctx)
		}},
		"gamelist": {run: func(ctx context.Context, _ invocation) (commands.Reply, error) {
			return h.List(ctx)
		}},
		"newgame": {ephemeral: true, run: func(ctx context.Context, _ invocation) (commands.Reply, error) {
			return h.ShowNew(ctx)
		}},
		"updategame": {ephemeral: true, run: func(ctx context.Context, _ invocation) (commands.Reply, error) {
			return h.ShowUpdated(ctx).Wait(ctx)
		}},
		"fixegame": {run: func(ctx context.Context, _ invocation) (commands.Reply, error) {
			return h.Fixes(ctx)
		}},
		"gamesearch": {ephemeral: true, run: func(ctx context.Context, inv invocation) (commands.Reply, error) {
			return h.Search(ctx, inv.String("game"))
		}},
		"setting": {ownerOnly: true, ephemeral: true, run: func(ctx context.Context, inv invocation) (commands.Reply, error) {
			channel, err := inv.Channel("channel")
			if err != nil {
				return commands.Text("❌ Please pick a channel."), err
			}
			return h.BindStatus(ctx, inv.GuildID, channel)
		}},
		"manifest": {ephemeral: true, run: func(ctx context.Context, inv invocation) (commands.Reply, error) {
			return h.Manifest(ctx, inv.String("appid"))
		}},
	}
}
