package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat/discord"
)

// followups answers a deferred interaction. Send posts a new followup message;
// Edit replaces the last one posted.
type followups struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	ephemeral   bool
	messageID   string
}

func (f *followups) Send(ctx context.Context, message chat.Message) error {
	params := &discordgo.WebhookParams{
		Content: message.Content,
		Files:   discord.Files(message.Files),
	}
	if embed := discord.Embed(message.Embed); embed != nil {
		params.Embeds = []*discordgo.MessageEmbed{embed}
	}
	if f.ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	msg, err := f.session.FollowupMessageCreate(f.interaction, true, params, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("followup: %w", discord.MapError(err))
	}
	f.messageID = msg.ID
	return nil
}

func (f *followups) Edit(ctx context.Context, message chat.Message) error {
	if f.messageID == "" {
		return f.Send(ctx, message)
	}
	edit := &discordgo.WebhookEdit{}
	if message.Content != "" {
		content := message.Content
		edit.Content = &content
	}
	if embed := discord.Embed(message.Embed); embed != nil {
		embeds := []*discordgo.MessageEmbed{embed}
		edit.Embeds = &embeds
	}
	if _, err := f.session.FollowupMessageEdit(f.interaction, f.messageID, edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit followup %s: %w", f.messageID, discord.MapError(err))
	}
	return nil
}
