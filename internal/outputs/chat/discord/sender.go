package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
)

type Sender struct {
	session *discordgo.Session
}

var _ chat.Sender = (*Sender)(nil)

func NewSender(session *discordgo.Session) *Sender {
	return &Sender{session: session}
}

func (s *Sender) Send(ctx context.Context, channel core.ChannelID, message chat.Message) (chat.MessageRef, error) {
	if channel == 0 {
		return chat.MessageRef{}, fmt.Errorf("send: %w", chat.ErrNotFound)
	}
	data := &discordgo.MessageSend{
		Content: message.Content,
		Files:   Files(message.Files),
	}
	if embed := Embed(message.Embed); embed != nil {
		data.Embeds = []*discordgo.MessageEmbed{embed}
	}
	msg, err := s.session.ChannelMessageSendComplex(channel.String(), data, discordgo.WithContext(ctx))
	if err != nil {
		return chat.MessageRef{}, fmt.Errorf("send to %s: %w", channel, MapError(err))
	}
	return chat.MessageRef{ChannelID: channel, MessageID: msg.ID}, nil
}

func (s *Sender) Edit(ctx context.Context, ref chat.MessageRef, message chat.Message) error {
	edit := discordgo.NewMessageEdit(ref.ChannelID.String(), ref.MessageID)
	if message.Content != "" {
		edit.SetContent(message.Content)
	}
	if embed := Embed(message.Embed); embed != nil {
		edit.SetEmbed(embed)
	}
	if _, err := s.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("edit %s/%s: %w", ref.ChannelID, ref.MessageID, MapError(err))
	}
	return nil
}

// Embed converts a chat embed to the discordgo form.
func Embed(embed *chat.Embed) *discordgo.MessageEmbed {
	if embed == nil {
		return nil
	}
	out := &discordgo.MessageEmbed{
		Title:       embed.Title,
		Description: embed.Description,
		Color:       embed.Color,
	}
	if embed.ImageURL != "" {
		out.Image = &discordgo.MessageEmbedImage{URL: embed.ImageURL}
	}
	if embed.Footer != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: embed.Footer}
	}
	return out
}

func Files(files []chat.File) []*discordgo.File {
	if len(files) == 0 {
		return nil
	}
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{Name: f.Name, Reader: bytes.NewReader(f.Data)})
	}
	return out
}

// MapError translates REST failures into chat.ErrForbidden and chat.ErrNotFound.
// Other errors are returned unchanged.
func MapError(err error) error {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return err
	}
	switch restErr.Response.StatusCode {
	case http.StatusForbidden:
		return fmt.Errorf("%w: %v", chat.ErrForbidden, err)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %v", chat.ErrNotFound, err)
	default:
		return err
	}
}
