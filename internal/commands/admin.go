package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bakkerme/manifest-watch/internal/core"
)

// Bind routes a feature's alerts to channel.
func (h *Handlers) Bind(ctx context.Context, rawFeature string, channel core.ChannelID) (Reply, error) {
	feature, ok := core.ParseFeature(rawFeature)
	if !ok {
		return Text("❌ Unknown feature `%s`. Use new, update or fixed.", rawFeature), nil
	}
	if err := h.deps.Store.Bind(ctx, feature, channel); err != nil {
		return Text("❌ Could not save the channel for **%s games**.", feature), fmt.Errorf("bind %s: %w", feature, err)
	}
	return Text("✅ Channel for **%s games** set to <#%s>", feature, channel), nil
}

// BindStatus sets the guild's status board channel.
func (h *Handlers) BindStatus(ctx context.Context, guildID string, channel core.ChannelID) (Reply, error) {
	if err := h.deps.StatusBindings.Bind(ctx, guildID, channel); err != nil {
		return Text("❌ Could not save the status channel."), fmt.Errorf("bind status for guild %s: %w", guildID, err)
	}
	return Text("✅ Status channel set to <#%s>", channel), nil
}

// TestAlerts posts a test embed to every bound feature channel.
func (h *Handlers) TestAlerts(ctx context.Context) (Reply, error) {
	var sent, failed []string
	var errs []error
	for _, feature := range core.Features {
		channel, ok := h.deps.Store.Binding(feature)
		if !ok {
			continue
		}
		if _, err := h.deps.Sender.Send(ctx, channel, h.deps.Renderer.Test(feature)); err != nil {
			h.deps.Logger.Warn("failed to send test alert", "feature", feature, "channel", channel, "error", err)
			failed = append(failed, feature.Label())
			errs = append(errs, fmt.Errorf("%s: %w", feature, err))
			continue
		}
		sent = append(sent, feature.Label())
	}

	if len(sent) == 0 && len(failed) == 0 {
		return Text("⚠ No channels configured. Run `/gamesetup` first."), nil
	}
	var lines []string
	if len(sent) > 0 {
		lines = append(lines, "✅ Test alerts sent for: "+strings.Join(sent, ", "))
	}
	if len(failed) > 0 {
		lines = append(lines, "❌ Test alerts failed for: "+strings.Join(failed, ", "))
	}
	return Text("%s", strings.Join(lines, "\n")), errors.Join(errs...)
}
