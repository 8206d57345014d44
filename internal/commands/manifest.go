package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
	"github.com/bakkerme/manifest-watch/internal/sources/steam"
)

// Manifest looks the app up on Steam and attaches its generated manifest file.
func (h *Handlers) Manifest(ctx context.Context, appID string) (Reply, error) {
	if _, err := strconv.ParseUint(appID, 10, 64); err != nil {
		return Text("❌ App ID must be numeric."), nil
	}
	app, err := h.deps.Steam.App(ctx, appID)
	if errors.Is(err, steam.ErrNotFound) {
		return Text("❌ Game not found on Steam."), nil
	}
	if err != nil {
		return Text("❌ Game not found on Steam."), fmt.Errorf("steam lookup %s: %w", appID, err)
	}

	file, err := h.deps.Manifests.Download(ctx, appID)
	if err != nil {
		return Text("❌ Failed to fetch manifest:\n```%v```", err), fmt.Errorf("download manifest %s: %w", appID, err)
	}
	message := h.deps.Renderer.Manifest(app)
	message.Files = append(message.Files, chat.File{Name: file.Name, Data: file.Data})
	return Reply{Messages: []chat.Message{message}}, nil
}
