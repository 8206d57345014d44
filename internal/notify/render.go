package notify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bakkerme/manifest-watch/internal/config"
	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
	"github.com/bakkerme/manifest-watch/internal/sources/steam"
)

// maxDescription is the platform limit for an embed description.
const maxDescription = 4096

// TestAppID is shown in test alerts.
const TestAppID = "123456"

// Renderer builds the embeds for every outgoing message.
type Renderer struct {
	Footer       string
	AlertFooter  string
	FixFooter    string
	TestBanner   *chat.File
	FixesBanner  *chat.File
	StatusBanner *chat.File
}

// NewRenderer loads the banner files named in settings. A banner that does not
// exist is skipped; any other read error is returned.
func NewRenderer(settings config.EmbedSettings) (Renderer, error) {
	r := Renderer{
		Footer:      settings.Footer,
		AlertFooter: settings.AlertFooter,
		FixFooter:   settings.FixFooter,
	}
	var err error
	if r.TestBanner, err = LoadBanner(settings.TestBanner); err != nil {
		return Renderer{}, err
	}
	if r.FixesBanner, err = LoadBanner(settings.FixesBanner); err != nil {
		return Renderer{}, err
	}
	if r.StatusBanner, err = LoadBanner(settings.StatusBanner); err != nil {
		return Renderer{}, err
	}
	return r, nil
}

func LoadBanner(path string) (*chat.File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read banner %s: %w", path, err)
	}
	return &chat.File{Name: filepath.Base(path), Data: data}, nil
}

func withBanner(msg chat.Message, banner *chat.File) chat.Message {
	if banner == nil || msg.Embed == nil {
		return msg
	}
	msg.Embed.ImageURL = "attachment://" + banner.Name
	msg.Files = append(msg.Files, *banner)
	return msg
}

// Game renders a New or Updated game alert.
func (r Renderer) Game(item core.Item, feature core.Feature) chat.Message {
	kind := "NEW"
	if feature == core.FeatureUpdate {
		kind = "UPDATED"
	}
	appID, image := "", ""
	if item.Game != nil {
		appID, image = item.Game.AppID, item.Game.Image
	}
	return chat.Message{Embed: &chat.Embed{
		Title:       "🎮 " + item.Key,
		Description: fmt.Sprintf("📦 **Manifest for App ID:** `%s`\n• **Type:** %s", appID, kind),
		Color:       chat.ColorBlurple,
		ImageURL:    image,
		Footer:      r.AlertFooter,
	}}
}

func (r Renderer) Fix(item core.Item) chat.Message {
	download, size := "", ""
	if item.Fix != nil {
		download, size = item.Fix.Download, item.Fix.Size
	}
	description := fmt.Sprintf("📥 [Download ZIP](%s)", download)
	if size != "" {
		description += "\n• Size: " + size
	}
	return chat.Message{Embed: &chat.Embed{
		Title:       "🛠️#" + item.Key,
		Description: description,
		Color:       chat.ColorGreen,
		Footer:      r.FixFooter,
	}}
}

// Alert renders the automatic notification for one item of feature.
func (r Renderer) Alert(feature core.Feature, item core.Item) chat.Message {
	if feature == core.FeatureFixed {
		return r.Fix(item)
	}
	return r.Game(item, feature)
}

func (r Renderer) Test(feature core.Feature) chat.Message {
	color := chat.ColorBlurple
	if feature == core.FeatureFixed {
		color = chat.ColorGreen
	}
	msg := chat.Message{Embed: &chat.Embed{
		Title:       fmt.Sprintf("🎮 TEST %s GAME ALERT", strings.ToUpper(feature.Label())),
		Description: fmt.Sprintf("📦 **Manifest for App ID:** `%s`", TestAppID),
		Color:       color,
		Footer:      r.Footer,
	}}
	return withBanner(msg, r.TestBanner)
}

// Status renders the status embed. next is the time until the following refresh.
func (r Renderer) Status(text string, next time.Duration) chat.Message {
	secs := int(next.Round(time.Second) / time.Second)
	msg := chat.Message{Embed: &chat.Embed{
		Title:       "🔔Real-Time Status",
		Description: truncate(text),
		Color:       chat.ColorBlurple,
		Footer:      fmt.Sprintf("Next update in %02d:%02d", secs/60, secs%60),
	}}
	return withBanner(msg, r.StatusBanner)
}

func (r Renderer) Manifest(app steam.App) chat.Message {
	return chat.Message{Embed: &chat.Embed{
		Title:       "🎮 " + app.Name,
		Description: fmt.Sprintf("📦 Manifest for App ID `%s`", app.ID),
		Color:       chat.ColorBlurple,
		ImageURL:    app.HeaderImage,
		Footer:      r.Footer,
	}}
}

// GameLine is one row of the catalog listing and search results.
func GameLine(item core.Item) string {
	appID := ""
	if item.Game != nil {
		appID = item.Game.AppID
	}
	return fmt.Sprintf("● **%s** — `%s`", item.Key, appID)
}

func FixLine(item core.Item) string {
	if item.Fix == nil {
		return fmt.Sprintf("● **%s**", item.Key)
	}
	line := fmt.Sprintf("● **%s** — [Download](%s)", item.Key, item.Fix.Download)
	if item.Fix.Size != "" {
		line += " • Size: " + item.Fix.Size
	}
	return line
}

func (r Renderer) GameListPages(total int, chunks [][]string) []chat.Message {
	return r.pages(chunks, chat.ColorBlurple, nil, func(page, pages int) string {
		return fmt.Sprintf("📃 Game List (%d total) — Page %d/%d", total, page, pages)
	})
}

func (r Renderer) SearchPages(query string, chunks [][]string) []chat.Message {
	return r.pages(chunks, chat.ColorBlurple, nil, func(page, pages int) string {
		return fmt.Sprintf("🔍 Search results for '%s' — Page %d/%d", query, page, pages)
	})
}

func (r Renderer) FixesPages(chunks [][]string) []chat.Message {
	return r.pages(chunks, chat.ColorGreen, r.FixesBanner, func(page, pages int) string {
		return fmt.Sprintf("🛠️ Fixes — Page %d/%d", page, pages)
	})
}

func (r Renderer) pages(chunks [][]string, color int, banner *chat.File, title func(page, pages int) string) []chat.Message {
	out := make([]chat.Message, 0, len(chunks))
	for i, chunk := range chunks {
		msg := chat.Message{Embed: &chat.Embed{
			Title:       title(i+1, len(chunks)),
			Description: truncate(strings.Join(chunk, "\n")),
			Color:       color,
			Footer:      r.Footer,
		}}
		// Later pages edit the first message, which already carries the banner.
		if i == 0 {
			msg = withBanner(msg, banner)
		} else if banner != nil {
			msg.Embed.ImageURL = "attachment://" + banner.Name
		}
		out = append(out, msg)
	}
	return out
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxDescription {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxDescription])
}
