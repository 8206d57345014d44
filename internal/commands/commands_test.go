package commands

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bakkerme/manifest-watch/internal/config"
	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/notify"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
	chatmock "github.com/bakkerme/manifest-watch/internal/outputs/chat/mock"
	gamesmock "github.com/bakkerme/manifest-watch/internal/sources/games/mock"
	"github.com/bakkerme/manifest-watch/internal/sources/manifest"
	"github.com/bakkerme/manifest-watch/internal/sources/steam"
	"github.com/bakkerme/manifest-watch/internal/store"
)

type steamFunc func(ctx context.Context, appID string) (steam.App, error)

func (f steamFunc) App(ctx context.Context, appID string) (steam.App, error) { return f(ctx, appID) }

type downloaderFunc func(ctx context.Context, appID string) (manifest.File, error)

func (f downloaderFunc) Download(ctx context.Context, appID string) (manifest.File, error) {
	return f(ctx, appID)
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "game_config.json"), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return st
}

func newHandlers(t *testing.T, deps Deps) *Handlers {
	t.Helper()
	if deps.Store == nil {
		deps.Store = newTestStore(t)
	}
	if deps.Games == nil {
		deps.Games = &gamesmock.Fetcher{}
	}
	h := New(deps)
	t.Cleanup(h.Close)
	return h
}

func contents(reply Reply) []string {
	out := make([]string, 0, len(reply.Messages))
	for _, m := range reply.Messages {
		if m.Embed != nil {
			out = append(out, m.Embed.Title)
			continue
		}
		out = append(out, m.Content)
	}
	return out
}

func TestListPaginates(t *testing.T) {
	items := make([]core.Item, 0, 5)
	for i := 0; i < 5; i++ {
		items = append(items, core.NewGame(fmt.Sprintf("Game %d", i), fmt.Sprint(i), ""))
	}
	h := newHandlers(t, Deps{
		Games:      gamesmock.Items(items...),
		Pagination: config.PaginationSettings{ListPageSize: 2},
	})

	reply, err := h.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{
		"📃 Game List (5 total) — Page 1/3",
		"📃 Game List (5 total) — Page 2/3",
		"📃 Game List (5 total) — Page 3/3",
	}
	if diff := cmp.Diff(want, contents(reply)); diff != "" {
		t.Fatalf("pages mismatch (-want +got):\n%s", diff)
	}
	if !reply.Paged {
		t.Fatalf("list reply should be paged")
	}
	if got := reply.Messages[0].Embed.Description; got != "● **Game 0** — `0`\n● **Game 1** — `1`" {
		t.Fatalf("page 1 = %q", got)
	}
}

func TestListReportsFetchFailure(t *testing.T) {
	fetcher := &gamesmock.Fetcher{Results: []core.FetchResult{core.FetchError(fmt.Errorf("get: %w", core.ErrTimeout))}}
	h := newHandlers(t, Deps{Games: fetcher})

	reply, err := h.List(context.Background())
	if !errors.Is(err, core.ErrTimeout) {
		t.Fatalf("err = %v", err)
	}
	if diff := cmp.Diff([]string{"❌ Failed to load game list: the upstream did not answer in time."}, contents(reply)); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
}

func TestSearch(t *testing.T) {
	h := newHandlers(t, Deps{Games: &gamesmock.Fetcher{Results: []core.FetchResult{core.Fetched([]core.Item{
		core.NewGame("Half-Life", "70", ""),
		core.NewGame("Portal", "400", ""),
		core.NewGame("Half-Life 2", "220", ""),
	})}}})

	tests := []struct {
		query string
		want  string
	}{
		{query: "half", want: "● **Half-Life** — `70`\n● **Half-Life 2** — `220`"},
		{query: "40", want: "● **Portal** — `400`"},
		{query: "  PORTAL ", want: "● **Portal** — `400`"},
	}
	for _, tt := range tests {
		reply, err := h.Search(context.Background(), tt.query)
		if err != nil {
			t.Fatalf("Search(%q): %v", tt.query, err)
		}
		if got := reply.Messages[0].Embed.Description; got != tt.want {
			t.Fatalf("Search(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}

	reply, _ := h.Search(context.Background(), "zelda")
	if diff := cmp.Diff([]string{"⚠ No games found matching: `zelda`"}, contents(reply)); diff != "" {
		t.Fatalf("no match reply (-want +got):\n%s", diff)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	fetcher := &gamesmock.Fetcher{}
	h := newHandlers(t, Deps{Games: fetcher})
	reply, err := h.Search(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if fetcher.Calls != 0 {
		t.Fatalf("empty query should not fetch")
	}
	if !strings.HasPrefix(reply.Messages[0].Content, "⚠") {
		t.Fatalf("reply = %q", reply.Messages[0].Content)
	}
}

func TestShowNewIsReadOnlyAndCapped(t *testing.T) {
	st := newTestStore(t)
	seen := core.NewSnapshot()
	seen.Seen.Add("Seen")
	seen.Payloads["Seen"] = core.GamePayload{AppID: "0"}
	if err := st.Commit(context.Background(), core.KindGame, seen); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	items := []core.Item{core.NewGame("Seen", "0", "")}
	for i := 0; i < 12; i++ {
		items = append(items, core.NewGame(fmt.Sprintf("New %02d", i), fmt.Sprint(i+1), ""))
	}
	h := newHandlers(t, Deps{
		Store: st,
		Games: gamesmock.Items(items...),
	})

	reply, err := h.ShowNew(context.Background())
	if err != nil {
		t.Fatalf("ShowNew: %v", err)
	}
	got := contents(reply)
	if len(got) != 11 {
		t.Fatalf("expected 10 embeds and a notice, got %d: %v", len(got), got)
	}
	if got[0] != "🎮 New 00" || got[10] != "✅ 12 new games found — showing first 10." {
		t.Fatalf("reply = %v", got)
	}
	if diff := cmp.Diff([]string{"Seen"}, st.Snapshot(core.KindGame).Seen.Sorted()); diff != "" {
		t.Fatalf("query mutated the snapshot (-want +got):\n%s", diff)
	}
}

func TestShowNewNothingFound(t *testing.T) {
	h := newHandlers(t, Deps{Games: &gamesmock.Fetcher{Results: []core.FetchResult{core.Fetched(nil)}}})
	reply, _ := h.ShowNew(context.Background())
	if diff := cmp.Diff([]string{"❌ Failed to load game list."}, contents(reply)); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
}

func TestShowUpdatedJob(t *testing.T) {
	st := newTestStore(t)
	snap := core.NewSnapshot()
	snap.Seen.Add("A", "B")
	snap.Payloads["A"] = core.GamePayload{AppID: "1", Image: "x"}
	snap.Payloads["B"] = core.GamePayload{AppID: "2"}
	if err := st.Commit(context.Background(), core.KindGame, snap); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	h := newHandlers(t, Deps{
		Store: st,
		Games: gamesmock.Items(core.NewGame("A", "1", "y"), core.NewGame("B", "2", "")),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	reply, err := h.ShowUpdated(ctx).Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if diff := cmp.Diff([]string{"🎮 A"}, contents(reply)); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(reply.Messages[0].Embed.Description, "UPDATED") {
		t.Fatalf("description = %q", reply.Messages[0].Embed.Description)
	}
	if got := st.Snapshot(core.KindGame).Payloads["A"].Image; got != "x" {
		t.Fatalf("query mutated the cache: image = %q", got)
	}
}

func TestFixesPaginates(t *testing.T) {
	h := newHandlers(t, Deps{
		Fixes: gamesmock.Items(
			core.NewFix("One", "https://f/1.zip", "1 MB"),
			core.NewFix("Two", "https://f/2.zip", ""),
		),
		Pagination: config.PaginationSettings{FixesPageSize: 1},
	})
	reply, err := h.Fixes(context.Background())
	if err != nil {
		t.Fatalf("Fixes: %v", err)
	}
	if diff := cmp.Diff([]string{"🛠️ Fixes — Page 1/2", "🛠️ Fixes — Page 2/2"}, contents(reply)); diff != "" {
		t.Fatalf("pages mismatch (-want +got):\n%s", diff)
	}
	if got := reply.Messages[0].Embed.Description; got != "● **One** — [Download](https://f/1.zip) • Size: 1 MB" {
		t.Fatalf("page 1 = %q", got)
	}
}

func TestBindAndTestAlerts(t *testing.T) {
	st := newTestStore(t)
	sender := &chatmock.Sender{ErrByChannel: map[core.ChannelID]error{30: chat.ErrForbidden}}
	h := newHandlers(t, Deps{Store: st, Sender: sender, Renderer: notify.Renderer{}})
	ctx := context.Background()

	reply, _ := h.TestAlerts(ctx)
	if diff := cmp.Diff([]string{"⚠ No channels configured. Run `/gamesetup` first."}, contents(reply)); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}

	reply, err := h.Bind(ctx, "new", 10)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if diff := cmp.Diff([]string{"✅ Channel for **new games** set to <#10>"}, contents(reply)); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
	if _, err := h.Bind(ctx, "fixed", 30); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	reply, _ = h.Bind(ctx, "status", 40)
	if !strings.HasPrefix(reply.Messages[0].Content, "❌ Unknown feature") {
		t.Fatalf("reply = %q", reply.Messages[0].Content)
	}

	reply, err = h.TestAlerts(ctx)
	if !errors.Is(err, chat.ErrForbidden) {
		t.Fatalf("err = %v", err)
	}
	want := "✅ Test alerts sent for: New\n❌ Test alerts failed for: Fixed"
	if got := reply.Messages[0].Content; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
	if diff := cmp.Diff([]string{"🎮 TEST NEW GAME ALERT"}, sender.Titles()); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestBindStatus(t *testing.T) {
	bindings, err := store.OpenStatusBindings(filepath.Join(t.TempDir(), "status_config.json"))
	if err != nil {
		t.Fatalf("OpenStatusBindings: %v", err)
	}
	h := newHandlers(t, Deps{StatusBindings: bindings})
	reply, err := h.BindStatus(context.Background(), "42", 7)
	if err != nil {
		t.Fatalf("BindStatus: %v", err)
	}
	if diff := cmp.Diff([]string{"✅ Status channel set to <#7>"}, contents(reply)); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]store.StatusBinding{{GuildID: "42", Channel: 7}}, bindings.All()); diff != "" {
		t.Fatalf("bindings mismatch (-want +got):\n%s", diff)
	}
}

func TestManifest(t *testing.T) {
	lookups := 0
	h := newHandlers(t, Deps{
		Steam: steamFunc(func(_ context.Context, appID string) (steam.App, error) {
			lookups++
			if appID == "404" {
				return steam.App{}, steam.ErrNotFound
			}
			return steam.App{ID: appID, Name: "Portal", HeaderImage: "https://img/portal.jpg"}, nil
		}),
		Manifests: downloaderFunc(func(_ context.Context, appID string) (manifest.File, error) {
			if appID == "500" {
				return manifest.File{}, errors.New("no download")
			}
			return manifest.File{Name: manifest.FileName(appID), Data: []byte("-- lua")}, nil
		}),
	})
	ctx := context.Background()

	reply, _ := h.Manifest(ctx, "12ab")
	if diff := cmp.Diff([]string{"❌ App ID must be numeric."}, contents(reply)); diff != "" {
		t.Fatalf("reply mismatch (-want +got):\n%s", diff)
	}
	if lookups != 0 {
		t.Fatalf("non-numeric id reached steam")
	}

	reply, err := h.Manifest(ctx, "404")
	if err != nil || reply.Messages[0].Content != "❌ Game not found on Steam." {
		t.Fatalf("not found: reply=%v err=%v", contents(reply), err)
	}

	if _, err := h.Manifest(ctx, "500"); err == nil {
		t.Fatalf("expected download error")
	}

	reply, err = h.Manifest(ctx, "400")
	if err != nil {
		t.Fatalf("Manifest: %v", err)
	}
	msg := reply.Messages[0]
	if msg.Embed.Title != "🎮 Portal" || msg.Embed.ImageURL != "https://img/portal.jpg" {
		t.Fatalf("embed = %+v", msg.Embed)
	}
	if diff := cmp.Diff([]chat.File{{Name: "400.lua", Data: []byte("-- lua")}}, msg.Files); diff != "" {
		t.Fatalf("files mismatch (-want +got):\n%s", diff)
	}
}
