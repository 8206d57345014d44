package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bakkerme/manifest-watch/internal/config"
	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/filter"
	"github.com/bakkerme/manifest-watch/internal/notify"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
	chatmock "github.com/bakkerme/manifest-watch/internal/outputs/chat/mock"
	"github.com/bakkerme/manifest-watch/internal/sources/fixes"
	fixesmock "github.com/bakkerme/manifest-watch/internal/sources/fixes/mock"
	gamesmock "github.com/bakkerme/manifest-watch/internal/sources/games/mock"
	"github.com/bakkerme/manifest-watch/internal/store"
)

const (
	newChannel    core.ChannelID = 100
	updateChannel core.ChannelID = 200
	fixedChannel  core.ChannelID = 300
)

type testEnv struct {
	path   string
	store  *store.Store
	sender *chatmock.Sender
	deps   Deps
}

func newTestEnv(t *testing.T, bind ...core.Feature) *testEnv {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game_config.json")
	st, err := store.Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	channels := map[core.Feature]core.ChannelID{
		core.FeatureNew:    newChannel,
		core.FeatureUpdate: updateChannel,
		core.FeatureFixed:  fixedChannel,
	}
	for _, feature := range bind {
		if err := st.Bind(context.Background(), feature, channels[feature]); err != nil {
			t.Fatalf("Bind(%s): %v", feature, err)
		}
	}
	sender := &chatmock.Sender{}
	return &testEnv{
		path:   path,
		store:  st,
		sender: sender,
		deps: Deps{
			Store:    st,
			Notifier: notify.New(sender, notify.Renderer{}, nil),
		},
	}
}

func (e *testEnv) channels() []core.ChannelID {
	out := make([]core.ChannelID, 0, len(e.sender.Sent))
	for _, sent := range e.sender.Sent {
		out = append(out, sent.Channel)
	}
	return out
}

func runOK(t *testing.T, p Pipeline) *core.Run {
	t.Helper()
	run, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return run
}

func TestGamesNewThenUnchangedThenUpdated(t *testing.T) {
	env := newTestEnv(t, core.FeatureNew, core.FeatureUpdate)
	fetcher := &gamesmock.Fetcher{Results: []core.FetchResult{
		core.Fetched([]core.Item{core.NewGame("A", "1", "x")}),
		core.Fetched([]core.Item{core.NewGame("A", "1", "x")}),
		core.Fetched([]core.Item{core.NewGame("A", "1", "y")}),
	}}
	games := NewGames(env.deps, fetcher)

	run := runOK(t, games)
	if run.New != 1 || run.Delivered != 1 || run.Status != core.RunStatusCompleted {
		t.Fatalf("first run = %+v", run)
	}
	if diff := cmp.Diff([]string{"🎮 A"}, env.sender.Titles()); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	snap := env.store.Snapshot(core.KindGame)
	if diff := cmp.Diff([]string{"A"}, snap.Seen.Sorted()); diff != "" {
		t.Fatalf("seen mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]core.GamePayload{"A": {AppID: "1", Image: "x"}}, snap.Payloads); diff != "" {
		t.Fatalf("cache mismatch (-want +got):\n%s", diff)
	}

	run = runOK(t, games)
	if run.New != 0 || run.Updated != 0 || len(env.sender.Sent) != 1 {
		t.Fatalf("unchanged fetch notified: run=%+v sent=%d", run, len(env.sender.Sent))
	}

	run = runOK(t, games)
	if run.New != 0 || run.Updated != 1 {
		t.Fatalf("third run = %+v", run)
	}
	if diff := cmp.Diff([]core.ChannelID{newChannel, updateChannel}, env.channels()); diff != "" {
		t.Fatalf("channels mismatch (-want +got):\n%s", diff)
	}
	snap = env.store.Snapshot(core.KindGame)
	if diff := cmp.Diff([]string{"A"}, snap.Seen.Sorted()); diff != "" {
		t.Fatalf("seen changed on update (-want +got):\n%s", diff)
	}
	if got := snap.Payloads["A"].Image; got != "y" {
		t.Fatalf("cached image = %q, want y", got)
	}
}

func TestGamesPersistAcrossRestart(t *testing.T) {
	env := newTestEnv(t, core.FeatureNew)
	runOK(t, NewGames(env.deps, gamesmock.Items(
		core.NewGame("B", "2", ""),
		core.NewGame("A", "1", "x"),
	)))
	if diff := cmp.Diff([]string{"🎮 A", "🎮 B"}, env.sender.Titles()); diff != "" {
		t.Fatalf("new games not sorted (-want +got):\n%s", diff)
	}

	reopened, err := store.Open(env.path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	sender := &chatmock.Sender{}
	deps := Deps{Store: reopened, Notifier: notify.New(sender, notify.Renderer{}, nil)}
	run := runOK(t, NewGames(deps, gamesmock.Items(
		core.NewGame("A", "1", "x"),
		core.NewGame("B", "2", ""),
	)))
	if run.New != 0 || run.Updated != 0 || len(sender.Sent) != 0 {
		t.Fatalf("restart re-notified: run=%+v sent=%d", run, len(sender.Sent))
	}
}

func TestUnboundFeatureStillRecordsSeen(t *testing.T) {
	env := newTestEnv(t)
	run := runOK(t, NewGames(env.deps, gamesmock.Items(core.NewGame("A", "1", "x"))))
	if env.sender.Attempts != 0 {
		t.Fatalf("expected zero delivery attempts, got %d", env.sender.Attempts)
	}
	if run.New != 1 || run.Delivered != 0 {
		t.Fatalf("run = %+v", run)
	}
	if !env.store.Snapshot(core.KindGame).Seen.Has("A") {
		t.Fatalf("seen-set was not updated")
	}
}

func TestDeliveryFailureStillRecordsSeen(t *testing.T) {
	env := newTestEnv(t, core.FeatureNew)
	env.sender.ErrByChannel = map[core.ChannelID]error{newChannel: fmt.Errorf("send: %w", chat.ErrForbidden)}
	run := runOK(t, NewGames(env.deps, gamesmock.Items(core.NewGame("A", "1", ""), core.NewGame("B", "2", ""))))
	if run.Failed != 2 || env.sender.Attempts != 2 {
		t.Fatalf("expected both deliveries attempted and failed, run=%+v attempts=%d", run, env.sender.Attempts)
	}
	if diff := cmp.Diff([]string{"A", "B"}, env.store.Snapshot(core.KindGame).Seen.Sorted()); diff != "" {
		t.Fatalf("seen mismatch (-want +got):\n%s", diff)
	}
}

func TestFailedFetchIsSkipped(t *testing.T) {
	env := newTestEnv(t, core.FeatureNew)
	if err := env.store.Commit(context.Background(), core.KindGame, snapshotWith("A")); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	fetcher := &gamesmock.Fetcher{Results: []core.FetchResult{core.FetchError(fmt.Errorf("get: %w", core.ErrTimeout))}}

	run := runOK(t, NewGames(env.deps, fetcher))
	if run.Status != core.RunStatusSkipped || run.Fetch != core.FetchTimedOut {
		t.Fatalf("run = %+v", run)
	}
	if env.sender.Attempts != 0 {
		t.Fatalf("skipped run delivered %d messages", env.sender.Attempts)
	}
	if !env.store.Snapshot(core.KindGame).Seen.Has("A") {
		t.Fatalf("a failed fetch must not clear the snapshot")
	}

	run = runOK(t, NewGames(env.deps, &gamesmock.Fetcher{}))
	if run.Status != core.RunStatusSkipped || run.Fetch != core.FetchEmpty {
		t.Fatalf("empty fetch run = %+v", run)
	}
}

func TestFiltersDropItemsBeforeDetection(t *testing.T) {
	env := newTestEnv(t, core.FeatureNew)
	rules, err := filter.NewRules([]config.FilterRule{
		{Name: "no-demos", Kind: "game", Rule: `title contains "Demo"`, Result: "drop"},
	})
	if err != nil {
		t.Fatalf("NewRules: %v", err)
	}
	env.deps.Filters = rules

	runOK(t, NewGames(env.deps, gamesmock.Items(core.NewGame("Alpha", "1", ""), core.NewGame("Alpha Demo", "2", ""))))
	if diff := cmp.Diff([]string{"🎮 Alpha"}, env.sender.Titles()); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	if env.store.Snapshot(core.KindGame).Seen.Has("Alpha Demo") {
		t.Fatalf("dropped item was recorded as seen")
	}
}

func TestFixesFallBackToCacheOnScrapeFailure(t *testing.T) {
	env := newTestEnv(t, core.FeatureFixed)
	cache := fixes.NewCache(filepath.Join(t.TempDir(), "fixes_cache.json"))
	if err := cache.Save([]fixes.Entry{{Title: "Gamma", Download: "https://f/gamma.zip", Size: "1 MB"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	scraper := &fixesmock.Scraper{Err: errors.New("navigation timeout")}
	pipeline := NewFixes(env.deps, fixes.NewCachedScraper(scraper, cache, nil))

	run := runOK(t, pipeline)
	if run.New != 1 || run.Delivered != 1 {
		t.Fatalf("run = %+v", run)
	}
	if diff := cmp.Diff([]string{"🛠️#Gamma"}, env.sender.Titles()); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]core.ChannelID{fixedChannel}, env.channels()); diff != "" {
		t.Fatalf("channels mismatch (-want +got):\n%s", diff)
	}

	run = runOK(t, pipeline)
	if run.New != 0 || len(env.sender.Sent) != 1 {
		t.Fatalf("seen fix re-notified: run=%+v", run)
	}
}

func TestFixesKeepFetchOrder(t *testing.T) {
	env := newTestEnv(t, core.FeatureFixed)
	runOK(t, NewFixes(env.deps, gamesmock.Items(
		core.NewFix("Zeta", "https://f/z", ""),
		core.NewFix("Alpha", "https://f/a", ""),
		core.NewFix("Zeta", "https://f/z2", ""),
	)))
	if diff := cmp.Diff([]string{"🛠️#Zeta", "🛠️#Alpha"}, env.sender.Titles()); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
}

func TestGamesAndFixesKeysDoNotCollide(t *testing.T) {
	env := newTestEnv(t, core.FeatureNew, core.FeatureFixed)
	runOK(t, NewGames(env.deps, gamesmock.Items(core.NewGame("Same", "1", ""))))
	run := runOK(t, NewFixes(env.deps, gamesmock.Items(core.NewFix("Same", "https://f/s", ""))))
	if run.New != 1 {
		t.Fatalf("fix shadowed by game with the same key: %+v", run)
	}
}

// overlapFetcher serves the same items on every call and records how many
// fetches were in flight at once.
type overlapFetcher struct {
	items []core.Item
	hold  time.Duration

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (f *overlapFetcher) Fetch(ctx context.Context) core.FetchResult {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	f.mu.Unlock()

	select {
	case <-time.After(f.hold):
	case <-ctx.Done():
	}

	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
	return core.Fetched(f.items)
}

func TestConcurrentGamesRunsNotifyEachKeyOnce(t *testing.T) {
	env := newTestEnv(t, core.FeatureNew, core.FeatureUpdate)
	fetcher := &overlapFetcher{
		items: []core.Item{core.NewGame("A", "1", "x"), core.NewGame("B", "2", "y")},
		hold:  20 * time.Millisecond,
	}

	const runs = 8
	var wg sync.WaitGroup
	errs := make(chan error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := NewGames(env.deps, fetcher).Run(context.Background()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("Run: %v", err)
	}

	if fetcher.peak != 1 {
		t.Fatalf("fetch-detect-commit cycles overlapped: peak in flight = %d", fetcher.peak)
	}
	titles := env.sender.Titles()
	sort.Strings(titles)
	if diff := cmp.Diff([]string{"🎮 A", "🎮 B"}, titles); diff != "" {
		t.Fatalf("each key should be announced once (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"A", "B"}, env.store.Snapshot(core.KindGame).Seen.Sorted()); diff != "" {
		t.Fatalf("seen mismatch (-want +got):\n%s", diff)
	}
}

func TestGamesAndFixesRunsDoNotWaitOnEachOther(t *testing.T) {
	env := newTestEnv(t, core.FeatureNew, core.FeatureFixed)
	unlock := env.store.Lock(core.KindGame)
	defer unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := NewFixes(env.deps, gamesmock.Items(core.NewFix("Alpha", "https://f/a", ""))).Run(context.Background()); err != nil {
			t.Errorf("Run: %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("fixes run blocked behind the games lock")
	}
	if diff := cmp.Diff([]string{"🛠️#Alpha"}, env.sender.Titles()); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
}

func snapshotWith(keys ...string) core.Snapshot {
	snap := core.NewSnapshot()
	snap.Seen.Add(keys...)
	return snap
}
