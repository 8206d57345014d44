// Package store owns the configuration root: per-kind snapshots of seen items and
// the feature -> channel bindings, persisted as one JSON document.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/jsonfile"
	"github.com/bakkerme/manifest-watch/internal/retry"
)

// document is the on-disk layout. It is rewritten wholesale on every mutation.
type document struct {
	SeenNew         []string                    `json:"seen_new"`
	SeenUpdate      []string                    `json:"seen_update"`
	SeenFixed       []string                    `json:"seen_fixed"`
	ChannelIDNew    *core.ChannelID             `json:"channel_id_new"`
	ChannelIDUpdate *core.ChannelID             `json:"channel_id_update"`
	ChannelIDFixed  *core.ChannelID             `json:"channel_id_fixed"`
	GameCache       map[string]core.GamePayload `json:"game_cache"`
}

type state struct {
	games    core.Snapshot
	fixes    core.Snapshot
	bindings map[core.Feature]core.ChannelID
}

func (st state) clone() state {
	out := state{
		games:    st.games.Clone(),
		fixes:    st.fixes.Clone(),
		bindings: make(map[core.Feature]core.ChannelID, len(st.bindings)),
	}
	for k, v := range st.bindings {
		out.bindings[k] = v
	}
	return out
}

func (st state) document() document {
	doc := document{
		SeenNew:    st.games.Seen.Sorted(),
		SeenUpdate: st.games.Updated.Sorted(),
		SeenFixed:  st.fixes.Seen.Sorted(),
		GameCache:  make(map[string]core.GamePayload, len(st.games.Payloads)),
	}
	for k, v := range st.games.Payloads {
		doc.GameCache[k] = v
	}
	if id, ok := st.bindings[core.FeatureNew]; ok {
		doc.ChannelIDNew = &id
	}
	if id, ok := st.bindings[core.FeatureUpdate]; ok {
		doc.ChannelIDUpdate = &id
	}
	if id, ok := st.bindings[core.FeatureFixed]; ok {
		doc.ChannelIDFixed = &id
	}
	return doc
}

func stateFromDocument(doc document) state {
	st := state{
		games:    core.NewSnapshot(),
		fixes:    core.NewSnapshot(),
		bindings: map[core.Feature]core.ChannelID{},
	}
	st.games.Seen.Add(doc.SeenNew...)
	st.games.Updated.Add(doc.SeenUpdate...)
	st.fixes.Seen.Add(doc.SeenFixed...)
	for k, v := range doc.GameCache {
		st.games.Payloads[k] = v
	}
	if doc.ChannelIDNew != nil && *doc.ChannelIDNew != 0 {
		st.bindings[core.FeatureNew] = *doc.ChannelIDNew
	}
	if doc.ChannelIDUpdate != nil && *doc.ChannelIDUpdate != 0 {
		st.bindings[core.FeatureUpdate] = *doc.ChannelIDUpdate
	}
	if doc.ChannelIDFixed != nil && *doc.ChannelIDFixed != 0 {
		st.bindings[core.FeatureFixed] = *doc.ChannelIDFixed
	}
	return st
}

type Store struct {
	path   string
	logger *slog.Logger
	retry  retry.Config
	save   func(path string, v any) error

	mu    sync.RWMutex
	state state

	kindMu map[core.Kind]*sync.Mutex
}

// Open loads the config root from path. A missing file yields an empty root; a
// malformed file is an error so user data is never silently discarded.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var doc document
	found, err := jsonfile.Load(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("load config root: %w", err)
	}
	if !found {
		logger.Info("config root not found, starting empty", "path", path)
	}
	return &Store{
		path:   path,
		logger: logger,
		retry:  retry.Config{Attempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second},
		save:   jsonfile.Save,
		state:  stateFromDocument(doc),
		kindMu: map[core.Kind]*sync.Mutex{
			core.KindGame: {},
			core.KindFix:  {},
		},
	}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Lock serializes read-modify-write cycles on one kind's snapshot. Callers hold
// it from Snapshot through Commit.
func (s *Store) Lock(kind core.Kind) (unlock func()) {
	mu, ok := s.kindMu[kind]
	if !ok {
		panic(fmt.Sprintf("store: unknown kind %q", kind))
	}
	mu.Lock()
	return mu.Unlock
}

// Snapshot returns a copy of the snapshot for kind. Mutating it has no effect on
// the store until it is committed.
func (s *Store) Snapshot(kind core.Kind) core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch kind {
	case core.KindGame:
		return s.state.games.Clone()
	case core.KindFix:
		return s.state.fixes.Clone()
	default:
		return core.NewSnapshot()
	}
}

// Commit replaces the snapshot for kind and persists the whole root. The in-memory
// state only changes once the write succeeded.
func (s *Store) Commit(ctx context.Context, kind core.Kind, snap core.Snapshot) error {
	return s.mutate(ctx, func(next *state) error {
		switch kind {
		case core.KindGame:
			next.games = snap.Clone()
		case core.KindFix:
			next.fixes = snap.Clone()
		default:
			return fmt.Errorf("unknown kind %q", kind)
		}
		return nil
	})
}

// Binding returns the destination channel for feature, if one is configured.
func (s *Store) Binding(feature core.Feature) (core.ChannelID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.state.bindings[feature]
	return id, ok
}

// Bindings returns a copy of every configured feature binding.
func (s *Store) Bindings() map[core.Feature]core.ChannelID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[core.Feature]core.ChannelID, len(s.state.bindings))
	for k, v := range s.state.bindings {
		out[k] = v
	}
	return out
}

// Bind sets the destination channel for feature and persists the root.
func (s *Store) Bind(ctx context.Context, feature core.Feature, channel core.ChannelID) error {
	if _, ok := core.ParseFeature(string(feature)); !ok {
		return fmt.Errorf("feature %q cannot be bound", feature)
	}
	if channel == 0 {
		return fmt.Errorf("channel id is required")
	}
	return s.mutate(ctx, func(next *state) error {
		next.bindings[feature] = channel
		return nil
	})
}

func (s *Store) mutate(ctx context.Context, apply func(next *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	if err := apply(&next); err != nil {
		return err
	}
	doc := next.document()
	err := retry.Do(ctx, s.retry, func() error {
		return s.save(s.path, doc)
	})
	if err != nil {
		return fmt.Errorf("persist config root: %w", err)
	}
	s.state = next
	return nil
}
