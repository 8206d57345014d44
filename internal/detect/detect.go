// Package detect classifies fetched items against a snapshot.
//
// Detect is pure: it performs no I/O and never mutates the snapshot it is given.
// The returned snapshot is what the caller persists once notification is done.
package detect

import (
	"sort"

	"github.com/bakkerme/manifest-watch/internal/core"
)

type Result struct {
	New      []core.Item
	Updated  []core.Item
	Snapshot core.Snapshot
}

// Empty reports whether nothing needs to be notified.
func (r Result) Empty() bool {
	return len(r.New) == 0 && len(r.Updated) == 0
}

// Detect dispatches on kind. Items of another kind are ignored.
func Detect(kind core.Kind, fresh []core.Item, snap core.Snapshot) Result {
	switch kind {
	case core.KindGame:
		return Games(fresh, snap)
	case core.KindFix:
		return Fixes(fresh, snap)
	default:
		return Result{Snapshot: snap.Clone()}
	}
}

// Games marks a key New when it was never seen and Updated when it was seen with a
// different payload. Both lists are sorted by key. Within one fetch the last
// occurrence of a key wins.
func Games(fresh []core.Item, snap core.Snapshot) Result {
	next := snap.Clone()

	current := make(map[string]core.GamePayload, len(fresh))
	for _, item := range fresh {
		if item.Kind != core.KindGame || item.Game == nil {
			continue
		}
		current[item.Key] = *item.Game
	}

	var result Result
	for key, payload := range current {
		switch {
		case !snap.Seen.Has(key):
			result.New = append(result.New, core.Item{Key: key, Kind: core.KindGame, Game: gamePayload(payload)})
		case snap.Payloads[key] != payload:
			result.Updated = append(result.Updated, core.Item{Key: key, Kind: core.KindGame, Game: gamePayload(payload)})
		}
		next.Payloads[key] = payload
	}
	sortByKey(result.New)
	sortByKey(result.Updated)

	for _, item := range result.New {
		next.Seen.Add(item.Key)
	}
	for _, item := range result.Updated {
		next.Updated.Add(item.Key)
	}
	result.Snapshot = next
	return result
}

// Fixes marks a key New when it was never seen. Fetch order is kept and a key
// repeated within one fetch is reported once.
func Fixes(fresh []core.Item, snap core.Snapshot) Result {
	next := snap.Clone()
	var result Result
	for _, item := range fresh {
		if item.Kind != core.KindFix || item.Key == "" {
			continue
		}
		if next.Seen.Has(item.Key) {
			continue
		}
		next.Seen.Add(item.Key)
		result.New = append(result.New, item)
	}
	result.Snapshot = next
	return result
}

func gamePayload(p core.GamePayload) *core.GamePayload {
	return &p
}

func sortByKey(items []core.Item) {
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
}
