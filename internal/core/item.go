package core

import (
	"sort"
	"strconv"
)

// Kind identifies which upstream an Item was normalized from.
type Kind string

const (
	KindGame Kind = "game"
	KindFix  Kind = "fix"
)

// Feature is one tracked category with its own destination binding.
type Feature string

const (
	FeatureNew    Feature = "new"
	FeatureUpdate Feature = "update"
	FeatureFixed  Feature = "fixed"
	FeatureStatus Feature = "status"
)

// Features lists the features that carry a channel binding in the config root.
var Features = []Feature{FeatureNew, FeatureUpdate, FeatureFixed}

// ParseFeature accepts the feature names used by the setup command.
func ParseFeature(raw string) (Feature, bool) {
	switch Feature(raw) {
	case FeatureNew, FeatureUpdate, FeatureFixed:
		return Feature(raw), true
	default:
		return "", false
	}
}

// Label is the human readable feature name used in replies.
func (f Feature) Label() string {
	switch f {
	case FeatureNew:
		return "New"
	case FeatureUpdate:
		return "Updated"
	case FeatureFixed:
		return "Fixed"
	case FeatureStatus:
		return "Status"
	default:
		return string(f)
	}
}

// ChannelID is a chat platform channel snowflake.
type ChannelID int64

func (c ChannelID) String() string {
	return strconv.FormatInt(int64(c), 10)
}

// ParseChannelID parses a snowflake as sent by the chat platform.
func ParseChannelID(raw string) (ChannelID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return ChannelID(id), nil
}

// GamePayload is the part of a catalog record that is compared between polls.
// Image is empty when the upstream record has none.
type GamePayload struct {
	AppID string `json:"appid" yaml:"appid"`
	Image string `json:"image" yaml:"image"`
}

// FixPayload describes one downloadable fix. Size is empty when not listed.
type FixPayload struct {
	Download string `json:"download" yaml:"download"`
	Size     string `json:"size" yaml:"size"`
}

// Item is a normalized unit of tracked content. Exactly one of Game or Fix is set,
// matching Kind.
type Item struct {
	Key  string       `json:"key" yaml:"key"`
	Kind Kind         `json:"kind" yaml:"kind"`
	Game *GamePayload `json:"game,omitempty" yaml:"game,omitempty"`
	Fix  *FixPayload  `json:"fix,omitempty" yaml:"fix,omitempty"`
}

func NewGame(title, appID, image string) Item {
	return Item{Key: title, Kind: KindGame, Game: &GamePayload{AppID: appID, Image: image}}
}

func NewFix(title, download, size string) Item {
	return Item{Key: title, Kind: KindFix, Fix: &FixPayload{Download: download, Size: size}}
}

// KeySet is an unordered set of item keys.
type KeySet map[string]struct{}

func NewKeySet(keys ...string) KeySet {
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s KeySet) Add(keys ...string) {
	for _, k := range keys {
		s[k] = struct{}{}
	}
}

// Sorted returns the keys in lexicographic order.
func (s KeySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Snapshot is the persisted "seen" state of one kind of item.
// Updated and Payloads are only used for games.
type Snapshot struct {
	Seen     KeySet
	Updated  KeySet
	Payloads map[string]GamePayload
}

func NewSnapshot() Snapshot {
	return Snapshot{
		Seen:     KeySet{},
		Updated:  KeySet{},
		Payloads: map[string]GamePayload{},
	}
}

// Clone returns a deep copy; nil members come back as empty maps.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Seen:     s.Seen.Clone(),
		Updated:  s.Updated.Clone(),
		Payloads: make(map[string]GamePayload, len(s.Payloads)),
	}
	for k, v := range s.Payloads {
		out.Payloads[k] = v
	}
	return out
}
