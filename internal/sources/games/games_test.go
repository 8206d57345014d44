package games

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	"github.com/bakkerme/manifest-watch/internal/core"
)

func decode(t *testing.T, raw string) []any {
	t.Helper()
	var out []any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestNormalizeAliases(t *testing.T) {
	records := decode(t, `[
		{"title": "  Alpha  ", "appid": 10, "img": "a.png"},
		{"name": "Beta", "id": "20", "header_image": "b.png"},
		{"title": "", "name": "Gamma", "appid": 0, "id": 30, "image": "g.png"},
		{"appid": 40},
		{"title": "Delta"},
		{"title": "Big", "appid": 12345678901},
		"not an object"
	]`)

	got := NormalizeAll(records)
	want := []core.Item{
		core.NewGame("Alpha", "10", "a.png"),
		core.NewGame("Beta", "20", "b.png"),
		core.NewGame("Gamma", "30", "g.png"),
		core.NewGame("Unknown Game (40)", "40", ""),
		core.NewGame("Delta", MissingAppID, ""),
		core.NewGame("Big", "12345678901", ""),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("NormalizeAll mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeIgnoresNonStringImage(t *testing.T) {
	item := Normalize(map[string]any{"title": "A", "appid": "1", "img": 5})
	if item.Game.Image != "" {
		t.Fatalf("expected empty image, got %q", item.Game.Image)
	}
}
