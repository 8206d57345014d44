// Package games normalizes records of the upstream game-manifest catalog.
package games

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/bakkerme/manifest-watch/internal/core"
)

// MissingAppID is recorded when a catalog record carries no app id.
const MissingAppID = "N/A"

// Fetcher returns the current catalog as normalized game items.
type Fetcher interface {
	Fetch(ctx context.Context) core.FetchResult
}

// Normalize maps one raw catalog record onto a game item. Field aliases are
// title|name, appid|id and img|image|header_image; the first non-empty alias wins.
func Normalize(record map[string]any) core.Item {
	appID := MissingAppID
	if v, ok := firstValue(record, "appid", "id"); ok {
		appID = stringify(v)
	}
	title := ""
	if v, ok := firstValue(record, "title", "name"); ok {
		title = strings.TrimSpace(stringify(v))
	}
	if title == "" {
		title = fmt.Sprintf("Unknown Game (%s)", appID)
	}
	image := ""
	if v, ok := firstValue(record, "img", "image", "header_image"); ok {
		if s, isString := v.(string); isString {
			image = s
		}
	}
	return core.NewGame(title, appID, image)
}

// NormalizeAll normalizes every object in records and skips anything else.
func NormalizeAll(records []any) []core.Item {
	items := make([]core.Item, 0, len(records))
	for _, raw := range records {
		record, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		items = append(items, Normalize(record))
	}
	return items
}

func firstValue(record map[string]any, keys ...string) (any, bool) {
	for _, key := range keys {
		v, ok := record[key]
		if ok && present(v) {
			return v, true
		}
	}
	return nil, false
}

// present treats null, "", zero and false as absent so an empty alias falls
// through to the next one.
func present(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case string:
		return value != ""
	case bool:
		return value
	case json.Number:
		f, err := value.Float64()
		return err != nil || f != 0
	case float64:
		return value != 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case json.Number:
		return value.String()
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return fmt.Sprint(value)
	}
}
