// Package status classifies the blocks of the upstream status page.
package status

import (
	"context"
	"fmt"
	"strings"

	"github.com/bakkerme/manifest-watch/internal/core"
)

type Level string

const (
	LevelOperational Level = "operational"
	LevelDegraded    Level = "degraded"
	LevelOutage      Level = "outage"
	LevelUnknown     Level = "unknown"
)

// NoBlocksLine is reported when the page has no status blocks.
const NoBlocksLine = "ℹ️ Could not find status blocks"

func (l Level) Icon() string {
	switch l {
	case LevelOperational:
		return "✅"
	case LevelDegraded:
		return "⚠️"
	case LevelOutage:
		return "❌"
	default:
		return "ℹ️"
	}
}

// Classify maps a block's text to a level by case-insensitive substring. The
// checks run in order, so "ok" wins over the later keywords.
func Classify(text string) Level {
	low := strings.ToLower(text)
	switch {
	case strings.Contains(low, "ok"):
		return LevelOperational
	case strings.Contains(low, "maintenance"):
		return LevelDegraded
	case strings.Contains(low, "down"):
		return LevelOutage
	default:
		return LevelUnknown
	}
}

// Report is the rendered status text. Lines always holds at least one line; on
// failure it is a single diagnostic line.
type Report struct {
	Lines  []string
	Status core.FetchStatus
	Err    error
}

func (r Report) Text() string {
	return strings.Join(r.Lines, "\n")
}

// FormatLines renders one line per block in discovery order.
func FormatLines(blocks []string) []string {
	if len(blocks) == 0 {
		return []string{NoBlocksLine}
	}
	lines := make([]string, 0, len(blocks))
	for i, block := range blocks {
		text := strings.TrimSpace(block)
		lines = append(lines, fmt.Sprintf("%s Server %d: %s", Classify(text).Icon(), i+1, text))
	}
	return lines
}

// Failed renders the diagnostic report for a fetch error.
func Failed(err error) Report {
	return Report{
		Lines:  []string{fmt.Sprintf("❌ Error fetching status: %v", err)},
		Status: core.StatusFromError(err),
		Err:    err,
	}
}

// Fetcher produces the current status report. It never returns an empty report.
type Fetcher interface {
	Fetch(ctx context.Context) Report
}
