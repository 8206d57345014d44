// Package notify renders items into chat messages and delivers them.
package notify

import (
	"context"

	"github.com/bakkerme/manifest-watch/internal/core"
	"github.com/bakkerme/manifest-watch/internal/observability/metrics"
	"github.com/bakkerme/manifest-watch/internal/outputs/chat"
)

// Outcome is the delivery result for one item.
type Outcome struct {
	Key string
	Ref chat.MessageRef
	Err error
}

type Notifier struct {
	sender   chat.Sender
	renderer Renderer
	metrics  *metrics.Metrics
}

func New(sender chat.Sender, renderer Renderer, m *metrics.Metrics) *Notifier {
	return &Notifier{sender: sender, renderer: renderer, metrics: m}
}

// Deliver posts one message per item to channel. A zero channel means the feature
// is unbound and nothing is attempted. A failed item is logged and recorded in its
// Outcome; the remaining items are still sent.
func (n *Notifier) Deliver(ctx context.Context, feature core.Feature, items []core.Item, channel core.ChannelID) []Outcome {
	if channel == 0 || len(items) == 0 {
		return nil
	}
	logger := core.LoggerFromContext(ctx)
	outcomes := make([]Outcome, 0, len(items))
	for _, item := range items {
		ref, err := n.sender.Send(ctx, channel, n.renderer.Alert(feature, item))
		n.metrics.ObserveDelivery(string(feature), err)
		if err != nil {
			logger.Warn("failed to deliver notification", "feature", feature, "key", item.Key, "channel", channel, "error", err)
		}
		outcomes = append(outcomes, Outcome{Key: item.Key, Ref: ref, Err: err})
	}
	return outcomes
}

// Failed counts the outcomes that carry an error.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
