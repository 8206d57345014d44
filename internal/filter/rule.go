// Package filter drops fetched items that match configured expr rules before they
// reach change detection.
package filter

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bakkerme/manifest-watch/internal/config"
	"github.com/bakkerme/manifest-watch/internal/core"
)

type Rule struct {
	name    string
	kind    core.Kind
	drop    bool
	program *vm.Program
}

func NewRule(cfg config.FilterRule) (*Rule, error) {
	if cfg.Name == "" || cfg.Rule == "" {
		return nil, fmt.Errorf("filter rule name and expression are required")
	}
	program, err := expr.Compile(cfg.Rule, expr.Env(itemEnv(core.Item{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter rule %s: %w", cfg.Name, err)
	}
	return &Rule{
		name:    cfg.Name,
		kind:    core.Kind(cfg.Kind),
		drop:    cfg.Result != "keep",
		program: program,
	}, nil
}

func (r *Rule) Name() string {
	return r.name
}

// Applies reports whether the rule looks at items of kind.
func (r *Rule) Applies(kind core.Kind) bool {
	return r.kind == "" || r.kind == kind
}

// Keep evaluates the rule against one item. A "drop" rule keeps items it does not
// match; a "keep" rule keeps only the items it matches.
func (r *Rule) Keep(item core.Item) (bool, error) {
	if !r.Applies(item.Kind) {
		return true, nil
	}
	result, err := expr.Run(r.program, itemEnv(item))
	if err != nil {
		return true, fmt.Errorf("filter rule %s: %w", r.name, err)
	}
	matched, ok := result.(bool)
	if !ok {
		return true, fmt.Errorf("filter rule %s did not return bool", r.name)
	}
	if r.drop {
		return !matched, nil
	}
	return matched, nil
}

// Rules is an ordered set of filter rules; an item must pass all of them.
type Rules []*Rule

func NewRules(cfgs []config.FilterRule) (Rules, error) {
	rules := make(Rules, 0, len(cfgs))
	for _, cfg := range cfgs {
		rule, err := NewRule(cfg)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Apply returns the items every rule keeps, in input order. An item whose rule
// evaluation fails is kept and the error logged.
func (rs Rules) Apply(ctx context.Context, items []core.Item) []core.Item {
	if len(rs) == 0 {
		return items
	}
	logger := core.LoggerFromContext(ctx)
	kept := make([]core.Item, 0, len(items))
	for _, item := range items {
		keep := true
		for _, rule := range rs {
			ok, err := rule.Keep(item)
			if err != nil {
				logger.Warn("filter rule failed, keeping item", "rule", rule.Name(), "key", item.Key, "error", err)
				continue
			}
			if !ok {
				logger.Debug("item dropped by filter", "rule", rule.Name(), "key", item.Key)
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, item)
		}
	}
	return kept
}

func itemEnv(item core.Item) map[string]interface{} {
	env := map[string]interface{}{
		"title":    item.Key,
		"kind":     string(item.Kind),
		"appid":    "",
		"image":    "",
		"download": "",
		"size":     "",
	}
	if item.Game != nil {
		env["appid"] = item.Game.AppID
		env["image"] = item.Game.Image
	}
	if item.Fix != nil {
		env["download"] = item.Fix.Download
		env["size"] = item.Fix.Size
	}
	return env
}
