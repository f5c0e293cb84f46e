package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grimm.is/rulestage/internal/client"
	"grimm.is/rulestage/internal/rules"
)

// Watcher delivers rule-change notifications as collection paths.
type Watcher interface {
	WatchRules(ctx context.Context, onChange func(path string)) error
}

// Console is the full set of category controllers sharing one transport.
type Console struct {
	order       []rules.Category
	controllers map[rules.Category]*Controller
	opts        Options
}

// New builds one controller per category. delays overrides the settle
// delay per category; categories absent from it keep the default.
func New(transport client.Transport, opts Options, delays map[rules.Category]time.Duration) *Console {
	if opts.Logger != nil {
		opts.Logger = opts.Logger.WithComponent("console")
	}
	c := &Console{
		controllers: make(map[rules.Category]*Controller),
		opts:        opts,
	}
	for _, cat := range rules.All() {
		desc := rules.MustLookup(cat)
		if d, ok := delays[cat]; ok {
			desc.SettleDelay = d
		}
		c.order = append(c.order, cat)
		c.controllers[cat] = NewController(desc, transport, opts)
	}
	return c
}

// Categories returns the categories in display order.
func (c *Console) Categories() []rules.Category {
	return append([]rules.Category(nil), c.order...)
}

// Controller returns the controller for cat.
func (c *Console) Controller(cat rules.Category) (*Controller, error) {
	ctl, ok := c.controllers[cat]
	if !ok {
		return nil, fmt.Errorf("unknown category %q", cat)
	}
	return ctl, nil
}

// SetOnChange registers fn on every controller; fn receives the category
// whose state changed.
func (c *Console) SetOnChange(fn func(rules.Category)) {
	for _, cat := range c.order {
		cat := cat
		c.controllers[cat].SetOnChange(func() { fn(cat) })
	}
}

// RefreshAll loads the active list of every category. Failures do not stop
// the remaining categories; they are joined in the result.
func (c *Console) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, cat := range c.order {
		if err := c.controllers[cat].RefreshActive(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cat, err))
		}
	}
	return errors.Join(errs...)
}

// HandleChange refreshes the category served at path right away. It is the
// push-notification entry point; unknown paths are ignored.
func (c *Console) HandleChange(ctx context.Context, path string) {
	cat, ok := rules.ByPath(path)
	if !ok {
		return
	}
	ctl := c.controllers[cat]
	ctl.RefreshActive(ctx)
	ctl.notify()
}

// Watch feeds notifications from w into HandleChange until ctx is done.
func (c *Console) Watch(ctx context.Context, w Watcher) error {
	return w.WatchRules(ctx, func(path string) {
		c.HandleChange(ctx, path)
	})
}

// PendingDrafts returns the staged-draft count per category.
func (c *Console) PendingDrafts() map[rules.Category]int {
	out := make(map[rules.Category]int, len(c.order))
	for _, cat := range c.order {
		ctl := c.controllers[cat]
		ctl.mu.Lock()
		out[cat] = ctl.drafts.Len()
		ctl.mu.Unlock()
	}
	return out
}

// Close stops every controller.
func (c *Console) Close() {
	for _, ctl := range c.controllers {
		ctl.Close()
	}
}
