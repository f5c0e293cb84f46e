// Package console holds the rule-staging engine shared by every category:
// a form validated per change, a local list of staged drafts, batch
// submission, and the mirror of rules active on the router.
package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"grimm.is/rulestage/internal/client"
	"grimm.is/rulestage/internal/clock"
	"grimm.is/rulestage/internal/logging"
	"grimm.is/rulestage/internal/metrics"
	"grimm.is/rulestage/internal/rules"
	"grimm.is/rulestage/internal/validation"
)

// NoticeKind classifies a user-facing notice.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeSuccess
	NoticeError
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "success"
	case NoticeError:
		return "error"
	default:
		return "info"
	}
}

// Notice is the single dismissible message shown for a category.
type Notice struct {
	Kind NoticeKind
	Text string
	At   time.Time
}

// Options configures a Controller. Zero values pick production defaults.
type Options struct {
	Clock   clock.Clock
	Logger  *logging.Logger
	Metrics *metrics.Registry
	// Context bounds scheduled refreshes. It is cancelled by Close.
	Context context.Context
	// RefreshTimeout bounds each scheduled refresh. Zero means no extra bound.
	RefreshTimeout time.Duration
}

// State is a point-in-time copy of a controller for rendering.
type State struct {
	Category    rules.Category
	Form        rules.Draft
	FieldErrors map[string]string
	Required    *RequiredFieldError
	Drafts      []rules.Draft
	Active      []rules.ActiveRule
	Notice      *Notice
	Busy        bool
	Loaded      bool
}

// Controller runs the staging workflow for one category.
type Controller struct {
	desc      *rules.Descriptor
	transport client.Transport
	clock     clock.Clock
	logger    *logging.Logger
	metrics   *metrics.Registry
	timeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	form       rules.Draft
	fieldErrs  map[string]*validation.FormatError
	required   *RequiredFieldError
	drafts     DraftStore
	active     Mirror
	loaded     bool
	notice     *Notice
	busy       int
	submitting bool
	issued     uint64
	applied    uint64
	timers     map[uint64]clock.Timer
	nextTimer  uint64
	closed     bool
	onChange   func()
}

// NewController builds a controller for the category described by desc.
func NewController(desc *rules.Descriptor, transport client.Transport, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clock.Default()
	}
	if opts.Logger == nil {
		opts.Logger = logging.WithComponent("console")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	ctx, cancel := context.WithCancel(opts.Context)

	return &Controller{
		desc:      desc,
		transport: transport,
		clock:     opts.Clock,
		logger:    opts.Logger.WithCategory(string(desc.Category)),
		metrics:   opts.Metrics,
		timeout:   opts.RefreshTimeout,
		ctx:       ctx,
		cancel:    cancel,
		form:      desc.Defaults(),
		fieldErrs: make(map[string]*validation.FormatError),
		timers:    make(map[uint64]clock.Timer),
	}
}

// Descriptor returns the category description the controller runs on.
func (c *Controller) Descriptor() *rules.Descriptor { return c.desc }

// Category returns the controller's category.
func (c *Controller) Category() rules.Category { return c.desc.Category }

// SetOnChange registers fn to run after state changes that happen outside
// a caller's own method call, such as a scheduled refresh completing.
func (c *Controller) SetOnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = fn
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (c *Controller) setNoticeLocked(kind NoticeKind, format string, args ...any) {
	c.notice = &Notice{Kind: kind, Text: fmt.Sprintf(format, args...), At: c.clock.Now()}
}

// DismissNotice clears the current notice.
func (c *Controller) DismissNotice() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = nil
}

// SetField updates one form value and re-checks it. The returned error is
// the field's *validation.FormatError, or nil once the value is valid or
// empty.
func (c *Controller) SetField(name, value string) error {
	f, ok := c.desc.Field(name)
	if !ok {
		return fmt.Errorf("unknown field %q for %s (fields: %v)", name, c.desc.Category, c.desc.FieldNames())
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.form[name] = value
	if fe := f.Check(value); fe != nil {
		c.fieldErrs[name] = fe
		return fe
	}
	delete(c.fieldErrs, name)
	return nil
}

// Fill sets several fields in form order and joins their format errors.
func (c *Controller) Fill(values map[string]string) error {
	var errs []error
	for name := range values {
		if _, ok := c.desc.Field(name); !ok {
			errs = append(errs, fmt.Errorf("unknown field %q for %s", name, c.desc.Category))
		}
	}
	for _, name := range c.desc.FieldNames() {
		v, ok := values[name]
		if !ok {
			continue
		}
		if err := c.SetField(name, v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ResetForm restores the defaults and clears form errors.
func (c *Controller) ResetForm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetFormLocked()
}

func (c *Controller) resetFormLocked() {
	c.form = c.desc.Defaults()
	c.fieldErrs = make(map[string]*validation.FormatError)
}

// AddRule stages the current form as a draft. Nothing is staged while a
// mandatory field is empty or any field fails its check.
func (c *Controller) AddRule() (rules.Draft, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if missing := c.desc.MissingRequired(c.form); len(missing) > 0 {
		c.required = &RequiredFieldError{Category: c.desc.Category, Fields: missing}
		c.setNoticeLocked(NoticeError, "Please fill in the required fields: %s", labels(c.desc, missing))
		return nil, c.required
	}

	c.fieldErrs = c.desc.Validate(c.form)
	if len(c.fieldErrs) > 0 {
		c.setNoticeLocked(NoticeError, "Please fix the form errors before adding the rule.")
		return nil, ErrFormInvalid
	}

	draft := c.form.Clone()
	c.drafts.Append(draft)
	c.required = nil
	c.resetFormLocked()
	c.metrics.SetDraftsPending(string(c.desc.Category), c.drafts.Len())
	c.logger.Debug("rule staged", "rule", c.desc.Summarize(draft), "pending", c.drafts.Len())
	return draft.Clone(), nil
}

// Stage fills a fresh form with values and stages it in one step, the way
// batch input (files, command-line pairs) enters the console. Nothing is
// staged when a field is unknown, malformed or missing.
func (c *Controller) Stage(values map[string]string) (rules.Draft, error) {
	c.ResetForm()
	if err := c.Fill(values); err != nil {
		return nil, err
	}
	return c.AddRule()
}

// DeleteDraft removes the staged draft at position i.
func (c *Controller) DeleteDraft(i int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.drafts.Delete(i); err != nil {
		return err
	}
	c.metrics.SetDraftsPending(string(c.desc.Category), c.drafts.Len())
	return nil
}

// ClearDrafts drops every staged draft.
func (c *Controller) ClearDrafts() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drafts.Clear()
	c.metrics.SetDraftsPending(string(c.desc.Category), 0)
}

// Submit sends every staged draft in one batch. On success the submitted
// drafts are removed and the active list is refreshed after the settle
// delay, or at once from the router's reply when it carries the new list.
// On failure the drafts stay staged for a manual retry.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.drafts.Len() == 0 {
		c.setNoticeLocked(NoticeInfo, "There are no staged rules to submit.")
		c.mu.Unlock()
		return ErrNothingToSubmit
	}
	if c.submitting {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	ids, drafts := c.drafts.snapshot()
	records := make([]map[string]any, len(drafts))
	for i, d := range drafts {
		records[i] = c.desc.Record(d)
	}
	c.submitting = true
	c.busy++
	c.mu.Unlock()

	c.logger.Info("submitting rules", "count", len(records))
	res, err := c.transport.CreateRules(ctx, c.desc.Path, records)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false
	c.busy--

	if err == nil && !res.Accepted {
		err = &LogicalFailureError{Op: "submit", Message: res.Message}
	}
	c.metrics.RecordSubmission(string(c.desc.Category), err)
	if err != nil {
		c.logger.Error("submit failed", "count", len(records), "error", err)
		c.setNoticeLocked(NoticeError, "Could not send rules to the firewall: %v", err)
		return err
	}

	c.drafts.removeIDs(ids)
	c.metrics.SetDraftsPending(string(c.desc.Category), c.drafts.Len())
	c.setNoticeLocked(NoticeSuccess, "%d rule(s) sent to the firewall.", len(records))
	c.afterMutationLocked(res.Rules)
	return nil
}

// DeleteActive asks the router to remove the active rule with key. The
// mirror is left as is until the follow-up refresh.
func (c *Controller) DeleteActive(ctx context.Context, key string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !c.active.Has(key) {
		c.setNoticeLocked(NoticeError, "Rule %s is not in the active list.", key)
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	c.busy++
	c.mu.Unlock()

	res, err := c.transport.DeleteRule(ctx, c.desc.Path, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy--

	if err != nil {
		c.logger.Error("delete failed", "key", key, "error", err)
		c.setNoticeLocked(NoticeError, "Could not delete rule %s: %v", key, err)
		return err
	}
	if !res.Success {
		lf := &LogicalFailureError{Op: "delete", Key: key, Message: res.Message}
		c.logger.Warn("delete refused", "key", key, "message", res.Message)
		c.setNoticeLocked(NoticeError, "The firewall refused to delete rule %s: %s", key, orDefault(res.Message, "unknown reason"))
		return lf
	}

	c.logger.Info("rule deleted", "key", key)
	c.setNoticeLocked(NoticeSuccess, "Rule %s deleted.", key)
	c.afterMutationLocked(res.Rules)
	return nil
}

// afterMutationLocked applies a post-mutation list when the router sent
// one and otherwise schedules a refresh after the settle delay.
func (c *Controller) afterMutationLocked(state []map[string]any) {
	if state != nil {
		c.issued++
		c.applyLocked(c.issued, state)
		return
	}
	c.scheduleRefreshLocked()
}

func (c *Controller) scheduleRefreshLocked() {
	if c.closed {
		return
	}
	c.nextTimer++
	id := c.nextTimer
	c.timers[id] = c.clock.AfterFunc(c.desc.SettleDelay, func() {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if !closed {
			ctx := c.ctx
			if c.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, c.timeout)
				defer cancel()
			}
			c.RefreshActive(ctx)
		}

		// The entry stays until the refresh has landed so PendingRefreshes
		// only drops to zero once the mirror is current.
		c.mu.Lock()
		delete(c.timers, id)
		c.mu.Unlock()
		if !closed {
			c.notify()
		}
	})
	c.logger.Debug("refresh scheduled", "delay", c.desc.SettleDelay)
}

// PendingRefreshes returns the number of scheduled refreshes that have not
// finished yet, including one whose list request is in flight.
func (c *Controller) PendingRefreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// RefreshActive re-reads the active list and replaces the mirror. A reply
// that arrives after a newer one has been applied is discarded.
func (c *Controller) RefreshActive(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.issued++
	seq := c.issued
	c.busy++
	c.mu.Unlock()

	raw, err := c.transport.ListRules(ctx, c.desc.Path)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy--
	c.metrics.RecordRefresh(string(c.desc.Category), err)

	if err != nil {
		c.logger.Warn("could not load active rules", "error", err)
		c.setNoticeLocked(NoticeError, "Could not load active rules: %v", err)
		return err
	}
	if seq <= c.applied {
		c.logger.Debug("discarding stale active list", "seq", seq, "applied", c.applied)
		return nil
	}
	c.applyLocked(seq, raw)
	return nil
}

func (c *Controller) applyLocked(seq uint64, raw []map[string]any) {
	if seq <= c.applied {
		return
	}
	list := make([]rules.ActiveRule, 0, len(raw))
	for _, r := range raw {
		ar, ok := c.desc.ParseActive(r)
		if !ok {
			c.logger.Warn("dropping active rule without key", "key_field", c.desc.KeyField)
			continue
		}
		list = append(list, ar)
	}
	c.active.Replace(list)
	c.applied = seq
	c.loaded = true
	c.logger.Debug("active list replaced", "count", len(list))
}

// Snapshot returns a copy of the controller state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := State{
		Category:    c.desc.Category,
		Form:        c.form.Clone(),
		FieldErrors: make(map[string]string, len(c.fieldErrs)),
		Drafts:      c.drafts.All(),
		Active:      c.active.All(),
		Busy:        c.busy > 0,
		Loaded:      c.loaded,
	}
	for k, fe := range c.fieldErrs {
		st.FieldErrors[k] = fe.Message
	}
	if c.required != nil {
		r := *c.required
		r.Fields = append([]string(nil), c.required.Fields...)
		st.Required = &r
	}
	if c.notice != nil {
		n := *c.notice
		st.Notice = &n
	}
	return st
}

// Close cancels scheduled refreshes. Further mutations return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.cancel()
}

func labels(d *rules.Descriptor, names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		if f, ok := d.Field(n); ok && f.Label != "" {
			out += f.Label
		} else {
			out += n
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
