package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// textHandler writes one line per record:
//
//	15:04:05.000 INFO  console[traffic]: rules submitted count=2
//
// component and category attributes are lifted into the prefix.
type textHandler struct {
	opts       slog.HandlerOptions
	out        io.Writer
	mu         *sync.Mutex
	timeFormat string
	attrs      []slog.Attr
}

func newTextHandler(out io.Writer, opts *slog.HandlerOptions, timeFormat string) *textHandler {
	if timeFormat == "" {
		timeFormat = "15:04:05.000"
	}
	return &textHandler{opts: *opts, out: out, mu: &sync.Mutex{}, timeFormat: timeFormat}
}

func (h *textHandler) Enabled(_ context.Context, level slog.Level) bool {
	return enabled(h.opts.Level, level)
}

func (h *textHandler) Handle(_ context.Context, r slog.Record) error {
	component, category, rest := split(h.attrs, r)

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	var b strings.Builder
	b.WriteString(t.Format(h.timeFormat))
	fmt.Fprintf(&b, " %-5s ", r.Level.String())
	if component != "" {
		b.WriteString(component)
		if category != "" {
			b.WriteString("[" + category + "]")
		}
		b.WriteString(": ")
	}
	b.WriteString(r.Message)
	for _, a := range rest {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		v := a.Value.Resolve().String()
		if strings.ContainsAny(v, " \t\n\"=") {
			v = fmt.Sprintf("%q", v)
		}
		b.WriteString(v)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func (h *textHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &c
}

// WithGroup is a no-op; output is flat.
func (h *textHandler) WithGroup(string) slog.Handler { return h }

// activityHandler copies every enabled record into an ActivityLog before
// handing it to next.
type activityHandler struct {
	next  slog.Handler
	log   *ActivityLog
	attrs []slog.Attr
}

func (h *activityHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *activityHandler) Handle(ctx context.Context, r slog.Record) error {
	component, category, _ := split(h.attrs, r)
	h.log.Add(Entry{
		Time:      r.Time,
		Level:     levelName(r.Level),
		Component: component,
		Category:  category,
		Message:   r.Message,
	})
	return h.next.Handle(ctx, r)
}

func (h *activityHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &activityHandler{
		next:  h.next.WithAttrs(attrs),
		log:   h.log,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *activityHandler) WithGroup(name string) slog.Handler {
	return &activityHandler{next: h.next.WithGroup(name), log: h.log, attrs: h.attrs}
}

// split pulls component and category out of the bound and record
// attributes. Record attributes win over bound ones.
func split(bound []slog.Attr, r slog.Record) (component, category string, rest []slog.Attr) {
	take := func(a slog.Attr) {
		switch a.Key {
		case "component":
			component = strings.ToLower(a.Value.String())
		case "category":
			category = a.Value.String()
		default:
			rest = append(rest, a)
		}
	}
	for _, a := range bound {
		take(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		take(a)
		return true
	})
	return component, category, rest
}

func enabled(l slog.Leveler, level slog.Level) bool {
	threshold := slog.LevelInfo
	if l != nil {
		threshold = l.Level()
	}
	return level >= threshold
}

func levelName(level slog.Level) string {
	switch {
	case level <= slog.LevelDebug:
		return "debug"
	case level <= slog.LevelInfo:
		return "info"
	case level <= slog.LevelWarn:
		return "warn"
	default:
		return "error"
	}
}
