// Package logging implements the logr.Logger the generator reports through,
// printing one line per event on top of log/slog.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-courier/logr"
)

// New returns a logger writing to w. Debug events are printed only when debug
// is set.
func New(w io.Writer, debug bool) logr.Logger {
	lvl := slog.LevelInfo
	if debug {
		lvl = levelTrace
	}
	return &logger{
		ctx:  context.Background(),
		slog: slog.New(&handler{w: w, mu: &sync.Mutex{}, lvl: lvl}),
	}
}

// levelTrace is below slog's debug level; it is enabled together with debug.
const levelTrace = slog.LevelDebug - 4

// debugSpan marks spans whose end is only reported at debug level.
const debugSpan = "debug:"

// Inject returns ctx carrying l.
func Inject(ctx context.Context, l logr.Logger) context.Context {
	return logr.WithLogger(ctx, l)
}

// handler renders records as
//
//	--- DONE: run Automation (1.2ms) [dir=bdd]
//	--- WARN: run Automation: constructor NewEmpty takes no parameters
//	--- FAILED: run Automation
//	<error>
type handler struct {
	w     io.Writer
	mu    *sync.Mutex
	lvl   slog.Level
	attrs []slog.Attr
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	span := ""
	cost := ""
	var extra []string

	collect := func(attr slog.Attr) bool {
		switch attr.Key {
		case "span":
			span = attr.Value.String()
		case "cost":
			cost = attr.Value.Duration().String()
		default:
			extra = append(extra, attr.Key+"="+attr.Value.String())
		}
		return true
	}
	for _, attr := range h.attrs {
		collect(attr)
	}
	r.Attrs(collect)

	line := bytes.NewBuffer(nil)
	line.WriteString("--- ")
	switch {
	case r.Level >= slog.LevelError:
		line.WriteString("FAILED: ")
	case r.Level >= slog.LevelWarn:
		line.WriteString("WARN: ")
	case r.Level >= slog.LevelDebug && r.Level < slog.LevelInfo:
		line.WriteString("DEBUG: ")
	case r.Level < slog.LevelDebug:
		line.WriteString("TRACE: ")
	case cost != "":
		line.WriteString("DONE: ")
	}
	line.WriteString(span)
	if cost != "" {
		line.WriteString(" (")
		line.WriteString(cost)
		line.WriteString(")")
	}
	if r.Message != "" && r.Level < slog.LevelError {
		if span != "" {
			line.WriteString(": ")
		}
		line.WriteString(r.Message)
	}
	if len(extra) > 0 {
		line.WriteString(" [")
		line.WriteString(strings.Join(extra, " "))
		line.WriteString("]")
	}
	if r.Level >= slog.LevelError {
		line.WriteByte('\n')
		line.WriteString(r.Message)
	}
	line.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(line.Bytes())
	return err
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hh := *h
	hh.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &hh
}

func (h *handler) WithGroup(string) slog.Handler { return h }

func (h *handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.lvl
}

var _ logr.Logger = (*logger)(nil)

type logger struct {
	slog      *slog.Logger
	ctx       context.Context
	spans     []string
	attrs     []any
	startedAt time.Time
	debug     bool
}

func (d logger) WithValues(keyAndValues ...any) logr.Logger {
	d.attrs = append(append([]any(nil), d.attrs...), keyAndValues...)
	return &d
}

func (d *logger) Start(ctx context.Context, name string, keyAndValues ...any) (context.Context, logr.Logger) {
	ll := &logger{
		slog: d.slog,
		ctx:  ctx,

		spans:     append(append([]string(nil), d.spans...), strings.TrimPrefix(name, debugSpan)),
		attrs:     append(append([]any(nil), d.attrs...), keyAndValues...),
		startedAt: time.Now(),
		debug:     strings.HasPrefix(name, debugSpan),
	}

	return logr.WithLogger(ctx, ll), ll
}

// End reports the span with its cost. Spans started with a "debug:" name
// are reported at debug level only.
func (d *logger) End() {
	if d.startedAt.IsZero() {
		return
	}
	lvl := slog.LevelInfo
	if d.debug {
		lvl = slog.LevelDebug
	}
	if !d.slog.Enabled(d.ctx, lvl) {
		return
	}
	d.slog.Log(d.ctx, lvl, "", append(d.toAttrs(), slog.Duration("cost", time.Since(d.startedAt)))...)
}

func (d *logger) toAttrs() []any {
	attrs := append([]any(nil), d.attrs...)
	if len(d.spans) == 0 {
		return attrs
	}
	return append(attrs, slog.String("span", strings.Join(d.spans, " ")))
}

func (d *logger) Trace(format string, args ...any) {
	if !d.slog.Enabled(d.ctx, levelTrace) {
		return
	}
	d.slog.Log(d.ctx, levelTrace, fmt.Sprintf(format, args...), d.toAttrs()...)
}

func (d *logger) Debug(format string, args ...any) {
	if !d.slog.Enabled(d.ctx, slog.LevelDebug) {
		return
	}
	d.slog.Log(d.ctx, slog.LevelDebug, fmt.Sprintf(format, args...), d.toAttrs()...)
}

func (d *logger) Info(format string, args ...any) {
	if !d.slog.Enabled(d.ctx, slog.LevelInfo) {
		return
	}
	d.slog.Log(d.ctx, slog.LevelInfo, fmt.Sprintf(format, args...), d.toAttrs()...)
}

func (d *logger) Warn(err error) {
	if !d.slog.Enabled(d.ctx, slog.LevelWarn) {
		return
	}
	d.slog.Log(d.ctx, slog.LevelWarn, err.Error(), d.toAttrs()...)
}

func (d *logger) Error(err error) {
	d.slog.Log(d.ctx, slog.LevelError, err.Error(), d.toAttrs()...)
}

// Fatal reports err and exits the process.
func (d *logger) Fatal(err error) {
	d.Error(err)
	os.Exit(1)
}

// Panic reports err and panics with it.
func (d *logger) Panic(err error) {
	d.Error(err)
	panic(err)
}
