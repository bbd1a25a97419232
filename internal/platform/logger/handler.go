package logger

import (
	"context"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Level is the minimum level to emit. Defaults to slog.LevelInfo.
	Level slog.Leveler
	// Renderer formats records. Defaults to RenderJSON.
	Renderer Renderer
}

// Handler is a slog.Handler that builds a Record per call, renders it with
// the configured Renderer and writes one line to its output.
//
// Handlers derived through WithAttrs and WithGroup share the output and its
// lock, so lines from different loggers never interleave.
type Handler struct {
	mu     *sync.Mutex
	out    io.Writer
	level  slog.Leveler
	render Renderer
	attrs  []Attr
	prefix string
}

// NewHandler creates a Handler writing to out.
func NewHandler(out io.Writer, opts *HandlerOptions) *Handler {
	h := &Handler{
		mu:     &sync.Mutex{},
		out:    out,
		level:  slog.LevelInfo,
		render: RenderJSON,
	}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		if opts.Renderer != nil {
			h.render = opts.Renderer
		}
	}
	return h
}

// Enabled implements the slog.Handler interface.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// WithAttrs implements the slog.Handler interface.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := h.clone()
	for _, a := range attrs {
		h2.attrs = appendAttr(h2.attrs, h2.prefix, a)
	}
	return h2
}

// WithGroup implements the slog.Handler interface.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := h.clone()
	h2.prefix = h.prefix + name + "."
	return h2
}

func (h *Handler) clone() *Handler {
	return &Handler{
		mu:     h.mu,
		out:    h.out,
		level:  h.level,
		render: h.render,
		attrs:  append([]Attr(nil), h.attrs...),
		prefix: h.prefix,
	}
}

// Handle implements the slog.Handler interface. It never returns an error:
// write failures and rendering panics are dropped so that logging cannot
// break the caller.
func (h *Handler) Handle(_ context.Context, r slog.Record) (err error) {
	defer func() {
		if recover() != nil {
			err = nil
		}
	}()

	rec := Record{
		Time:    r.Time,
		Level:   r.Level,
		Message: r.Message,
		Attrs:   make([]Attr, 0, len(h.attrs)+r.NumAttrs()),
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	rec.Module, rec.Function = callerInfo(r.PC)

	rec.Attrs = append(rec.Attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs = appendAttr(rec.Attrs, h.prefix, a)
		return true
	})

	line := h.render(rec)

	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = h.out.Write(line)
	return nil
}

// appendAttr resolves a and appends it to dst, flattening groups into
// dotted keys. Empty attributes and empty groups are dropped.
func appendAttr(dst []Attr, prefix string, a slog.Attr) []Attr {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		if len(group) == 0 {
			return dst
		}
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range group {
			dst = appendAttr(dst, p, ga)
		}
		return dst
	}

	return append(dst, Attr{Key: prefix + a.Key, Value: a.Value.Any()})
}

// callerInfo resolves the package and function name of the call site.
// The package is taken from the source directory, which stays correct when
// the compiler inlines the enclosing constructor into another package.
// Both are empty when pc is unknown.
func callerInfo(pc uintptr) (module, function string) {
	if pc == 0 {
		return "", ""
	}
	frames := runtime.CallersFrames([]uintptr{pc})
	frame, _ := frames.Next()

	module, function = splitFuncName(frame.Function)
	if frame.File != "" {
		module = path.Base(path.Dir(filepath.ToSlash(frame.File)))
	}
	return module, trimInlinedCaller(function)
}

// trimInlinedCaller drops the caller prefix the compiler adds to closures
// of inlined functions, so "(*application).setupRouter.NewTraceMiddleware.func4.1"
// becomes "NewTraceMiddleware.func4.1".
func trimInlinedCaller(fn string) string {
	parts := splitQualified(fn)
	closure := -1
	for i, p := range parts {
		if isClosureName(p) {
			closure = i
			break
		}
	}
	// A closure of a plain function or method has at most a receiver and a
	// name in front of it.
	if closure < 3 {
		return fn
	}

	start := closure - 1
	if isReceiver(parts[start-1]) {
		start--
	}
	return strings.Join(parts[start:], ".")
}

// splitQualified splits fn on dots that are not inside a receiver or a
// generic type argument list.
func splitQualified(fn string) []string {
	var parts []string
	depth, last := 0, 0
	for i := 0; i < len(fn); i++ {
		switch fn[i] {
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '.':
			if depth == 0 {
				parts = append(parts, fn[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, fn[last:])
}

func isClosureName(s string) bool {
	digits := strings.TrimPrefix(s, "func")
	if digits == s || digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isReceiver(s string) bool {
	return strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
}

// splitFuncName splits a fully qualified runtime function name such as
// "github.com/a/b/internal/api.(*Handler).Health" into the package name
// ("api") and the function ("(*Handler).Health").
func splitFuncName(full string) (pkg, fn string) {
	if full == "" {
		return "", ""
	}
	slash := strings.LastIndex(full, "/")
	dot := strings.Index(full[slash+1:], ".")
	if dot < 0 {
		return "", full
	}
	split := slash + 1 + dot
	return path.Base(full[:split]), full[split+1:]
}
