package logger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

const nameKey = "logger"

var levelColors = map[slog.Level]*color.Color{
	slog.LevelDebug: color.New(color.Faint),
	slog.LevelInfo:  color.New(color.FgGreen),
	slog.LevelWarn:  color.New(color.FgYellow, color.Bold),
	slog.LevelError: color.New(color.FgRed, color.Bold),
}

// consoleHandler writes one line per record:
//
//	15:04:05 INFO  [name] message key=value ...
type consoleHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	level slog.Leveler
	name  string
	attrs []slog.Attr
}

func newConsoleHandler(w io.Writer, level slog.Leveler) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h *consoleHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.Format("15:04:05"))
	buf.WriteByte(' ')

	lvl := fmt.Sprintf("%-5s", r.Level.String())
	if c, ok := levelColors[r.Level]; ok {
		lvl = c.Sprint(lvl)
	}
	buf.WriteString(lvl)
	buf.WriteByte(' ')

	if h.name != "" {
		buf.WriteString("[" + h.name + "] ")
	}
	buf.WriteString(r.Message)

	for _, a := range h.attrs {
		writeAttr(&buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func writeAttr(buf *bytes.Buffer, a slog.Attr) {
	v := a.Value.Resolve()
	if a.Key == "" {
		return
	}
	s := v.String()
	if strings.ContainsAny(s, " \t\"") {
		s = fmt.Sprintf("%q", s)
	}
	buf.WriteByte(' ')
	buf.WriteString(a.Key)
	buf.WriteByte('=')
	buf.WriteString(s)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if a.Key == nameKey {
			if next.name == "" {
				next.name = a.Value.String()
			} else {
				next.name += "." + a.Value.String()
			}
			continue
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup is not used by this package; groups are flattened.
func (h *consoleHandler) WithGroup(string) slog.Handler { return h }
