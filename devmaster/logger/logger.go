package logger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
)

type LogType string

const (
	TypeHTTP    LogType = "HTTP"
	TypeDB      LogType = "DB"
	TypeGrader  LogType = "GRADE"
	TypePayment LogType = "PAY"
	TypeSystem  LogType = "SYS"
	TypeError   LogType = "ERR"
)

// Handler is a compact colored console handler for slog. It prefixes each
// line with the service name and the "type" attribute when one is set.
type Handler struct {
	opts    *slog.HandlerOptions
	service string
	attrs   []slog.Attr
	groups  []string
}

func NewHandler(service string, level slog.Level) *Handler {
	return &Handler{
		opts:    &slog.HandlerOptions{Level: level},
		service: service,
		attrs:   make([]slog.Attr, 0),
		groups:  make([]string, 0),
	}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		opts:    h.opts,
		service: h.service,
		attrs:   append(h.attrs, attrs...),
		groups:  h.groups,
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		opts:    h.opts,
		service: h.service,
		attrs:   h.attrs,
		groups:  append(h.groups, name),
	}
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	timestamp := time.Now().Format("15:04:05")

	var levelColor, levelText string
	switch r.Level {
	case slog.LevelDebug:
		levelColor = colorPurple
		levelText = "DEBUG"
	case slog.LevelInfo:
		levelColor = colorGreen
		levelText = "INFO"
	case slog.LevelWarn:
		levelColor = colorYellow
		levelText = "WARN"
	case slog.LevelError:
		levelColor = colorRed
		levelText = "ERROR"
	}

	logType := ""
	var parts []string
	collect := func(a slog.Attr) bool {
		if a.Key == "type" {
			logType = strings.ToUpper(a.Value.String())
			return true
		}
		parts = append(parts, fmt.Sprintf("%s=%v", a.Key, a.Value))
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	line := fmt.Sprintf("%s[%s]%s %s%s%s",
		colorBlue, h.service, colorReset,
		levelColor, levelText, colorReset)
	if logType != "" {
		line += fmt.Sprintf(" %s[%s]%s", colorCyan, logType, colorReset)
	}
	line += " " + timestamp + " " + r.Message
	if len(parts) > 0 {
		line += " " + strings.Join(parts, " ")
	}

	fmt.Println(line)
	return nil
}
