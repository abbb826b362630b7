// Package logging builds the server's slog logger and a few attribute helpers.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Output formats accepted by New
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// ErrUnknownFormat is returned for a format other than auto, text or json
var ErrUnknownFormat = errors.New("unknown log format")

var (
	okColor     = color.New(color.FgGreen)
	clientColor = color.New(color.FgYellow)
	serverColor = color.New(color.FgRed, color.Bold)
)

// New creates a logger writing to w.
// The auto format picks text for terminals and JSON otherwise; status
// colors are only enabled when w is a terminal.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}

	term := IsTerminal(w)
	setColor(term)

	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(format) {
	case FormatAuto, "":
		if term {
			return slog.New(slog.NewTextHandler(w, opts)), nil
		}
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Discard returns a logger that drops everything
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// IsTerminal reports whether w is a terminal
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func setColor(on bool) {
	for _, c := range []*color.Color{okColor, clientColor, serverColor} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// Status renders an HTTP status code, colored by class when enabled
func Status(code int) string {
	s := strconv.Itoa(code)
	switch {
	case code >= 500:
		return serverColor.Sprint(s)
	case code >= 400:
		return clientColor.Sprint(s)
	case code >= 200 && code < 300:
		return okColor.Sprint(s)
	}
	return s
}

// Error creates an attribute for an error under the key "error".
// Returns an empty Attr for nil so it can be passed unconditionally.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Fd creates an attribute for a socket descriptor
func Fd(fd int) slog.Attr {
	return slog.Int("fd", fd)
}
