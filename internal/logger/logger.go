// Package logger prints tagged, optionally coloured console output.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	blue   = "\033[34m"
	cyan   = "\033[36m"
)

var mu sync.Mutex

// out is resolved on every call so tests can swap os.Stdout.
func out() io.Writer { return os.Stdout }

func colorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func paint(color, s string) string {
	if !colorEnabled() {
		return s
	}
	return color + s + reset
}

func line(color, level, tag, msg string) {
	mu.Lock()
	defer mu.Unlock()
	ts := time.Now().Format("15:04:05")
	fmt.Fprintf(out(), "%s %s %s %s\n",
		paint(dim, ts),
		paint(color, fmt.Sprintf("%-4s", level)),
		paint(bold, "["+tag+"]"),
		msg,
	)
}

// Info prints a neutral progress message.
func Info(tag, msg string) { line(blue, "INFO", tag, msg) }

// Success prints a completed-step message.
func Success(tag, msg string) { line(green, "OK", tag, msg) }

// Warn prints a recoverable problem.
func Warn(tag, msg string) { line(yellow, "WARN", tag, msg) }

// Error prints a failure.
func Error(tag, msg string) { line(red, "ERR", tag, msg) }

// Banner prints the start-up banner.
func Banner(version string) {
	if version == "" {
		version = "dev"
	}
	mu.Lock()
	defer mu.Unlock()
	title := "Bazaar Flipper " + version
	rule := strings.Repeat("=", len(title)+4)
	fmt.Fprintln(out(), paint(cyan, rule))
	fmt.Fprintln(out(), paint(cyan+bold, "  "+title))
	fmt.Fprintln(out(), paint(cyan, rule))
}

// Section prints a heading for a block of Stats lines.
func Section(title string) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out(), "\n%s\n", paint(bold, "-- "+title+" --"))
}

// Stats prints one aligned key/value line. Integers get thousands separators.
func Stats(key string, value interface{}) {
	var v string
	switch n := value.(type) {
	case int:
		v = humanize.Comma(int64(n))
	case int32:
		v = humanize.Comma(int64(n))
	case int64:
		v = humanize.Comma(n)
	case float64:
		v = humanize.CommafWithDigits(n, 1)
	default:
		v = fmt.Sprint(value)
	}
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(out(), "  %-22s %s\n", key+":", paint(cyan, v))
}

// Server prints the listen address.
func Server(addr string) {
	line(green, "OK", "Server", "Listening on http://"+addr)
}
