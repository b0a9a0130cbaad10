package genkit

import (
	"fmt"
	"io"
	"strings"
)

const (
	ansiReset   = "\033[0m"
	ansiRed     = "\033[31m"
	ansiGreen   = "\033[32m"
	ansiYellow  = "\033[33m"
	ansiBlue    = "\033[34m"
	ansiMagenta = "\033[35m"
	ansiCyan    = "\033[36m"
	ansiGray    = "\033[90m"
)

// level is one kind of log line. Levels marked loud still print in
// quiet mode.
type level struct {
	emoji string
	color string
	tag   string
	loud  bool
}

// Narrow emoji get a trailing space so the level tags line up.
var (
	levelInfo  = level{emoji: "📦 ", color: ansiBlue, tag: "INFO"}
	levelWarn  = level{emoji: "⚠️ ", color: ansiYellow, tag: "WARN", loud: true}
	levelError = level{emoji: "❌", color: ansiRed, tag: "ERROR", loud: true}
	levelDone  = level{emoji: "✅ ", color: ansiGreen, tag: "DONE"}
	levelFind  = level{emoji: "🔍 ", color: ansiCyan, tag: "FIND"}
	levelWrite = level{emoji: "📝", color: ansiGreen, tag: "WRITE"}
	levelLoad  = level{emoji: "📂 ", color: ansiBlue, tag: "LOAD"}
)

// itemIndent aligns Item bullets under the message column.
const itemIndent = "           "

// Logger prints the progress of a zodgen run. Arguments are highlighted
// by kind: numbers, paths (quoted) and exported identifiers.
type Logger struct {
	w       io.Writer
	noColor bool
	quiet   bool
}

// NewLoggerWithWriter returns a Logger writing to w.
func NewLoggerWithWriter(w io.Writer) *Logger {
	return &Logger{w: w}
}

// SetNoColor disables ANSI colors.
func (l *Logger) SetNoColor(noColor bool) *Logger {
	l.noColor = noColor
	return l
}

// SetQuiet suppresses everything but warnings and errors.
func (l *Logger) SetQuiet(quiet bool) *Logger {
	l.quiet = quiet
	return l
}

func (l *Logger) Info(format string, args ...any)  { l.emit(levelInfo, format, args) }
func (l *Logger) Warn(format string, args ...any)  { l.emit(levelWarn, format, args) }
func (l *Logger) Error(format string, args ...any) { l.emit(levelError, format, args) }
func (l *Logger) Done(format string, args ...any)  { l.emit(levelDone, format, args) }
func (l *Logger) Find(format string, args ...any)  { l.emit(levelFind, format, args) }
func (l *Logger) Write(format string, args ...any) { l.emit(levelWrite, format, args) }
func (l *Logger) Load(format string, args ...any)  { l.emit(levelLoad, format, args) }

// Fail reports a schema class that could not be generated. The batch
// carries on, so this is an error line and nothing more.
func (l *Logger) Fail(class string, err error) {
	l.Error("%s: %v", class, err)
}

// Item prints a bullet under the previous line.
func (l *Logger) Item(format string, args ...any) {
	if l.quiet {
		return
	}
	_, _ = fmt.Fprintf(l.w, "%s%s %s\n", itemIndent, l.paint(ansiGray, "•"), l.sprintf(format, args))
}

func (l *Logger) emit(lv level, format string, args []any) {
	if l.quiet && !lv.loud {
		return
	}
	_, _ = fmt.Fprintf(l.w, "%s %s %s\n", lv.emoji, l.paint(lv.color, "["+lv.tag+"]"), l.sprintf(format, args))
}

func (l *Logger) sprintf(format string, args []any) string {
	styled := make([]any, len(args))
	for i, arg := range args {
		styled[i] = l.style(arg)
	}
	return fmt.Sprintf(format, styled...)
}

func (l *Logger) style(arg any) any {
	switch v := arg.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return l.paint(ansiYellow, fmt.Sprint(v))
	case error:
		return l.paint(ansiRed, v.Error())
	case string:
		switch {
		case looksLikePath(v):
			return l.paint(ansiMagenta, "'"+v+"'")
		case v != "" && v[0] >= 'A' && v[0] <= 'Z' && !strings.Contains(v, " "):
			return l.paint(ansiCyan, v)
		}
		return v
	}
	return arg
}

// looksLikePath matches import paths, file names and qualified names.
func looksLikePath(s string) bool {
	if strings.Contains(s, "/") {
		return true
	}
	return strings.Contains(s, ".") && !strings.Contains(s, " ")
}

func (l *Logger) paint(color, s string) string {
	if l.noColor {
		return s
	}
	return color + s + ansiReset
}
