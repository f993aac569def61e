// Package ui renders wasyncd's command output: leveled status lines for a
// human at a terminal, or JSON envelopes when the output is piped into
// another tool. It also carries the daemon-specific line shapes the status
// and doctor commands print (per-world sync lines, indented check lines).
package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// OutputFormat selects between human-readable and JSON rendering.
type OutputFormat string

const (
	FormatHuman OutputFormat = "human"
	FormatJSON  OutputFormat = "json"
)

// level classifies a message line: it picks the glyph, the glyph's color,
// and the status field of the JSON envelope.
type level int

const (
	levelInfo level = iota
	levelSuccess
	levelWarning
	levelError
)

var levels = [...]struct {
	status string
	glyph  string
	paint  func(format string, a ...interface{}) string
}{
	levelInfo:    {status: "info"},
	levelSuccess: {status: "success", glyph: "✓", paint: color.GreenString},
	levelWarning: {status: "warning", glyph: "⚠", paint: color.YellowString},
	levelError:   {status: "error", glyph: "✗", paint: color.RedString},
}

// Output writes command output in the selected format.
type Output struct {
	writer       io.Writer
	format       OutputFormat
	colorEnabled bool
}

// NewOutput builds an Output for writer: human-readable colored lines on a
// TTY, JSON when piped or redirected.
func NewOutput(writer io.Writer) *Output {
	o := &Output{writer: writer, format: FormatHuman}
	if file, ok := writer.(*os.File); ok {
		info, err := file.Stat()
		if err == nil && info.Mode()&os.ModeCharDevice != 0 {
			o.colorEnabled = true
		} else {
			o.format = FormatJSON
		}
	}
	return o
}

// SetFormat overrides the detected output format.
func (o *Output) SetFormat(format OutputFormat) {
	o.format = format
	o.colorEnabled = format == FormatHuman
}

// SetColorEnabled overrides color detection.
func (o *Output) SetColorEnabled(enabled bool) {
	o.colorEnabled = enabled
}

// IsJSON reports whether output is rendered as JSON.
func (o *Output) IsJSON() bool {
	return o.format == FormatJSON
}

func (o *Output) print(lv level, message string) {
	if o.IsJSON() {
		_ = o.JSON(map[string]interface{}{"status": levels[lv].status, "message": message})
		return
	}

	glyph := levels[lv].glyph
	if glyph == "" {
		fmt.Fprintln(o.writer, message)
		return
	}
	if o.colorEnabled {
		glyph = levels[lv].paint(glyph)
	}
	fmt.Fprintf(o.writer, "%s %s\n", glyph, message)
}

// Info prints a plain informational message.
func (o *Output) Info(message string) { o.print(levelInfo, message) }

// Success prints a message with the success glyph.
func (o *Output) Success(message string) { o.print(levelSuccess, message) }

// Warning prints a message with the warning glyph.
func (o *Output) Warning(message string) { o.print(levelWarning, message) }

// Error prints a message with the error glyph.
func (o *Output) Error(message string) { o.print(levelError, message) }

// Infof is Info with formatting.
func (o *Output) Infof(format string, args ...interface{}) {
	o.Info(fmt.Sprintf(format, args...))
}

// Successf is Success with formatting.
func (o *Output) Successf(format string, args ...interface{}) {
	o.Success(fmt.Sprintf(format, args...))
}

// Warningf is Warning with formatting.
func (o *Output) Warningf(format string, args ...interface{}) {
	o.Warning(fmt.Sprintf(format, args...))
}

// Errorf is Error with formatting.
func (o *Output) Errorf(format string, args ...interface{}) {
	o.Error(fmt.Sprintf(format, args...))
}

// Header prints a bold section title. Suppressed in JSON format, where only
// structured envelopes belong on the stream.
func (o *Output) Header(title string) {
	if o.IsJSON() {
		return
	}
	if o.colorEnabled {
		title = color.New(color.Bold).Sprint(title)
	}
	fmt.Fprintf(o.writer, "\n%s\n", title)
}

// Separator prints a horizontal rule. Suppressed in JSON format.
func (o *Output) Separator() {
	if o.IsJSON() {
		return
	}
	fmt.Fprintln(o.writer, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}

// JSON encodes data onto the stream as indented JSON.
func (o *Output) JSON(data interface{}) error {
	enc := json.NewEncoder(o.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// WorldLine renders one tracked world's last-tick sync line for the status
// command. The sync status picks the line's level: synced worlds read as
// successes, errored worlds as errors, anything else (pending, unknown) as
// plain info.
func (o *Output) WorldLine(url, status, detail string) {
	line := url + ": " + status
	if detail != "" {
		line += " (" + detail + ")"
	}
	switch status {
	case "synced":
		o.print(levelSuccess, line)
	case "error":
		o.print(levelError, line)
	default:
		o.print(levelInfo, line)
	}
}

// Checkline renders one indented diagnostic check line for the doctor
// command: "  - " for passing checks, "  ! " for warnings, "  x " for
// failures, matching the doctor report's indentation.
func (o *Output) Checkline(status, message string) {
	switch status {
	case "ok":
		o.print(levelSuccess, "  - "+message)
	case "warning":
		o.print(levelWarning, "  ! "+message)
	default:
		o.print(levelError, "  x "+message)
	}
}
