// Package output formats the terminal-facing messages roux's CLI commands
// print while a vault is being scanned and synced — status lines, sync
// summaries, and a progress bar for long scans over large vaults.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Writer wraps a cobra command's output stream with the icon+message
// convention used across init/serve/status: an emoji, a space, the message.
type Writer struct {
	out      io.Writer
	useColor bool
}

// New creates a Writer over out. Color is off by default; roux's styled
// output (see internal/ui) is layered separately on commands that want it.
func New(out io.Writer) *Writer {
	return &Writer{
		out:      out,
		useColor: false,
	}
}

// Status prints a message prefixed by icon, or indented to align with
// iconed lines when icon is empty.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf is Status with fmt.Sprintf-style formatting.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a completed-step message.
func (w *Writer) Success(msg string) {
	w.Status("✅", msg)
}

// Successf is Success with formatting.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a message for a condition that didn't stop the command —
// e.g. a parse error on one file during sync — but that the operator should
// see.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", msg)
}

// Warningf is Warning with formatting.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints a message for a condition that did stop the command.
func (w *Writer) Error(msg string) {
	w.Status("❌", msg)
}

// Errorf is Error with formatting.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// SyncSummary prints the one-line result of a coordinator sync: how many
// nodes are tracked and, when nonzero, how many of those are unresolved
// wiki-link targets (ghosts) rather than files on disk.
func (w *Writer) SyncSummary(nodeCount, ghostCount int) {
	if ghostCount > 0 {
		w.Successf("Indexed %d node(s), %d ghost(s) pending a matching file", nodeCount, ghostCount)
		return
	}
	w.Successf("Indexed %d node(s)", nodeCount)
}

// Code prints an indented block, used for echoing a vault's generated
// .roux.yaml or a frontmatter snippet back to the operator.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// Progress prints an in-place progress bar for a long scan, overwriting the
// previous line with a carriage return until current reaches total.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)

	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", bar, pct, msg)

	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// ProgressDone closes out a Progress line with a trailing newline.
func (w *Writer) ProgressDone() {
	_, _ = fmt.Fprintln(w.out)
}

func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}

	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))

	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
