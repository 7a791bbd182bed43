// Package console provides line-oriented prompts and styled output for the
// interactive terminal tools.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Console reads answers from in and writes styled lines to out.
// Styling is dropped automatically when out is not a terminal.
type Console struct {
	in  *bufio.Reader
	out io.Writer

	title   lipgloss.Style
	prompt  lipgloss.Style
	success lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
}

// New returns a console over in and out.
func New(in io.Reader, out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		in:      bufio.NewReader(in),
		out:     out,
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")),
		prompt:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("#00B4D8")),
		success: r.NewStyle().Foreground(lipgloss.Color("#2E9E44")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("#E09F3E")),
		fail:    r.NewStyle().Foreground(lipgloss.Color("#D62828")),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#8D99AE")),
	}
}

// Out is the underlying writer.
func (c *Console) Out() io.Writer {
	return c.out
}

//nolint:errcheck // console output
func (c *Console) line(style lipgloss.Style, format string, args ...any) {
	fmt.Fprintln(c.out, style.Render(fmt.Sprintf(format, args...)))
}

// Title prints a heading.
func (c *Console) Title(format string, args ...any) { c.line(c.title, format, args...) }

// Success prints a positive result.
func (c *Console) Success(format string, args ...any) { c.line(c.success, format, args...) }

// Warn prints a recoverable problem.
func (c *Console) Warn(format string, args ...any) { c.line(c.warn, format, args...) }

// Fail prints a negative result.
func (c *Console) Fail(format string, args ...any) { c.line(c.fail, format, args...) }

// Info prints secondary text.
func (c *Console) Info(format string, args ...any) { c.line(c.muted, format, args...) }

// Println prints an unstyled line.
//
//nolint:errcheck // console output
func (c *Console) Println(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

// Prompt writes label and reads one line with surrounding space trimmed.
// It returns io.EOF once input is exhausted with nothing left to read.
func (c *Console) Prompt(label string) (string, error) {
	if _, err := fmt.Fprint(c.out, c.prompt.Render(label)); err != nil {
		return "", err
	}

	text, err := c.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && text != "" {
			return strings.TrimSpace(text), nil
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}
