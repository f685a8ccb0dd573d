// Package ui renders the command-line tool's terminal output.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)
)

// Printer writes styled output. Errors go to a separate stream.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// New returns a printer over out and errOut.
func New(out, errOut io.Writer) *Printer {
	return &Printer{Out: out, Err: errOut}
}

// Stdio prints to the process streams.
func Stdio() *Printer {
	return New(os.Stdout, os.Stderr)
}

// Header prints a boxed title.
func (p *Printer) Header(title, subtitle string) {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Padding(0, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			TitleStyle.Render(title),
			SecondaryStyle.Render(subtitle),
		))
	fmt.Fprintln(p.Out, box)
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.Out, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// Error prints an error message.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.Err, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// Warning prints a warning.
func (p *Printer) Warning(format string, args ...any) {
	fmt.Fprintln(p.Out, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// Info prints an informational line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.Out, InfoStyle.Render("ℹ "+fmt.Sprintf(format, args...)))
}

// Step prints a numbered progress line.
func (p *Printer) Step(step, total int, message string) {
	fmt.Fprintf(p.Out, "%s %s\n", SecondaryStyle.Render(fmt.Sprintf("[%d/%d]", step, total)), message)
}

// List prints a bulleted list.
func (p *Printer) List(items []string) {
	for _, item := range items {
		fmt.Fprintf(p.Out, "  • %s\n", item)
	}
}

// Table prints rows under headers.
func (p *Printer) Table(headers []string, rows [][]string) error {
	data := pterm.TableData{headers}
	data = append(data, rows...)
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(p.Out, s)
	return nil
}

// Markdown renders markdown for the terminal.
func (p *Printer) Markdown(content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(content)
	if err != nil {
		return err
	}
	fmt.Fprint(p.Out, out)
	return nil
}

// SQL prints statements, one per line, keywords highlighted.
func (p *Printer) SQL(statements []string) {
	keyword := color.New(color.FgCyan, color.Bold)
	for _, st := range statements {
		verb, rest, _ := strings.Cut(st, " ")
		fmt.Fprintf(p.Out, "    %s %s;\n", keyword.Sprint(verb), rest)
	}
}

// Confirm asks a yes/no question. With assumeYes nothing is asked.
func (p *Printer) Confirm(message string, assumeYes bool) (bool, error) {
	if assumeYes {
		return true, nil
	}
	ok := false
	err := survey.AskOne(&survey.Confirm{Message: message, Default: false}, &ok)
	return ok, err
}
