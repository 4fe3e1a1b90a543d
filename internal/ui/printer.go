package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Field is an ordered key/value line in headers and result boxes.
type Field struct {
	Key   string
	Value string
}

// Printer writes styled output to a writer.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	p.width = width
	return p
}

// Width returns the current terminal width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.out
}

// Print writes content to the output
func (p *Printer) Print(content string) {
	_, _ = fmt.Fprint(p.out, content)
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// Newline prints an empty line
func (p *Printer) Newline() {
	_, _ = fmt.Fprintln(p.out)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params []Field) {
	p.Println(RenderHeader(title, command, params, p.width))
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details []Field) {
	p.Println(RenderSuccessBox(title, details, p.width))
}

// PrintWarning prints a warning result box
func (p *Printer) PrintWarning(title string, details []Field) {
	p.Println(RenderWarningBox(title, details, p.width))
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

func clampWidth(width int) int {
	if width < MinTerminalWidth {
		return MinTerminalWidth
	}
	return width
}

// RenderHeader renders a command header box
func RenderHeader(title, command string, params []Field, width int) string {
	width = clampWidth(width)

	top := lipgloss.JoinVertical(lipgloss.Left,
		HeaderTitleStyle.Render(strings.ToUpper(title)),
		HeaderCommandStyle.Render(command),
	)
	if len(params) == 0 {
		return HeaderBorderStyle(width).Render(top)
	}

	lines := make([]string, 0, len(params))
	for _, f := range params {
		lines = append(lines, HeaderParamKeyStyle.Render(f.Key+":")+" "+HeaderParamValueStyle.Render(f.Value))
	}
	divider := RenderHorizontalDivider(max(width-6, 10), "─")

	content := lipgloss.JoinVertical(lipgloss.Left, top, divider, strings.Join(lines, "\n"))
	return HeaderBorderStyle(width).Render(content)
}

func renderDetails(details []Field) []string {
	lines := make([]string, 0, len(details))
	for _, f := range details {
		lines = append(lines, ResultKeyStyle.Render("   "+f.Key+":")+" "+ResultValueStyle.Render(f.Value))
	}
	return lines
}

// RenderSuccessBox renders a success result box
func RenderSuccessBox(title string, details []Field, width int) string {
	lines := []string{"", SuccessTitleStyle.Render("   " + SuccessMarker + "  SUCCESS  ─  " + title), ""}
	lines = append(lines, renderDetails(details)...)
	lines = append(lines, "")
	return boxStyle(SuccessColor, clampWidth(width)).Render(strings.Join(lines, "\n"))
}

// RenderWarningBox renders a warning result box
func RenderWarningBox(title string, details []Field, width int) string {
	lines := []string{"", WarningTitleStyle.Render("   " + WarningMarker + "  WARNING  ─  " + title), ""}
	lines = append(lines, renderDetails(details)...)
	lines = append(lines, "")
	return boxStyle(WarningColor, clampWidth(width)).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error result box with troubleshooting
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	width = clampWidth(width)
	lines := []string{"", ErrorTitleStyle.Render("   " + FailureMarker + "  FAILED  ─  " + title), ""}

	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+err.Error()), "")
	}

	if len(troubleshooting) > 0 {
		tips := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
		for _, tip := range troubleshooting {
			tips = append(tips, TroubleshootingItemStyle.Render("  • "+tip))
		}
		lines = append(lines, TroubleshootingBoxStyle(width).Render(strings.Join(tips, "\n")), "")
	}

	return boxStyle(ErrorColor, width).Render(strings.Join(lines, "\n"))
}
