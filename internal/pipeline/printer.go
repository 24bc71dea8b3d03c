package pipeline

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
)

func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LogDebug
	case "warn", "warning":
		return LogWarn
	case "error":
		return LogError
	default:
		return LogInfo
	}
}

var (
	styleOK    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	styleFail  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	styleDebug = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Printer serializes all human-readable output. A nil Printer is valid
// and discards everything.
type Printer struct {
	out        io.Writer
	level      LogLevel
	quiet      bool
	titleWidth int
}

func NewPrinter(out io.Writer, level LogLevel, quiet bool) *Printer {
	if out == nil {
		out = os.Stderr
	}
	titleWidth := terminalColumns() - 44
	if titleWidth < 20 {
		titleWidth = 20
	}
	if titleWidth > 60 {
		titleWidth = 60
	}
	return &Printer{out: out, level: level, quiet: quiet, titleWidth: titleWidth}
}

func (p *Printer) Log(level LogLevel, msg string) {
	if p == nil || level < p.level || (p.quiet && level < LogError) {
		return
	}
	var label string
	switch level {
	case LogDebug:
		label = styleDebug.Render("DEBUG")
	case LogWarn:
		label = styleWarn.Render("WARN")
	case LogError:
		label = styleFail.Render("ERROR")
	default:
		label = "INFO"
	}
	fmt.Fprintf(p.out, "%s %s\n", label, msg)
}

func (p *Printer) Prefix(index, total int, title string) string {
	if p == nil {
		return ""
	}
	if total <= 0 {
		total = 1
	}
	width := len(strconv.Itoa(total))
	idx := fmt.Sprintf("%*d/%d", width, index, total)
	return fmt.Sprintf("[%s] %-*s", idx, p.titleWidth, truncateText(title, p.titleWidth))
}

func (p *Printer) ItemResult(prefix, location string, bytes int64, err error) {
	if p == nil || (err == nil && p.quiet) {
		return
	}
	if err != nil {
		fmt.Fprintf(p.out, "%s %s %s\n", prefix, styleFail.Render("FAIL"), err.Error())
		return
	}
	detail := location
	if bytes > 0 {
		detail = fmt.Sprintf("%s %s", padLeft(humanBytes(bytes), 9), location)
	}
	fmt.Fprintf(p.out, "%s %s %s\n", prefix, styleOK.Render("OK"), detail)
}

func (p *Printer) Summary(total, ok, failed int, bytes int64) {
	if p == nil || p.quiet {
		return
	}
	fmt.Fprintf(p.out, "Summary: %s %d | %s %d | TOTAL %d | SIZE %s\n",
		styleOK.Render("OK"), ok, styleFail.Render("FAIL"), failed, total, humanBytes(bytes))
}

func padLeft(value string, width int) string {
	if len(value) >= width {
		return value
	}
	return strings.Repeat(" ", width-len(value)) + value
}

func truncateText(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	if max <= 3 {
		return text[:max]
	}
	return text[:max-3] + "..."
}

func terminalColumns() int {
	if columns := os.Getenv("COLUMNS"); columns != "" {
		if val, err := strconv.Atoi(columns); err == nil && val > 0 {
			return val
		}
	}
	return 100
}
